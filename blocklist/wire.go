package blocklist

import (
	"encoding/binary"
	"io"
)

// writeUint32 and hostUint32 use the host's native byte order, matching the
// binary form's "readable only by the same platform that wrote it"
// contract.
func writeUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.NativeEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func hostUint32(b []byte) uint32 {
	return binary.NativeEndian.Uint32(b)
}
