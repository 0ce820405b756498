package cryptoutil

import (
	"encoding/base64"
	"strings"
)

// EncodeBase64 encodes p in standard base64.
func EncodeBase64(p []byte) string {
	return base64.StdEncoding.EncodeToString(p)
}

// DecodeBase64 decodes s, ignoring any CR/LF bytes first (some torrent
// clients wrap base64-encoded fields at 76 columns).
func DecodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' {
			return -1
		}
		return r
	}, s)
	return base64.StdEncoding.DecodeString(s)
}
