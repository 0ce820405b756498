//go:build linux

package ioengine

import (
	"os"

	"golang.org/x/sys/unix"
)

func fadvWillNeedPlatform(f *os.File, offset, length int64) {
	unix.Fadvise(int(f.Fd()), offset, length, unix.FADV_WILLNEED)
}
