//go:build !linux

package ioengine

import "os"

func fadvWillNeedPlatform(f *os.File, offset, length int64) {
	// No readahead hint available on this platform; prefetch is a no-op.
}
