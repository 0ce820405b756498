package metainfo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestMap() *FilePieceMap {
	return NewFilePieceMap([]FileEntry{
		{Subpath: "a.txt", Size: 100},
		{Subpath: "b.txt", Size: 200},
		{Subpath: "c.txt", Size: 50},
	}, 64)
}

func TestFilePieceMapBeginBytes(t *testing.T) {
	require := require.New(t)

	m := newTestMap()
	require.Equal(uint64(0), m.Files[0].BeginByte)
	require.Equal(uint64(100), m.Files[1].BeginByte)
	require.Equal(uint64(300), m.Files[2].BeginByte)
	require.Equal(uint64(350), m.TotalSize())
}

func TestFileForByte(t *testing.T) {
	require := require.New(t)

	m := newTestMap()

	i, ok := m.FileForByte(0)
	require.True(ok)
	require.Equal(0, i)

	i, ok = m.FileForByte(99)
	require.True(ok)
	require.Equal(0, i)

	i, ok = m.FileForByte(100)
	require.True(ok)
	require.Equal(1, i)

	i, ok = m.FileForByte(349)
	require.True(ok)
	require.Equal(2, i)

	_, ok = m.FileForByte(350)
	require.False(ok)
}

func TestFilesForPiece(t *testing.T) {
	require := require.New(t)

	m := newTestMap()

	// Piece 0: bytes [0,64) -> entirely file 0 (0-100).
	first, last, ok := m.FilesForPiece(0)
	require.True(ok)
	require.Equal(0, first)
	require.Equal(0, last)

	// Piece 1: bytes [64,128) -> spans file 0's end (99) into file 1.
	first, last, ok = m.FilesForPiece(1)
	require.True(ok)
	require.Equal(0, first)
	require.Equal(1, last)

	// Piece 2: bytes [128,192) -> entirely within file 1 (100-300).
	first, last, ok = m.FilesForPiece(2)
	require.True(ok)
	require.Equal(1, first)
	require.Equal(1, last)

	// Out of range piece.
	_, _, ok = m.FilesForPiece(100)
	require.False(ok)
}
