package geometry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewBlockInfoExactMultiple(t *testing.T) {
	require := require.New(t)

	b := NewBlockInfo(32768, 16384, 16384)
	require.Equal(uint32(2), b.NPieces)
	require.Equal(uint32(2), b.NBlocks)
	require.Equal(uint32(16384), b.FinalPieceSize)
	require.Equal(uint32(16384), b.FinalBlockSize)
}

func TestNewBlockInfoWithRemainder(t *testing.T) {
	require := require.New(t)

	b := NewBlockInfo(100, 16384, 16384)
	require.Equal(uint32(1), b.NPieces)
	require.Equal(uint32(1), b.NBlocks)
	require.Equal(uint32(100), b.FinalPieceSize)
	require.Equal(uint32(100), b.FinalBlockSize)
}

func TestNewBlockInfoMultiBlockPiece(t *testing.T) {
	require := require.New(t)

	// 3 pieces of 32768 bytes, last piece short; blocks of 16384.
	b := NewBlockInfo(70000, 32768, 16384)
	require.Equal(uint32(3), b.NPieces)
	require.Equal(uint32(70000-32768*2), b.FinalPieceSize)

	first, last := b.BlocksInPiece(0)
	require.Equal(uint32(0), first)
	require.Equal(uint32(1), last)

	first, last = b.BlocksInPiece(2)
	require.Equal(uint32(4), first)
}

func TestNewBlockInfoUnknownMetainfo(t *testing.T) {
	require := require.New(t)

	b := NewBlockInfo(0, 0, 0)
	require.Equal(uint32(0), b.NPieces)
	require.Equal(uint32(0), b.NBlocks)
	require.Equal(uint32(0), b.PieceLen(0))
	require.Equal(uint32(0), b.BlockLen(0))
}

func TestLocate(t *testing.T) {
	require := require.New(t)

	b := NewBlockInfo(100000, 16384, 16384)
	loc := b.Locate(20000)
	require.Equal(uint64(20000), loc.Byte)
	require.Equal(uint32(1), loc.Piece)
	require.Equal(uint32(20000-16384), loc.PieceOffset)
	require.Equal(uint32(1), loc.Block)
}

func TestPieceLenOutOfRange(t *testing.T) {
	require := require.New(t)

	b := NewBlockInfo(100, 16384, 16384)
	require.Equal(uint32(0), b.PieceLen(5))
	require.Equal(uint32(0), b.BlockLen(5))
}
