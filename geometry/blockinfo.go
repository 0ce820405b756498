// Package geometry computes the pure arithmetic that maps a torrent's
// linear byte content onto pieces and onto fixed-size protocol blocks. None
// of it touches I/O; it is frozen once a torrent's metainfo is loaded.
package geometry

// BlockSize is the fixed size of a peer-wire request/piece message payload,
// per the BitTorrent wire protocol.
const BlockSize uint32 = 16384

// BlockInfo holds the geometry derived from a torrent's total size and
// piece size. A PieceSize of 0 means "unknown metainfo" and every derived
// field collapses to 0.
type BlockInfo struct {
	TotalSize uint64
	PieceSize uint32
	BlockSize uint32

	NPieces        uint32
	NBlocks        uint32
	FinalPieceSize uint32
	FinalBlockSize uint32
}

// NewBlockInfo derives a BlockInfo from totalSize and pieceSize. blockSize
// defaults to BlockSize when 0.
func NewBlockInfo(totalSize uint64, pieceSize uint32, blockSize uint32) BlockInfo {
	if blockSize == 0 {
		blockSize = BlockSize
	}
	if pieceSize == 0 || totalSize == 0 {
		return BlockInfo{TotalSize: totalSize, PieceSize: pieceSize, BlockSize: blockSize}
	}

	nPieces := ceilDiv64(totalSize, uint64(pieceSize))
	nBlocks := ceilDiv64(totalSize, uint64(blockSize))

	finalPieceSize := uint32(totalSize - uint64(pieceSize)*uint64(nPieces-1))
	finalBlockSize := uint32(totalSize - uint64(blockSize)*uint64(nBlocks-1))

	return BlockInfo{
		TotalSize:      totalSize,
		PieceSize:      pieceSize,
		BlockSize:      blockSize,
		NPieces:        uint32(nPieces),
		NBlocks:        uint32(nBlocks),
		FinalPieceSize: finalPieceSize,
		FinalBlockSize: finalBlockSize,
	}
}

func ceilDiv64(n, d uint64) uint64 {
	return (n + d - 1) / d
}

// PieceLen returns the byte length of piece p, honoring the final
// (possibly short) piece.
func (b BlockInfo) PieceLen(p uint32) uint32 {
	if b.PieceSize == 0 || p >= b.NPieces {
		return 0
	}
	if p == b.NPieces-1 {
		return b.FinalPieceSize
	}
	return b.PieceSize
}

// BlockLen returns the byte length of block i, honoring the final
// (possibly short) block.
func (b BlockInfo) BlockLen(i uint32) uint32 {
	if b.BlockSize == 0 || i >= b.NBlocks {
		return 0
	}
	if i == b.NBlocks-1 {
		return b.FinalBlockSize
	}
	return b.BlockSize
}

// BlocksInPiece returns the [first, last] inclusive block indices spanned
// by piece p.
func (b BlockInfo) BlocksInPiece(p uint32) (first, last uint32) {
	if b.PieceSize == 0 {
		return 0, 0
	}
	start := uint64(p) * uint64(b.PieceSize)
	end := start + uint64(b.PieceLen(p)) - 1
	first = uint32(start / uint64(b.BlockSize))
	last = uint32(end / uint64(b.BlockSize))
	return first, last
}

// Location is the fully decomposed position of a byte offset within a
// torrent's piece/block geometry.
type Location struct {
	Byte        uint64
	Piece       uint32
	PieceOffset uint32
	Block       uint32
	BlockOffset uint32
}

// Locate resolves byte into a Location.
func (b BlockInfo) Locate(byte uint64) Location {
	if b.PieceSize == 0 {
		return Location{Byte: byte}
	}
	return Location{
		Byte:        byte,
		Piece:       uint32(byte / uint64(b.PieceSize)),
		PieceOffset: uint32(byte % uint64(b.PieceSize)),
		Block:       uint32(byte / uint64(b.BlockSize)),
		BlockOffset: uint32(byte % uint64(b.BlockSize)),
	}
}
