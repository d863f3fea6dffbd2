package blockstore

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/ibdsync/ibdsync/domain/consensus/ruleerrors"
)

// HeaderSource is the header chain a BlockStore is aligned with.
type HeaderSource interface {
	Len() int
	HashAt(index int) (*chainhash.Hash, bool)
}

// BlockStore is an append-only sequence of validated blocks where the block
// at index i belongs to the header at index i of its HeaderSource.
type BlockStore struct {
	headers HeaderSource
	blocks  []*wire.MsgBlock
}

// New returns a store aligned with headers, holding genesisBlock at index 0.
// genesisBlock is trusted and not validated.
func New(headers HeaderSource, genesisBlock *wire.MsgBlock) *BlockStore {
	return &BlockStore{
		headers: headers,
		blocks:  []*wire.MsgBlock{genesisBlock},
	}
}

// ValidateBlock checks the structural rules a block must satisfy regardless
// of its position: it must carry at least a coinbase transaction.
func ValidateBlock(block *wire.MsgBlock, position int) error {
	if len(block.Transactions) == 0 {
		blockHash := block.BlockHash()
		return ruleerrors.NewErrConsensusViolation(ruleerrors.ErrMissingCoinbase, position, &blockHash)
	}
	return nil
}

// Append validates block and stores it at the next position. The store is
// left unmodified if validation fails.
func (bs *BlockStore) Append(block *wire.MsgBlock) error {
	position := len(bs.blocks)
	err := ValidateBlock(block, position)
	if err != nil {
		return err
	}

	blockHash := block.BlockHash()
	expectedHash, ok := bs.headers.HashAt(position)
	if !ok {
		return ruleerrors.NewErrConsensusViolation(ruleerrors.ErrBlockWithoutHeader, position, &blockHash)
	}
	if !blockHash.IsEqual(expectedHash) {
		return ruleerrors.NewErrConsensusViolation(ruleerrors.ErrBlockHeaderMismatch, position, &blockHash)
	}

	bs.blocks = append(bs.blocks, block)
	return nil
}

// Size returns the number of blocks in the store, genesis included.
func (bs *BlockStore) Size() int {
	return len(bs.blocks)
}

// BlockAt returns the block at index. It panics if index is out of range.
func (bs *BlockStore) BlockAt(index int) *wire.MsgBlock {
	return bs.blocks[index]
}

// BlocksRange returns the blocks in [start, end), with end clamped to the
// store size.
func (bs *BlockStore) BlocksRange(start, end int) []*wire.MsgBlock {
	if end > len(bs.blocks) {
		end = len(bs.blocks)
	}
	if start < 0 || start >= end {
		return nil
	}
	return bs.blocks[start:end:end]
}

// Validate re-checks every stored block past genesis against the block
// rules and its header.
func (bs *BlockStore) Validate() error {
	if len(bs.blocks) > bs.headers.Len() {
		lastHash := bs.blocks[len(bs.blocks)-1].BlockHash()
		return ruleerrors.NewErrConsensusViolation(ruleerrors.ErrBlockWithoutHeader, len(bs.blocks)-1, &lastHash)
	}
	for i := 1; i < len(bs.blocks); i++ {
		block := bs.blocks[i]
		err := ValidateBlock(block, i)
		if err != nil {
			return err
		}
		blockHash := block.BlockHash()
		expectedHash, _ := bs.headers.HashAt(i)
		if !blockHash.IsEqual(expectedHash) {
			return ruleerrors.NewErrConsensusViolation(ruleerrors.ErrBlockHeaderMismatch, i, &blockHash)
		}
	}
	return nil
}
