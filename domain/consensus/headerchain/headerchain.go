package headerchain

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/ibdsync/ibdsync/domain/consensus/ruleerrors"
	"github.com/pkg/errors"
)

// ChainView is the read-only view of a HeaderChain handed to a
// DifficultyCheck.
type ChainView interface {
	Len() int
	Tip() *wire.BlockHeader
	HeaderAt(index int) *wire.BlockHeader
}

// DifficultyCheck verifies a header's proof of work against the chain it is
// about to extend.
type DifficultyCheck interface {
	CheckDifficulty(header *wire.BlockHeader, chain ChainView) error
}

// NoDifficultyCheck accepts every header.
type NoDifficultyCheck struct{}

// CheckDifficulty always returns nil.
func (NoDifficultyCheck) CheckDifficulty(*wire.BlockHeader, ChainView) error {
	return nil
}

// HeaderChain is an append-only sequence of headers rooted at a trusted
// genesis header, where every header's PrevBlock is the hash of the header
// before it.
type HeaderChain struct {
	headers         []*wire.BlockHeader
	hashes          []chainhash.Hash
	indexes         map[chainhash.Hash]int
	difficultyCheck DifficultyCheck
}

// New returns a chain containing only genesis. A nil difficultyCheck is
// replaced with NoDifficultyCheck.
func New(genesis *wire.BlockHeader, difficultyCheck DifficultyCheck) *HeaderChain {
	if difficultyCheck == nil {
		difficultyCheck = NoDifficultyCheck{}
	}
	chain := &HeaderChain{
		indexes:         make(map[chainhash.Hash]int),
		difficultyCheck: difficultyCheck,
	}
	genesisCopy := *genesis
	chain.push(&genesisCopy)
	return chain
}

func (hc *HeaderChain) push(header *wire.BlockHeader) chainhash.Hash {
	hash := header.BlockHash()
	hc.indexes[hash] = len(hc.headers)
	hc.headers = append(hc.headers, header)
	hc.hashes = append(hc.hashes, hash)
	return hash
}

// Append validates that header links to the current tip and extends the
// chain with it, returning the new tip hash. The chain is left unmodified if
// validation fails.
func (hc *HeaderChain) Append(header *wire.BlockHeader) (*chainhash.Hash, error) {
	tipHash := hc.TipHash()
	if !header.PrevBlock.IsEqual(tipHash) {
		return nil, ruleerrors.NewErrChainDiscontinuity(tipHash, &header.PrevBlock, len(hc.headers))
	}
	err := hc.difficultyCheck.CheckDifficulty(header, hc)
	if err != nil {
		return nil, errors.Wrapf(err, "header at %d failed the difficulty check", len(hc.headers))
	}

	headerCopy := *header
	newTipHash := hc.push(&headerCopy)
	return &newTipHash, nil
}

// Tip returns a copy of the last header of the chain.
func (hc *HeaderChain) Tip() *wire.BlockHeader {
	return hc.HeaderAt(len(hc.headers) - 1)
}

// TipHash returns the hash of the last header of the chain.
func (hc *HeaderChain) TipHash() *chainhash.Hash {
	tipHash := hc.hashes[len(hc.hashes)-1]
	return &tipHash
}

// Len returns the number of headers in the chain, genesis included.
func (hc *HeaderChain) Len() int {
	return len(hc.headers)
}

// HeaderAt returns a copy of the header at index. It panics if index is out
// of range.
func (hc *HeaderChain) HeaderAt(index int) *wire.BlockHeader {
	headerCopy := *hc.headers[index]
	return &headerCopy
}

// HashAt returns the hash of the header at index, and false if index is out
// of range.
func (hc *HeaderChain) HashAt(index int) (*chainhash.Hash, bool) {
	if index < 0 || index >= len(hc.hashes) {
		return nil, false
	}
	hash := hc.hashes[index]
	return &hash, true
}

// IndexOf returns the position of the header with the given hash.
func (hc *HeaderChain) IndexOf(hash *chainhash.Hash) (int, bool) {
	index, ok := hc.indexes[*hash]
	return index, ok
}

// HashesRange returns the hashes of the headers in [start, end), with end
// clamped to the chain length.
func (hc *HeaderChain) HashesRange(start, end int) []*chainhash.Hash {
	if end > len(hc.hashes) {
		end = len(hc.hashes)
	}
	if start < 0 || start >= end {
		return nil
	}
	hashes := make([]*chainhash.Hash, 0, end-start)
	for i := start; i < end; i++ {
		hash := hc.hashes[i]
		hashes = append(hashes, &hash)
	}
	return hashes
}

// Validate re-checks the linkage of the whole chain.
func (hc *HeaderChain) Validate() error {
	for i := 1; i < len(hc.headers); i++ {
		previousHash := hc.headers[i-1].BlockHash()
		if !hc.headers[i].PrevBlock.IsEqual(&previousHash) {
			return ruleerrors.NewErrChainDiscontinuity(&previousHash, &hc.headers[i].PrevBlock, i)
		}
	}
	return nil
}
