package chainparams

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

func TestGenesisAnchor(t *testing.T) {
	for _, params := range []*Params{MainnetParams, TestnetParams, RegtestParams, SimnetParams} {
		anchor := params.GenesisAnchor()
		hash := anchor.BlockHash()
		if !hash.IsEqual(params.GenesisHash) {
			t.Errorf("%s: genesis anchor hashes to %s, expected %s", params.Name, hash, params.GenesisHash)
		}
		if anchor.PrevBlock != (chainhash.Hash{}) {
			t.Errorf("%s: genesis anchor has a previous block %s", params.Name, anchor.PrevBlock)
		}
		if len(params.GenesisBlock.Transactions) == 0 {
			t.Errorf("%s: genesis block has no coinbase", params.Name)
		}
	}
}

func TestGenesisAnchorReturnsCopy(t *testing.T) {
	anchor := MainnetParams.GenesisAnchor()
	anchor.Nonce++

	again := MainnetParams.GenesisAnchor()
	hash := again.BlockHash()
	if !hash.IsEqual(MainnetParams.GenesisHash) {
		t.Fatalf("mutating a returned anchor changed the shared one")
	}
}

func TestCorruptedGenesisAnchorPanics(t *testing.T) {
	block := *MainnetParams.GenesisBlock
	block.Header.Nonce++
	params := &Params{
		Name:         "corrupted",
		Net:          wire.MainNet,
		GenesisBlock: &block,
		GenesisHash:  MainnetParams.GenesisHash,
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic for a corrupted genesis anchor")
		}
	}()
	params.GenesisAnchor()
}
