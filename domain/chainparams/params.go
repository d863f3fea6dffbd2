package chainparams

import (
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// Params defines the network a sync session runs against: its wire magic,
// default peer port and the trusted genesis block the header chain is
// anchored at.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// Net defines the magic bytes used to identify the network.
	Net wire.BitcoinNet

	// DefaultPort defines the default peer-to-peer port for the network.
	DefaultPort string

	// GenesisBlock defines the first block of the chain.
	GenesisBlock *wire.MsgBlock

	// GenesisHash is the well-known hash of the genesis block.
	GenesisHash *chainhash.Hash

	anchorOnce sync.Once
	anchor     *wire.BlockHeader
}

// GenesisAnchor returns the header every header chain on this network is
// rooted at. It is computed once per Params; a genesis block whose hash
// doesn't match GenesisHash is unrecoverable and panics.
func (p *Params) GenesisAnchor() *wire.BlockHeader {
	p.anchorOnce.Do(func() {
		header := p.GenesisBlock.Header
		hash := header.BlockHash()
		if !hash.IsEqual(p.GenesisHash) {
			panic(fmt.Sprintf("corrupted genesis anchor for %s: header hashes to %s, expected %s",
				p.Name, hash, p.GenesisHash))
		}
		p.anchor = &header
	})
	anchor := *p.anchor
	return &anchor
}

func fromChainConfig(params *chaincfg.Params) *Params {
	return &Params{
		Name:         params.Name,
		Net:          params.Net,
		DefaultPort:  params.DefaultPort,
		GenesisBlock: params.GenesisBlock,
		GenesisHash:  params.GenesisHash,
	}
}

var (
	// MainnetParams defines the network parameters for the main network.
	MainnetParams = fromChainConfig(&chaincfg.MainNetParams)

	// TestnetParams defines the network parameters for the test network
	// (version 3).
	TestnetParams = fromChainConfig(&chaincfg.TestNet3Params)

	// RegtestParams defines the network parameters for the regression test
	// network.
	RegtestParams = fromChainConfig(&chaincfg.RegressionNetParams)

	// SimnetParams defines the network parameters for the simulation test
	// network.
	SimnetParams = fromChainConfig(&chaincfg.SimNetParams)
)
