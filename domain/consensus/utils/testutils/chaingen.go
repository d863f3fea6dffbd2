// Package testutils builds linked headers and blocks for tests.
package testutils

import (
	"encoding/binary"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// CoinbaseTransaction returns a minimal coinbase transaction whose
// signature script commits to height, so coinbases at different heights
// hash differently.
func CoinbaseTransaction(height int) *wire.MsgTx {
	tx := wire.NewMsgTx(wire.TxVersion)
	heightBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(heightBytes, uint32(height))
	signatureScript := append([]byte{0x04}, heightBytes...)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, wire.MaxPrevOutIndex), signatureScript, nil))
	tx.AddTxOut(wire.NewTxOut(50*1e8, []byte{0x51}))
	return tx
}

// GenerateHeaders returns count headers, the first linked to tip and each
// following one linked to its predecessor.
func GenerateHeaders(tip *wire.BlockHeader, count int) []*wire.BlockHeader {
	headers := make([]*wire.BlockHeader, 0, count)
	previous := tip
	for i := 0; i < count; i++ {
		previousHash := previous.BlockHash()
		header := &wire.BlockHeader{
			Version:    1,
			PrevBlock:  previousHash,
			MerkleRoot: chainhash.Hash{byte(i), byte(i >> 8), byte(i >> 16)},
			Timestamp:  time.Unix(previous.Timestamp.Unix()+600, 0),
			Bits:       previous.Bits,
			Nonce:      uint32(i),
		}
		headers = append(headers, header)
		previous = header
	}
	return headers
}

// BlockForHeader returns a block with the given header and a single
// coinbase transaction for height.
func BlockForHeader(header *wire.BlockHeader, height int) *wire.MsgBlock {
	block := wire.NewMsgBlock(header)
	_ = block.AddTransaction(CoinbaseTransaction(height))
	return block
}

// GenerateChain returns count headers extending genesis together with a
// matching block for each of them. blocks[i] belongs to headers[i], which
// sits at height i+1.
func GenerateChain(genesis *wire.BlockHeader, count int) ([]*wire.BlockHeader, []*wire.MsgBlock) {
	headers := GenerateHeaders(genesis, count)
	blocks := make([]*wire.MsgBlock, len(headers))
	for i, header := range headers {
		blocks[i] = BlockForHeader(header, i+1)
	}
	return headers, blocks
}
