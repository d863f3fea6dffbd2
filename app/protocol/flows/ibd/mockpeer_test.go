package ibd

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/ibdsync/ibdsync/app/protocol/common"
	"github.com/ibdsync/ibdsync/domain/chainparams"
	"github.com/ibdsync/ibdsync/domain/consensus/utils/testutils"
	"github.com/ibdsync/ibdsync/infrastructure/network/netadapter/router"
	"github.com/pkg/errors"
)

// mockPeer serves a generated chain. Responses to a request are queued
// synchronously by Send, and WaitFor times out immediately when nothing is
// queued.
type mockPeer struct {
	headers   []*wire.BlockHeader // index 0 is genesis
	blocks    map[chainhash.Hash]*wire.MsgBlock
	batchSize int

	handshakeErr error

	// Overrides of the default responses.
	headersResponse func(startIndex int, batch []*wire.BlockHeader) []wire.Message
	blocksResponse  func(blocks []*wire.MsgBlock) []wire.Message

	getHeadersCount int
	getDataCount    int
	queues          map[common.ResponseKind][]wire.Message
}

func newMockPeer(chainLength int, batchSize int) *mockPeer {
	params := chainparams.RegtestParams
	genesis := params.GenesisAnchor()
	headers, blocks := testutils.GenerateChain(genesis, chainLength-1)

	peer := &mockPeer{
		headers:   append([]*wire.BlockHeader{genesis}, headers...),
		blocks:    make(map[chainhash.Hash]*wire.MsgBlock, len(blocks)),
		batchSize: batchSize,
		queues:    make(map[common.ResponseKind][]wire.Message),
	}
	for _, block := range blocks {
		peer.blocks[block.BlockHash()] = block
	}
	return peer
}

func (mp *mockPeer) Handshake() error {
	return mp.handshakeErr
}

func (mp *mockPeer) indexOf(hash *chainhash.Hash) int {
	for i, header := range mp.headers {
		if header.BlockHash() == *hash {
			return i
		}
	}
	return -1
}

func (mp *mockPeer) Send(message wire.Message) error {
	switch message := message.(type) {
	case *wire.MsgGetHeaders:
		mp.getHeadersCount++
		startIndex := mp.indexOf(message.BlockLocatorHashes[0]) + 1
		end := startIndex + mp.batchSize
		if end > len(mp.headers) {
			end = len(mp.headers)
		}
		batch := mp.headers[startIndex:end]
		if mp.headersResponse != nil {
			mp.enqueue(common.ResponseHeaders, mp.headersResponse(startIndex, batch)...)
			return nil
		}
		msgHeaders := wire.NewMsgHeaders()
		for _, header := range batch {
			_ = msgHeaders.AddBlockHeader(header)
		}
		mp.enqueue(common.ResponseHeaders, msgHeaders)
	case *wire.MsgGetData:
		mp.getDataCount++
		blocks := make([]*wire.MsgBlock, 0, len(message.InvList))
		for _, inv := range message.InvList {
			blocks = append(blocks, mp.blocks[inv.Hash])
		}
		if mp.blocksResponse != nil {
			mp.enqueue(common.ResponseBlock, mp.blocksResponse(blocks)...)
			return nil
		}
		for _, block := range blocks {
			mp.enqueue(common.ResponseBlock, block)
		}
	default:
		return errors.Errorf("unexpected message %s", message.Command())
	}
	return nil
}

func (mp *mockPeer) enqueue(kind common.ResponseKind, messages ...wire.Message) {
	mp.queues[kind] = append(mp.queues[kind], messages...)
}

func (mp *mockPeer) WaitFor(kind common.ResponseKind, timeout time.Duration) (wire.Message, error) {
	queue := mp.queues[kind]
	if len(queue) == 0 {
		return nil, errors.Wrapf(router.ErrTimeout, "no %s after %s", kind, timeout)
	}
	mp.queues[kind] = queue[1:]
	return queue[0], nil
}

type commit struct {
	startIndex int
	count      int
}

type recordingCommitter struct {
	headerCommits []commit
	blockCommits  []commit
	err           error
}

func (rc *recordingCommitter) CommitHeaders(startIndex int, headers []*wire.BlockHeader) error {
	rc.headerCommits = append(rc.headerCommits, commit{startIndex, len(headers)})
	return rc.err
}

func (rc *recordingCommitter) CommitBlocks(startIndex int, blocks []*wire.MsgBlock) error {
	rc.blockCommits = append(rc.blockCommits, commit{startIndex, len(blocks)})
	return rc.err
}
