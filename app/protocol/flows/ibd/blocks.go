package ibd

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/ibdsync/ibdsync/app/protocol/common"
	"github.com/ibdsync/ibdsync/app/protocol/protocolerrors"
	"github.com/ibdsync/ibdsync/domain/consensus/blockstore"
	"github.com/ibdsync/ibdsync/domain/consensus/ruleerrors"
	"github.com/ibdsync/ibdsync/infrastructure/logger"
)

func (sd *SyncDriver) syncBlocks(ctx context.Context) error {
	onEnd := logger.LogAndMeasureExecutionTime(log, "syncBlocks")
	defer onEnd()

	for sd.store.Size() < sd.chain.Len() {
		err := checkCancelled(ctx)
		if err != nil {
			return err
		}

		start := sd.store.Size()
		end := start + sd.cfg.WindowSize
		if end > sd.chain.Len() {
			end = sd.chain.Len()
		}
		window := sd.chain.HashesRange(start, end)

		err = sd.requestBlocks(window)
		if err != nil {
			return err
		}
		err = sd.receiveWindow(start, window)
		if err != nil {
			return err
		}

		if sd.cfg.Committer != nil {
			err := sd.cfg.Committer.CommitBlocks(start, sd.store.BlocksRange(start, end))
			if err != nil {
				return err
			}
		}
		sd.reportProgress()
		log.Infof("We now have %d blocks", sd.store.Size())
	}
	return nil
}

func (sd *SyncDriver) requestBlocks(window []*chainhash.Hash) error {
	msgGetData := wire.NewMsgGetDataSizeHint(uint(len(window)))
	for _, hash := range window {
		err := msgGetData.AddInvVect(wire.NewInvVect(wire.InvTypeBlock, hash))
		if err != nil {
			return err
		}
	}
	return sd.peer.Send(msgGetData)
}

// blockWindow correlates block arrivals with the hashes requested for a
// window and releases them in header order.
type blockWindow struct {
	start     int
	positions map[chainhash.Hash]int
	arrived   map[int]*wire.MsgBlock
	delivered map[chainhash.Hash]struct{}
}

func newBlockWindow(start int, window []*chainhash.Hash) *blockWindow {
	positions := make(map[chainhash.Hash]int, len(window))
	for i, hash := range window {
		positions[*hash] = start + i
	}
	return &blockWindow{
		start:     start,
		positions: positions,
		arrived:   make(map[int]*wire.MsgBlock, len(window)),
		delivered: make(map[chainhash.Hash]struct{}, len(window)),
	}
}

// accept matches block against the window and returns its chain position.
func (bw *blockWindow) accept(block *wire.MsgBlock) (int, error) {
	blockHash := block.BlockHash()
	position, ok := bw.positions[blockHash]
	if !ok {
		return 0, ruleerrors.NewErrConsensusViolation(ruleerrors.ErrUnrequestedBlock, -1, &blockHash)
	}
	if _, ok := bw.delivered[blockHash]; ok {
		return 0, ruleerrors.NewErrConsensusViolation(ruleerrors.ErrDuplicateBlock, position, &blockHash)
	}
	err := blockstore.ValidateBlock(block, position)
	if err != nil {
		return 0, err
	}
	bw.delivered[blockHash] = struct{}{}
	bw.arrived[position] = block
	return position, nil
}

// flush appends every buffered block that directly follows the store's
// current size.
func (bw *blockWindow) flush(store *blockstore.BlockStore) error {
	for {
		block, ok := bw.arrived[store.Size()]
		if !ok {
			return nil
		}
		delete(bw.arrived, store.Size())
		err := store.Append(block)
		if err != nil {
			return err
		}
	}
}

func (sd *SyncDriver) receiveWindow(start int, window []*chainhash.Hash) error {
	bw := newBlockWindow(start, window)
	for received := 0; received < len(window); received++ {
		message, err := sd.peer.WaitFor(common.ResponseBlock, sd.cfg.ResponseTimeout)
		if err != nil {
			return err
		}

		switch message := message.(type) {
		case *wire.MsgBlock:
			position, err := bw.accept(message)
			if err != nil {
				return err
			}
			log.Tracef("Received block %s at %d", message.BlockHash(), position)
			err = bw.flush(sd.store)
			if err != nil {
				return err
			}
		case *wire.MsgNotFound:
			return notFoundError(message)
		default:
			return protocolerrors.Errorf(true, "received unexpected message type. "+
				"expected: %s, got: %s", wire.CmdBlock, message.Command())
		}
	}
	return nil
}

func notFoundError(msgNotFound *wire.MsgNotFound) error {
	if len(msgNotFound.InvList) == 0 {
		return protocolerrors.New(false, "peer sent an empty notfound during block sync")
	}
	return protocolerrors.Errorf(false, "peer does not have block %s", msgNotFound.InvList[0].Hash)
}
