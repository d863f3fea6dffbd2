package ibd

import (
	"context"
	"sync/atomic"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/ibdsync/ibdsync/app/protocol/common"
	"github.com/ibdsync/ibdsync/app/protocol/protocolerrors"
	"github.com/ibdsync/ibdsync/infrastructure/logger"
)

func (sd *SyncDriver) syncHeaders(ctx context.Context) error {
	onEnd := logger.LogAndMeasureExecutionTime(log, "syncHeaders")
	defer onEnd()

	target := sd.cfg.TargetHeaderCount
	for sd.chain.Len() < target {
		err := checkCancelled(ctx)
		if err != nil {
			return err
		}

		headers, err := sd.requestHeaders(sd.chain.TipHash())
		if err != nil {
			return err
		}
		if len(headers) == 0 {
			log.Infof("Peer has no headers past %s, ending header sync with %d headers",
				sd.chain.TipHash(), sd.chain.Len())
			atomic.StoreInt64(&sd.target, int64(sd.chain.Len()))
			break
		}

		startIndex := sd.chain.Len()
		if remaining := target - startIndex; len(headers) > remaining {
			log.Debugf("Dropping %d headers past the target of %d", len(headers)-remaining, target)
			headers = headers[:remaining]
		}
		for _, header := range headers {
			_, err := sd.chain.Append(header)
			if err != nil {
				return err
			}
		}

		if sd.cfg.Committer != nil {
			err := sd.cfg.Committer.CommitHeaders(startIndex, headers)
			if err != nil {
				return err
			}
		}
		sd.reportProgress()
		log.Debugf("Accepted %d headers, we now have %d", len(headers), sd.chain.Len())
	}
	log.Infof("Header sync done with %d headers, tip %s", sd.chain.Len(), sd.chain.TipHash())
	return nil
}

func (sd *SyncDriver) requestHeaders(startHash *chainhash.Hash) ([]*wire.BlockHeader, error) {
	msgGetHeaders := wire.NewMsgGetHeaders()
	err := msgGetHeaders.AddBlockLocatorHash(startHash)
	if err != nil {
		return nil, err
	}
	err = sd.peer.Send(msgGetHeaders)
	if err != nil {
		return nil, err
	}

	message, err := sd.peer.WaitFor(common.ResponseHeaders, sd.cfg.ResponseTimeout)
	if err != nil {
		return nil, err
	}
	msgHeaders, ok := message.(*wire.MsgHeaders)
	if !ok {
		return nil, protocolerrors.Errorf(true, "received unexpected message type. "+
			"expected: %s, got: %s", wire.CmdHeaders, message.Command())
	}
	return msgHeaders.Headers, nil
}
