package ibd

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ibdsync/ibdsync/app/protocol/common"
	"github.com/ibdsync/ibdsync/domain/consensus/blockstore"
	"github.com/ibdsync/ibdsync/domain/consensus/headerchain"
	"github.com/pkg/errors"
)

// ErrCancelled is returned by Run when its context is cancelled.
var ErrCancelled = errors.New("sync cancelled")

// Config configures a sync session. Zero values are replaced by their
// defaults.
type Config struct {
	// TargetHeaderCount is the number of headers, genesis included, to
	// download before block sync starts.
	TargetHeaderCount int

	// WindowSize is the number of blocks requested in every getdata.
	WindowSize int

	// ResponseTimeout bounds every wait for a peer response.
	ResponseTimeout time.Duration

	// Committer, if set, receives every accepted batch of headers and
	// window of blocks.
	Committer Committer

	// OnProgress, if set, is called after every header batch and block
	// window.
	OnProgress func(Progress)
}

func (cfg *Config) applyDefaults() {
	if cfg.TargetHeaderCount == 0 {
		cfg.TargetHeaderCount = common.DefaultTargetHeaderCount
	}
	if cfg.WindowSize == 0 {
		cfg.WindowSize = common.DefaultWindowSize
	}
	if cfg.ResponseTimeout == 0 {
		cfg.ResponseTimeout = common.DefaultTimeout
	}
}

func (cfg *Config) validate() error {
	if cfg.TargetHeaderCount < 1 {
		return errors.Errorf("target header count must be at least 1, got %d", cfg.TargetHeaderCount)
	}
	if cfg.WindowSize < 1 {
		return errors.Errorf("window size must be at least 1, got %d", cfg.WindowSize)
	}
	if cfg.ResponseTimeout < 0 {
		return errors.Errorf("response timeout must be positive, got %s", cfg.ResponseTimeout)
	}
	return nil
}

// SyncDriver runs a single initial block download session against one
// peer. It owns chain and store for the duration of the session.
type SyncDriver struct {
	peer  PeerLink
	chain *headerchain.HeaderChain
	store *blockstore.BlockStore
	cfg   Config

	state       uint32
	isStarted   uint32
	target      int64
	headerCount int64
	blockCount  int64
}

// New returns a SyncDriver that downloads into chain and store from peer.
// store must be aligned with chain.
func New(peer PeerLink, chain *headerchain.HeaderChain, store *blockstore.BlockStore, cfg Config) (*SyncDriver, error) {
	cfg.applyDefaults()
	err := cfg.validate()
	if err != nil {
		return nil, err
	}
	if store.Size() > chain.Len() {
		return nil, errors.Errorf("block store holds %d blocks but the header chain only %d headers",
			store.Size(), chain.Len())
	}
	return &SyncDriver{
		peer:        peer,
		chain:       chain,
		store:       store,
		cfg:         cfg,
		state:       uint32(StateHandshake),
		target:      int64(cfg.TargetHeaderCount),
		headerCount: int64(chain.Len()),
		blockCount:  int64(store.Size()),
	}, nil
}

// State returns the current state of the session.
func (sd *SyncDriver) State() State {
	return State(atomic.LoadUint32(&sd.state))
}

func (sd *SyncDriver) setState(state State) {
	log.Debugf("Sync state %s -> %s", sd.State(), state)
	atomic.StoreUint32(&sd.state, uint32(state))
}

// Progress returns a snapshot of the session. It is safe to call while Run
// is executing.
func (sd *SyncDriver) Progress() Progress {
	return Progress{
		State:   sd.State(),
		Headers: int(atomic.LoadInt64(&sd.headerCount)),
		Blocks:  int(atomic.LoadInt64(&sd.blockCount)),
		Target:  int(atomic.LoadInt64(&sd.target)),
	}
}

func (sd *SyncDriver) reportProgress() {
	atomic.StoreInt64(&sd.headerCount, int64(sd.chain.Len()))
	atomic.StoreInt64(&sd.blockCount, int64(sd.store.Size()))
	if sd.cfg.OnProgress != nil {
		sd.cfg.OnProgress(sd.Progress())
	}
}

// Run executes the session to completion. It returns nil once the header
// chain and the block store both hold the target number of entries, or
// the first error otherwise. Run may only be called once.
func (sd *SyncDriver) Run(ctx context.Context) error {
	if !atomic.CompareAndSwapUint32(&sd.isStarted, 0, 1) {
		return errors.New("sync session was already run")
	}

	err := sd.run(ctx)
	if err != nil {
		if errors.Is(err, ErrCancelled) {
			sd.setState(StateCancelled)
		} else {
			sd.setState(StateFailed)
		}
		sd.reportProgress()
		return err
	}
	sd.setState(StateComplete)
	sd.reportProgress()
	log.Infof("Initial block download complete: %d headers, %d blocks", sd.chain.Len(), sd.store.Size())
	return nil
}

func (sd *SyncDriver) run(ctx context.Context) error {
	err := checkCancelled(ctx)
	if err != nil {
		return err
	}
	err = sd.peer.Handshake()
	if err != nil {
		return err
	}

	sd.setState(StateHeaderSync)
	err = sd.syncHeaders(ctx)
	if err != nil {
		return err
	}

	sd.setState(StateBlockSync)
	err = sd.syncBlocks(ctx)
	if err != nil {
		return err
	}

	if sd.store.Size() != sd.chain.Len() {
		return errors.Errorf("block sync ended with %d blocks for %d headers", sd.store.Size(), sd.chain.Len())
	}
	return nil
}

func checkCancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return errors.Wrapf(ErrCancelled, "%s", ctx.Err())
	default:
		return nil
	}
}
