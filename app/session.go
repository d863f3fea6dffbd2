package app

import (
	"context"

	"github.com/ibdsync/ibdsync/app/protocol/flows/ibd"
	"github.com/ibdsync/ibdsync/domain/consensus/blockstore"
	"github.com/ibdsync/ibdsync/domain/consensus/headerchain"
	"github.com/ibdsync/ibdsync/infrastructure/config"
	"github.com/ibdsync/ibdsync/infrastructure/db/chaindb"
	"github.com/ibdsync/ibdsync/infrastructure/network/peerlink"
)

var _ ibd.Committer = (*chaindb.ChainDB)(nil)
var _ ibd.PeerLink = (*peerlink.Link)(nil)

// session holds everything a single sync against the configured peer
// needs.
type session struct {
	cfg   *config.Config
	chain *headerchain.HeaderChain
	store *blockstore.BlockStore
	db    *chaindb.ChainDB

	dial func(cfg *config.Config) (ibd.PeerLink, func(), error)
}

func newSession(cfg *config.Config) (*session, error) {
	params := cfg.NetParams()
	chain := headerchain.New(params.GenesisAnchor(), nil)
	s := &session{
		cfg:   cfg,
		chain: chain,
		store: blockstore.New(chain, params.GenesisBlock),
		dial:  dialPeer,
	}

	if !cfg.NoDB {
		db, err := chaindb.Open(databasePath(cfg), params.GenesisBlock)
		if err != nil {
			return nil, err
		}
		s.db = db
	}
	return s, nil
}

func dialPeer(cfg *config.Config) (ibd.PeerLink, func(), error) {
	link, err := peerlink.Dial(cfg)
	if err != nil {
		return nil, nil, err
	}
	return link, link.Close, nil
}

func (s *session) syncConfig() ibd.Config {
	progress := newProgressLogger()
	syncConfig := ibd.Config{
		TargetHeaderCount: s.cfg.TargetHeaders,
		WindowSize:        s.cfg.WindowSize,
		ResponseTimeout:   s.cfg.ResponseTimeout,
		OnProgress:        progress.logProgress,
	}
	if s.db != nil {
		syncConfig.Committer = s.db
	}
	return syncConfig
}

func (s *session) run(ctx context.Context) error {
	peer, closePeer, err := s.dial(s.cfg)
	if err != nil {
		return err
	}
	defer closePeer()

	driver, err := ibd.New(peer, s.chain, s.store, s.syncConfig())
	if err != nil {
		return err
	}
	return driver.Run(ctx)
}

func (s *session) close() {
	if s.db == nil {
		return
	}
	err := s.db.Close()
	if err != nil {
		log.Errorf("Error closing the chain database: %+v", err)
	}
}
