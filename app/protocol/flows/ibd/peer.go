package ibd

import (
	"time"

	"github.com/btcsuite/btcd/wire"
	"github.com/ibdsync/ibdsync/app/protocol/common"
)

// PeerLink is the connection to the peer a sync session downloads from.
// WaitFor blocks until a response of the given kind arrives or timeout
// expires.
type PeerLink interface {
	Handshake() error
	Send(message wire.Message) error
	WaitFor(kind common.ResponseKind, timeout time.Duration) (wire.Message, error)
}

// Committer receives headers and blocks once they have been accepted.
// startIndex is the chain position of the first element.
type Committer interface {
	CommitHeaders(startIndex int, headers []*wire.BlockHeader) error
	CommitBlocks(startIndex int, blocks []*wire.MsgBlock) error
}
