package peerlink

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrLinkClosed indicates the link was closed locally.
var ErrLinkClosed = errors.New("link is closed")

// PeerError is a transport-level failure of the connection to the peer.
// Sessions that fail with a PeerError may be retried.
type PeerError struct {
	Address string
	Op      string
	Cause   error
}

func (e *PeerError) Error() string {
	return fmt.Sprintf("peer %s: %s: %s", e.Address, e.Op, e.Cause)
}

func (e *PeerError) Unwrap() error {
	return e.Cause
}

// IsPeerError returns whether err was caused by a transport failure.
func IsPeerError(err error) bool {
	peerErr := &PeerError{}
	return errors.As(err, &peerErr)
}
