package ruleerrors

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"
)

// These constants are used to identify a specific RuleError.
var (
	// ErrChainDiscontinuity indicates a header does not attach to the
	// current tip of the header chain.
	ErrChainDiscontinuity = newRuleError("ErrChainDiscontinuity")

	// ErrMissingCoinbase indicates the block does not have a least one
	// transaction. A valid block must have at least the coinbase
	// transaction.
	ErrMissingCoinbase = newRuleError("ErrMissingCoinbase")

	// ErrUnrequestedBlock indicates a block arrived that doesn't match any
	// header of the window that was requested.
	ErrUnrequestedBlock = newRuleError("ErrUnrequestedBlock")

	// ErrDuplicateBlock indicates a block arrived twice within the same
	// window.
	ErrDuplicateBlock = newRuleError("ErrDuplicateBlock")

	// ErrBlockHeaderMismatch indicates a block's hash differs from the
	// header at the position it is being stored at.
	ErrBlockHeaderMismatch = newRuleError("ErrBlockHeaderMismatch")

	// ErrBlockWithoutHeader indicates an attempt to store a block past the
	// end of the header chain.
	ErrBlockWithoutHeader = newRuleError("ErrBlockWithoutHeader")
)

// RuleError identifies a rule violation. It is used to indicate that
// processing of a header or block failed due to one of the many validation
// rules. The caller can use errors.Is with the variables above to learn
// which rule was violated, and errors.As with ChainDiscontinuityError or
// ConsensusViolationError to learn where.
type RuleError struct {
	message string
	inner   error
}

func (e RuleError) Error() string {
	if e.inner != nil {
		return e.message + ": " + e.inner.Error()
	}
	return e.message
}

func (e RuleError) Unwrap() error {
	return e.inner
}

func (e RuleError) Cause() error {
	return e.inner
}

// Is matches two RuleErrors by their message, so that a RuleError carrying
// details still matches the bare sentinel.
func (e RuleError) Is(target error) bool {
	other, ok := target.(RuleError)
	if !ok {
		return false
	}
	return e.message == other.message
}

func newRuleError(message string) RuleError {
	return RuleError{message: message, inner: nil}
}

// ChainDiscontinuityError carries the details of a header that failed to
// link to the chain tip.
type ChainDiscontinuityError struct {
	Expected chainhash.Hash
	Actual   chainhash.Hash
	Position int
}

func (e ChainDiscontinuityError) Error() string {
	return fmt.Sprintf("discontinuous header at %d: expected previous hash %s, got %s",
		e.Position, e.Expected, e.Actual)
}

// NewErrChainDiscontinuity returns an ErrChainDiscontinuity RuleError for a
// header at position whose previous hash is actual instead of expected.
func NewErrChainDiscontinuity(expected, actual *chainhash.Hash, position int) error {
	return errors.WithStack(RuleError{
		message: ErrChainDiscontinuity.message,
		inner: ChainDiscontinuityError{
			Expected: *expected,
			Actual:   *actual,
			Position: position,
		},
	})
}

// ConsensusViolationError carries the details of a block that broke a
// consensus or correlation rule. Reason is one of the RuleError variables
// above.
type ConsensusViolationError struct {
	Reason    RuleError
	Position  int
	BlockHash chainhash.Hash
}

func (e ConsensusViolationError) Error() string {
	return fmt.Sprintf("block %s at %d: %s", e.BlockHash, e.Position, e.Reason.message)
}

// NewErrConsensusViolation returns reason as a RuleError carrying the
// position and hash of the offending block.
func NewErrConsensusViolation(reason RuleError, position int, blockHash *chainhash.Hash) error {
	return errors.WithStack(RuleError{
		message: reason.message,
		inner: ConsensusViolationError{
			Reason:    reason,
			Position:  position,
			BlockHash: *blockHash,
		},
	})
}

// IsConsensusViolation returns whether err was caused by a block violating
// one of the block rules.
func IsConsensusViolation(err error) bool {
	var violation ConsensusViolationError
	return errors.As(err, &violation)
}
