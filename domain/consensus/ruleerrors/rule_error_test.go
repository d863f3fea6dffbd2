package ruleerrors

import (
	"errors"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

func TestNewErrChainDiscontinuity(t *testing.T) {
	expected := chainhash.Hash{1}
	actual := chainhash.Hash{2}
	outer := NewErrChainDiscontinuity(&expected, &actual, 7)

	if !errors.Is(outer, ErrChainDiscontinuity) {
		t.Fatalf("TestNewErrChainDiscontinuity: outer should match ErrChainDiscontinuity")
	}
	if errors.Is(outer, ErrMissingCoinbase) {
		t.Fatalf("TestNewErrChainDiscontinuity: outer shouldn't match ErrMissingCoinbase")
	}

	inner := ChainDiscontinuityError{}
	if !errors.As(outer, &inner) {
		t.Fatalf("TestNewErrChainDiscontinuity: outer should contain ChainDiscontinuityError in it")
	}
	if inner.Position != 7 {
		t.Fatalf("TestNewErrChainDiscontinuity: Expected position 7, found: %d", inner.Position)
	}
	if inner.Expected != expected || inner.Actual != actual {
		t.Fatalf("TestNewErrChainDiscontinuity: unexpected hashes %s, %s", inner.Expected, inner.Actual)
	}
	if !strings.HasPrefix(outer.Error(), "ErrChainDiscontinuity: discontinuous header at 7") {
		t.Fatalf("TestNewErrChainDiscontinuity: unexpected message: %s", outer.Error())
	}
	if IsConsensusViolation(outer) {
		t.Fatalf("TestNewErrChainDiscontinuity: a discontinuity isn't a consensus violation")
	}
}

func TestNewErrConsensusViolation(t *testing.T) {
	blockHash := chainhash.Hash{0xff}
	reasons := []RuleError{
		ErrMissingCoinbase,
		ErrUnrequestedBlock,
		ErrDuplicateBlock,
		ErrBlockHeaderMismatch,
		ErrBlockWithoutHeader,
	}
	for _, reason := range reasons {
		outer := NewErrConsensusViolation(reason, 3, &blockHash)
		if !errors.Is(outer, reason) {
			t.Errorf("TestNewErrConsensusViolation: outer should match %s", reason)
		}
		if !IsConsensusViolation(outer) {
			t.Errorf("TestNewErrConsensusViolation: %s should be a consensus violation", reason)
		}
		violation := ConsensusViolationError{}
		if !errors.As(outer, &violation) {
			t.Fatalf("TestNewErrConsensusViolation: outer should contain ConsensusViolationError in it")
		}
		if violation.Position != 3 || violation.BlockHash != blockHash {
			t.Errorf("TestNewErrConsensusViolation: unexpected details %+v", violation)
		}
		if violation.Reason.message != reason.message {
			t.Errorf("TestNewErrConsensusViolation: expected reason %s, got %s", reason, violation.Reason)
		}
	}
}
