package headerchain

import (
	"errors"
	"testing"

	"github.com/btcsuite/btcd/wire"
	"github.com/davecgh/go-spew/spew"
	"github.com/ibdsync/ibdsync/domain/chainparams"
	"github.com/ibdsync/ibdsync/domain/consensus/ruleerrors"
	"github.com/ibdsync/ibdsync/domain/consensus/utils/testutils"
	"pgregory.net/rapid"
)

func newTestChain() *HeaderChain {
	return New(chainparams.SimnetParams.GenesisAnchor(), nil)
}

func TestNewContainsOnlyGenesis(t *testing.T) {
	chain := newTestChain()
	if chain.Len() != 1 {
		t.Fatalf("TestNewContainsOnlyGenesis: expected length 1, got %d", chain.Len())
	}
	if !chain.TipHash().IsEqual(chainparams.SimnetParams.GenesisHash) {
		t.Fatalf("TestNewContainsOnlyGenesis: expected tip %s, got %s",
			chainparams.SimnetParams.GenesisHash, chain.TipHash())
	}
}

func TestAppend(t *testing.T) {
	chain := newTestChain()
	genesis := chain.Tip()
	headers := testutils.GenerateHeaders(genesis, 2)
	h1, h2 := headers[0], headers[1]

	// A header linked to the tip is accepted.
	newTip, err := chain.Append(h1)
	if err != nil {
		t.Fatalf("TestAppend: unexpected error appending H1: %+v", err)
	}
	h1Hash := h1.BlockHash()
	if !newTip.IsEqual(&h1Hash) || !chain.TipHash().IsEqual(&h1Hash) {
		t.Fatalf("TestAppend: expected tip %s, got %s", h1Hash, chain.TipHash())
	}
	if chain.Len() != 2 {
		t.Fatalf("TestAppend: expected length 2, got %d", chain.Len())
	}

	// A header whose previous hash is off by one bit is rejected and the
	// chain is left as it was.
	tampered := *h2
	tampered.PrevBlock[0] ^= 1
	_, err = chain.Append(&tampered)
	if !errors.Is(err, ruleerrors.ErrChainDiscontinuity) {
		t.Fatalf("TestAppend: expected ErrChainDiscontinuity, got %+v", err)
	}
	var discontinuity ruleerrors.ChainDiscontinuityError
	if !errors.As(err, &discontinuity) {
		t.Fatalf("TestAppend: expected a ChainDiscontinuityError, got %+v", err)
	}
	if discontinuity.Position != 2 || discontinuity.Expected != h1Hash || discontinuity.Actual != tampered.PrevBlock {
		t.Fatalf("TestAppend: unexpected discontinuity details: %s", spew.Sdump(discontinuity))
	}
	if chain.Len() != 2 || !chain.TipHash().IsEqual(&h1Hash) {
		t.Fatalf("TestAppend: chain was modified by a rejected header")
	}

	// The untampered H2 still attaches.
	_, err = chain.Append(h2)
	if err != nil {
		t.Fatalf("TestAppend: unexpected error appending H2: %+v", err)
	}
	if err := chain.Validate(); err != nil {
		t.Fatalf("TestAppend: Validate failed on an accepted chain: %+v", err)
	}
}

func TestAppendStoresCopy(t *testing.T) {
	chain := newTestChain()
	header := testutils.GenerateHeaders(chain.Tip(), 1)[0]
	_, err := chain.Append(header)
	if err != nil {
		t.Fatalf("TestAppendStoresCopy: %+v", err)
	}
	header.Nonce++
	if err := chain.Validate(); err != nil {
		t.Fatalf("TestAppendStoresCopy: %+v", err)
	}
	if chain.Tip().Nonce == header.Nonce {
		t.Fatalf("TestAppendStoresCopy: chain shares the caller's header")
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	chain := newTestChain()
	headers := testutils.GenerateHeaders(chain.Tip(), 3)
	for _, header := range headers {
		_, err := chain.Append(header)
		if err != nil {
			t.Fatalf("TestAccessorsReturnCopies: %+v", err)
		}
	}
	tipHash := *chain.TipHash()

	chain.Tip().PrevBlock[0] ^= 1
	chain.HeaderAt(1).Nonce++
	chain.TipHash()[0] ^= 1
	middleHash, _ := chain.HashAt(2)
	middleHash[0] ^= 1
	chain.HashesRange(0, 4)[1][0] ^= 1

	if err := chain.Validate(); err != nil {
		t.Fatalf("TestAccessorsReturnCopies: changing a returned header broke the chain: %+v", err)
	}
	if *chain.TipHash() != tipHash {
		t.Fatalf("TestAccessorsReturnCopies: tip hash changed to %s", chain.TipHash())
	}
	for i, header := range headers {
		hash := header.BlockHash()
		index, ok := chain.IndexOf(&hash)
		if !ok || index != i+1 {
			t.Fatalf("TestAccessorsReturnCopies: header %d is no longer found", i+1)
		}
		storedHash, _ := chain.HashAt(i + 1)
		if *storedHash != hash {
			t.Fatalf("TestAccessorsReturnCopies: hash at %d changed to %s", i+1, storedHash)
		}
	}
}

func TestLookups(t *testing.T) {
	chain := newTestChain()
	headers := testutils.GenerateHeaders(chain.Tip(), 5)
	for _, header := range headers {
		if _, err := chain.Append(header); err != nil {
			t.Fatalf("TestLookups: %+v", err)
		}
	}

	for i, header := range headers {
		hash := header.BlockHash()
		index, ok := chain.IndexOf(&hash)
		if !ok || index != i+1 {
			t.Errorf("TestLookups: IndexOf(%s) = %d, %t; expected %d", hash, index, ok, i+1)
		}
		hashAt, ok := chain.HashAt(i + 1)
		if !ok || !hashAt.IsEqual(&hash) {
			t.Errorf("TestLookups: HashAt(%d) = %s; expected %s", i+1, hashAt, hash)
		}
	}
	if _, ok := chain.HashAt(6); ok {
		t.Errorf("TestLookups: HashAt past the tip should fail")
	}

	hashes := chain.HashesRange(4, 10)
	if len(hashes) != 2 {
		t.Fatalf("TestLookups: expected HashesRange to clamp to 2 hashes, got %d", len(hashes))
	}
	if chain.HashesRange(6, 10) != nil {
		t.Fatalf("TestLookups: expected an empty range past the tip")
	}
}

type rejectingCheck struct {
	calls int
}

var errTargetTooHigh = errors.New("target too high")

func (c *rejectingCheck) CheckDifficulty(header *wire.BlockHeader, chain ChainView) error {
	c.calls++
	if chain.Len() >= 3 {
		return errTargetTooHigh
	}
	return nil
}

func TestDifficultyCheckHook(t *testing.T) {
	check := &rejectingCheck{}
	chain := New(chainparams.SimnetParams.GenesisAnchor(), check)
	headers := testutils.GenerateHeaders(chain.Tip(), 3)

	for _, header := range headers[:2] {
		if _, err := chain.Append(header); err != nil {
			t.Fatalf("TestDifficultyCheckHook: %+v", err)
		}
	}
	_, err := chain.Append(headers[2])
	if !errors.Is(err, errTargetTooHigh) {
		t.Fatalf("TestDifficultyCheckHook: expected errTargetTooHigh, got %+v", err)
	}
	if chain.Len() != 3 {
		t.Fatalf("TestDifficultyCheckHook: expected length 3, got %d", chain.Len())
	}
	if check.calls != 3 {
		t.Fatalf("TestDifficultyCheckHook: expected 3 calls, got %d", check.calls)
	}
}

// TestLinkageProperty appends a random mix of linked and tampered headers
// and checks that exactly the linked prefix is accepted and that the chain
// stays valid after every append.
func TestLinkageProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chain := newTestChain()
		count := rapid.IntRange(1, 40).Draw(t, "count").(int)
		tamperAt := rapid.IntRange(-1, count-1).Draw(t, "tamperAt").(int)
		headers := testutils.GenerateHeaders(chain.Tip(), count)

		for i, header := range headers {
			if i == tamperAt {
				tampered := *header
				tampered.PrevBlock[31] ^= 0x80
				header = &tampered
			}
			_, err := chain.Append(header)
			if i == tamperAt {
				if !errors.Is(err, ruleerrors.ErrChainDiscontinuity) {
					t.Fatalf("expected a discontinuity at %d, got %v", i, err)
				}
				break
			}
			if err != nil {
				t.Fatalf("unexpected error at %d: %v", i, err)
			}
			if err := chain.Validate(); err != nil {
				t.Fatalf("chain invalid after append %d: %v", i, err)
			}
		}

		expectedLen := count + 1
		if tamperAt >= 0 {
			expectedLen = tamperAt + 1
		}
		if chain.Len() != expectedLen {
			t.Fatalf("expected length %d, got %d", expectedLen, chain.Len())
		}
	})
}
