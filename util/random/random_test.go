package random

import (
	"io"
	"testing"

	"github.com/pkg/errors"
)

// shortReader returns at most n bytes per read, then err.
type shortReader struct {
	n   int
	err error
}

func (r *shortReader) Read(p []byte) (int, error) {
	n := r.n
	if n > len(p) {
		n = len(p)
	}
	return n, r.err
}

// TestUint64Distribution checks that the generator doesn't cluster in the
// low range. With a proper RNG only about one value in 2^8 tries falls below
// 2^56, so more than 5 hits means the generator is broken.
func TestUint64Distribution(t *testing.T) {
	const tries = 1 << 8
	const watermark = uint64(1 << 56)
	const maxHits = 5

	hits := 0
	for i := 0; i < tries; i++ {
		nonce, err := Uint64()
		if err != nil {
			t.Fatalf("Uint64 iteration %d: %+v", i, err)
		}
		if nonce < watermark {
			hits++
		}
	}
	if hits > maxHits {
		t.Fatalf("got %d values below %d in %d tries, expected at most %d",
			hits, watermark, tries, maxHits)
	}
}

func TestUint64ShortRead(t *testing.T) {
	nonce, err := randomUint64(&shortReader{n: 2, err: io.EOF})
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected %v, got %v", io.ErrUnexpectedEOF, err)
	}
	if nonce != 0 {
		t.Errorf("expected a zero nonce, got %d", nonce)
	}
}
