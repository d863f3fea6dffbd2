package protocolerrors

import (
	"testing"

	"github.com/pkg/errors"
)

func TestIsProtocolError(t *testing.T) {
	base := errors.New("base")
	tests := []struct {
		name              string
		err               error
		isProtocolError   bool
		expectedShouldBan bool
	}{
		{"plain error", base, false, false},
		{"bannable", Errorf(true, "unexpected %s", "headers"), true, true},
		{"not bannable", New(false, "timeout"), true, false},
		{"wrapped protocol error", errors.Wrap(Wrapf(true, base, "bad block %d", 3), "ibd"), true, true},
	}
	for _, test := range tests {
		isProtocolError, shouldBan := IsProtocolError(test.err)
		if isProtocolError != test.isProtocolError || shouldBan != test.expectedShouldBan {
			t.Errorf("%s: expected (%t, %t), got (%t, %t)", test.name,
				test.isProtocolError, test.expectedShouldBan, isProtocolError, shouldBan)
		}
	}
	if !errors.Is(Wrapf(false, base, "context"), base) {
		t.Errorf("Wrapf should keep the wrapped error reachable")
	}
}
