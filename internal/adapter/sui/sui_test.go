package sui

import (
	"strings"
	"testing"
)

func TestDeterministicObjectID_Deterministic(t *testing.T) {
	a := deterministicObjectID("0xabc123")
	b := deterministicObjectID("0xabc123")
	if a != b {
		t.Errorf("expected the same order hash to always produce the same object id, got %q and %q", a, b)
	}
}

func TestDeterministicObjectID_DiffersByOrderHash(t *testing.T) {
	a := deterministicObjectID("0xabc123")
	b := deterministicObjectID("0xdef456")
	if a == b {
		t.Error("expected distinct order hashes to produce distinct object ids")
	}
}

func TestDeterministicObjectID_HasAddressPrefix(t *testing.T) {
	id := deterministicObjectID("0xabc123")
	if !strings.HasPrefix(id, "0x") {
		t.Errorf("expected a 0x-prefixed object id, got %q", id)
	}
}

func TestDeterministicObjectID_FixedLength(t *testing.T) {
	short := deterministicObjectID("0xab")
	long := deterministicObjectID(strings.Repeat("ab", 40))
	if len(short) != len(long) {
		t.Errorf("expected a fixed-width object id regardless of input length, got %d and %d", len(short), len(long))
	}
}
