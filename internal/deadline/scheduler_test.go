package deadline

import (
	"context"
	"errors"
	"testing"
)

func TestStart_FailsFastWithoutHandler(t *testing.T) {
	s := New(nil)
	err := s.Start(context.Background())
	if !errors.Is(err, errNoHandler) {
		t.Fatalf("expected errNoHandler when Start is called before SetHandler, got %v", err)
	}
}

func TestKey_DiffersByKind(t *testing.T) {
	a := key("0xorder", "SRC")
	b := key("0xorder", "DST")
	if a == b {
		t.Error("expected key() to differ by timeout kind for the same order")
	}
}

func TestKey_DiffersByOrder(t *testing.T) {
	a := key("0xorder1", "SRC")
	b := key("0xorder2", "SRC")
	if a == b {
		t.Error("expected key() to differ by order hash for the same kind")
	}
}
