package credentials

import (
	"errors"
	"testing"
)

func TestKeyringOrderAndDedupe(t *testing.T) {
	k := NewKeyringWithFallbacks("user-key", "fallback-1", "user-key", "fallback-2", "fallback-1")

	if got := k.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}

	want := []string{"user-key", "fallback-1", "fallback-2"}
	for i, w := range want {
		cur, err := k.Current()
		if err != nil {
			t.Fatalf("Current() at %d: %v", i, err)
		}
		if cur != w {
			t.Errorf("key %d = %q, want %q", i, cur, w)
		}
		if i < len(want)-1 {
			if err := k.Advance(); err != nil {
				t.Fatalf("Advance() at %d: %v", i, err)
			}
		}
	}
}

func TestKeyringAdvanceExhausts(t *testing.T) {
	k := NewKeyringWithFallbacks("", "only-key")

	if err := k.Advance(); !errors.Is(err, ErrExhausted) {
		t.Errorf("Advance() on last key = %v, want ErrExhausted", err)
	}
	if k.Index() != 0 {
		t.Errorf("Index() after failed Advance = %d, want 0", k.Index())
	}
}

func TestKeyringReset(t *testing.T) {
	k := NewKeyringWithFallbacks("a", "b", "c")
	k.Advance()
	k.Advance()
	if k.Index() != 2 {
		t.Fatalf("Index() = %d, want 2", k.Index())
	}

	k.Reset()
	if k.Index() != 0 {
		t.Errorf("Index() after Reset = %d, want 0", k.Index())
	}
	cur, _ := k.Current()
	if cur != "a" {
		t.Errorf("Current() after Reset = %q, want %q", cur, "a")
	}
}

func TestKeyringEmpty(t *testing.T) {
	k := NewKeyringWithFallbacks("")

	if _, err := k.Current(); !errors.Is(err, ErrNoKeys) {
		t.Errorf("Current() = %v, want ErrNoKeys", err)
	}
	if err := k.Advance(); !errors.Is(err, ErrNoKeys) {
		t.Errorf("Advance() = %v, want ErrNoKeys", err)
	}
}

func TestKeyringWhitespaceUserKey(t *testing.T) {
	k := NewKeyringWithFallbacks("   ", "fallback")

	if k.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", k.Len())
	}
	cur, _ := k.Current()
	if cur != "fallback" {
		t.Errorf("Current() = %q, want %q", cur, "fallback")
	}
}
