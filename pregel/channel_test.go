package pregel

import (
	"errors"
	"testing"
)

func TestLastValue(t *testing.T) {
	t.Run("empty read fails", func(t *testing.T) {
		ch := NewLastValue()
		if _, err := ch.Get(); !errors.Is(err, ErrEmptyChannel) {
			t.Errorf("Get on empty channel: err = %v, want ErrEmptyChannel", err)
		}
		if ch.IsAvailable() {
			t.Error("empty channel reports available")
		}
	})

	t.Run("keeps the final write of a batch", func(t *testing.T) {
		ch := NewLastValue()
		if !ch.Update([]any{"a", "b"}) {
			t.Fatal("Update with values returned false")
		}
		val, err := ch.Get()
		if err != nil || val != "b" {
			t.Errorf("Get = (%v, %v), want (b, nil)", val, err)
		}
	})

	t.Run("ignores the idle notification", func(t *testing.T) {
		ch := NewLastValue()
		ch.Update([]any{"a"})
		if ch.Update(nil) {
			t.Error("idle notification advanced a last-value channel")
		}
		if ch.Consume() {
			t.Error("consume advanced a last-value channel")
		}
		if val, _ := ch.Get(); val != "a" {
			t.Errorf("value lost after idle notification: %v", val)
		}
	})
}

func TestTopic(t *testing.T) {
	t.Run("accumulates within a step", func(t *testing.T) {
		ch := NewTopic(false)
		ch.Update([]any{1, 2})
		ch.Update([]any{3})
		val, _ := ch.Get()
		got := val.([]any)
		if len(got) != 3 || got[0] != 1 || got[2] != 3 {
			t.Errorf("backlog = %v, want [1 2 3]", got)
		}
	})

	t.Run("drains on consume", func(t *testing.T) {
		ch := NewTopic(false)
		ch.Update([]any{1})
		if !ch.Consume() {
			t.Fatal("consume on non-empty topic returned false")
		}
		if ch.IsAvailable() {
			t.Error("topic still available after consume")
		}
		if ch.Consume() {
			t.Error("consume on drained topic returned true")
		}
	})

	t.Run("accumulating topic survives consume", func(t *testing.T) {
		ch := NewTopic(true)
		ch.Update([]any{1})
		if ch.Consume() {
			t.Error("accumulating topic drained on consume")
		}
		if !ch.IsAvailable() {
			t.Error("accumulating topic lost its backlog")
		}
	})
}

func TestEphemeral(t *testing.T) {
	ch := NewEphemeral()
	ch.Update([]any{"v"})
	if val, _ := ch.Get(); val != "v" {
		t.Fatalf("value = %v, want v", val)
	}

	// The idle notification expires the value and must advance the version.
	if !ch.Update(nil) {
		t.Error("idle notification on a held value returned false")
	}
	if _, err := ch.Get(); !errors.Is(err, ErrEmptyChannel) {
		t.Error("value survived the idle notification")
	}
	if ch.Update(nil) {
		t.Error("idle notification on an empty channel returned true")
	}
}

func TestBinaryOperator(t *testing.T) {
	ch := NewBinaryOperator(func(current, value any) any {
		return current.(int) + value.(int)
	})
	if _, err := ch.Get(); !errors.Is(err, ErrEmptyChannel) {
		t.Fatal("unseeded accumulator readable")
	}
	ch.Update([]any{1, 2})
	ch.Update([]any{3})
	if val, _ := ch.Get(); val != 6 {
		t.Errorf("accumulator = %v, want 6", val)
	}
}

func TestChannelCopyIsIndependent(t *testing.T) {
	ch := NewTopic(false)
	ch.Update([]any{1})
	dup := ch.Copy()
	dup.Update([]any{2})

	orig, _ := ch.Get()
	if len(orig.([]any)) != 1 {
		t.Error("updating a copy mutated the original topic")
	}
}
