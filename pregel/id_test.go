package pregel

import (
	"crypto/sha1" // #nosec G505 -- mirrors the id layout under test
	"encoding/hex"
	"fmt"
	"regexp"
	"testing"

	"github.com/google/uuid"
)

func TestTaskIDLayout(t *testing.T) {
	namespace := uuid.MustParse("00000000-0000-0000-0000-000000000000")

	t.Run("matches raw digest slicing", func(t *testing.T) {
		// The id is the first 32 hex chars of SHA-1(namespace bytes +
		// concatenated parts), grouped 8-4-4-4-12, with no version or
		// variant nibbles forced.
		h := sha1.New() // #nosec G401 -- mirrors the id layout under test
		h.Write(namespace[:])
		for _, p := range []string{"A", "0", "A", ChannelPull, "in"} {
			h.Write([]byte(p))
		}
		digest := hex.EncodeToString(h.Sum(nil))
		want := fmt.Sprintf("%s-%s-%s-%s-%s",
			digest[:8], digest[8:12], digest[12:16], digest[16:20], digest[20:32])

		got := taskID(namespace, "A", "0", "A", ChannelPull, "in")
		if got != want {
			t.Errorf("taskID = %s, want %s", got, want)
		}
	})

	t.Run("stable across recomputation", func(t *testing.T) {
		first := taskID(namespace, "A", "0", "A", ChannelPull, "in")
		second := taskID(namespace, "A", "0", "A", ChannelPull, "in")
		if first != second {
			t.Errorf("recomputed id differs: %s != %s", first, second)
		}
	})

	t.Run("canonical 36 char form", func(t *testing.T) {
		id := taskID(namespace, "B", "3", "B", ChannelPush, "0")
		pattern := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
		if !pattern.MatchString(id) {
			t.Errorf("id %q is not in canonical UUID layout", id)
		}
	})

	t.Run("sensitive to every part", func(t *testing.T) {
		base := taskID(namespace, "A", "0", "A", ChannelPull, "in")
		ids := []string{
			taskID(namespace, "A", "1", "A", ChannelPull, "in"),
			taskID(namespace, "A", "0", "B", ChannelPull, "in"),
			taskID(namespace, "A", "0", "A", ChannelPush, "in"),
			taskID(namespace, "A", "0", "A", ChannelPull, "other"),
		}
		for i, id := range ids {
			if id == base {
				t.Errorf("variant %d collides with base id", i)
			}
		}
	})

	t.Run("namespace contributes", func(t *testing.T) {
		other := uuid.MustParse("11111111-1111-1111-1111-111111111111")
		a := taskID(namespace, "A", "0", "A", ChannelPull, "in")
		b := taskID(other, "A", "0", "A", ChannelPull, "in")
		if a == b {
			t.Error("ids from different checkpoints collide")
		}
	})
}

func TestTupleString(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"scalar string", "abc", "abc"},
		{"scalar int", 7, "7"},
		{"empty prefix", PathPrefix{}, "()"},
		{"flat prefix", PathPrefix{ChannelPull, "A"}, "(" + ChannelPull + ", A)"},
		{"nested prefix", PathPrefix{ChannelPush, PathPrefix{ChannelPull, "A"}, 0},
			"(" + ChannelPush + ", (" + ChannelPull + ", A), 0)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tupleString(tt.in); got != tt.want {
				t.Errorf("tupleString(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
