package pregel

import (
	"sync"
	"testing"
)

func TestComparePrefix(t *testing.T) {
	pullA := PullPath{Node: "A"}.Prefix()
	pullB := PullPath{Node: "B"}.Prefix()
	push0 := PushLegacyPath{Index: 0}.Prefix()
	push2 := PushLegacyPath{Index: 2}.Prefix()
	push10 := PushLegacyPath{Index: 10}.Prefix()
	nested0 := PushPath{Parent: pullA, WriteIndex: 0, ParentTaskID: "x"}.Prefix()
	nested1 := PushPath{Parent: pullA, WriteIndex: 1, ParentTaskID: "y"}.Prefix()

	t.Run("pull sorts before push", func(t *testing.T) {
		if comparePrefix(pullA, push0) >= 0 {
			t.Error("pull path does not order before push path")
		}
	})

	t.Run("pulls order by node name", func(t *testing.T) {
		if comparePrefix(pullA, pullB) >= 0 {
			t.Error("pull A does not order before pull B")
		}
	})

	t.Run("legacy pushes order numerically", func(t *testing.T) {
		if comparePrefix(push2, push10) >= 0 {
			t.Error("index 2 does not order before index 10")
		}
	})

	t.Run("nested pushes order by write index", func(t *testing.T) {
		if comparePrefix(nested0, nested1) >= 0 {
			t.Error("write index 0 does not order before 1")
		}
	})

	t.Run("equal prefixes compare equal", func(t *testing.T) {
		if comparePrefix(nested0, PushPath{Parent: pullA, WriteIndex: 0, ParentTaskID: "z"}.Prefix()) != 0 {
			t.Error("id-bearing components influenced ordering")
		}
	})
}

func TestWriteBuffer(t *testing.T) {
	t.Run("append order preserved", func(t *testing.T) {
		buf := NewWriteBuffer()
		buf.Append(ChannelWrite{Channel: "a", Value: 1})
		buf.Append(ChannelWrite{Channel: "b", Value: 2}, ChannelWrite{Channel: "c", Value: 3})
		all := buf.All()
		if len(all) != 3 || all[0].Channel != "a" || all[2].Channel != "c" {
			t.Errorf("buffer contents = %v", all)
		}
	})

	t.Run("snapshot is a copy", func(t *testing.T) {
		buf := NewWriteBuffer()
		buf.Append(ChannelWrite{Channel: "a", Value: 1})
		snap := buf.All()
		snap[0].Channel = "mutated"
		if buf.All()[0].Channel != "a" {
			t.Error("mutating a snapshot reached the buffer")
		}
	})

	t.Run("concurrent append from one task", func(t *testing.T) {
		buf := NewWriteBuffer()
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					buf.Append(ChannelWrite{Channel: "fan", Value: j})
				}
			}()
		}
		wg.Wait()
		if buf.Len() != 1600 {
			t.Errorf("buffer length = %d, want 1600", buf.Len())
		}
	})
}
