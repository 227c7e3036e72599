package pregel

import (
	"errors"
	"testing"
)

func readerFixture() (*StateReader, *WriteBuffer, map[string]Channel) {
	cp := NewCheckpoint()
	cp.ChannelVersions["a"] = 1
	cp.ChannelVersions["b"] = 1
	channels := map[string]Channel{"a": NewLastValue(), "b": NewLastValue()}
	channels["a"].Update([]any{"committed-a"})
	channels["b"].Update([]any{"committed-b"})

	writes := NewWriteBuffer()
	reader := &StateReader{
		checkpoint: cp,
		channels:   channels,
		managed:    ManagedValues{"mv": func() any { return 42 }},
		task: TaskWrites{
			Path:     PullPath{Node: "A"}.Prefix(),
			Name:     "A",
			Writes:   writes,
			Triggers: []string{"a"},
		},
	}
	return reader, writes, channels
}

func TestStateReader(t *testing.T) {
	t.Run("stale read equals direct read", func(t *testing.T) {
		reader, writes, _ := readerFixture()
		writes.Append(ChannelWrite{Channel: "a", Value: "uncommitted"})

		values := reader.Read([]string{"a", "b"}, false)
		if values["a"] != "committed-a" || values["b"] != "committed-b" {
			t.Errorf("stale read = %v, want committed values", values)
		}
	})

	t.Run("fresh read folds own writes", func(t *testing.T) {
		reader, writes, channels := readerFixture()
		writes.Append(ChannelWrite{Channel: "a", Value: "uncommitted"})

		values := reader.Read([]string{"a", "b"}, true)
		if values["a"] != "uncommitted" {
			t.Errorf("fresh read of a = %v, want uncommitted", values["a"])
		}
		if values["b"] != "committed-b" {
			t.Errorf("fresh read of b = %v, want committed-b", values["b"])
		}

		// The simulation must not leak into the real channels.
		if val, _ := channels["a"].Get(); val != "committed-a" {
			t.Error("fresh read committed the task's writes")
		}
	})

	t.Run("fresh read of untouched channel equals direct read", func(t *testing.T) {
		reader, writes, _ := readerFixture()
		writes.Append(ChannelWrite{Channel: "a", Value: "uncommitted"})
		if got := reader.ReadOne("b", true); got != "committed-b" {
			t.Errorf("ReadOne(b, fresh) = %v, want committed-b", got)
		}
	})

	t.Run("managed values merge in", func(t *testing.T) {
		reader, _, _ := readerFixture()
		values := reader.Read([]string{"a", "mv"}, false)
		if values["mv"] != 42 {
			t.Errorf("managed value = %v, want 42", values["mv"])
		}
	})
}

func TestStateWriter(t *testing.T) {
	processes := map[string]*Node{"B": {Name: "B"}}

	t.Run("valid send commits", func(t *testing.T) {
		buf := NewWriteBuffer()
		writer := &StateWriter{buffer: buf, processes: processes}
		err := writer.Write(
			ChannelWrite{Channel: "out", Value: 1},
			ChannelWrite{Channel: ChannelPush, Value: Send{Node: "B", Arg: 2}},
		)
		if err != nil {
			t.Fatal(err)
		}
		if buf.Len() != 2 {
			t.Errorf("buffer length = %d, want 2", buf.Len())
		}
	})

	t.Run("non-send push rejected", func(t *testing.T) {
		buf := NewWriteBuffer()
		writer := &StateWriter{buffer: buf, processes: processes}
		err := writer.Write(ChannelWrite{Channel: ChannelPush, Value: "not a send"})
		if !errors.Is(err, ErrInvalidUpdate) {
			t.Errorf("err = %v, want ErrInvalidUpdate", err)
		}
		if buf.Len() != 0 {
			t.Error("rejected batch partially committed")
		}
	})

	t.Run("unknown node rejected", func(t *testing.T) {
		buf := NewWriteBuffer()
		writer := &StateWriter{buffer: buf, processes: processes}
		err := writer.Write(ChannelWrite{Channel: ChannelTasks, Value: Send{Node: "ghost"}})
		if !errors.Is(err, ErrInvalidUpdate) {
			t.Errorf("err = %v, want ErrInvalidUpdate", err)
		}
	})
}
