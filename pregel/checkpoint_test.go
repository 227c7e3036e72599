package pregel

import "testing"

func TestCheckpointCopy(t *testing.T) {
	cp := NewCheckpoint()
	cp.ChannelVersions["in"] = 1
	cp.VersionsSeen["A"] = map[string]Version{"in": 1}
	cp.PendingSends = []Send{{Node: "B", Arg: 1}}

	dup := cp.Copy()
	if dup.ID != cp.ID {
		t.Errorf("copy id = %s, want %s", dup.ID, cp.ID)
	}

	dup.ChannelVersions["in"] = 9
	dup.VersionsSeen["A"]["in"] = 9
	dup.PendingSends[0] = Send{Node: "C", Arg: 2}

	if cp.ChannelVersions["in"] != 1 {
		t.Error("channel versions shared with the copy")
	}
	if cp.VersionsSeen["A"]["in"] != 1 {
		t.Error("versions seen shared with the copy")
	}
	if cp.PendingSends[0].Node != "B" {
		t.Error("pending sends shared with the copy")
	}
}

func TestNewCheckpointIdentity(t *testing.T) {
	a, b := NewCheckpoint(), NewCheckpoint()
	if a.ID == b.ID {
		t.Error("fresh checkpoints share an id")
	}
	if len(a.ID) != 36 {
		t.Errorf("checkpoint id %q is not a canonical UUID string", a.ID)
	}
}
