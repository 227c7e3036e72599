package pregel

import "testing"

func interruptFixture(seen Version) (*Checkpoint, []*ExecutableTask) {
	cp := NewCheckpoint()
	cp.ChannelVersions["x"] = 2
	cp.VersionsSeen[ChannelInterrupt] = map[string]Version{"x": seen}
	tasks := []*ExecutableTask{
		{Task: Task{ID: "t1", Name: "A", Path: PullPath{Node: "A"}.Prefix()}},
		{Task: Task{ID: "t2", Name: "B", Path: PullPath{Node: "B"}.Prefix()}},
	}
	return cp, tasks
}

func TestShouldInterrupt(t *testing.T) {
	t.Run("selects named node after updates", func(t *testing.T) {
		cp, tasks := interruptFixture(1)
		selected := ShouldInterrupt(cp, []string{"A"}, tasks)
		if len(selected) != 1 || selected[0].Name != "A" {
			t.Errorf("selected = %v, want [A]", taskNames(selected))
		}
	})

	t.Run("quiet since last interrupt", func(t *testing.T) {
		cp, tasks := interruptFixture(2)
		if selected := ShouldInterrupt(cp, []string{"A"}, tasks); len(selected) != 0 {
			t.Errorf("selected %v with no updates since last interrupt", taskNames(selected))
		}
	})

	t.Run("wildcard selects all visible tasks", func(t *testing.T) {
		cp, tasks := interruptFixture(1)
		tasks[1].Config = Config{Tags: []string{TagHidden}}
		selected := ShouldInterrupt(cp, []string{AllNodes}, tasks)
		if len(selected) != 1 || selected[0].Name != "A" {
			t.Errorf("selected = %v, want hidden task excluded", taskNames(selected))
		}
	})

	t.Run("no versions at all", func(t *testing.T) {
		cp := NewCheckpoint()
		_, tasks := interruptFixture(0)
		if selected := ShouldInterrupt(cp, []string{AllNodes}, tasks); len(selected) != 0 {
			t.Error("interrupted with no channel versions recorded")
		}
	})

	t.Run("channel never seen counts as update", func(t *testing.T) {
		cp, tasks := interruptFixture(2)
		cp.ChannelVersions["fresh"] = 1
		selected := ShouldInterrupt(cp, []string{"B"}, tasks)
		if len(selected) != 1 || selected[0].Name != "B" {
			t.Errorf("selected = %v, want [B]", taskNames(selected))
		}
	})
}
