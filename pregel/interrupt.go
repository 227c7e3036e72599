package pregel

// ShouldInterrupt selects the prepared tasks the run must halt before, based
// on whether any channel advanced past the versions recorded at the last
// interrupt. With no advance since then it returns nothing, so resuming a
// run does not immediately re-interrupt. interruptNodes lists node names; a
// single AllNodes entry selects every task whose configuration does not
// carry TagHidden.
func ShouldInterrupt(cp *Checkpoint, interruptNodes []string, tasks []*ExecutableTask) []*ExecutableTask {
	seen := cp.VersionsSeen[ChannelInterrupt]
	anyUpdates := false
	for name, version := range cp.ChannelVersions {
		if version > seen[name] {
			anyUpdates = true
			break
		}
	}
	if !anyUpdates {
		return nil
	}

	wildcard := len(interruptNodes) == 1 && interruptNodes[0] == AllNodes
	var selected []*ExecutableTask
	for _, task := range tasks {
		if wildcard {
			if !task.Config.HasTag(TagHidden) {
				selected = append(selected, task)
			}
			continue
		}
		for _, name := range interruptNodes {
			if task.Name == name {
				selected = append(selected, task)
				break
			}
		}
	}
	return selected
}
