package domain

import "sort"

// Reorder applies a drag-and-drop gesture to a single partition of the task
// list: the dragged task is removed from its current index and reinserted at
// the drop target's index, then every task in the partition is renumbered to
// its 1-based position. The input slice is not modified.
//
// The gesture is a no-op (nil, false) when the dragged and target IDs are
// equal or when either is absent from the partition.
func Reorder(partition []Task, draggedID, targetID string) ([]Task, bool) {
	if draggedID == targetID {
		return nil, false
	}
	from, to := -1, -1
	for i, t := range partition {
		switch t.ID {
		case draggedID:
			from = i
		case targetID:
			to = i
		}
	}
	if from < 0 || to < 0 {
		return nil, false
	}

	out := make([]Task, 0, len(partition))
	out = append(out, partition[:from]...)
	out = append(out, partition[from+1:]...)
	out = append(out, Task{})
	copy(out[to+1:], out[to:])
	out[to] = partition[from]

	for i := range out {
		out[i].Order = i + 1
	}
	return out, true
}

// Partition splits tasks into active and completed subsets, preserving the
// relative order within each. Reordering one partition and appending the
// other back leaves the untouched partition's relative order intact.
func Partition(tasks []Task) (active, completed []Task) {
	for _, t := range tasks {
		if t.Completed {
			completed = append(completed, t)
		} else {
			active = append(active, t)
		}
	}
	return active, completed
}

// SortByOrder sorts tasks ascending by their order field. Ties keep their
// input order so storage enumeration order stays deterministic.
func SortByOrder(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].Order < tasks[j].Order })
}
