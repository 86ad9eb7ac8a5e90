package domain

import "testing"

func makeTasks(ids ...string) []Task {
	tasks := make([]Task, len(ids))
	for i, id := range ids {
		tasks[i] = Task{ID: id, Title: id, Order: i + 1}
	}
	return tasks
}

func assertSequence(t *testing.T, tasks []Task, ids ...string) {
	t.Helper()
	if len(tasks) != len(ids) {
		t.Fatalf("expected %d tasks, got %d", len(ids), len(tasks))
	}
	for i, id := range ids {
		if tasks[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, tasks[i].ID)
		}
		if tasks[i].Order != i+1 {
			t.Fatalf("task %s: expected order %d, got %d", id, i+1, tasks[i].Order)
		}
	}
}

func TestReorderDragOntoEarlierTask(t *testing.T) {
	tasks := makeTasks("t1", "t2", "t3")

	out, ok := Reorder(tasks, "t3", "t1")
	if !ok {
		t.Fatal("expected reorder to apply")
	}
	assertSequence(t, out, "t3", "t1", "t2")
}

func TestReorderDragOntoLaterTask(t *testing.T) {
	tasks := makeTasks("t1", "t2", "t3", "t4")

	out, ok := Reorder(tasks, "t1", "t3")
	if !ok {
		t.Fatal("expected reorder to apply")
	}
	// Splice semantics: t1 takes t3's former index, everything else keeps
	// its relative order.
	assertSequence(t, out, "t2", "t3", "t1", "t4")
}

func TestReorderMiddleMove(t *testing.T) {
	tasks := makeTasks("a", "b", "c", "d", "e")

	out, ok := Reorder(tasks, "d", "b")
	if !ok {
		t.Fatal("expected reorder to apply")
	}
	assertSequence(t, out, "a", "d", "b", "c", "e")
}

func TestReorderNoOpCases(t *testing.T) {
	tasks := makeTasks("t1", "t2")

	if _, ok := Reorder(tasks, "t1", "t1"); ok {
		t.Fatal("drag onto itself must be a no-op")
	}
	if _, ok := Reorder(tasks, "t1", "missing"); ok {
		t.Fatal("absent target must be a no-op")
	}
	if _, ok := Reorder(tasks, "missing", "t1"); ok {
		t.Fatal("absent dragged task must be a no-op")
	}
}

func TestReorderDoesNotMutateInput(t *testing.T) {
	tasks := makeTasks("t1", "t2", "t3")

	if _, ok := Reorder(tasks, "t3", "t1"); !ok {
		t.Fatal("expected reorder to apply")
	}
	assertSequence(t, tasks, "t1", "t2", "t3")
}

func TestReorderRenumbersGappedOrders(t *testing.T) {
	tasks := makeTasks("t1", "t2", "t3")
	tasks[0].Order = 3
	tasks[1].Order = 7
	tasks[2].Order = 12

	out, ok := Reorder(tasks, "t2", "t3")
	if !ok {
		t.Fatal("expected reorder to apply")
	}
	assertSequence(t, out, "t1", "t3", "t2")
}

func TestPartitionPreservesRelativeOrder(t *testing.T) {
	tasks := makeTasks("t1", "t2", "t3", "t4")
	tasks[1].Completed = true
	tasks[3].Completed = true

	active, completed := Partition(tasks)
	if len(active) != 2 || active[0].ID != "t1" || active[1].ID != "t3" {
		t.Fatalf("unexpected active partition: %#v", active)
	}
	if len(completed) != 2 || completed[0].ID != "t2" || completed[1].ID != "t4" {
		t.Fatalf("unexpected completed partition: %#v", completed)
	}
}

func TestSortByOrderIsStable(t *testing.T) {
	tasks := []Task{
		{ID: "b", Order: 2},
		{ID: "a", Order: 1},
		{ID: "b2", Order: 2},
	}
	SortByOrder(tasks)
	if tasks[0].ID != "a" || tasks[1].ID != "b" || tasks[2].ID != "b2" {
		t.Fatalf("unexpected sort result: %#v", tasks)
	}
}

func TestNextOrder(t *testing.T) {
	if got := NextOrder(nil); got != 1 {
		t.Fatalf("expected 1 for empty set, got %d", got)
	}
	tasks := makeTasks("t1", "t2")
	tasks[1].Order = 9
	if got := NextOrder(tasks); got != 10 {
		t.Fatalf("expected 10, got %d", got)
	}
}
