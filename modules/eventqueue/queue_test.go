package eventqueue

import (
	"log/slog"
	"reflect"
	"testing"
)

func newTestQueue() *Queue {
	return New(slog.Default(), 0)
}

func tickN(q *Queue, n int) {
	for i := 0; i < n; i++ {
		q.Tick()
	}
}

func TestFiresInAscendingOrderWithBoundaryHooks(t *testing.T) {
	q := newTestQueue()
	var got []string
	q.Add([]int{20, 10, 30}, func() { got = append(got, "default") }, &Hooks{
		OnStart:   func() { got = append(got, "start") },
		OnSuccess: func() { got = append(got, "success") },
	})

	tickN(q, 30)

	want := []string{"start", "default", "success"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("fired %v, want %v", got, want)
	}
	if q.Len() != 0 {
		t.Fatalf("registry not drained, %d tasks left", q.Len())
	}
}

func TestDrainsEveryDueSubeventInOneTick(t *testing.T) {
	q := newTestQueue()
	var fired int
	q.Add([]int{2, 2, 2}, func() { fired++ }, nil)

	q.Tick()
	if fired != 0 {
		t.Fatalf("fired %d actions before their offset", fired)
	}
	q.Tick()
	if fired != 3 {
		t.Fatalf("fired %d actions, want all 3 due at offset 2", fired)
	}
	if q.Len() != 0 {
		t.Fatal("drained task still registered")
	}
}

func TestPerOffsetOverridePrecedence(t *testing.T) {
	q := newTestQueue()
	var got []string
	q.Add([]int{1, 2, 3}, func() { got = append(got, "default") }, &Hooks{
		OnSuccess: func() { got = append(got, "success") },
		At: map[int]Action{
			2: func() { got = append(got, "override") },
			3: func() { got = append(got, "never") }, // boundary hook wins
		},
	})

	tickN(q, 3)

	want := []string{"default", "override", "success"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("fired %v, want %v", got, want)
	}
}

func TestCancelSuppressesFutureActions(t *testing.T) {
	q := newTestQueue()
	var fired int
	var cancelled int
	id := q.Add([]int{1, 2, 3}, func() { fired++ }, &Hooks{
		OnCancel: func() { cancelled++ },
	})

	q.Tick()
	q.Cancel(id, false)
	tickN(q, 5)

	if fired != 1 {
		t.Errorf("fired %d actions after cancel, want 1 (pre-cancel)", fired)
	}
	if cancelled != 1 {
		t.Errorf("on_cancel ran %d times, want 1", cancelled)
	}
	if q.Len() != 0 {
		t.Errorf("cancelled task still registered")
	}
}

func TestSilentCancelSkipsHook(t *testing.T) {
	q := newTestQueue()
	var cancelled int
	id := q.Add([]int{5}, func() {}, &Hooks{
		OnCancel: func() { cancelled++ },
	})

	q.Cancel(id, true)
	tickN(q, 10)

	if cancelled != 0 {
		t.Fatalf("on_cancel ran %d times after silent cancel", cancelled)
	}
}

func TestRepeatedCancelRunsHookOnce(t *testing.T) {
	q := newTestQueue()
	var cancelled int
	id := q.Add([]int{5}, func() {}, &Hooks{
		OnCancel: func() { cancelled++ },
	})

	q.Cancel(id, false)
	q.Cancel(id, false)
	q.Cancel("no-such-task", false)

	if cancelled != 1 {
		t.Fatalf("on_cancel ran %d times, want 1", cancelled)
	}
}

func TestOffsetTracksTicks(t *testing.T) {
	q := newTestQueue()
	id := q.Add([]int{100}, func() {}, nil)

	tickN(q, 7)

	off, ok := q.Offset(id)
	if !ok || off != 7 {
		t.Fatalf("Offset = %d, %v; want 7, true", off, ok)
	}

	tickN(q, 93)
	if _, ok := q.Offset(id); ok {
		t.Fatal("drained task still reports an offset")
	}
}

func TestPanickingActionDoesNotStallOtherTasks(t *testing.T) {
	q := newTestQueue()
	var survived bool
	q.Add([]int{1}, func() { panic("boom") }, nil)
	q.Add([]int{1}, func() { survived = true }, nil)

	q.Tick()

	if !survived {
		t.Fatal("second task's action did not run after a panic in the first")
	}
}

func TestActionMayReenterQueue(t *testing.T) {
	q := newTestQueue()
	var childFired bool
	q.Add([]int{1}, func() {
		q.Add([]int{1}, func() { childFired = true }, nil)
	}, nil)

	tickN(q, 2)

	if !childFired {
		t.Fatal("task registered from within an action never fired")
	}
}
