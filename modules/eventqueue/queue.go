// Package eventqueue schedules sequences of one-shot actions keyed by
// elapsed-tick offsets. A single shared ticker drives every registered task;
// it starts lazily on the first registration and stops once the registry
// drains empty.
package eventqueue

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Action is a zero-argument deferred callback fired by the queue.
type Action func()

// Hooks layers named overrides over a task's default action. OnStart
// replaces the action at the smallest offset and OnSuccess the one at the
// largest; At holds overrides keyed by the literal offset value. OnCancel is
// never queued, it runs synchronously when the task is cancelled non-silently.
type Hooks struct {
	OnStart   Action
	OnSuccess Action
	OnCancel  Action
	At        map[int]Action
}

type subevent struct {
	at     int
	action Action
}

type task struct {
	offset    int
	cancelled bool
	pending   []subevent
	onCancel  Action
}

// Queue is a registry of tick-driven tasks guarded by one mutex. Actions run
// on the ticker goroutine after the registry lock is released, so a slow
// action delays subsequent ticks but never deadlocks callers that re-enter
// the queue.
type Queue struct {
	mu       sync.Mutex
	tasks    map[string]*task
	interval time.Duration
	running  bool
	stop     chan struct{}
	log      *slog.Logger
}

// New builds a queue whose ticker fires every interval. An interval <= 0
// disables the background ticker entirely; callers drive Tick themselves.
func New(log *slog.Logger, interval time.Duration) *Queue {
	if log == nil {
		log = slog.Default()
	}
	return &Queue{
		tasks:    make(map[string]*task),
		interval: interval,
		log:      log,
	}
}

// Add registers a task firing def at every listed offset, with hooks applied
// on top. Offsets may arrive unsorted. Returns the task id; never blocks.
func (q *Queue) Add(offsets []int, def Action, hooks *Hooks) string {
	if hooks == nil {
		hooks = &Hooks{}
	}
	sorted := append([]int(nil), offsets...)
	sort.Ints(sorted)

	t := &task{onCancel: hooks.OnCancel}
	for i, at := range sorted {
		action := def
		switch {
		case i == 0 && hooks.OnStart != nil:
			action = hooks.OnStart
		case i == len(sorted)-1 && hooks.OnSuccess != nil:
			action = hooks.OnSuccess
		default:
			if override, ok := hooks.At[at]; ok {
				action = override
			}
		}
		t.pending = append(t.pending, subevent{at: at, action: action})
	}

	id := uuid.NewString()
	q.mu.Lock()
	q.tasks[id] = t
	q.startLocked()
	q.mu.Unlock()
	q.log.Debug("task registered", "task", id, "offsets", sorted)
	return id
}

// Cancel marks a task cancelled; removal happens on the next tick. Unknown
// ids are a normal no-op. A non-silent cancel runs the task's OnCancel hook
// synchronously, at most once across repeated calls.
func (q *Queue) Cancel(id string, silent bool) {
	q.mu.Lock()
	t, ok := q.tasks[id]
	if !ok || t.cancelled {
		q.mu.Unlock()
		q.log.Info("cancel for unknown or already cancelled task", "task", id)
		return
	}
	t.cancelled = true
	hook := t.onCancel
	q.mu.Unlock()

	if silent || hook == nil {
		return
	}
	q.invoke(id, "on_cancel", hook)
}

// Offset reports how many ticks have elapsed for a live task.
func (q *Queue) Offset(id string) (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[id]
	if !ok {
		return 0, false
	}
	return t.offset, true
}

// Len reports the number of tasks still in the registry.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Tick advances every task by one offset and fires all due actions in
// ascending order, draining multiple offsets at once if the loop stalled.
// Cancelled and drained tasks are dropped from the registry.
func (q *Queue) Tick() {
	type firing struct {
		id      string
		actions []Action
	}

	q.mu.Lock()
	var due []firing
	for id, t := range q.tasks {
		if t.cancelled {
			delete(q.tasks, id)
			continue
		}
		t.offset++
		var actions []Action
		for len(t.pending) > 0 && t.pending[0].at <= t.offset {
			actions = append(actions, t.pending[0].action)
			t.pending = t.pending[1:]
		}
		if len(actions) > 0 {
			due = append(due, firing{id: id, actions: actions})
		}
		if len(t.pending) == 0 {
			delete(q.tasks, id)
		}
	}
	empty := len(q.tasks) == 0
	q.mu.Unlock()

	for _, f := range due {
		for _, a := range f.actions {
			q.invoke(f.id, "action", a)
		}
	}
	if empty {
		q.stopTicker()
	}
}

// Close stops the background ticker if it is running. Registered tasks stay
// in place; a later Add restarts the ticker.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		close(q.stop)
		q.running = false
	}
}

func (q *Queue) invoke(id, kind string, a Action) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("task action panicked", "task", id, "kind", kind, "panic", r)
		}
	}()
	a()
}

func (q *Queue) startLocked() {
	if q.running || q.interval <= 0 {
		return
	}
	q.running = true
	q.stop = make(chan struct{})
	go q.loop(q.stop)
}

func (q *Queue) stopTicker() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running && len(q.tasks) == 0 {
		close(q.stop)
		q.running = false
	}
}

func (q *Queue) loop(stop chan struct{}) {
	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			q.Tick()
		}
	}
}
