package aggregate

import "github.com/kailas-cloud/portalsearch/internal/domain/task"

// State is the lifecycle of an initial search.
type State int

// Initial search states.
const (
	// Idle means no initial search was requested for the session.
	Idle State = iota
	Pending
	Finished
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Finished:
		return "finished"
	}
	return "idle"
}

// Tracker records per-task completion of the initial search.
// Pending moves to Finished exactly once, when every configured task is done.
type Tracker struct {
	order []task.Task
	done  map[task.Task]bool
	state State
}

// Configure sets the tracked tasks, all not done.
func (t *Tracker) Configure(tasks []task.Task) {
	t.order = make([]task.Task, 0, len(tasks))
	t.done = make(map[task.Task]bool, len(tasks))
	for _, tk := range tasks {
		if _, ok := t.done[tk]; ok {
			continue
		}
		t.order = append(t.order, tk)
		t.done[tk] = false
	}
}

// Arm starts the initial search. It returns true when the search is already
// complete, which happens when no tasks are configured.
func (t *Tracker) Arm() bool {
	if t.state != Idle {
		return false
	}
	t.state = Pending
	return t.finishIfDone()
}

// MarkDone flags a task as done. Unconfigured tasks are ignored.
// It returns true only for the call that completes the initial search.
func (t *Tracker) MarkDone(tk task.Task) bool {
	if _, ok := t.done[tk]; !ok {
		return false
	}
	t.done[tk] = true
	return t.finishIfDone()
}

func (t *Tracker) finishIfDone() bool {
	if t.state != Pending || !t.AllDone() {
		return false
	}
	t.state = Finished
	return true
}

// AllDone reports whether every configured task is done. True when none are configured.
func (t *Tracker) AllDone() bool {
	for _, d := range t.done {
		if !d {
			return false
		}
	}
	return true
}

// Remaining returns the tasks not yet done, in configuration order.
func (t *Tracker) Remaining() []task.Task {
	var out []task.Task
	for _, tk := range t.order {
		if !t.done[tk] {
			out = append(out, tk)
		}
	}
	return out
}

// State returns the current lifecycle state.
func (t *Tracker) State() State { return t.state }

// Pending reports whether the initial search is still waiting on tasks.
func (t *Tracker) Pending() bool { return t.state == Pending }
