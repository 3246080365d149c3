// Package task implements the six task variants and the task-group
// execution modes that aggregate them.
package task

import (
	"log/slog"

	"github.com/nathoo/questweave/engine/condition"
	"github.com/nathoo/questweave/types"
)

// Task is the atomic unit of progress. It owns its conditions and moves
// NotStarted → InProgress → {Completed, Failed}. Terminal states hold
// until an explicit Reset; reaching one cancels every subscription so no
// further callbacks are processed.
type Task struct {
	def types.TaskDef
	env *condition.Env
	log *slog.Logger

	conds     []*condition.Condition
	failConds []*condition.Condition

	state      types.State
	current    int          // count tally
	discovered map[int]bool // fulfilled discovery condition indexes
	remaining  float64      // timed countdown
	expired    bool

	onDone    func(*Task)
	failQuest func() // set by the owning quest for FailQuestOnExpire
}

// New builds a task from its definition. onDone is the upward
// notification consumed by the owning group; it fires once per terminal
// transition.
func New(def types.TaskDef, env *condition.Env, onDone func(*Task)) *Task {
	t := &Task{
		def:        def,
		env:        env,
		log:        envLogger(env),
		conds:      condition.NewAll(def.Conditions, env),
		failConds:  condition.NewAll(def.FailConditions, env),
		state:      types.NotStarted,
		discovered: map[int]bool{},
		onDone:     onDone,
	}
	return t
}

func envLogger(env *condition.Env) *slog.Logger {
	if env.Log == nil {
		return slog.Default()
	}
	return env.Log
}

// Def returns the task definition.
func (t *Task) Def() types.TaskDef { return t.def }

// State returns the current lifecycle state.
func (t *Task) State() types.State { return t.state }

// Expired reports whether a timed task failed by running out of time.
func (t *Task) Expired() bool { return t.expired }

// SetFailQuest wires the quest-level failure callback for timed tasks
// with FailQuestOnExpire.
func (t *Task) SetFailQuest(fn func()) { t.failQuest = fn }

// Start moves the task to InProgress and subscribes its conditions.
// Starting a task that is not NotStarted is a no-op.
func (t *Task) Start() {
	if t.state != types.NotStarted {
		return
	}
	t.state = types.InProgress
	if t.def.Kind == types.TaskTimed {
		t.remaining = t.def.Limit
		t.expired = false
	}
	t.subscribe()
	t.log.Debug("task started", "task", t.def.ID, "kind", t.def.Kind)

	// Passive conditions (flags, quest state) may already hold at start;
	// event conditions have seen no payload yet and stay false.
	for _, c := range t.failConds {
		if t.state == types.InProgress && c.Evaluate() {
			t.Fail()
			return
		}
	}
	for i, c := range t.conds {
		if t.state != types.InProgress {
			break
		}
		if c.Evaluate() {
			t.fulfilled(i, c)
		}
	}
}

func (t *Task) subscribe() {
	for i, c := range t.conds {
		idx, cond := i, c
		cond.Subscribe(func() { t.fulfilled(idx, cond) })
	}
	for _, c := range t.failConds {
		c.Subscribe(t.Fail)
	}
}

// fulfilled handles one completion condition firing, per variant.
func (t *Task) fulfilled(idx int, c *condition.Condition) {
	if t.state != types.InProgress {
		return
	}

	switch t.def.Kind {
	case types.TaskCount:
		amount := 1
		if c.Def().FromAmount {
			if p, ok := c.LastPayload(); ok && p.Kind == types.PayloadInt {
				amount = p.Int
			}
		}
		t.current += amount
		if t.current >= t.def.Required {
			t.complete()
		}

	case types.TaskDiscovery:
		// Duplicate fulfillment of the same condition is a no-op.
		if t.discovered[idx] {
			return
		}
		t.discovered[idx] = true
		if len(t.discovered) >= t.requiredDiscoveries() {
			t.complete()
		}

	default:
		// Bool, Match, Location, Timed: first fulfillment completes.
		t.complete()
	}
}

// requiredDiscoveries returns the distinct fulfillment target; a Required
// of zero means all declared conditions.
func (t *Task) requiredDiscoveries() int {
	if t.def.Required <= 0 || t.def.Required > len(t.conds) {
		return len(t.conds)
	}
	return t.def.Required
}

// Tick advances a timed task's countdown. Non-timed or non-running tasks
// ignore it.
func (t *Task) Tick(dt float64) {
	if t.def.Kind != types.TaskTimed || t.state != types.InProgress {
		return
	}
	t.remaining -= dt
	if t.remaining <= 0 {
		t.remaining = 0
		t.expire()
	}
}

// ExpireNow drops a timed task's countdown to zero immediately. Debug
// surface.
func (t *Task) ExpireNow() {
	if t.def.Kind != types.TaskTimed || t.state != types.InProgress {
		return
	}
	t.remaining = 0
	t.expire()
}

func (t *Task) expire() {
	t.expired = true
	// Quest failure goes first so the group-failure cascade below sees a
	// terminal quest and does not report the stage as stuck.
	if t.def.FailQuestOnExpire && t.failQuest != nil {
		t.failQuest()
	}
	t.Fail()
}

// Complete forces the task to Completed. Valid as a completion path and
// as the debug force-complete; no-op once terminal.
func (t *Task) Complete() { t.complete() }

func (t *Task) complete() {
	if t.state.Terminal() {
		return
	}
	t.unsubscribe()
	t.state = types.Completed
	t.log.Debug("task completed", "task", t.def.ID)
	if t.onDone != nil {
		t.onDone(t)
	}
}

// Fail moves the task to Failed. No-op once terminal.
func (t *Task) Fail() {
	if t.state.Terminal() {
		return
	}
	t.unsubscribe()
	t.state = types.Failed
	t.log.Debug("task failed", "task", t.def.ID, "expired", t.expired)
	if t.onDone != nil {
		t.onDone(t)
	}
}

// Stop cancels all subscriptions without a state change. Groups call it
// on their remaining tasks when the group resolves, so no orphaned
// callbacks survive.
func (t *Task) Stop() {
	t.unsubscribe()
}

func (t *Task) unsubscribe() {
	for _, c := range t.conds {
		c.Unsubscribe()
	}
	for _, c := range t.failConds {
		c.Unsubscribe()
	}
}

// Reset returns the task to NotStarted from any state, clearing variant
// progress and remembered condition payloads.
func (t *Task) Reset() {
	t.unsubscribe()
	t.state = types.NotStarted
	t.current = 0
	t.discovered = map[int]bool{}
	t.remaining = 0
	t.expired = false
	for _, c := range t.conds {
		c.Reset()
	}
	for _, c := range t.failConds {
		c.Reset()
	}
}

// Progress returns (current, required) for display. Bool-like variants
// report 0/1 or 1/1; timed variants report seconds left as current.
func (t *Task) Progress() (current, required int) {
	switch t.def.Kind {
	case types.TaskCount:
		return t.current, t.def.Required
	case types.TaskDiscovery:
		return len(t.discovered), t.requiredDiscoveries()
	default:
		if t.state == types.Completed {
			return 1, 1
		}
		return 0, 1
	}
}

// Remaining returns a timed task's countdown in seconds.
func (t *Task) Remaining() float64 { return t.remaining }

// Snapshot captures the task's variant progress.
func (t *Task) Snapshot() types.TaskSnapshot {
	snap := types.TaskSnapshot{
		State:     t.state,
		Current:   t.current,
		Remaining: t.remaining,
	}
	for idx := range t.discovered {
		snap.Discovered = append(snap.Discovered, idx)
	}
	return snap
}

// Restore applies a snapshot without emitting notifications. A restored
// InProgress task re-subscribes its conditions so it keeps running.
func (t *Task) Restore(snap types.TaskSnapshot) {
	t.unsubscribe()
	t.state = snap.State
	t.current = snap.Current
	t.remaining = snap.Remaining
	t.discovered = map[int]bool{}
	for _, idx := range snap.Discovered {
		if idx >= 0 && idx < len(t.conds) {
			t.discovered[idx] = true
		}
	}
	if t.state == types.InProgress {
		t.subscribe()
	}
}
