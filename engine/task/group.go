package task

import (
	"log/slog"

	"github.com/nathoo/questweave/engine/condition"
	"github.com/nathoo/questweave/types"
)

// Group is an ordered collection of tasks under one execution mode.
//
// Sequential runs tasks one at a time in declared order; Parallel and
// AnyOrder start everything at once and need all tasks completed (the two
// modes differ in authoring intent only); Optional starts everything and
// completes as soon as Required tasks complete, failing when completion
// becomes arithmetically impossible.
type Group struct {
	def   types.TaskGroupDef
	tasks []*Task
	state types.State
	log   *slog.Logger

	onDone func(*Group)
}

// NewGroup builds a group and its tasks. onDone fires once when the group
// reaches Completed or Failed.
func NewGroup(def types.TaskGroupDef, env *condition.Env, onDone func(*Group)) *Group {
	g := &Group{
		def:    def,
		state:  types.NotStarted,
		log:    envLogger(env),
		onDone: onDone,
	}
	for _, td := range def.Tasks {
		g.tasks = append(g.tasks, New(td, env, g.taskDone))
	}
	return g
}

// Def returns the group definition.
func (g *Group) Def() types.TaskGroupDef { return g.def }

// State returns the current lifecycle state.
func (g *Group) State() types.State { return g.state }

// Tasks returns the owned tasks in declared order.
func (g *Group) Tasks() []*Task { return g.tasks }

// Start begins execution per the group's mode. No-op unless NotStarted.
func (g *Group) Start() {
	if g.state != types.NotStarted {
		return
	}
	g.state = types.InProgress
	g.log.Debug("group started", "group", g.def.Name, "mode", g.def.Mode)

	if len(g.tasks) == 0 {
		g.complete()
		return
	}

	if g.def.Mode == types.ModeSequential {
		g.tasks[0].Start()
		return
	}
	for _, t := range g.tasks {
		t.Start()
	}
}

// required returns the effective X for Optional mode, clamped into
// [1, len(tasks)]. The loader warns about out-of-range values; the clamp
// here keeps hand-built definitions safe too.
func (g *Group) required() int {
	r := g.def.Required
	if r < 1 {
		r = 1
	}
	if r > len(g.tasks) {
		r = len(g.tasks)
	}
	return r
}

// taskDone is the upward notification from an owned task.
func (g *Group) taskDone(t *Task) {
	if g.state != types.InProgress {
		return
	}

	if t.State() == types.Failed {
		g.taskFailed()
		return
	}

	switch g.def.Mode {
	case types.ModeSequential:
		if next := g.nextNotStarted(); next != nil {
			next.Start()
			return
		}
		if g.completedCount() == len(g.tasks) {
			g.complete()
		}

	case types.ModeOptional:
		if g.completedCount() >= g.required() {
			g.complete()
		}

	default: // Parallel, AnyOrder
		if g.completedCount() == len(g.tasks) {
			g.complete()
		}
	}
}

// taskFailed applies the failure policy: Optional fails only when the
// required count can no longer be reached; every other mode needs all
// tasks, so any failure fails the group immediately.
func (g *Group) taskFailed() {
	if g.def.Mode == types.ModeOptional {
		if len(g.tasks)-g.failedCount() < g.required() {
			g.fail()
		}
		return
	}
	g.fail()
}

func (g *Group) nextNotStarted() *Task {
	for _, t := range g.tasks {
		if t.State() == types.NotStarted {
			return t
		}
	}
	return nil
}

func (g *Group) completedCount() int {
	n := 0
	for _, t := range g.tasks {
		if t.State() == types.Completed {
			n++
		}
	}
	return n
}

func (g *Group) failedCount() int {
	n := 0
	for _, t := range g.tasks {
		if t.State() == types.Failed {
			n++
		}
	}
	return n
}

// ForceComplete drives the group to Completed. Debug surface.
func (g *Group) ForceComplete() { g.complete() }

// ForceFail drives the group to Failed. Debug surface.
func (g *Group) ForceFail() { g.fail() }

func (g *Group) complete() {
	if g.state.Terminal() {
		return
	}
	g.stopRemaining()
	g.state = types.Completed
	g.log.Debug("group completed", "group", g.def.Name)
	if g.onDone != nil {
		g.onDone(g)
	}
}

func (g *Group) fail() {
	if g.state.Terminal() {
		return
	}
	g.stopRemaining()
	g.state = types.Failed
	g.log.Debug("group failed", "group", g.def.Name)
	if g.onDone != nil {
		g.onDone(g)
	}
}

// stopRemaining unsubscribes every non-terminal task's conditions so no
// orphaned callbacks fire after the group resolves.
func (g *Group) stopRemaining() {
	for _, t := range g.tasks {
		if !t.State().Terminal() {
			t.Stop()
		}
	}
}

// Stop unsubscribes every non-terminal task without changing state.
// Used when the owning quest resolves while the group is still running.
func (g *Group) Stop() {
	g.stopRemaining()
}

// Reset returns the group and every owned task to NotStarted.
func (g *Group) Reset() {
	for _, t := range g.tasks {
		t.Reset()
	}
	g.state = types.NotStarted
}

// Tick forwards the clock to owned timed tasks.
func (g *Group) Tick(dt float64) {
	for _, t := range g.tasks {
		t.Tick(dt)
	}
}

// RestoreState recomputes the group's state from its restored tasks.
func (g *Group) RestoreState() {
	completed := g.completedCount()
	failed := g.failedCount()
	started := 0
	for _, t := range g.tasks {
		if t.State() != types.NotStarted {
			started++
		}
	}

	switch {
	case g.def.Mode == types.ModeOptional && completed >= g.required():
		g.state = types.Completed
	case g.def.Mode == types.ModeOptional && len(g.tasks)-failed < g.required():
		g.state = types.Failed
	case g.def.Mode != types.ModeOptional && failed > 0:
		g.state = types.Failed
	case completed == len(g.tasks):
		g.state = types.Completed
	case started > 0:
		g.state = types.InProgress
	default:
		g.state = types.NotStarted
	}
}
