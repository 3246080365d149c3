// Package quest implements stages, branching transitions, and the quest
// lifecycle layered over them.
package quest

import (
	"log/slog"

	"github.com/nathoo/questweave/engine/condition"
	"github.com/nathoo/questweave/engine/task"
	"github.com/nathoo/questweave/types"
)

// Stage is one phase of a quest: a set of task groups plus outgoing
// transitions. A stage with zero groups is a pure decision point and is
// group-complete the moment it starts.
type Stage struct {
	def    types.StageDef
	index  int
	groups []*task.Group
	log    *slog.Logger

	started  bool
	notified bool

	onComplete  func(*Stage)
	onGroupFail func(*Stage, *task.Group)
}

func newStage(def types.StageDef, index int, env *condition.Env) *Stage {
	s := &Stage{def: def, index: index, log: envLogger(env)}
	for _, gd := range def.Groups {
		s.groups = append(s.groups, task.NewGroup(gd, env, s.groupDone))
	}
	return s
}

func envLogger(env *condition.Env) *slog.Logger {
	if env.Log == nil {
		return slog.Default()
	}
	return env.Log
}

// Def returns the stage definition.
func (s *Stage) Def() types.StageDef { return s.def }

// Index returns the stage's position in the quest.
func (s *Stage) Index() int { return s.index }

// Groups returns the owned task groups in declared order.
func (s *Stage) Groups() []*task.Group { return s.groups }

// Start begins every owned group. Idempotent.
func (s *Stage) Start() {
	if s.started {
		return
	}
	s.started = true
	s.log.Debug("stage started", "stage", s.def.Name)

	for _, g := range s.groups {
		g.Start()
	}
	// Zero-group stages, and stages whose groups all completed
	// synchronously during Start, are group-complete already.
	s.checkComplete()
}

// groupDone is the upward notification from an owned group.
func (s *Stage) groupDone(g *task.Group) {
	if g.State() == types.Failed {
		// A failed required group leaves the stage permanently
		// incomplete; the quest does not fail on its own here.
		s.log.Warn("task group failed", "stage", s.def.Name, "group", g.Def().Name)
		if s.onGroupFail != nil {
			s.onGroupFail(s, g)
		}
		return
	}
	s.checkComplete()
}

func (s *Stage) checkComplete() {
	if s.notified || !s.started {
		return
	}
	for _, g := range s.groups {
		if g.State() != types.Completed {
			return
		}
	}
	s.notified = true
	s.log.Debug("stage group-complete", "stage", s.def.Name)
	if s.onComplete != nil {
		s.onComplete(s)
	}
}

// GroupComplete reports whether every owned group has completed.
func (s *Stage) GroupComplete() bool {
	if !s.started {
		return false
	}
	for _, g := range s.groups {
		if g.State() != types.Completed {
			return false
		}
	}
	return true
}

// Stop cancels condition subscriptions in every group without changing
// task state. Used when the quest resolves out from under the stage.
func (s *Stage) Stop() {
	for _, g := range s.groups {
		g.Stop()
	}
}

// Reset returns the stage and everything under it to NotStarted.
func (s *Stage) Reset() {
	for _, g := range s.groups {
		g.Reset()
	}
	s.started = false
	s.notified = false
}

// Tick forwards the clock to owned groups.
func (s *Stage) Tick(dt float64) {
	for _, g := range s.groups {
		g.Tick(dt)
	}
}
