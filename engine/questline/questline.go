// Package questline implements named quest groupings with aggregate
// progress and composite prerequisite gating.
package questline

import (
	"log/slog"

	"github.com/nathoo/questweave/engine/condition"
	"github.com/nathoo/questweave/types"
)

// Hooks are the notifications a line emits as its state moves.
type Hooks struct {
	OnAvailable func(*Line)
	OnCompleted func(*Line)
}

// Line tracks a group of quests. It becomes Available when its
// prerequisite condition holds (no prerequisite means immediately
// Available), InProgress when a contained quest starts, and Completed
// when every contained quest completes. A contained quest failing does
// not fail the line; the manager surfaces that for external policy.
type Line struct {
	def    types.QuestLineDef
	env    *condition.Env
	log    *slog.Logger
	prereq *condition.Condition

	state     types.LineState
	completed map[string]bool
	hooks     Hooks
}

// New builds a line from its definition. Call Activate to evaluate the
// prerequisite and arm it if it does not hold yet.
func New(def types.QuestLineDef, env *condition.Env, hooks Hooks) *Line {
	l := &Line{
		def:       def,
		env:       env,
		state:     types.LineLocked,
		completed: map[string]bool{},
		hooks:     hooks,
	}
	if env.Log != nil {
		l.log = env.Log
	} else {
		l.log = slog.Default()
	}
	if def.Prereq != nil {
		l.prereq = condition.New(*def.Prereq, env)
	}
	return l
}

// Def returns the line definition.
func (l *Line) Def() types.QuestLineDef { return l.def }

// State returns the current lifecycle state.
func (l *Line) State() types.LineState { return l.state }

// Contains reports whether the line includes the given quest.
func (l *Line) Contains(questID string) bool {
	for _, id := range l.def.Quests {
		if id == questID {
			return true
		}
	}
	return false
}

// Activate evaluates the prerequisite. A line that is not yet Available
// subscribes the prerequisite and unlocks the instant it becomes true.
func (l *Line) Activate() {
	if l.state != types.LineLocked {
		return
	}
	if l.prereq == nil || l.prereq.Evaluate() {
		l.unlock()
		return
	}
	l.prereq.Subscribe(func() {
		if l.state == types.LineLocked {
			l.unlock()
		}
	})
}

func (l *Line) unlock() {
	if l.prereq != nil {
		l.prereq.Unsubscribe()
	}
	l.state = types.LineAvailable
	l.log.Info("quest-line available", "line", l.def.ID)
	if l.hooks.OnAvailable != nil {
		l.hooks.OnAvailable(l)
	}
}

// QuestStarted records a contained quest starting.
func (l *Line) QuestStarted(questID string) {
	if !l.Contains(questID) {
		return
	}
	if l.state == types.LineAvailable || l.state == types.LineLocked {
		l.state = types.LineInProgress
		l.log.Debug("quest-line in progress", "line", l.def.ID, "quest", questID)
	}
}

// QuestCompleted records a contained quest completing and recomputes
// aggregate progress. Completing the last quest completes the line.
func (l *Line) QuestCompleted(questID string) {
	if !l.Contains(questID) || l.state == types.LineCompleted || l.state == types.LineFailed {
		return
	}
	l.completed[questID] = true
	l.log.Debug("quest-line progress", "line", l.def.ID,
		"completed", len(l.completed), "total", len(l.def.Quests))
	if len(l.completed) >= len(l.def.Quests) {
		l.complete()
	}
}

// QuestFailed records a contained quest failing. The line keeps its
// state: quests may be retried.
func (l *Line) QuestFailed(questID string) {
	if !l.Contains(questID) {
		return
	}
	l.log.Warn("quest in line failed", "line", l.def.ID, "quest", questID)
}

func (l *Line) complete() {
	if l.prereq != nil {
		l.prereq.Unsubscribe()
	}
	l.state = types.LineCompleted
	l.log.Info("quest-line completed", "line", l.def.ID)
	if l.hooks.OnCompleted != nil {
		l.hooks.OnCompleted(l)
	}
}

// ForceFail drives the line to Failed. Debug surface; nothing in normal
// play fails a line.
func (l *Line) ForceFail() {
	if l.state == types.LineCompleted || l.state == types.LineFailed {
		return
	}
	if l.prereq != nil {
		l.prereq.Unsubscribe()
	}
	l.state = types.LineFailed
	l.log.Warn("quest-line force-failed", "line", l.def.ID)
}

// Progress returns completed-quest-count over quest-count.
func (l *Line) Progress() float64 {
	if len(l.def.Quests) == 0 {
		return 0
	}
	return float64(len(l.completed)) / float64(len(l.def.Quests))
}

// CompletedCount returns the number of completed contained quests.
func (l *Line) CompletedCount() int { return len(l.completed) }

// Snapshot captures the line's lifecycle state. Progress is recomputed
// from quest states on restore.
func (l *Line) Snapshot() types.LineSnapshot {
	return types.LineSnapshot{State: l.state}
}

// Restore applies a snapshot and rebuilds progress from the given quest
// completion lookup, without emitting notifications.
func (l *Line) Restore(snap types.LineSnapshot, questCompleted func(id string) bool) {
	if l.prereq != nil {
		l.prereq.Unsubscribe()
	}
	l.state = snap.State
	l.completed = map[string]bool{}
	for _, id := range l.def.Quests {
		if questCompleted(id) {
			l.completed[id] = true
		}
	}
	if l.state == types.LineLocked {
		// Promote silently when the restored world already satisfies the
		// prerequisite; restore must not emit notifications.
		if l.prereq == nil || l.prereq.Evaluate() {
			l.state = types.LineAvailable
		} else {
			l.prereq.Subscribe(func() {
				if l.state == types.LineLocked {
					l.unlock()
				}
			})
		}
	}
}
