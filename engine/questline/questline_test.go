package questline

import (
	"testing"

	"github.com/nathoo/questweave/engine/condition"
	"github.com/nathoo/questweave/engine/events"
	"github.com/nathoo/questweave/engine/world"
	"github.com/nathoo/questweave/types"
)

type fakeStates struct {
	completed map[string]bool
	lines     map[string]bool
}

func (s *fakeStates) QuestCompleted(id string) bool { return s.completed[id] }
func (s *fakeStates) QuestFailed(string) bool       { return false }
func (s *fakeStates) LineCompleted(id string) bool  { return s.lines[id] }

func newTestEnv() *condition.Env {
	bus := events.NewBus(nil)
	bus.Declare(events.ChanFlagChanged, types.PayloadID)
	bus.Declare(events.ChanQuestCompleted, types.PayloadID)
	bus.Declare(events.ChanLineCompleted, types.PayloadID)
	return &condition.Env{
		Bus:    bus,
		Flags:  world.NewFlags(),
		States: &fakeStates{completed: map[string]bool{}, lines: map[string]bool{}},
	}
}

func lineDef(id string, quests ...string) types.QuestLineDef {
	return types.QuestLineDef{ID: id, Quests: quests}
}

func TestLineWithoutPrereqIsImmediatelyAvailable(t *testing.T) {
	env := newTestEnv()
	var available *Line
	l := New(lineDef("arc", "q1", "q2"), env, Hooks{
		OnAvailable: func(l *Line) { available = l },
	})

	if l.State() != types.LineLocked {
		t.Fatalf("State = %s before Activate, want locked", l.State())
	}
	l.Activate()
	if l.State() != types.LineAvailable {
		t.Errorf("State = %s, want available", l.State())
	}
	if available != l {
		t.Error("OnAvailable hook did not fire")
	}
}

func TestPrereqUnlocksOnLaterEvent(t *testing.T) {
	env := newTestEnv()
	def := lineDef("arc", "q1")
	def.Prereq = &types.ConditionDef{Kind: types.CondFlag, Flag: "act-one-done", FlagValue: true}
	l := New(def, env, Hooks{})

	l.Activate()
	if l.State() != types.LineLocked {
		t.Fatalf("State = %s with prereq unmet, want locked", l.State())
	}

	env.Flags.SetFlag("act-one-done", true)
	env.Bus.Raise(events.ChanFlagChanged, events.ID("act-one-done"))
	if l.State() != types.LineAvailable {
		t.Errorf("State = %s after prereq held, want available", l.State())
	}
}

func TestLineProgressAndCompletion(t *testing.T) {
	env := newTestEnv()
	var completed *Line
	l := New(lineDef("arc", "q1", "q2"), env, Hooks{
		OnCompleted: func(l *Line) { completed = l },
	})
	l.Activate()

	l.QuestStarted("q1")
	if l.State() != types.LineInProgress {
		t.Fatalf("State = %s after first quest start, want in_progress", l.State())
	}

	l.QuestCompleted("q1")
	if got := l.Progress(); got != 0.5 {
		t.Errorf("Progress = %v, want 0.5", got)
	}
	if completed != nil {
		t.Fatal("OnCompleted fired early")
	}

	l.QuestCompleted("q2")
	if l.State() != types.LineCompleted {
		t.Errorf("State = %s, want completed", l.State())
	}
	if completed != l {
		t.Error("OnCompleted did not fire")
	}
}

func TestQuestOutsideLineIsIgnored(t *testing.T) {
	env := newTestEnv()
	l := New(lineDef("arc", "q1"), env, Hooks{})
	l.Activate()

	l.QuestStarted("stranger")
	if l.State() != types.LineAvailable {
		t.Errorf("State = %s after unrelated quest start, want available", l.State())
	}
	l.QuestCompleted("stranger")
	if l.CompletedCount() != 0 {
		t.Errorf("CompletedCount = %d, want 0", l.CompletedCount())
	}
}

func TestContainedQuestFailureDoesNotFailLine(t *testing.T) {
	env := newTestEnv()
	l := New(lineDef("arc", "q1", "q2"), env, Hooks{})
	l.Activate()
	l.QuestStarted("q1")
	l.QuestFailed("q1")

	if l.State() != types.LineInProgress {
		t.Errorf("State = %s after contained failure, want in_progress (retryable)", l.State())
	}

	// A retried run still completes the line.
	l.QuestCompleted("q1")
	l.QuestCompleted("q2")
	if l.State() != types.LineCompleted {
		t.Errorf("State = %s, want completed", l.State())
	}
}

func TestDuplicateCompletionCountsOnce(t *testing.T) {
	env := newTestEnv()
	l := New(lineDef("arc", "q1", "q2"), env, Hooks{})
	l.Activate()

	l.QuestCompleted("q1")
	l.QuestCompleted("q1")
	if l.CompletedCount() != 1 {
		t.Errorf("CompletedCount = %d after duplicate, want 1", l.CompletedCount())
	}
	if l.State() == types.LineCompleted {
		t.Error("line completed off duplicate completions")
	}
}

func TestForceFail(t *testing.T) {
	env := newTestEnv()
	l := New(lineDef("arc", "q1"), env, Hooks{})
	l.Activate()
	l.ForceFail()
	if l.State() != types.LineFailed {
		t.Fatalf("State = %s, want failed", l.State())
	}

	// Terminal; completion no longer moves it.
	l.QuestCompleted("q1")
	if l.State() != types.LineFailed {
		t.Errorf("State = %s after completion on failed line, want failed", l.State())
	}
}

func TestRestoreRebuildsProgressSilently(t *testing.T) {
	env := newTestEnv()
	var notified bool
	l := New(lineDef("arc", "q1", "q2"), env, Hooks{
		OnAvailable: func(*Line) { notified = true },
		OnCompleted: func(*Line) { notified = true },
	})

	done := map[string]bool{"q1": true}
	l.Restore(types.LineSnapshot{State: types.LineInProgress}, func(id string) bool { return done[id] })

	if notified {
		t.Error("restore emitted a notification")
	}
	if l.State() != types.LineInProgress {
		t.Errorf("State = %s, want in_progress", l.State())
	}
	if l.CompletedCount() != 1 {
		t.Errorf("CompletedCount = %d, want 1", l.CompletedCount())
	}
}

func TestRestoreLockedPromotesWhenPrereqHolds(t *testing.T) {
	env := newTestEnv()
	env.Flags.SetFlag("act-one-done", true)
	def := lineDef("arc", "q1")
	def.Prereq = &types.ConditionDef{Kind: types.CondFlag, Flag: "act-one-done", FlagValue: true}
	var notified bool
	l := New(def, env, Hooks{OnAvailable: func(*Line) { notified = true }})

	l.Restore(types.LineSnapshot{State: types.LineLocked}, func(string) bool { return false })
	if l.State() != types.LineAvailable {
		t.Errorf("State = %s, want available (silent promotion)", l.State())
	}
	if notified {
		t.Error("silent promotion must not notify")
	}
}
