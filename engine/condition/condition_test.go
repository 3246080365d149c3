package condition

import (
	"testing"

	"github.com/nathoo/questweave/engine/events"
	"github.com/nathoo/questweave/engine/world"
	"github.com/nathoo/questweave/types"
)

// fakeStates is a StateSource with fixed membership.
type fakeStates struct {
	completed map[string]bool
	failed    map[string]bool
	lines     map[string]bool
}

func (s *fakeStates) QuestCompleted(id string) bool { return s.completed[id] }
func (s *fakeStates) QuestFailed(id string) bool    { return s.failed[id] }
func (s *fakeStates) LineCompleted(id string) bool  { return s.lines[id] }

func newTestEnv() *Env {
	bus := events.NewBus(nil)
	bus.Declare("goblins-escaped", types.PayloadInt)
	bus.Declare("location-entered", types.PayloadID)
	bus.Declare("monster-killed", types.PayloadNone)
	bus.Declare(events.ChanFlagChanged, types.PayloadID)
	bus.Declare(events.ChanQuestStarted, types.PayloadID)
	bus.Declare(events.ChanQuestCompleted, types.PayloadID)
	bus.Declare(events.ChanQuestFailed, types.PayloadID)
	bus.Declare(events.ChanLineAvailable, types.PayloadID)
	bus.Declare(events.ChanLineCompleted, types.PayloadID)
	return &Env{
		Bus:    bus,
		Flags:  world.NewFlags(),
		States: &fakeStates{completed: map[string]bool{}, failed: map[string]bool{}, lines: map[string]bool{}},
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name   string
		p      types.Payload
		op     types.CompareOp
		target types.Payload
		want   bool
	}{
		{"int eq match", events.Int(5), types.OpEquals, events.Int(5), true},
		{"int eq mismatch", events.Int(5), types.OpEquals, events.Int(4), false},
		{"int ne", events.Int(5), types.OpNotEquals, events.Int(4), true},
		{"int gt", events.Int(5), types.OpGreaterThan, events.Int(4), true},
		{"int ge equal", events.Int(5), types.OpGreaterOrEqual, events.Int(5), true},
		{"int lt false", events.Int(5), types.OpLessThan, events.Int(5), false},
		{"int le", events.Int(5), types.OpLessOrEqual, events.Int(5), true},
		{"string eq", events.String("abc"), types.OpEquals, events.String("abc"), true},
		{"string case sensitive", events.String("Abc"), types.OpEquals, events.String("abc"), false},
		{"id eq", events.ID("cave"), types.OpEquals, events.ID("cave"), true},
		{"kind mismatch", events.String("5"), types.OpEquals, events.Int(5), false},
		{"none eq none", events.None(), types.OpEquals, events.None(), true},
		{"ordered on string fails closed", events.String("b"), types.OpGreaterThan, events.String("a"), false},
		{"ordered on bool fails closed", events.Bool(true), types.OpGreaterOrEqual, events.Bool(false), false},
		{"empty op means equals", events.Int(2), "", events.Int(2), true},
		{"unset target matches anything", events.Int(99), types.OpEquals, types.Payload{}, true},
		{"unset target ordered fails closed", events.Int(99), types.OpGreaterThan, types.Payload{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := compare(tt.p, tt.op, tt.target); got != tt.want {
				t.Errorf("compare(%+v, %s, %+v) = %v, want %v", tt.p, tt.op, tt.target, got, tt.want)
			}
		})
	}
}

func TestEventConditionSubscribe(t *testing.T) {
	env := newTestEnv()
	c := New(types.ConditionDef{
		Kind:    types.CondEvent,
		Channel: "goblins-escaped",
		Op:      types.OpGreaterOrEqual,
		Target:  events.Int(3),
	}, env)

	var fired int
	c.Subscribe(func() { fired++ })

	env.Bus.Raise("goblins-escaped", events.Int(2))
	if fired != 0 {
		t.Fatalf("fired = %d before threshold, want 0", fired)
	}
	if c.Evaluate() {
		t.Error("Evaluate() = true below threshold")
	}

	env.Bus.Raise("goblins-escaped", events.Int(3))
	if fired != 1 {
		t.Errorf("fired = %d, want 1", fired)
	}
	if !c.Evaluate() {
		t.Error("Evaluate() = false, payload remembered payload should satisfy")
	}
}

func TestEventConditionUnseenIsFalse(t *testing.T) {
	env := newTestEnv()
	c := New(types.ConditionDef{
		Kind:    types.CondEvent,
		Channel: "monster-killed",
		Target:  events.None(),
	}, env)

	if c.Evaluate() {
		t.Error("Evaluate() = true with no payload seen")
	}
}

func TestInvertAppliesToResult(t *testing.T) {
	env := newTestEnv()
	c := New(types.ConditionDef{
		Kind:    types.CondEvent,
		Invert:  true,
		Channel: "location-entered",
		Target:  events.ID("cave"),
	}, env)
	c.Subscribe(func() {})

	env.Bus.Raise("location-entered", events.ID("town"))
	if !c.Evaluate() {
		t.Error("inverted mismatch should evaluate true")
	}
	env.Bus.Raise("location-entered", events.ID("cave"))
	if c.Evaluate() {
		t.Error("inverted match should evaluate false")
	}
}

func TestUnknownKindFailsClosedEvenInverted(t *testing.T) {
	env := newTestEnv()
	plain := New(types.ConditionDef{Kind: "mystery"}, env)
	inverted := New(types.ConditionDef{Kind: "mystery", Invert: true}, env)

	if plain.Evaluate() {
		t.Error("unknown kind should evaluate false")
	}
	if inverted.Evaluate() {
		t.Error("unknown kind should evaluate false even when inverted")
	}
}

func TestComposites(t *testing.T) {
	env := newTestEnv()
	leafA := types.ConditionDef{Kind: types.CondEvent, Channel: "location-entered", Target: events.ID("cave")}
	leafB := types.ConditionDef{Kind: types.CondFlag, Flag: "torch", FlagValue: true}

	all := New(types.ConditionDef{Kind: types.CondAllOf, Children: []types.ConditionDef{leafA, leafB}}, env)
	any := New(types.ConditionDef{Kind: types.CondAnyOf, Children: []types.ConditionDef{leafA, leafB}}, env)

	var allFired, anyFired int
	all.Subscribe(func() { allFired++ })
	any.Subscribe(func() { anyFired++ })

	env.Bus.Raise("location-entered", events.ID("cave"))
	if allFired != 0 {
		t.Errorf("allOf fired with one of two children met")
	}
	if anyFired != 1 {
		t.Errorf("anyFired = %d, want 1", anyFired)
	}

	env.Flags.SetFlag("torch", true)
	env.Bus.Raise(events.ChanFlagChanged, events.ID("torch"))
	if allFired != 1 {
		t.Errorf("allFired = %d, want 1 after both children hold", allFired)
	}
	if !all.Evaluate() {
		t.Error("allOf Evaluate() = false with both children met")
	}
}

func TestFlagCondition(t *testing.T) {
	env := newTestEnv()
	c := New(types.ConditionDef{Kind: types.CondFlag, Flag: "door-open", FlagValue: true}, env)

	if c.Evaluate() {
		t.Error("unset flag should read false")
	}
	env.Flags.SetFlag("door-open", true)
	if !c.Evaluate() {
		t.Error("Evaluate() = false after flag set")
	}
}

func TestQuestStateConditions(t *testing.T) {
	env := newTestEnv()
	states := env.States.(*fakeStates)

	done := New(types.ConditionDef{Kind: types.CondQuestDone, Ref: "q1"}, env)
	fail := New(types.ConditionDef{Kind: types.CondQuestFail, Ref: "q1"}, env)
	line := New(types.ConditionDef{Kind: types.CondLineDone, Ref: "l1"}, env)

	if done.Evaluate() || fail.Evaluate() || line.Evaluate() {
		t.Fatal("state conditions should be false initially")
	}

	states.completed["q1"] = true
	states.lines["l1"] = true
	if !done.Evaluate() {
		t.Error("quest_done should hold")
	}
	if fail.Evaluate() {
		t.Error("quest_fail should not hold for a completed quest")
	}
	if !line.Evaluate() {
		t.Error("line_done should hold")
	}
}

func TestStateConditionFiresOnNotification(t *testing.T) {
	env := newTestEnv()
	states := env.States.(*fakeStates)
	c := New(types.ConditionDef{Kind: types.CondQuestDone, Ref: "q1"}, env)

	var fired int
	c.Subscribe(func() { fired++ })

	// Notification for an unrelated quest must not fire.
	env.Bus.Raise(events.ChanQuestCompleted, events.ID("other"))
	if fired != 0 {
		t.Fatalf("fired = %d for unrelated quest", fired)
	}

	states.completed["q1"] = true
	env.Bus.Raise(events.ChanQuestCompleted, events.ID("q1"))
	if fired != 1 {
		t.Errorf("fired = %d, want 1", fired)
	}
}

func TestSubscribeIsIdempotent(t *testing.T) {
	env := newTestEnv()
	c := New(types.ConditionDef{
		Kind: types.CondEvent, Channel: "monster-killed", Target: events.None(),
	}, env)

	var fired int
	c.Subscribe(func() { fired++ })
	c.Subscribe(func() { fired += 100 }) // ignored

	env.Bus.Raise("monster-killed", events.None())
	if fired != 1 {
		t.Errorf("fired = %d, want 1 (second Subscribe must be a no-op)", fired)
	}
}

func TestUnsubscribeStopsCallbacks(t *testing.T) {
	env := newTestEnv()
	c := New(types.ConditionDef{
		Kind: types.CondEvent, Channel: "monster-killed", Target: events.None(),
	}, env)

	var fired int
	c.Subscribe(func() { fired++ })
	c.Unsubscribe()
	c.Unsubscribe() // idempotent

	env.Bus.Raise("monster-killed", events.None())
	if fired != 0 {
		t.Errorf("fired = %d after Unsubscribe, want 0", fired)
	}
}

func TestCancelMidDispatchStopsCallback(t *testing.T) {
	env := newTestEnv()
	def := types.ConditionDef{Kind: types.CondEvent, Channel: "monster-killed", Target: events.None()}
	first := New(def, env)
	second := New(def, env)

	// The first listener resolves its owner and tears the sibling down,
	// the way a group stops its remaining tasks. The bus is already
	// walking its listener snapshot, so the cancelled listener still runs.
	var fired int
	first.Subscribe(func() {
		fired++
		second.Unsubscribe()
	})
	second.Subscribe(func() { fired += 100 })

	env.Bus.Raise("monster-killed", events.None())
	if fired != 1 {
		t.Errorf("fired = %d, want 1 (cancelled condition ran its callback)", fired)
	}
	if _, seen := second.LastPayload(); seen {
		t.Error("cancelled condition recorded the in-flight payload")
	}
}

func TestResetClearsRememberedPayload(t *testing.T) {
	env := newTestEnv()
	c := New(types.ConditionDef{
		Kind: types.CondEvent, Channel: "location-entered", Target: events.ID("cave"),
	}, env)
	c.Subscribe(func() {})
	env.Bus.Raise("location-entered", events.ID("cave"))
	c.Unsubscribe()

	if !c.Evaluate() {
		t.Fatal("condition should hold before reset")
	}
	c.Reset()
	if c.Evaluate() {
		t.Error("condition should not hold after Reset")
	}
}

func TestDescribe(t *testing.T) {
	env := newTestEnv()
	tests := []struct {
		name string
		def  types.ConditionDef
		want string
	}{
		{
			"event with target",
			types.ConditionDef{Kind: types.CondEvent, Channel: "goblins-escaped", Op: types.OpGreaterOrEqual, Target: events.Int(3)},
			"goblins-escaped >= 3",
		},
		{
			"bare event",
			types.ConditionDef{Kind: types.CondEvent, Channel: "monster-killed", Target: events.None()},
			"monster-killed",
		},
		{
			"inverted flag",
			types.ConditionDef{Kind: types.CondFlag, Invert: true, Flag: "alarm", FlagValue: true},
			"not flag alarm is true",
		},
		{
			"quest done",
			types.ConditionDef{Kind: types.CondQuestDone, Ref: "intro"},
			"quest intro completed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(tt.def, env).Describe(); got != tt.want {
				t.Errorf("Describe() = %q, want %q", got, tt.want)
			}
		})
	}
}
