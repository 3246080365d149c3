package engine

import (
	"testing"

	"github.com/nathoo/questweave/engine/events"
	"github.com/nathoo/questweave/engine/reward"
	"github.com/nathoo/questweave/types"
)

func simpleQuest(id string) types.QuestDef {
	return types.QuestDef{
		ID: id,
		Stages: []types.StageDef{
			{
				Name: "go",
				Groups: []types.TaskGroupDef{{
					Name: "g", Mode: types.ModeParallel,
					Tasks: []types.TaskDef{{
						ID: id + "-task", Kind: types.TaskBool,
						Conditions: []types.ConditionDef{{
							Kind: types.CondEvent, Channel: "location-entered",
							Op: types.OpEquals, Target: events.ID(id + "-spot"),
						}},
					}},
				}},
				Transitions: []types.TransitionDef{{Target: "end", TargetIndex: 1}},
			},
			{Name: "end", Terminal: true},
		},
	}
}

func newCatalog(quests ...types.QuestDef) *Catalog {
	cat := NewCatalog()
	for _, q := range quests {
		cat.AddQuest(q)
	}
	return cat
}

func TestAdmissionRequireCatalog(t *testing.T) {
	m := New(newCatalog(simpleQuest("known")), Policy{RequireCatalog: true}, Options{})

	if m.AddQuest(simpleQuest("stranger"), false) {
		t.Error("quest outside the catalog admitted under RequireCatalog")
	}
	if !m.AddQuestByID("known", false) {
		t.Error("catalog quest rejected")
	}

	open := New(newCatalog(), Policy{}, Options{})
	if !open.AddQuest(simpleQuest("stranger"), false) {
		t.Error("ad-hoc quest rejected without RequireCatalog")
	}
}

func TestAdmissionAlreadyActive(t *testing.T) {
	m := New(newCatalog(simpleQuest("q")), Policy{}, Options{})
	if !m.AddQuestByID("q", true) {
		t.Fatal("first add rejected")
	}
	if m.AddQuestByID("q", true) {
		t.Error("duplicate add of an active quest admitted")
	}
}

func TestAdmissionCompletedAndReplay(t *testing.T) {
	m := New(newCatalog(simpleQuest("q")), Policy{}, Options{})
	m.AddQuestByID("q", true)
	m.Raise("location-entered", events.ID("q-spot"))
	if !m.QuestCompleted("q") {
		t.Fatal("quest did not complete")
	}

	if m.AddQuestByID("q", true) {
		t.Error("completed quest re-admitted without AllowReplay")
	}

	replay := New(newCatalog(simpleQuest("q")), Policy{AllowReplay: true}, Options{})
	replay.AddQuestByID("q", true)
	replay.Raise("location-entered", events.ID("q-spot"))
	if !replay.AddQuestByID("q", true) {
		t.Error("completed quest rejected under AllowReplay")
	}
	if replay.QuestCompleted("q") {
		t.Error("re-admitted quest still in the completed bucket")
	}
}

func TestAdmissionMaxActive(t *testing.T) {
	m := New(newCatalog(simpleQuest("a"), simpleQuest("b")), Policy{MaxActive: 1}, Options{})
	if !m.AddQuestByID("a", true) {
		t.Fatal("first add rejected")
	}
	if m.AddQuestByID("b", true) {
		t.Error("second quest admitted over MaxActive 1")
	}

	// Finishing the first frees a slot.
	m.Raise("location-entered", events.ID("a-spot"))
	if !m.AddQuestByID("b", true) {
		t.Error("quest rejected with a free slot")
	}
}

func TestRejectedReplayKeepsCompletionRecord(t *testing.T) {
	m := New(newCatalog(simpleQuest("alpha"), simpleQuest("beta")),
		Policy{MaxActive: 1, AllowReplay: true}, Options{})
	m.AddQuestByID("alpha", true)
	m.Raise("location-entered", events.ID("alpha-spot"))
	m.AddQuestByID("beta", true)

	// The replay is rejected at the concurrency limit; the rejection must
	// leave alpha's completion record in place.
	if m.AddQuestByID("alpha", false) {
		t.Fatal("replay admitted over MaxActive 1")
	}
	if !m.QuestCompleted("alpha") {
		t.Error("rejected replay erased the completion record")
	}
	if m.Quest("alpha") == nil {
		t.Error("rejected replay removed the quest from every bucket")
	}
}

func TestFailedQuestIsRetryable(t *testing.T) {
	def := simpleQuest("q")
	def.FailConditions = []types.ConditionDef{{
		Kind: types.CondEvent, Channel: "player-death", Op: types.OpEquals, Target: events.Bool(true),
	}}
	m := New(newCatalog(def), Policy{}, Options{})
	m.AddQuestByID("q", true)
	m.Raise("player-death", events.Bool(true))
	if !m.QuestFailed("q") {
		t.Fatal("quest did not fail")
	}

	if !m.AddQuestByID("q", true) {
		t.Error("failed quest not retryable via AddQuest")
	}
	if m.QuestFailed("q") {
		t.Error("retried quest still in the failed bucket")
	}
}

func TestRestartQuest(t *testing.T) {
	m := New(newCatalog(simpleQuest("q")), Policy{AllowReplay: true}, Options{Rewards: &reward.MemorySink{}})
	m.AddQuestByID("q", true)
	m.Raise("location-entered", events.ID("q-spot"))

	if !m.RestartQuest("q") {
		t.Fatal("RestartQuest failed on a completed quest")
	}
	q := m.Quest("q")
	if q == nil || q.State() != types.InProgress {
		t.Fatalf("restarted quest missing or not in progress")
	}
	if a, c, _ := m.Counts(); a != 1 || c != 0 {
		t.Errorf("Counts = %d active %d completed, want 1/0", a, c)
	}

	if m.RestartQuest("ghost") {
		t.Error("RestartQuest succeeded for an unregistered id")
	}
}

func TestRestartClearsRewardsOnlyUnderReplay(t *testing.T) {
	def := simpleQuest("q")
	def.Rewards = []types.RewardDef{{Kind: "gold", Amount: 10}}

	for _, tt := range []struct {
		name   string
		replay bool
		want   int
	}{
		{"replay grants again", true, 2},
		{"no replay grants once", false, 1},
	} {
		t.Run(tt.name, func(t *testing.T) {
			sink := &reward.MemorySink{}
			m := New(newCatalog(def), Policy{AllowReplay: tt.replay}, Options{Rewards: sink})
			m.AddQuestByID("q", true)
			m.Raise("location-entered", events.ID("q-spot"))
			m.RestartQuest("q")
			m.Raise("location-entered", events.ID("q-spot"))
			if len(sink.Grants) != tt.want {
				t.Errorf("Grants = %d, want %d", len(sink.Grants), tt.want)
			}
		})
	}
}

func TestAutoActivateArmsStartConditions(t *testing.T) {
	def := simpleQuest("q")
	def.StartConditions = []types.ConditionDef{{
		Kind: types.CondEvent, Channel: "npc-dialogue-complete",
		Op: types.OpEquals, Target: events.ID("elder"),
	}}
	m := New(newCatalog(def), Policy{AutoActivate: true}, Options{})

	q := m.Quest("q")
	if q == nil {
		t.Fatal("AutoActivate did not register the quest")
	}
	if q.State() != types.NotStarted {
		t.Fatalf("State = %s before start condition, want not_started", q.State())
	}

	m.Raise("npc-dialogue-complete", events.ID("elder"))
	if q.State() != types.InProgress {
		t.Errorf("State = %s after start condition held, want in_progress", q.State())
	}
}

func TestQuestNotificationsOnInternalChannels(t *testing.T) {
	m := New(newCatalog(simpleQuest("q")), Policy{}, Options{})

	var started, completed []string
	m.Bus().Lookup(events.ChanQuestStarted).Subscribe(func(p types.Payload) {
		started = append(started, p.Str)
	})
	m.Bus().Lookup(events.ChanQuestCompleted).Subscribe(func(p types.Payload) {
		completed = append(completed, p.Str)
	})

	m.AddQuestByID("q", true)
	m.Raise("location-entered", events.ID("q-spot"))

	if len(started) != 1 || started[0] != "q" {
		t.Errorf("started notifications = %v, want [q]", started)
	}
	if len(completed) != 1 || completed[0] != "q" {
		t.Errorf("completed notifications = %v, want [q]", completed)
	}
}

func TestLineTracksQuests(t *testing.T) {
	cat := newCatalog(simpleQuest("a"), simpleQuest("b"))
	cat.AddLine(types.QuestLineDef{ID: "arc", Quests: []string{"a", "b"}})
	m := New(cat, Policy{}, Options{})

	var lineDone []string
	m.Bus().Lookup(events.ChanLineCompleted).Subscribe(func(p types.Payload) {
		lineDone = append(lineDone, p.Str)
	})

	l := m.Line("arc")
	if l == nil || l.State() != types.LineAvailable {
		t.Fatalf("line missing or not available")
	}

	m.AddQuestByID("a", true)
	if l.State() != types.LineInProgress {
		t.Errorf("line State = %s after quest start, want in_progress", l.State())
	}

	m.Raise("location-entered", events.ID("a-spot"))
	m.AddQuestByID("b", true)
	m.Raise("location-entered", events.ID("b-spot"))

	if !m.LineCompleted("arc") {
		t.Error("line not in the completed bucket")
	}
	if len(lineDone) != 1 || lineDone[0] != "arc" {
		t.Errorf("line notifications = %v, want [arc]", lineDone)
	}
}

func TestLineQuestFailNotification(t *testing.T) {
	def := simpleQuest("a")
	def.FailConditions = []types.ConditionDef{{
		Kind: types.CondEvent, Channel: "player-death", Op: types.OpEquals, Target: events.Bool(true),
	}}
	cat := newCatalog(def)
	cat.AddLine(types.QuestLineDef{ID: "arc", Quests: []string{"a"}})
	m := New(cat, Policy{}, Options{})

	var notified []string
	m.Bus().Lookup(events.ChanLineQuestFail).Subscribe(func(p types.Payload) {
		notified = append(notified, p.Str)
	})

	m.AddQuestByID("a", true)
	m.Raise("player-death", events.Bool(true))

	if len(notified) != 1 || notified[0] != "arc" {
		t.Errorf("line-quest-fail notifications = %v, want [arc]", notified)
	}
	if m.Line("arc").State() == types.LineFailed {
		t.Error("line failed off a contained quest failure")
	}
}

func TestPrereqLineUnlocksOnQuestCompletion(t *testing.T) {
	cat := newCatalog(simpleQuest("intro"), simpleQuest("sequel"))
	cat.AddLine(types.QuestLineDef{
		ID: "act-two", Quests: []string{"sequel"},
		Prereq: &types.ConditionDef{Kind: types.CondQuestDone, Ref: "intro"},
	})
	m := New(cat, Policy{}, Options{})

	var available []string
	m.Bus().Lookup(events.ChanLineAvailable).Subscribe(func(p types.Payload) {
		available = append(available, p.Str)
	})

	if m.Line("act-two").State() != types.LineLocked {
		t.Fatalf("line State = %s before prereq, want locked", m.Line("act-two").State())
	}

	m.AddQuestByID("intro", true)
	m.Raise("location-entered", events.ID("intro-spot"))

	if m.Line("act-two").State() != types.LineAvailable {
		t.Errorf("line State = %s after prereq quest completed, want available", m.Line("act-two").State())
	}
	if len(available) != 1 || available[0] != "act-two" {
		t.Errorf("available notifications = %v, want [act-two]", available)
	}
}

func TestGroupFailureLeavesQuestStuckAndNotifies(t *testing.T) {
	def := types.QuestDef{
		ID: "ambush",
		Stages: []types.StageDef{
			{
				Name: "go",
				Groups: []types.TaskGroupDef{{
					Name: "g", Mode: types.ModeParallel,
					Tasks: []types.TaskDef{{
						ID: "rush", Kind: types.TaskTimed, Limit: 5,
						Conditions: []types.ConditionDef{{
							Kind: types.CondEvent, Channel: "location-entered",
							Op: types.OpEquals, Target: events.ID("safe"),
						}},
					}},
				}},
				Transitions: []types.TransitionDef{{Target: "end", TargetIndex: 1}},
			},
			{Name: "end", Terminal: true},
		},
	}
	m := New(newCatalog(def), Policy{}, Options{})

	var stuck []string
	m.Bus().Lookup(events.ChanGroupFailed).Subscribe(func(p types.Payload) {
		stuck = append(stuck, p.Str)
	})

	m.AddQuestByID("ambush", true)
	m.Tick(6) // the timer has no FailQuestOnExpire, so only the group fails

	if len(stuck) != 1 || stuck[0] != "ambush" {
		t.Errorf("group-failed notifications = %v, want [ambush]", stuck)
	}
	if q := m.Quest("ambush"); q.State() != types.InProgress {
		t.Errorf("State = %s after group failure, want in_progress (stuck)", q.State())
	}
}

func TestTickDrivesTimedTasks(t *testing.T) {
	def := types.QuestDef{
		ID: "rush",
		Stages: []types.StageDef{
			{
				Name: "go",
				Groups: []types.TaskGroupDef{{
					Name: "g", Mode: types.ModeParallel,
					Tasks: []types.TaskDef{{
						ID: "bomb", Kind: types.TaskTimed, Limit: 5, FailQuestOnExpire: true,
						Conditions: []types.ConditionDef{{
							Kind: types.CondEvent, Channel: "location-entered",
							Op: types.OpEquals, Target: events.ID("safe"),
						}},
					}},
				}},
				Transitions: []types.TransitionDef{{Target: "end", TargetIndex: 1}},
			},
			{Name: "end", Terminal: true},
		},
	}
	m := New(newCatalog(def), Policy{}, Options{})
	m.AddQuestByID("rush", true)

	var stuck []string
	m.Bus().Lookup(events.ChanGroupFailed).Subscribe(func(p types.Payload) {
		stuck = append(stuck, p.Str)
	})

	m.Tick(3)
	if m.Clock() != 3 {
		t.Errorf("Clock = %v, want 3", m.Clock())
	}
	if m.QuestFailed("rush") {
		t.Fatal("quest failed before the limit")
	}
	m.Tick(3)
	if !m.QuestFailed("rush") {
		t.Error("quest did not fail on timer expiry")
	}
	// The quest failed outright; it is not additionally reported as stuck.
	if len(stuck) != 0 {
		t.Errorf("group-failed notifications = %v, want none for FailQuestOnExpire", stuck)
	}
}

// End-to-end: a three-stage investigation driven purely by gameplay
// events, completing with rewards granted exactly once.
func TestFullQuestRun(t *testing.T) {
	def := types.QuestDef{
		ID:   "missing-shipment",
		Name: "The Missing Shipment",
		StartConditions: []types.ConditionDef{{
			Kind: types.CondEvent, Channel: "npc-dialogue-complete",
			Op: types.OpEquals, Target: events.ID("merchant"),
		}},
		Stages: []types.StageDef{
			{
				Name: "investigate",
				Groups: []types.TaskGroupDef{{
					Name: "clues", Mode: types.ModeAnyOrder,
					Tasks: []types.TaskDef{{
						ID: "find-crates", Kind: types.TaskDiscovery, Required: 0,
						Conditions: []types.ConditionDef{
							{Kind: types.CondEvent, Channel: "item-discovered", Op: types.OpEquals, Target: events.ID("crate-a")},
							{Kind: types.CondEvent, Channel: "item-discovered", Op: types.OpEquals, Target: events.ID("crate-b")},
						},
					}},
				}},
				Transitions: []types.TransitionDef{{Target: "confront", TargetIndex: 1}},
			},
			{
				Name: "confront",
				Groups: []types.TaskGroupDef{{
					Name: "hideout", Mode: types.ModeSequential,
					Tasks: []types.TaskDef{{
						ID: "reach-hideout", Kind: types.TaskBool,
						Conditions: []types.ConditionDef{{
							Kind: types.CondEvent, Channel: "location-entered",
							Op: types.OpEquals, Target: events.ID("hideout"),
						}},
					}},
				}},
				Transitions: []types.TransitionDef{{Target: "done", TargetIndex: 2}},
			},
			{Name: "done", Terminal: true},
		},
		Rewards: []types.RewardDef{{Kind: "gold", Amount: 250}, {Kind: "xp", Amount: 50}},
	}

	sink := &reward.MemorySink{}
	m := New(newCatalog(def), Policy{RequireCatalog: true, AutoActivate: true}, Options{Rewards: sink})

	q := m.Quest("missing-shipment")
	if q.State() != types.NotStarted {
		t.Fatalf("State = %s before talking to the merchant, want not_started", q.State())
	}

	m.Raise("npc-dialogue-complete", events.ID("merchant"))
	if q.State() != types.InProgress {
		t.Fatalf("State = %s after merchant dialogue, want in_progress", q.State())
	}

	m.Raise("item-discovered", events.ID("crate-a"))
	m.Raise("item-discovered", events.ID("crate-a")) // duplicate
	if q.StageIndex() != 0 {
		t.Fatalf("advanced on a duplicate discovery")
	}
	m.Raise("item-discovered", events.ID("crate-b"))
	if q.StageIndex() != 1 {
		t.Fatalf("StageIndex = %d after both crates found, want 1", q.StageIndex())
	}

	m.Raise("location-entered", events.ID("hideout"))
	if q.State() != types.Completed {
		t.Fatalf("State = %s, want completed", q.State())
	}
	if a, c, f := m.Counts(); a != 0 || c != 1 || f != 0 {
		t.Errorf("Counts = %d/%d/%d, want 0/1/0", a, c, f)
	}

	wantGrants := []reward.Grant{{Kind: "gold", Amount: 250}, {Kind: "xp", Amount: 50}}
	if len(sink.Grants) != len(wantGrants) {
		t.Fatalf("Grants = %+v, want %+v", sink.Grants, wantGrants)
	}
	for i, w := range wantGrants {
		if sink.Grants[i] != w {
			t.Errorf("Grants[%d] = %+v, want %+v", i, sink.Grants[i], w)
		}
	}

	// Late events on a finished quest grant nothing more.
	m.Raise("location-entered", events.ID("hideout"))
	if len(sink.Grants) != len(wantGrants) {
		t.Error("rewards granted more than once")
	}
}
