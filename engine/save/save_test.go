package save

import (
	"testing"

	"github.com/nathoo/questweave/engine"
	"github.com/nathoo/questweave/engine/events"
	"github.com/nathoo/questweave/engine/reward"
	"github.com/nathoo/questweave/types"
)

func testCatalog() *engine.Catalog {
	cat := engine.NewCatalog()
	cat.AddQuest(types.QuestDef{
		ID: "hunt",
		Stages: []types.StageDef{
			{
				Name: "cull",
				Groups: []types.TaskGroupDef{{
					Name: "g", Mode: types.ModeParallel,
					Tasks: []types.TaskDef{{
						ID: "kills", Kind: types.TaskCount, Required: 3,
						Conditions: []types.ConditionDef{{
							Kind: types.CondEvent, Channel: "monster-killed",
							Op: types.OpEquals, Target: events.None(),
						}},
					}},
				}},
				Transitions: []types.TransitionDef{{Target: "end", TargetIndex: 1}},
			},
			{Name: "end", Terminal: true},
		},
		Rewards: []types.RewardDef{{Kind: "gold", Amount: 50}},
	})
	cat.AddLine(types.QuestLineDef{ID: "arc", Quests: []string{"hunt"}})
	return cat
}

func newManager(sink reward.Sink) *engine.Manager {
	return engine.New(testCatalog(), engine.Policy{RequireCatalog: true}, engine.Options{Rewards: sink})
}

func TestRoundTripMidQuest(t *testing.T) {
	m := newManager(nil)
	m.AddQuestByID("hunt", true)
	m.Raise("monster-killed", events.None())
	m.Raise("monster-killed", events.None())
	m.SetFlag("alerted", true)
	m.Tick(7.5)

	data, err := Save(m)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	snap, err := Load(data)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	m2 := newManager(nil)
	Apply(m2, snap)

	if m2.Clock() != 7.5 {
		t.Errorf("Clock = %v, want 7.5", m2.Clock())
	}
	if !m2.Flags().Flag("alerted") {
		t.Error("flag lost across round trip")
	}
	q := m2.Quest("hunt")
	if q == nil || q.State() != types.InProgress {
		t.Fatal("restored quest missing or not in progress")
	}
	if cur, _ := q.FindTask("kills").Progress(); cur != 2 {
		t.Errorf("restored progress = %d, want 2", cur)
	}

	// The restored manager keeps running from where it stood.
	m2.Raise("monster-killed", events.None())
	if !m2.QuestCompleted("hunt") {
		t.Error("restored quest did not complete on the remaining event")
	}
}

func TestRestoreDoesNotRegrantRewards(t *testing.T) {
	sink := &reward.MemorySink{}
	m := newManager(sink)
	m.AddQuestByID("hunt", true)
	for i := 0; i < 3; i++ {
		m.Raise("monster-killed", events.None())
	}
	if len(sink.Grants) != 1 {
		t.Fatalf("Grants = %d before save, want 1", len(sink.Grants))
	}

	data, _ := Save(m)
	snap, _ := Load(data)

	sink2 := &reward.MemorySink{}
	m2 := newManager(sink2)
	Apply(m2, snap)

	if len(sink2.Grants) != 0 {
		t.Errorf("Grants = %d after restore, want 0", len(sink2.Grants))
	}
	if !m2.QuestCompleted("hunt") {
		t.Error("completed quest not restored into the completed bucket")
	}
	if m2.Line("arc").State() != types.LineCompleted {
		t.Errorf("line State = %s, want completed", m2.Line("arc").State())
	}
}

func TestLoadRepairsNilMaps(t *testing.T) {
	snap, err := Load([]byte(`{"version":"1","clock":0}`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.Quests == nil || snap.Lines == nil || snap.Flags == nil {
		t.Error("Load left a nil map")
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	if _, err := Load([]byte(`{"version":`)); err == nil {
		t.Error("Load accepted malformed JSON")
	}
}

func TestSnapshotSkipsUnknownQuest(t *testing.T) {
	m := newManager(nil)
	m.AddQuestByID("hunt", true)
	data, _ := Save(m)
	snap, _ := Load(data)
	snap.Quests["ghost"] = types.QuestSnapshot{State: types.InProgress}

	m2 := newManager(nil)
	Apply(m2, snap) // must not panic
	if m2.Quest("ghost") != nil {
		t.Error("quest outside the catalog was restored")
	}
}
