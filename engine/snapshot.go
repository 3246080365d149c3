package engine

import (
	"github.com/nathoo/questweave/engine/quest"
	"github.com/nathoo/questweave/engine/questline"
	"github.com/nathoo/questweave/engine/world"
	"github.com/nathoo/questweave/types"
)

// SnapshotVersion tags the serialized format.
const SnapshotVersion = "1"

// Snapshot captures the full runtime state: every registered quest's
// position, every quest-line's state, the game clock, and the world
// flags when the in-memory store is in use.
func (m *Manager) Snapshot() *types.Snapshot {
	snap := &types.Snapshot{
		Version: SnapshotVersion,
		Clock:   m.clock,
		Quests:  map[string]types.QuestSnapshot{},
		Lines:   map[string]types.LineSnapshot{},
		Flags:   map[string]bool{},
	}
	for id, q := range m.active {
		snap.Quests[id] = q.Snapshot()
	}
	for id, q := range m.completed {
		snap.Quests[id] = q.Snapshot()
	}
	for id, q := range m.failed {
		snap.Quests[id] = q.Snapshot()
	}
	for id, l := range m.lines {
		snap.Lines[id] = l.Snapshot()
	}
	for id, l := range m.completedLines {
		snap.Lines[id] = l.Snapshot()
	}
	for id, l := range m.failedLines {
		snap.Lines[id] = l.Snapshot()
	}
	if f, ok := m.flags.(*world.Flags); ok {
		snap.Flags = f.Map()
	}
	return snap
}

// Restore rebuilds runtime state from a snapshot without re-running side
// effects: no rewards are granted and no notifications are raised.
// Quests in the snapshot but missing from the catalog are skipped with a
// log entry (configuration-error policy: skip, never crash).
func (m *Manager) Restore(snap *types.Snapshot) {
	// Tear down current runtime subscriptions before rebuilding.
	for _, q := range m.active {
		q.Reset(false)
	}
	m.active = map[string]*quest.Quest{}
	m.completed = map[string]*quest.Quest{}
	m.failed = map[string]*quest.Quest{}

	m.clock = snap.Clock

	if f, ok := m.flags.(*world.Flags); ok {
		f.Replace(snap.Flags)
	}

	for id, qs := range snap.Quests {
		def, ok := m.catalog.Quests[id]
		if !ok {
			m.log.Warn("restore: quest missing from catalog, skipped", "quest", id)
			continue
		}
		q := m.instantiate(def)
		q.Restore(qs)
		switch qs.State {
		case types.Completed:
			m.completed[id] = q
		case types.Failed:
			m.failed[id] = q
		case types.NotStarted:
			// Was admitted but waiting on start conditions; re-arm.
			m.active[id] = q
			q.Arm()
		default:
			m.active[id] = q
		}
	}

	// Rebuild line buckets and progress from restored quest states.
	all := map[string]*questline.Line{}
	for id, l := range m.lines {
		all[id] = l
	}
	for id, l := range m.completedLines {
		all[id] = l
	}
	for id, l := range m.failedLines {
		all[id] = l
	}
	m.lines = map[string]*questline.Line{}
	m.completedLines = map[string]*questline.Line{}
	m.failedLines = map[string]*questline.Line{}

	for id, l := range all {
		ls, ok := snap.Lines[id]
		if !ok {
			ls = types.LineSnapshot{State: types.LineLocked}
		}
		l.Restore(ls, m.QuestCompleted)
		switch l.State() {
		case types.LineCompleted:
			m.completedLines[id] = l
		case types.LineFailed:
			m.failedLines[id] = l
		default:
			m.lines[id] = l
		}
	}
}
