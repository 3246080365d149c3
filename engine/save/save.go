// Package save implements JSON serialization and deserialization of the
// engine's runtime snapshot.
package save

import (
	"encoding/json"

	"github.com/nathoo/questweave/engine"
	"github.com/nathoo/questweave/types"
)

// Save serializes the manager's runtime state to JSON bytes.
func Save(m *engine.Manager) ([]byte, error) {
	return json.MarshalIndent(m.Snapshot(), "", "  ")
}

// Load deserializes JSON bytes into a snapshot. Maps are never nil after
// a successful load.
func Load(data []byte) (*types.Snapshot, error) {
	var snap types.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	if snap.Quests == nil {
		snap.Quests = map[string]types.QuestSnapshot{}
	}
	if snap.Lines == nil {
		snap.Lines = map[string]types.LineSnapshot{}
	}
	if snap.Flags == nil {
		snap.Flags = map[string]bool{}
	}
	for id, qs := range snap.Quests {
		if qs.Tasks == nil {
			qs.Tasks = map[string]types.TaskSnapshot{}
			snap.Quests[id] = qs
		}
	}
	return &snap, nil
}

// Apply restores a loaded snapshot onto the manager. Side effects are
// not re-run: rewards stay granted, notifications stay silent.
func Apply(m *engine.Manager, snap *types.Snapshot) {
	m.Restore(snap)
}
