package types

// Snapshot types mirror the runtime progress that persists across a
// save/load cycle. Restoring a snapshot must not re-run side effects:
// the Rewarded flag exists so a loaded quest never grants twice.

// TaskSnapshot holds one task's variant progress.
type TaskSnapshot struct {
	State      State   `json:"state"`
	Current    int     `json:"current,omitempty"`    // count tally
	Discovered []int   `json:"discovered,omitempty"` // fulfilled discovery condition indexes
	Remaining  float64 `json:"remaining,omitempty"`  // timed countdown
}

// QuestSnapshot holds one quest's runtime position.
type QuestSnapshot struct {
	State    State                   `json:"state"`
	Stage    int                     `json:"stage"`
	Rewarded bool                    `json:"rewarded"`
	Tasks    map[string]TaskSnapshot `json:"tasks"`
}

// LineSnapshot holds one quest-line's lifecycle state.
type LineSnapshot struct {
	State LineState `json:"state"`
}

// Snapshot is the full serializable runtime state.
type Snapshot struct {
	Version string                   `json:"version"`
	Clock   float64                  `json:"clock"`
	Quests  map[string]QuestSnapshot `json:"quests"`
	Lines   map[string]LineSnapshot  `json:"lines"`
	Flags   map[string]bool          `json:"flags"`
}
