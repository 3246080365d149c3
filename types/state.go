package types

// State is the lifecycle state shared by tasks, groups, and quests.
type State string

const (
	NotStarted State = "not_started"
	InProgress State = "in_progress"
	Completed  State = "completed"
	Failed     State = "failed"
)

// Terminal reports whether s is one of the two terminal states.
func (s State) Terminal() bool {
	return s == Completed || s == Failed
}

// LineState is the lifecycle state of a quest-line.
type LineState string

const (
	LineLocked     LineState = "locked"
	LineAvailable  LineState = "available"
	LineInProgress LineState = "in_progress"
	LineCompleted  LineState = "completed"
	LineFailed     LineState = "failed"
)
