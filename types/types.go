// Package types defines the shared data structures for the QuestWeave engine.
// This package contains only type definitions and their constant sets — no
// behavior beyond string forms.
package types

// PayloadKind identifies the value type carried on an event channel.
type PayloadKind string

const (
	PayloadNone   PayloadKind = "none"
	PayloadBool   PayloadKind = "bool"
	PayloadInt    PayloadKind = "int"
	PayloadString PayloadKind = "string"
	PayloadID     PayloadKind = "id"
)

// Payload is a typed event value. Kind selects which field is meaningful.
// Identifier payloads share the Str field with string payloads; Kind keeps
// them apart.
type Payload struct {
	Kind PayloadKind
	Bool bool
	Int  int
	Str  string
}

// CompareOp is a comparison operator applied to (payload, target).
type CompareOp string

const (
	OpEquals         CompareOp = "eq"
	OpNotEquals      CompareOp = "ne"
	OpGreaterThan    CompareOp = "gt"
	OpGreaterOrEqual CompareOp = "ge"
	OpLessThan       CompareOp = "lt"
	OpLessOrEqual    CompareOp = "le"
)

// Condition kinds. Unknown kinds evaluate to false (fail closed).
const (
	CondEvent      = "event"       // predicate over one event channel's payload
	CondAllOf      = "all_of"      // composite AND over Children
	CondAnyOf      = "any_of"      // composite OR over Children
	CondFlag       = "flag"        // world flag equals FlagValue
	CondQuestDone  = "quest_done"  // referenced quest is Completed
	CondQuestFail  = "quest_fail"  // referenced quest is Failed
	CondLineDone   = "line_done"   // referenced quest-line is Completed
)

// ConditionDef describes a predicate, passive or event-subscribed.
// Children hold sub-conditions by value, so a compiled definition cannot
// contain a cycle; the loader rejects cyclic Lua tables before they get here.
type ConditionDef struct {
	Kind   string
	Invert bool

	// event conditions
	Channel    string
	Op         CompareOp
	Target     Payload
	FromAmount bool // count tasks add the payload amount instead of 1

	// composites
	Children []ConditionDef

	// flag conditions
	Flag      string
	FlagValue bool

	// quest/quest-line state conditions
	Ref string
}

// Task kinds — the six task variants.
const (
	TaskBool      = "bool"
	TaskCount     = "count"
	TaskMatch     = "match"
	TaskLocation  = "location"
	TaskDiscovery = "discovery"
	TaskTimed     = "timed"
)

// TaskDef describes one atomic unit of progress.
type TaskDef struct {
	ID          string
	Name        string
	Description string
	Kind        string

	Conditions     []ConditionDef // completion conditions
	FailConditions []ConditionDef // dedicated failure conditions

	Required          int     // count: target tally; discovery: distinct fulfillments (0 = all)
	Target            string  // match: exact string; location: place identifier
	Limit             float64 // timed: countdown in seconds
	FailQuestOnExpire bool    // timed: expiry also fails the owning quest
}

// Group execution modes.
const (
	ModeSequential = "sequential"
	ModeParallel   = "parallel"
	ModeAnyOrder   = "any_order"
	ModeOptional   = "optional" // X-of-Y; Required selects X
)

// TaskGroupDef is an ordered set of tasks under one execution mode.
type TaskGroupDef struct {
	Name     string
	Mode     string
	Required int // meaningful only for ModeOptional
	Tasks    []TaskDef
}

// TransitionDef is an outgoing edge from a stage. An empty Label marks an
// automatic transition taken on group-completion; a non-empty Label is a
// player choice committed explicitly.
type TransitionDef struct {
	Label  string
	Target string // stage name, resolved to TargetIndex at compile time
	Gate   *ConditionDef

	TargetIndex int

	// committed side effect on traversal
	SetFlag  string
	SetValue bool
}

// StageDef is a named phase of a quest. A stage with zero groups is a pure
// decision point.
type StageDef struct {
	Name        string
	Groups      []TaskGroupDef
	Transitions []TransitionDef
	Terminal    bool
}

// RewardDef is granted once through the reward sink on quest completion.
type RewardDef struct {
	Kind   string
	Amount int
}

// QuestDef is the static definition of a quest.
type QuestDef struct {
	ID          string
	Name        string
	Description string

	Stages          []StageDef
	StartConditions []ConditionDef
	FailConditions  []ConditionDef
	Rewards         []RewardDef
}

// QuestLineDef groups quests under an optional prerequisite.
type QuestLineDef struct {
	ID          string
	Name        string
	Description string

	Quests []string // quest IDs, in order
	Prereq *ConditionDef
}

// ChannelDef declares a named event channel and its payload kind.
type ChannelDef struct {
	Name string
	Kind PayloadKind
}
