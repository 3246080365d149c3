package events

// Internal notification channels raised by the manager. All carry ID
// payloads naming the quest, quest-line, or flag concerned. Gating
// conditions subscribe to these to re-evaluate cross-entity prerequisites.
const (
	ChanQuestStarted   = "quest.started"
	ChanQuestCompleted = "quest.completed"
	ChanQuestFailed    = "quest.failed"
	ChanLineAvailable  = "line.available"
	ChanLineCompleted  = "line.completed"
	ChanLineQuestFail  = "line.quest-failed" // surfaced for external policy; does not fail the line
	ChanGroupFailed    = "quest.group-failed" // a required group failed; the quest is stuck, not failed
	ChanFlagChanged    = "flag.changed"
)

// DeclareInternal registers the manager's notification channels on a bus.
func DeclareInternal(b *Bus) {
	for _, name := range []string{
		ChanQuestStarted, ChanQuestCompleted, ChanQuestFailed,
		ChanLineAvailable, ChanLineCompleted, ChanLineQuestFail,
		ChanGroupFailed, ChanFlagChanged,
	} {
		b.Declare(name, "id")
	}
}
