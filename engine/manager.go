package engine

import (
	"log/slog"

	"github.com/nathoo/questweave/engine/condition"
	"github.com/nathoo/questweave/engine/events"
	"github.com/nathoo/questweave/engine/quest"
	"github.com/nathoo/questweave/engine/questline"
	"github.com/nathoo/questweave/engine/reward"
	"github.com/nathoo/questweave/engine/world"
	"github.com/nathoo/questweave/types"
)

// Policy holds the manager's global rules for quest admission.
type Policy struct {
	MaxActive      int  // concurrent active quest limit; 0 = unlimited
	AllowReplay    bool // re-adding a completed quest grants rewards again
	RequireCatalog bool // reject definitions outside the loaded catalog
	AutoActivate   bool // arm every catalog quest at construction
}

// Options carries the manager's collaborators. Nil fields get in-memory
// or logging defaults.
type Options struct {
	Bus     *events.Bus
	Flags   world.FlagStore
	Rewards reward.Sink
	Log     *slog.Logger
}

// Manager is the single authoritative holder of the catalog and the
// runtime registry. All bucket mutation happens here; tasks and
// conditions only emit notifications the manager consumes.
type Manager struct {
	catalog *Catalog
	policy  Policy
	bus     *events.Bus
	flags   world.FlagStore
	rewards reward.Sink
	log     *slog.Logger
	env     *condition.Env

	// Runtime buckets. An id lives in exactly one bucket per kind.
	active    map[string]*quest.Quest
	completed map[string]*quest.Quest
	failed    map[string]*quest.Quest

	lines          map[string]*questline.Line // Locked/Available/InProgress
	completedLines map[string]*questline.Line
	failedLines    map[string]*questline.Line

	clock float64
}

// New constructs a manager over a catalog. All catalog quest-lines are
// instantiated and their prerequisites armed immediately; quests are
// instantiated on AddQuest (or here, when policy.AutoActivate is set).
func New(cat *Catalog, pol Policy, opts Options) *Manager {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	bus := opts.Bus
	if bus == nil {
		bus = events.NewBus(log)
	}
	rewards := opts.Rewards
	if rewards == nil {
		rewards = &reward.LogSink{Log: log}
	}

	DeclareStandard(bus)
	events.DeclareInternal(bus)
	for _, ch := range cat.Channels {
		bus.Declare(ch.Name, ch.Kind)
	}

	m := &Manager{
		catalog:        cat,
		policy:         pol,
		bus:            bus,
		rewards:        rewards,
		log:            log,
		active:         map[string]*quest.Quest{},
		completed:      map[string]*quest.Quest{},
		failed:         map[string]*quest.Quest{},
		lines:          map[string]*questline.Line{},
		completedLines: map[string]*questline.Line{},
		failedLines:    map[string]*questline.Line{},
	}

	if opts.Flags != nil {
		m.flags = opts.Flags
	} else {
		flags := world.NewFlags()
		flags.OnChange = func(name string, _ bool) {
			bus.Raise(events.ChanFlagChanged, events.ID(name))
		}
		m.flags = flags
	}

	m.env = &condition.Env{Bus: bus, Flags: m.flags, States: m, Log: log}

	for _, id := range cat.LineOrder {
		def := cat.Lines[id]
		m.lines[id] = questline.New(def, m.env, questline.Hooks{
			OnAvailable: m.lineAvailable,
			OnCompleted: m.lineCompleted,
		})
	}
	for _, id := range cat.LineOrder {
		m.lines[id].Activate()
	}

	if pol.AutoActivate {
		for _, id := range cat.QuestOrder {
			m.AddQuestByID(id, false)
		}
	}

	return m
}

// Bus returns the event bus.
func (m *Manager) Bus() *events.Bus { return m.bus }

// Flags returns the world-flag store.
func (m *Manager) Flags() world.FlagStore { return m.flags }

// Catalog returns the content catalog.
func (m *Manager) Catalog() *Catalog { return m.catalog }

// Clock returns accumulated game time in seconds.
func (m *Manager) Clock() float64 { return m.clock }

// Raise dispatches a gameplay event through the bus.
func (m *Manager) Raise(channel string, p types.Payload) {
	m.bus.Raise(channel, p)
}

// Tick advances the game clock and every active quest's timed tasks.
func (m *Manager) Tick(dt float64) {
	m.clock += dt
	for _, q := range m.activeSnapshot() {
		q.Tick(dt)
	}
}

// SetFlag writes a world flag through the store, which notifies flag
// conditions via the flag-changed channel.
func (m *Manager) SetFlag(name string, value bool) {
	m.flags.SetFlag(name, value)
}

// AddQuest admits a quest definition under the manager's policy. The
// return value reports admission; rejections are logged, never errors.
// With forceStart the quest starts immediately; otherwise it starts when
// its own start conditions hold.
func (m *Manager) AddQuest(def types.QuestDef, forceStart bool) bool {
	id := def.ID
	if m.policy.RequireCatalog {
		if _, ok := m.catalog.Quests[id]; !ok {
			m.log.Warn("quest rejected: not in catalog", "quest", id)
			return false
		}
	}
	if _, ok := m.active[id]; ok {
		m.log.Warn("quest rejected: already active", "quest", id)
		return false
	}
	if _, ok := m.completed[id]; ok && !m.policy.AllowReplay {
		m.log.Warn("quest rejected: already completed and replay disallowed", "quest", id)
		return false
	}
	if m.policy.MaxActive > 0 && len(m.active) >= m.policy.MaxActive {
		m.log.Warn("quest rejected: concurrency limit reached",
			"quest", id, "limit", m.policy.MaxActive)
		return false
	}

	// Admission is certain; only now may the buckets change. A rejection
	// above must leave the registry exactly as it was.
	delete(m.completed, id) // replay of a completed quest
	delete(m.failed, id)    // failed quests may be retried

	q := m.instantiate(def)
	m.active[id] = q

	if forceStart || q.StartConditionsMet() {
		q.Start()
	} else {
		q.Arm()
	}
	return true
}

// AddQuestByID admits a quest from the catalog.
func (m *Manager) AddQuestByID(id string, forceStart bool) bool {
	def, ok := m.catalog.Quests[id]
	if !ok {
		m.log.Warn("quest rejected: unknown id", "quest", id)
		return false
	}
	return m.AddQuest(def, forceStart)
}

func (m *Manager) instantiate(def types.QuestDef) *quest.Quest {
	return quest.New(def, m.env, m.rewards, quest.Hooks{
		OnStart:     m.questStarted,
		OnDone:      m.questDone,
		OnGroupFail: m.questGroupFailed,
	})
}

// RemoveQuest unregisters a quest from whichever bucket holds it,
// cancelling its runtime subscriptions.
func (m *Manager) RemoveQuest(id string) bool {
	if q, ok := m.active[id]; ok {
		q.Reset(false) // tears down subscriptions
		delete(m.active, id)
		m.log.Info("quest removed", "quest", id)
		return true
	}
	if _, ok := m.completed[id]; ok {
		delete(m.completed, id)
		return true
	}
	if _, ok := m.failed[id]; ok {
		delete(m.failed, id)
		return true
	}
	m.log.Warn("remove: quest not registered", "quest", id)
	return false
}

// RestartQuest resets a quest's full sub-tree, moves it back to the
// active bucket, and force-starts it. Rewards are cleared for a re-grant
// only when replay policy allows.
func (m *Manager) RestartQuest(id string) bool {
	q := m.Quest(id)
	if q == nil {
		m.log.Warn("restart: quest not registered", "quest", id)
		return false
	}
	delete(m.completed, id)
	delete(m.failed, id)
	q.Reset(m.policy.AllowReplay)
	m.active[id] = q
	q.Start()
	return true
}

// Quest returns the runtime quest with the given id from any bucket.
func (m *Manager) Quest(id string) *quest.Quest {
	if q, ok := m.active[id]; ok {
		return q
	}
	if q, ok := m.completed[id]; ok {
		return q
	}
	if q, ok := m.failed[id]; ok {
		return q
	}
	return nil
}

// Line returns the runtime quest-line with the given id.
func (m *Manager) Line(id string) *questline.Line {
	if l, ok := m.lines[id]; ok {
		return l
	}
	if l, ok := m.completedLines[id]; ok {
		return l
	}
	return m.failedLines[id]
}

// Counts returns the sizes of the three quest buckets.
func (m *Manager) Counts() (active, completed, failed int) {
	return len(m.active), len(m.completed), len(m.failed)
}

// questStarted routes a quest's start notification to the bus and to
// every line containing it.
func (m *Manager) questStarted(q *quest.Quest) {
	id := q.Def().ID
	m.bus.Raise(events.ChanQuestStarted, events.ID(id))
	for _, l := range m.lineSnapshot() {
		l.QuestStarted(id)
	}
}

// questDone moves a finished quest between buckets and notifies every
// line that contains it. The line list is snapshotted first: a line
// completing inside this walk may cascade into further notifications.
func (m *Manager) questDone(q *quest.Quest) {
	id := q.Def().ID
	delete(m.active, id)

	switch q.State() {
	case types.Completed:
		m.completed[id] = q
		m.bus.Raise(events.ChanQuestCompleted, events.ID(id))
		for _, l := range m.lineSnapshot() {
			l.QuestCompleted(id)
		}
	case types.Failed:
		m.failed[id] = q
		m.bus.Raise(events.ChanQuestFailed, events.ID(id))
		for _, l := range m.lineSnapshot() {
			if l.Contains(id) {
				l.QuestFailed(id)
				m.bus.Raise(events.ChanLineQuestFail, events.ID(l.Def().ID))
			}
		}
	}
}

// questGroupFailed surfaces a stuck quest: a required group failed, so
// the current stage can never group-complete. External policy decides
// whether to restart or fail the quest.
func (m *Manager) questGroupFailed(q *quest.Quest, group string) {
	id := q.Def().ID
	m.log.Warn("quest stuck: required group failed", "quest", id, "group", group)
	m.bus.Raise(events.ChanGroupFailed, events.ID(id))
}

func (m *Manager) lineAvailable(l *questline.Line) {
	m.bus.Raise(events.ChanLineAvailable, events.ID(l.Def().ID))
}

func (m *Manager) lineCompleted(l *questline.Line) {
	id := l.Def().ID
	delete(m.lines, id)
	m.completedLines[id] = l
	m.bus.Raise(events.ChanLineCompleted, events.ID(id))
}

// lineSnapshot copies the live line set so cascading completions may
// mutate the buckets mid-iteration.
func (m *Manager) lineSnapshot() []*questline.Line {
	out := make([]*questline.Line, 0, len(m.lines))
	for _, id := range m.catalog.LineOrder {
		if l, ok := m.lines[id]; ok {
			out = append(out, l)
		}
	}
	return out
}

func (m *Manager) activeSnapshot() []*quest.Quest {
	out := make([]*quest.Quest, 0, len(m.active))
	for _, id := range m.catalog.QuestOrder {
		if q, ok := m.active[id]; ok {
			out = append(out, q)
		}
	}
	// Active quests admitted outside the catalog (policy permitting).
	for id, q := range m.active {
		if _, ok := m.catalog.Quests[id]; !ok {
			out = append(out, q)
		}
	}
	return out
}

// StateSource implementation: gating conditions ask the registry.

// QuestCompleted reports whether the quest sits in the completed bucket.
func (m *Manager) QuestCompleted(id string) bool {
	_, ok := m.completed[id]
	return ok
}

// QuestFailed reports whether the quest sits in the failed bucket.
func (m *Manager) QuestFailed(id string) bool {
	_, ok := m.failed[id]
	return ok
}

// LineCompleted reports whether the quest-line has completed.
func (m *Manager) LineCompleted(id string) bool {
	_, ok := m.completedLines[id]
	return ok
}
