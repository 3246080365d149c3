package quest

import (
	"log/slog"

	"github.com/nathoo/questweave/engine/condition"
	"github.com/nathoo/questweave/engine/reward"
	"github.com/nathoo/questweave/engine/task"
	"github.com/nathoo/questweave/types"
)

// Hooks are the upward notifications a quest emits. The manager consumes
// them to maintain its registry buckets and to notify quest-lines.
type Hooks struct {
	OnStart     func(*Quest)
	OnDone      func(*Quest)               // Completed or Failed; read State()
	OnGroupFail func(q *Quest, group string) // a required group failed; the quest is stuck
}

// Quest owns an ordered set of stages, quest-level start and failure
// conditions, and a reward list. Exactly one stage is current while the
// quest is InProgress, and the stage pointer only moves forward along a
// declared transition (ForceAdvance excepted).
type Quest struct {
	def types.QuestDef
	env *condition.Env
	log *slog.Logger

	stages     []*Stage
	startConds []*condition.Condition
	failConds  []*condition.Condition

	state    types.State
	current  int // stage index, -1 before start
	rewarded bool
	armed    bool
	visited  map[int]bool // advance-loop guard for decision-point chains

	rewards reward.Sink
	hooks   Hooks
}

// New builds a quest's runtime tree from its definition.
func New(def types.QuestDef, env *condition.Env, rewards reward.Sink, hooks Hooks) *Quest {
	q := &Quest{
		def:        def,
		env:        env,
		log:        envLogger(env),
		startConds: condition.NewAll(def.StartConditions, env),
		failConds:  condition.NewAll(def.FailConditions, env),
		state:      types.NotStarted,
		current:    -1,
		visited:    map[int]bool{},
		rewards:    rewards,
		hooks:      hooks,
	}
	for i, sd := range def.Stages {
		st := newStage(sd, i, env)
		st.onComplete = q.stageComplete
		st.onGroupFail = q.groupFailed
		q.stages = append(q.stages, st)
	}
	// Timed tasks flagged FailQuestOnExpire get a direct line to quest
	// failure; the group layer in between fails on its own terms.
	q.eachTask(func(t *task.Task) {
		if t.Def().Kind == types.TaskTimed && t.Def().FailQuestOnExpire {
			t.SetFailQuest(q.Fail)
		}
	})
	return q
}

// Def returns the quest definition.
func (q *Quest) Def() types.QuestDef { return q.def }

// State returns the current lifecycle state.
func (q *Quest) State() types.State { return q.state }

// StageIndex returns the current stage index, or -1 before start.
func (q *Quest) StageIndex() int { return q.current }

// Stages returns the quest's stages in order.
func (q *Quest) Stages() []*Stage { return q.stages }

// Rewarded reports whether rewards have been granted.
func (q *Quest) Rewarded() bool { return q.rewarded }

// CurrentStage returns the active stage, or nil.
func (q *Quest) CurrentStage() *Stage {
	if q.current < 0 || q.current >= len(q.stages) {
		return nil
	}
	return q.stages[q.current]
}

// StartConditionsMet reports whether every quest-level start condition
// currently holds. No conditions means immediately startable.
func (q *Quest) StartConditionsMet() bool {
	return condition.EvalAll(q.startConds)
}

// Arm subscribes the quest to its own start conditions for a later
// automatic start. Idempotent; a no-op once started.
func (q *Quest) Arm() {
	if q.armed || q.state != types.NotStarted {
		return
	}
	q.armed = true
	for _, c := range q.startConds {
		c.Subscribe(func() {
			if q.state == types.NotStarted && condition.EvalAll(q.startConds) {
				q.Start()
			}
		})
	}
}

func (q *Quest) disarm() {
	for _, c := range q.startConds {
		c.Unsubscribe()
	}
	q.armed = false
}

// Start moves the quest to InProgress and enters stage zero. The
// quest-level failure conditions are subscribed for the whole run,
// independent of which stage is active. No-op unless NotStarted.
func (q *Quest) Start() {
	if q.state != types.NotStarted {
		return
	}
	if len(q.stages) == 0 {
		q.log.Warn("quest has no stages", "quest", q.def.ID)
		return
	}
	q.disarm()
	q.state = types.InProgress
	q.visited = map[int]bool{}
	for _, c := range q.failConds {
		c.Subscribe(q.Fail)
	}
	q.log.Info("quest started", "quest", q.def.ID)
	if q.hooks.OnStart != nil {
		q.hooks.OnStart(q)
	}
	q.enterStage(0)
}

func (q *Quest) enterStage(i int) {
	if i < 0 || i >= len(q.stages) {
		q.log.Error("transition to out-of-range stage", "quest", q.def.ID, "stage", i)
		return
	}
	if q.visited[i] {
		q.log.Error("stage revisited during advance cascade, stopping",
			"quest", q.def.ID, "stage", q.stages[i].def.Name)
		return
	}
	q.visited[i] = true
	q.current = i
	q.stages[i].Start()
}

// stageComplete handles a stage reaching group-complete: terminal stages
// complete the quest; otherwise the first qualifying automatic transition
// is taken and the rest wait on player choices.
func (q *Quest) stageComplete(s *Stage) {
	if q.state != types.InProgress || s != q.CurrentStage() {
		return
	}
	if s.def.Terminal {
		q.complete()
		return
	}

	var chosen *types.TransitionDef
	auto, choices := 0, 0
	for i := range s.def.Transitions {
		tr := &s.def.Transitions[i]
		if tr.Label != "" {
			choices++
			continue
		}
		auto++
		if !q.gateOpen(tr) {
			continue
		}
		if chosen == nil {
			chosen = tr
		} else {
			q.log.Warn("multiple automatic transitions qualify, first declared wins",
				"quest", q.def.ID, "stage", s.def.Name)
		}
	}

	if chosen != nil {
		q.takeTransition(chosen)
		return
	}
	if choices == 0 {
		if auto > 0 {
			q.log.Warn("stage complete but no automatic transition qualifies",
				"quest", q.def.ID, "stage", s.def.Name)
		} else {
			q.log.Warn("stage complete with no outgoing transitions",
				"quest", q.def.ID, "stage", s.def.Name)
		}
	}
}

// groupFailed surfaces a failed required group upward. The quest stays
// InProgress; quest failure comes only from its own failure conditions,
// FailQuestOnExpire timers, or the debug surface.
func (q *Quest) groupFailed(_ *Stage, g *task.Group) {
	if q.state != types.InProgress {
		return
	}
	if q.hooks.OnGroupFail != nil {
		q.hooks.OnGroupFail(q, g.Def().Name)
	}
}

func (q *Quest) gateOpen(tr *types.TransitionDef) bool {
	if tr.Gate == nil {
		return true
	}
	return condition.New(*tr.Gate, q.env).Evaluate()
}

func (q *Quest) takeTransition(tr *types.TransitionDef) {
	if tr.SetFlag != "" {
		q.env.Flags.SetFlag(tr.SetFlag, tr.SetValue)
	}
	q.enterStage(tr.TargetIndex)
}

// Choice is a player-facing transition out of the current stage.
type Choice struct {
	Label     string
	Target    int
	Available bool
	Gate      string // human-readable gate text, empty when ungated
}

// Choices lists the player-choice transitions of the current stage. The
// list is empty until the stage is group-complete.
func (q *Quest) Choices() []Choice {
	s := q.CurrentStage()
	if q.state != types.InProgress || s == nil || !s.GroupComplete() {
		return nil
	}
	var out []Choice
	for i := range s.def.Transitions {
		tr := &s.def.Transitions[i]
		if tr.Label == "" {
			continue
		}
		c := Choice{Label: tr.Label, Target: tr.TargetIndex, Available: q.gateOpen(tr)}
		if tr.Gate != nil {
			c.Gate = condition.New(*tr.Gate, q.env).Describe()
		}
		out = append(out, c)
	}
	return out
}

// Choose commits a player-choice transition by label. The gate is
// re-checked at commit time; the named flag side effect runs only then.
func (q *Quest) Choose(label string) bool {
	s := q.CurrentStage()
	if q.state != types.InProgress || s == nil || !s.GroupComplete() {
		return false
	}
	for i := range s.def.Transitions {
		tr := &s.def.Transitions[i]
		if tr.Label != label {
			continue
		}
		if !q.gateOpen(tr) {
			q.log.Warn("choice gate closed", "quest", q.def.ID, "choice", label)
			return false
		}
		q.takeTransition(tr)
		return true
	}
	q.log.Warn("unknown choice", "quest", q.def.ID, "choice", label)
	return false
}

func (q *Quest) complete() {
	if q.state.Terminal() {
		return
	}
	q.shutdown()
	q.state = types.Completed
	q.grantRewards()
	q.log.Info("quest completed", "quest", q.def.ID)
	if q.hooks.OnDone != nil {
		q.hooks.OnDone(q)
	}
}

// grantRewards pushes the reward list through the sink exactly once per
// completion; replay policy is enforced by whoever clears the flag.
func (q *Quest) grantRewards() {
	if q.rewarded || q.rewards == nil {
		return
	}
	for _, r := range q.def.Rewards {
		q.rewards.Grant(r.Kind, r.Amount)
	}
	q.rewarded = true
}

// Fail moves the quest to Failed: via a quest-level failure condition, a
// timed task with FailQuestOnExpire, or the debug surface. No-op once
// terminal.
func (q *Quest) Fail() {
	if q.state.Terminal() {
		return
	}
	q.shutdown()
	q.state = types.Failed
	q.log.Info("quest failed", "quest", q.def.ID)
	if q.hooks.OnDone != nil {
		q.hooks.OnDone(q)
	}
}

// ForceComplete drives the quest to Completed, rewards included. Debug
// surface.
func (q *Quest) ForceComplete() { q.complete() }

// shutdown cancels every live subscription under the quest.
func (q *Quest) shutdown() {
	q.disarm()
	for _, c := range q.failConds {
		c.Unsubscribe()
	}
	if s := q.CurrentStage(); s != nil {
		s.Stop()
	}
}

// Reset returns the quest to NotStarted from any state, recursively
// resetting all stages, groups, and tasks. The rewarded flag survives
// unless clearRewards is set, so a reset-then-recomplete never grants
// twice without explicit replay policy.
func (q *Quest) Reset(clearRewards bool) {
	q.shutdown()
	for _, s := range q.stages {
		s.Reset()
	}
	for _, c := range q.startConds {
		c.Reset()
	}
	for _, c := range q.failConds {
		c.Reset()
	}
	q.state = types.NotStarted
	q.current = -1
	q.visited = map[int]bool{}
	if clearRewards {
		q.rewarded = false
	}
	q.log.Debug("quest reset", "quest", q.def.ID)
}

// ForceAdvance jumps to an arbitrary stage index, bypassing transition
// conditions. Debug surface.
func (q *Quest) ForceAdvance(i int) bool {
	if q.state != types.InProgress || i < 0 || i >= len(q.stages) {
		return false
	}
	if s := q.CurrentStage(); s != nil {
		s.Stop()
	}
	// A forced jump is a fresh cascade; clear the loop guard.
	q.visited = map[int]bool{}
	q.enterStage(i)
	return true
}

// Tick forwards the clock to the active stage's timed tasks.
func (q *Quest) Tick(dt float64) {
	if q.state != types.InProgress {
		return
	}
	if s := q.CurrentStage(); s != nil {
		s.Tick(dt)
	}
}

// FindTask locates a task by ID anywhere in the quest.
func (q *Quest) FindTask(id string) *task.Task {
	var found *task.Task
	q.eachTask(func(t *task.Task) {
		if t.Def().ID == id {
			found = t
		}
	})
	return found
}

// FindGroup locates a group by name anywhere in the quest.
func (q *Quest) FindGroup(name string) *task.Group {
	for _, s := range q.stages {
		for _, g := range s.groups {
			if g.Def().Name == name {
				return g
			}
		}
	}
	return nil
}

func (q *Quest) eachTask(fn func(*task.Task)) {
	for _, s := range q.stages {
		for _, g := range s.groups {
			for _, t := range g.Tasks() {
				fn(t)
			}
		}
	}
}

// Progress returns the completed-task fraction across the whole quest.
func (q *Quest) Progress() float64 {
	if q.state == types.Completed {
		return 1
	}
	total, done := 0, 0
	q.eachTask(func(t *task.Task) {
		total++
		if t.State() == types.Completed {
			done++
		}
	})
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total)
}

// Snapshot captures the quest's runtime position.
func (q *Quest) Snapshot() types.QuestSnapshot {
	snap := types.QuestSnapshot{
		State:    q.state,
		Stage:    q.current,
		Rewarded: q.rewarded,
		Tasks:    map[string]types.TaskSnapshot{},
	}
	q.eachTask(func(t *task.Task) {
		snap.Tasks[t.Def().ID] = t.Snapshot()
	})
	return snap
}

// Restore applies a snapshot without re-running side effects: no reward
// grants, no notifications. A restored InProgress quest re-subscribes its
// failure conditions and its in-progress tasks.
func (q *Quest) Restore(snap types.QuestSnapshot) {
	q.Reset(true)
	q.rewarded = snap.Rewarded
	q.state = snap.State

	q.eachTask(func(t *task.Task) {
		if ts, ok := snap.Tasks[t.Def().ID]; ok {
			t.Restore(ts)
		}
	})
	for _, s := range q.stages {
		for _, g := range s.groups {
			g.RestoreState()
		}
	}

	if q.state == types.InProgress {
		if snap.Stage >= 0 && snap.Stage < len(q.stages) {
			q.current = snap.Stage
			q.visited[snap.Stage] = true
			s := q.stages[snap.Stage]
			s.started = true
			s.notified = s.GroupComplete()
		}
		for _, c := range q.failConds {
			c.Subscribe(q.Fail)
		}
	}
}
