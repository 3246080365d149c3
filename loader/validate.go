package loader

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/nathoo/questweave/engine"
	"github.com/nathoo/questweave/types"
)

// ValidationError collects all validation errors and warnings for one
// definition.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

func (e *ValidationError) errorf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

func (e *ValidationError) warnf(format string, args ...any) {
	e.Warnings = append(e.Warnings, fmt.Sprintf(format, args...))
}

var validModes = map[string]bool{
	types.ModeSequential: true,
	types.ModeParallel:   true,
	types.ModeAnyOrder:   true,
	types.ModeOptional:   true,
}

// validate checks the catalog for referential integrity and consistency.
// Definitions with errors are dropped from the catalog; warnings are
// logged and the definition kept. Repairs such as clamped required
// counts and resolved transition targets are written back.
func validate(cat *engine.Catalog, log *slog.Logger) {
	kinds := map[string]types.PayloadKind{}
	for _, ch := range engine.StandardChannels {
		kinds[ch.Name] = ch.Kind
	}
	for _, ch := range cat.Channels {
		kinds[ch.Name] = ch.Kind
	}

	var dropped []string
	for _, id := range cat.QuestOrder {
		q := cat.Quests[id]
		ve := &ValidationError{}
		validateQuest(&q, cat, kinds, ve)
		for _, w := range ve.Warnings {
			log.Warn("quest validation", "quest", id, "warning", w)
		}
		if len(ve.Errors) > 0 {
			log.Error("dropping quest", "quest", id, "error", ve)
			dropped = append(dropped, id)
			continue
		}
		cat.Quests[id] = q
	}
	for _, id := range dropped {
		delete(cat.Quests, id)
	}
	cat.QuestOrder = pruneOrder(cat.QuestOrder, dropped)

	dropped = nil
	for _, id := range cat.LineOrder {
		l := cat.Lines[id]
		ve := &ValidationError{}
		validateLine(&l, cat, kinds, ve)
		for _, w := range ve.Warnings {
			log.Warn("quest-line validation", "line", id, "warning", w)
		}
		if len(ve.Errors) > 0 {
			log.Error("dropping quest-line", "line", id, "error", ve)
			dropped = append(dropped, id)
			continue
		}
		cat.Lines[id] = l
	}
	for _, id := range dropped {
		delete(cat.Lines, id)
	}
	cat.LineOrder = pruneOrder(cat.LineOrder, dropped)
}

func pruneOrder(order, dropped []string) []string {
	if len(dropped) == 0 {
		return order
	}
	gone := map[string]bool{}
	for _, id := range dropped {
		gone[id] = true
	}
	kept := order[:0]
	for _, id := range order {
		if !gone[id] {
			kept = append(kept, id)
		}
	}
	return kept
}

func validateQuest(q *types.QuestDef, cat *engine.Catalog, kinds map[string]types.PayloadKind, ve *ValidationError) {
	stageIndex := map[string]int{}
	for i, st := range q.Stages {
		if _, dup := stageIndex[st.Name]; dup {
			ve.errorf("duplicate stage name %q", st.Name)
			continue
		}
		stageIndex[st.Name] = i
	}

	taskIDs := map[string]bool{}
	for si := range q.Stages {
		st := &q.Stages[si]

		for gi := range st.Groups {
			g := &st.Groups[gi]
			if !validModes[g.Mode] {
				ve.errorf("stage %q group %q has unknown mode %q", st.Name, g.Name, g.Mode)
			}
			if len(g.Tasks) == 0 {
				ve.errorf("stage %q group %q has no tasks", st.Name, g.Name)
			}
			if g.Mode == types.ModeOptional {
				if g.Required < 1 || g.Required > len(g.Tasks) {
					ve.warnf("stage %q group %q required %d clamped to [1,%d]",
						st.Name, g.Name, g.Required, len(g.Tasks))
					if g.Required < 1 {
						g.Required = 1
					}
					if g.Required > len(g.Tasks) {
						g.Required = len(g.Tasks)
					}
				}
			}
			for ti := range g.Tasks {
				validateTask(&g.Tasks[ti], st.Name, taskIDs, cat, kinds, ve)
			}
		}

		for ti := range st.Transitions {
			tr := &st.Transitions[ti]
			target, ok := stageIndex[tr.Target]
			if !ok {
				ve.errorf("stage %q transition targets undefined stage %q", st.Name, tr.Target)
				continue
			}
			tr.TargetIndex = target
			if tr.Gate != nil {
				validateCondition(*tr.Gate, cat, kinds, ve)
				if containsEventCond(*tr.Gate) {
					ve.warnf("stage %q transition gate watches an event and can never open; gate on flags or quest state instead",
						st.Name)
				}
			}
		}

		if st.Terminal && len(st.Transitions) > 0 {
			ve.warnf("terminal stage %q has transitions that can never fire", st.Name)
		}
		if !st.Terminal && len(st.Transitions) == 0 {
			ve.warnf("stage %q is not terminal and has no way out", st.Name)
		}
	}

	for _, c := range q.StartConditions {
		validateCondition(c, cat, kinds, ve)
	}
	for _, c := range q.FailConditions {
		validateCondition(c, cat, kinds, ve)
	}
	for _, r := range q.Rewards {
		if r.Kind == "" {
			ve.errorf("reward has no kind")
		}
		if r.Amount <= 0 {
			ve.warnf("reward %q has non-positive amount %d", r.Kind, r.Amount)
		}
	}
}

func validateTask(t *types.TaskDef, stage string, taskIDs map[string]bool, cat *engine.Catalog, kinds map[string]types.PayloadKind, ve *ValidationError) {
	if t.ID == "" {
		ve.errorf("stage %q has a task without an id", stage)
		return
	}
	if taskIDs[t.ID] {
		ve.errorf("duplicate task id %q", t.ID)
	}
	taskIDs[t.ID] = true

	switch t.Kind {
	case types.TaskCount:
		if t.Required < 1 {
			ve.warnf("count task %q required %d clamped to 1", t.ID, t.Required)
			t.Required = 1
		}
		if len(t.Conditions) == 0 {
			ve.errorf("count task %q has no conditions", t.ID)
		}
	case types.TaskDiscovery:
		if len(t.Conditions) == 0 {
			ve.errorf("discovery task %q has no discoveries", t.ID)
		}
		if t.Required > len(t.Conditions) {
			ve.warnf("discovery task %q requires %d of %d discoveries, treating as all",
				t.ID, t.Required, len(t.Conditions))
			t.Required = 0
		}
	case types.TaskTimed:
		if t.Limit <= 0 {
			ve.errorf("timed task %q has non-positive limit %v", t.ID, t.Limit)
		}
	case types.TaskBool, types.TaskMatch, types.TaskLocation:
		if len(t.Conditions) == 0 {
			ve.errorf("task %q has no conditions", t.ID)
		}
	default:
		ve.errorf("task %q has unknown kind %q", t.ID, t.Kind)
	}

	for _, c := range t.Conditions {
		validateCondition(c, cat, kinds, ve)
	}
	for _, c := range t.FailConditions {
		validateCondition(c, cat, kinds, ve)
	}
}

// validateCondition checks channel references and operator typing,
// recursively through composites. Quest and quest-line references are
// warnings only, so content can gate on quests shipped separately.
func validateCondition(c types.ConditionDef, cat *engine.Catalog, kinds map[string]types.PayloadKind, ve *ValidationError) {
	switch c.Kind {
	case types.CondEvent:
		kind, known := kinds[c.Channel]
		if !known {
			ve.errorf("condition references undeclared channel %q", c.Channel)
			return
		}
		if ordered(c.Op) && kind != types.PayloadInt {
			ve.warnf("ordered comparison on %s channel %q never holds", kind, c.Channel)
		}
	case types.CondAllOf, types.CondAnyOf:
		for _, child := range c.Children {
			validateCondition(child, cat, kinds, ve)
		}
	case types.CondQuestDone, types.CondQuestFail:
		if _, ok := cat.Quests[c.Ref]; !ok {
			ve.warnf("condition references quest %q outside this catalog", c.Ref)
		}
	case types.CondLineDone:
		if _, ok := cat.Lines[c.Ref]; !ok {
			ve.warnf("condition references quest-line %q outside this catalog", c.Ref)
		}
	}
}

// containsEventCond reports whether the tree holds an event condition.
// Gates are evaluated passively on fresh conditions, so an event
// condition inside one has no payload memory and never holds.
func containsEventCond(c types.ConditionDef) bool {
	if c.Kind == types.CondEvent {
		return true
	}
	for _, child := range c.Children {
		if containsEventCond(child) {
			return true
		}
	}
	return false
}

func ordered(op types.CompareOp) bool {
	switch op {
	case types.OpGreaterThan, types.OpGreaterOrEqual, types.OpLessThan, types.OpLessOrEqual:
		return true
	}
	return false
}

func validateLine(l *types.QuestLineDef, cat *engine.Catalog, kinds map[string]types.PayloadKind, ve *ValidationError) {
	for _, id := range l.Quests {
		if _, ok := cat.Quests[id]; !ok {
			ve.errorf("quest-line references undefined quest %q", id)
		}
	}
	if l.Prereq != nil {
		validateCondition(*l.Prereq, cat, kinds, ve)
	}
}
