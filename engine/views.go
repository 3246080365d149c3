package engine

import (
	"github.com/nathoo/questweave/engine/quest"
	"github.com/nathoo/questweave/types"
)

// Read-only projections for the UI boundary.

// TaskView is one visible task with its progress counters.
type TaskView struct {
	ID        string
	Name      string
	Kind      string
	State     types.State
	Current   int
	Required  int
	Remaining float64 // timed tasks: seconds left
}

// ChoiceView is one player choice with its gating explanation.
type ChoiceView struct {
	Label     string
	Available bool
	Gate      string // human-readable gate text, empty when ungated
}

// QuestView is the read-only projection of one quest.
type QuestView struct {
	ID          string
	Name        string
	Description string
	State       types.State
	Progress    float64 // 0..1
	Stage       string  // current stage name, empty before start
	StageIndex  int
	Tasks       []TaskView // ordered tasks of the current stage
	Choices     []ChoiceView
}

// LineView is the read-only projection of one quest-line.
type LineView struct {
	ID        string
	Name      string
	State     types.LineState
	Progress  float64
	Completed int
	Total     int
}

// QuestView projects a registered quest, or ok=false.
func (m *Manager) QuestView(id string) (QuestView, bool) {
	q := m.Quest(id)
	if q == nil {
		return QuestView{}, false
	}
	return projectQuest(q), true
}

// QuestViews projects every registered quest in catalog order.
func (m *Manager) QuestViews() []QuestView {
	var out []QuestView
	for _, id := range m.catalog.QuestOrder {
		if q := m.Quest(id); q != nil {
			out = append(out, projectQuest(q))
		}
	}
	for id, q := range m.active {
		if _, ok := m.catalog.Quests[id]; !ok {
			out = append(out, projectQuest(q))
		}
	}
	return out
}

// LineViews projects every quest-line in catalog order.
func (m *Manager) LineViews() []LineView {
	var out []LineView
	for _, id := range m.catalog.LineOrder {
		l := m.Line(id)
		if l == nil {
			continue
		}
		out = append(out, LineView{
			ID:        l.Def().ID,
			Name:      l.Def().Name,
			State:     l.State(),
			Progress:  l.Progress(),
			Completed: l.CompletedCount(),
			Total:     len(l.Def().Quests),
		})
	}
	return out
}

func projectQuest(q *quest.Quest) QuestView {
	v := QuestView{
		ID:          q.Def().ID,
		Name:        q.Def().Name,
		Description: q.Def().Description,
		State:       q.State(),
		Progress:    q.Progress(),
		StageIndex:  q.StageIndex(),
	}
	if s := q.CurrentStage(); s != nil {
		v.Stage = s.Def().Name
		for _, g := range s.Groups() {
			for _, t := range g.Tasks() {
				cur, req := t.Progress()
				v.Tasks = append(v.Tasks, TaskView{
					ID:        t.Def().ID,
					Name:      t.Def().Name,
					Kind:      t.Def().Kind,
					State:     t.State(),
					Current:   cur,
					Required:  req,
					Remaining: t.Remaining(),
				})
			}
		}
	}
	for _, c := range q.Choices() {
		v.Choices = append(v.Choices, ChoiceView{
			Label:     c.Label,
			Available: c.Available,
			Gate:      c.Gate,
		})
	}
	return v
}
