package engine

// Debug/operator surface: force entity state for testing and live
// operation. Every call is a boolean success, never an error.

// ForceCompleteQuest drives a registered quest to Completed.
func (m *Manager) ForceCompleteQuest(id string) bool {
	q := m.Quest(id)
	if q == nil {
		m.log.Warn("force-complete: quest not registered", "quest", id)
		return false
	}
	q.ForceComplete()
	return true
}

// ForceFailQuest drives a registered quest to Failed.
func (m *Manager) ForceFailQuest(id string) bool {
	q := m.Quest(id)
	if q == nil {
		m.log.Warn("force-fail: quest not registered", "quest", id)
		return false
	}
	q.Fail()
	return true
}

// ForceCompleteTask drives one task of a registered quest to Completed.
func (m *Manager) ForceCompleteTask(questID, taskID string) bool {
	q := m.Quest(questID)
	if q == nil {
		return false
	}
	t := q.FindTask(taskID)
	if t == nil {
		m.log.Warn("force-complete: task not found", "quest", questID, "task", taskID)
		return false
	}
	t.Complete()
	return true
}

// ForceFailTask drives one task of a registered quest to Failed.
func (m *Manager) ForceFailTask(questID, taskID string) bool {
	q := m.Quest(questID)
	if q == nil {
		return false
	}
	t := q.FindTask(taskID)
	if t == nil {
		return false
	}
	t.Fail()
	return true
}

// ForceCompleteGroup drives a named group of a registered quest to
// Completed.
func (m *Manager) ForceCompleteGroup(questID, group string) bool {
	q := m.Quest(questID)
	if q == nil {
		return false
	}
	g := q.FindGroup(group)
	if g == nil {
		m.log.Warn("force-complete: group not found", "quest", questID, "group", group)
		return false
	}
	g.ForceComplete()
	return true
}

// ForceAdvance jumps a quest to an arbitrary stage index, bypassing
// transition conditions.
func (m *Manager) ForceAdvance(questID string, stage int) bool {
	q := m.Quest(questID)
	if q == nil {
		return false
	}
	return q.ForceAdvance(stage)
}

// ExpireTask drops a timed task's countdown to zero immediately.
func (m *Manager) ExpireTask(questID, taskID string) bool {
	q := m.Quest(questID)
	if q == nil {
		return false
	}
	t := q.FindTask(taskID)
	if t == nil {
		return false
	}
	t.ExpireNow()
	return true
}

// ForceFailLine drives a quest-line to Failed.
func (m *Manager) ForceFailLine(id string) bool {
	l := m.Line(id)
	if l == nil {
		return false
	}
	l.ForceFail()
	delete(m.lines, id)
	m.failedLines[id] = l
	return true
}
