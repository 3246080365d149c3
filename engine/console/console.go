// Package console implements the operator command layer: it parses text
// commands into engine calls and formats the resulting state as output
// lines. Both the plain CLI and the TUI run on top of it.
package console

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nathoo/questweave/engine"
	"github.com/nathoo/questweave/engine/events"
	"github.com/nathoo/questweave/engine/world"
	"github.com/nathoo/questweave/types"
)

// Console wraps a manager with a line-oriented command surface.
type Console struct {
	M     *engine.Manager
	Trace bool // append bucket counts after each command

	pending []string // notification lines raised during the last command
}

// New creates a console and subscribes it to the manager's notification
// channels, so quest and line transitions show up in command output.
func New(m *engine.Manager) *Console {
	c := &Console{M: m}
	c.listen(events.ChanQuestStarted, "Quest started: %s")
	c.listen(events.ChanQuestCompleted, "Quest completed: %s")
	c.listen(events.ChanQuestFailed, "Quest failed: %s")
	c.listen(events.ChanGroupFailed, "Quest stuck: %s")
	c.listen(events.ChanLineAvailable, "Quest-line available: %s")
	c.listen(events.ChanLineCompleted, "Quest-line completed: %s")
	return c
}

func (c *Console) listen(channel, format string) {
	ch := c.M.Bus().Lookup(channel)
	if ch == nil {
		return
	}
	ch.Subscribe(func(p types.Payload) {
		c.pending = append(c.pending, fmt.Sprintf(format, p.Str))
	})
}

// Exec runs one command line and returns the output, including any
// notifications the command cascaded into.
func (c *Console) Exec(line string) []string {
	c.pending = nil
	out := c.dispatch(strings.Fields(line))
	if len(c.pending) > 0 {
		out = append(out, c.pending...)
		c.pending = nil
	}
	if c.Trace {
		a, d, f := c.M.Counts()
		out = append(out, fmt.Sprintf("[trace] active:%d completed:%d failed:%d clock:%.1fs",
			a, d, f, c.M.Clock()))
	}
	return out
}

func (c *Console) dispatch(args []string) []string {
	if len(args) == 0 {
		return nil
	}
	cmd, rest := args[0], args[1:]

	switch strings.ToLower(cmd) {
	case "help":
		return Help()
	case "raise":
		return c.cmdRaise(rest)
	case "tick":
		return c.cmdTick(rest)
	case "add":
		return c.cmdAdd(rest)
	case "remove":
		return c.cmdRemove(rest)
	case "restart":
		return c.cmdRestart(rest)
	case "choose":
		return c.cmdChoose(rest)
	case "flag":
		return c.cmdFlag(rest)
	case "flags":
		return c.cmdFlags()
	case "quests":
		return c.cmdQuests()
	case "quest":
		return c.cmdQuest(rest)
	case "tasks":
		return c.cmdTasks(rest)
	case "lines":
		return c.cmdLines()
	case "force":
		return c.cmdForce(rest)
	case "advance":
		return c.cmdAdvance(rest)
	case "expire":
		return c.cmdExpire(rest)
	default:
		return []string{fmt.Sprintf("Unknown command: %s. Type help for the command list.", cmd)}
	}
}

// Help returns the command reference.
func Help() []string {
	return []string{
		"Events:",
		"  raise <channel> [value]     — Raise a gameplay event",
		"  tick <seconds>              — Advance the clock (timed tasks)",
		"Quests:",
		"  add <quest> [force]         — Admit a catalog quest",
		"  remove <quest>              — Unregister a quest",
		"  restart <quest>             — Reset and force-start a quest",
		"  choose <quest> <label>      — Commit a player choice",
		"  quests / quest <id>         — List quests / show one quest",
		"  tasks <quest>               — Current-stage tasks",
		"  lines                       — Quest-line overview",
		"World:",
		"  flag <name> [true|false]    — Set a world flag",
		"  flags                       — List set flags",
		"Debug:",
		"  force complete|fail quest <id>",
		"  force complete|fail task <quest> <task>",
		"  force complete group <quest> <group>",
		"  advance <quest> <stage-index>",
		"  expire <quest> <task>       — Expire a timed task now",
	}
}

func (c *Console) cmdRaise(args []string) []string {
	if len(args) == 0 {
		return []string{"Usage: raise <channel> [value]"}
	}
	name := args[0]
	ch := c.M.Bus().Lookup(name)
	if ch == nil {
		return []string{fmt.Sprintf("Unknown channel: %s.", name)}
	}

	p, err := parsePayload(ch.Kind(), args[1:])
	if err != nil {
		return []string{err.Error()}
	}
	c.M.Raise(name, p)
	return []string{fmt.Sprintf("Raised %s.", name)}
}

func parsePayload(kind types.PayloadKind, args []string) (types.Payload, error) {
	switch kind {
	case types.PayloadNone:
		return events.None(), nil
	case types.PayloadBool:
		if len(args) == 0 {
			return types.Payload{}, fmt.Errorf("channel expects a bool value")
		}
		v, err := strconv.ParseBool(args[0])
		if err != nil {
			return types.Payload{}, fmt.Errorf("not a bool: %s", args[0])
		}
		return events.Bool(v), nil
	case types.PayloadInt:
		if len(args) == 0 {
			return types.Payload{}, fmt.Errorf("channel expects an int value")
		}
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return types.Payload{}, fmt.Errorf("not an int: %s", args[0])
		}
		return events.Int(v), nil
	case types.PayloadString:
		if len(args) == 0 {
			return types.Payload{}, fmt.Errorf("channel expects a string value")
		}
		return events.String(strings.Join(args, " ")), nil
	case types.PayloadID:
		if len(args) == 0 {
			return types.Payload{}, fmt.Errorf("channel expects an identifier value")
		}
		return events.ID(args[0]), nil
	default:
		return types.Payload{}, fmt.Errorf("channel has unknown payload kind")
	}
}

func (c *Console) cmdTick(args []string) []string {
	dt := 1.0
	if len(args) > 0 {
		v, err := strconv.ParseFloat(args[0], 64)
		if err != nil || v <= 0 {
			return []string{fmt.Sprintf("Not a duration: %s.", args[0])}
		}
		dt = v
	}
	c.M.Tick(dt)
	return []string{fmt.Sprintf("Clock advanced %.1fs (now %.1fs).", dt, c.M.Clock())}
}

func (c *Console) cmdAdd(args []string) []string {
	if len(args) == 0 {
		return []string{"Usage: add <quest> [force]"}
	}
	id, err := c.resolveCatalogQuest(args[0])
	if err != nil {
		return []string{err.Error()}
	}
	force := len(args) > 1 && args[1] == "force"
	if !c.M.AddQuestByID(id, force) {
		return []string{fmt.Sprintf("Quest %s was not admitted (see log).", id)}
	}
	return []string{fmt.Sprintf("Quest %s admitted.", id)}
}

func (c *Console) cmdRemove(args []string) []string {
	if len(args) == 0 {
		return []string{"Usage: remove <quest>"}
	}
	id, err := c.resolveQuest(args[0])
	if err != nil {
		return []string{err.Error()}
	}
	if !c.M.RemoveQuest(id) {
		return []string{fmt.Sprintf("Quest %s is not registered.", id)}
	}
	return []string{fmt.Sprintf("Quest %s removed.", id)}
}

func (c *Console) cmdRestart(args []string) []string {
	if len(args) == 0 {
		return []string{"Usage: restart <quest>"}
	}
	id, err := c.resolveQuest(args[0])
	if err != nil {
		return []string{err.Error()}
	}
	if !c.M.RestartQuest(id) {
		return []string{fmt.Sprintf("Quest %s is not registered.", id)}
	}
	return []string{fmt.Sprintf("Quest %s restarted.", id)}
}

func (c *Console) cmdChoose(args []string) []string {
	if len(args) < 2 {
		return []string{"Usage: choose <quest> <label>"}
	}
	id, err := c.resolveQuest(args[0])
	if err != nil {
		return []string{err.Error()}
	}
	q := c.M.Quest(id)
	label := strings.Join(args[1:], " ")
	if !q.Choose(label) {
		choices := q.Choices()
		if len(choices) == 0 {
			return []string{fmt.Sprintf("Quest %s has no choices right now.", id)}
		}
		var labels []string
		for _, ch := range choices {
			labels = append(labels, ch.Label)
		}
		return []string{fmt.Sprintf("Cannot choose %q. Available: %s.", label, strings.Join(labels, ", "))}
	}
	return []string{fmt.Sprintf("Chose %q.", label)}
}

func (c *Console) cmdFlag(args []string) []string {
	if len(args) == 0 {
		return []string{"Usage: flag <name> [true|false]"}
	}
	value := true
	if len(args) > 1 {
		v, err := strconv.ParseBool(args[1])
		if err != nil {
			return []string{fmt.Sprintf("Not a bool: %s.", args[1])}
		}
		value = v
	}
	c.M.SetFlag(args[0], value)
	return []string{fmt.Sprintf("Flag %s = %v.", args[0], value)}
}

func (c *Console) cmdFlags() []string {
	f, ok := c.M.Flags().(*world.Flags)
	if !ok {
		return []string{"Flag listing is unavailable for this flag store."}
	}
	m := f.Map()
	if len(m) == 0 {
		return []string{"No flags set."}
	}
	var out []string
	for _, name := range sortedKeys(m) {
		out = append(out, fmt.Sprintf("  %s = %v", name, m[name]))
	}
	return out
}

func (c *Console) cmdQuests() []string {
	views := c.M.QuestViews()
	if len(views) == 0 {
		return []string{"No quests registered."}
	}
	var out []string
	for _, v := range views {
		out = append(out, fmt.Sprintf("  %-20s %-12s %3.0f%%  %s",
			v.ID, stateText(v.State), v.Progress*100, v.Name))
	}
	return out
}

func (c *Console) cmdQuest(args []string) []string {
	if len(args) == 0 {
		return []string{"Usage: quest <id>"}
	}
	id, err := c.resolveQuest(args[0])
	if err != nil {
		return []string{err.Error()}
	}
	v, _ := c.M.QuestView(id)

	out := []string{
		fmt.Sprintf("%s — %s [%s, %.0f%%]", v.ID, v.Name, stateText(v.State), v.Progress*100),
	}
	if v.Description != "" {
		out = append(out, "  "+v.Description)
	}
	if v.Stage != "" {
		out = append(out, fmt.Sprintf("  Stage %d: %s", v.StageIndex, v.Stage))
	}
	out = append(out, formatTasks(v.Tasks)...)
	for _, ch := range v.Choices {
		avail := "locked"
		if ch.Available {
			avail = "available"
		}
		line := fmt.Sprintf("  Choice: %s (%s)", ch.Label, avail)
		if ch.Gate != "" {
			line += " — requires " + ch.Gate
		}
		out = append(out, line)
	}
	return out
}

func (c *Console) cmdTasks(args []string) []string {
	if len(args) == 0 {
		return []string{"Usage: tasks <quest>"}
	}
	id, err := c.resolveQuest(args[0])
	if err != nil {
		return []string{err.Error()}
	}
	v, _ := c.M.QuestView(id)
	if len(v.Tasks) == 0 {
		return []string{fmt.Sprintf("Quest %s has no visible tasks.", id)}
	}
	return formatTasks(v.Tasks)
}

func formatTasks(tasks []engine.TaskView) []string {
	var out []string
	for _, t := range tasks {
		line := fmt.Sprintf("  [%s] %s (%d/%d)", stateText(t.State), t.Name, t.Current, t.Required)
		if t.Kind == types.TaskTimed && t.State == types.InProgress {
			line += fmt.Sprintf(" — %.0fs left", t.Remaining)
		}
		out = append(out, line)
	}
	return out
}

func (c *Console) cmdLines() []string {
	views := c.M.LineViews()
	if len(views) == 0 {
		return []string{"No quest-lines defined."}
	}
	var out []string
	for _, v := range views {
		out = append(out, fmt.Sprintf("  %-20s %-12s %d/%d  %s",
			v.ID, lineStateText(v.State), v.Completed, v.Total, v.Name))
	}
	return out
}

func (c *Console) cmdForce(args []string) []string {
	if len(args) < 3 {
		return []string{"Usage: force complete|fail quest|task|group <args>"}
	}
	verb, kind := args[0], args[1]
	rest := args[2:]

	var ok bool
	switch kind {
	case "quest":
		id, err := c.resolveQuest(rest[0])
		if err != nil {
			return []string{err.Error()}
		}
		if verb == "complete" {
			ok = c.M.ForceCompleteQuest(id)
		} else {
			ok = c.M.ForceFailQuest(id)
		}
	case "task":
		if len(rest) < 2 {
			return []string{"Usage: force complete|fail task <quest> <task>"}
		}
		id, err := c.resolveQuest(rest[0])
		if err != nil {
			return []string{err.Error()}
		}
		if verb == "complete" {
			ok = c.M.ForceCompleteTask(id, rest[1])
		} else {
			ok = c.M.ForceFailTask(id, rest[1])
		}
	case "group":
		if len(rest) < 2 {
			return []string{"Usage: force complete group <quest> <group>"}
		}
		id, err := c.resolveQuest(rest[0])
		if err != nil {
			return []string{err.Error()}
		}
		ok = c.M.ForceCompleteGroup(id, rest[1])
	default:
		return []string{fmt.Sprintf("Unknown force target: %s.", kind)}
	}

	if !ok {
		return []string{"Force command did not apply (see log)."}
	}
	return []string{"Done."}
}

func (c *Console) cmdAdvance(args []string) []string {
	if len(args) < 2 {
		return []string{"Usage: advance <quest> <stage-index>"}
	}
	id, err := c.resolveQuest(args[0])
	if err != nil {
		return []string{err.Error()}
	}
	idx, convErr := strconv.Atoi(args[1])
	if convErr != nil {
		return []string{fmt.Sprintf("Not a stage index: %s.", args[1])}
	}
	if !c.M.ForceAdvance(id, idx) {
		return []string{fmt.Sprintf("Cannot advance %s to stage %d.", id, idx)}
	}
	return []string{fmt.Sprintf("Quest %s advanced to stage %d.", id, idx)}
}

func (c *Console) cmdExpire(args []string) []string {
	if len(args) < 2 {
		return []string{"Usage: expire <quest> <task>"}
	}
	id, err := c.resolveQuest(args[0])
	if err != nil {
		return []string{err.Error()}
	}
	if !c.M.ExpireTask(id, args[1]) {
		return []string{fmt.Sprintf("No running timed task %s in quest %s.", args[1], id)}
	}
	return []string{fmt.Sprintf("Task %s expired.", args[1])}
}

func stateText(s types.State) string {
	switch s {
	case types.NotStarted:
		return "not started"
	case types.InProgress:
		return "in progress"
	case types.Completed:
		return "completed"
	case types.Failed:
		return "failed"
	default:
		return string(s)
	}
}

func lineStateText(s types.LineState) string {
	switch s {
	case types.LineLocked:
		return "locked"
	case types.LineAvailable:
		return "available"
	case types.LineInProgress:
		return "in progress"
	case types.LineCompleted:
		return "completed"
	case types.LineFailed:
		return "failed"
	default:
		return string(s)
	}
}
