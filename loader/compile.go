// Package loader loads Lua quest content into Go definitions at load
// time. The Lua VM is discarded after loading — zero Lua at runtime.
package loader

import (
	"fmt"
	"log/slog"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/questweave/engine"
	"github.com/nathoo/questweave/types"
)

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getBool returns a bool field from a Lua table, or the default if missing.
func getBool(tbl *lua.LTable, key string, def bool) bool {
	v := tbl.RawGetString(key)
	if b, ok := v.(lua.LBool); ok {
		return bool(b)
	}
	return def
}

// getNumber returns a numeric field from a Lua table, or 0 if missing.
func getNumber(tbl *lua.LTable, key string) float64 {
	v := tbl.RawGetString(key)
	if n, ok := v.(lua.LNumber); ok {
		return float64(n)
	}
	return 0
}

// getInt returns an int field from a Lua table, or 0 if missing.
func getInt(tbl *lua.LTable, key string) int {
	return int(getNumber(tbl, key))
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	v := tbl.RawGetString(key)
	if t, ok := v.(*lua.LTable); ok {
		return t
	}
	return nil
}

// compiler carries the channel kind table through quest compilation so
// condition targets get typed by the channel they reference.
type compiler struct {
	kinds map[string]types.PayloadKind
	log   *slog.Logger
}

// compile converts all collected Lua definitions into a catalog. A
// definition that fails to compile is dropped with a logged error rather
// than failing the load.
func compile(coll *collector, log *slog.Logger) (*engine.Catalog, error) {
	cat := engine.NewCatalog()

	kinds := map[string]types.PayloadKind{}
	for _, ch := range engine.StandardChannels {
		kinds[ch.Name] = ch.Kind
	}
	for _, raw := range coll.channels {
		kind, ok := parsePayloadKind(raw.kind)
		if !ok {
			log.Error("channel has unknown payload kind", "channel", raw.name, "kind", raw.kind)
			continue
		}
		if existing, declared := kinds[raw.name]; declared {
			if existing != kind {
				log.Warn("channel redeclared with a different kind", "channel", raw.name, "kind", raw.kind, "existing", existing)
			}
			continue
		}
		kinds[raw.name] = kind
		cat.Channels = append(cat.Channels, types.ChannelDef{Name: raw.name, Kind: kind})
	}

	c := &compiler{kinds: kinds, log: log}

	for _, raw := range coll.quests {
		def, err := c.compileQuest(raw)
		if err != nil {
			log.Error("dropping quest", "quest", raw.id, "error", err)
			continue
		}
		if _, dup := cat.Quests[def.ID]; dup {
			log.Warn("duplicate quest id, keeping the later definition", "quest", def.ID)
		}
		cat.AddQuest(def)
	}

	for _, raw := range coll.lines {
		def, err := c.compileLine(raw)
		if err != nil {
			log.Error("dropping quest-line", "line", raw.id, "error", err)
			continue
		}
		if _, dup := cat.Lines[def.ID]; dup {
			log.Warn("duplicate quest-line id, keeping the later definition", "line", def.ID)
		}
		cat.AddLine(def)
	}

	return cat, nil
}

func parsePayloadKind(s string) (types.PayloadKind, bool) {
	switch types.PayloadKind(s) {
	case types.PayloadNone, types.PayloadBool, types.PayloadInt, types.PayloadString, types.PayloadID:
		return types.PayloadKind(s), true
	}
	return "", false
}

func (c *compiler) compileQuest(raw rawQuest) (types.QuestDef, error) {
	tbl := raw.table
	def := types.QuestDef{
		ID:          raw.id,
		Name:        getString(tbl, "name"),
		Description: getString(tbl, "description"),
	}

	var err error
	if def.StartConditions, err = c.compileConditionList(tbl.RawGetString("start")); err != nil {
		return def, fmt.Errorf("start conditions: %w", err)
	}
	if def.FailConditions, err = c.compileConditionList(tbl.RawGetString("fails")); err != nil {
		return def, fmt.Errorf("failure conditions: %w", err)
	}

	if rewards := getTable(tbl, "rewards"); rewards != nil {
		for i := 1; i <= rewards.MaxN(); i++ {
			rt, ok := rewards.RawGetInt(i).(*lua.LTable)
			if !ok {
				continue
			}
			kind := getString(rt, "__reward")
			if kind == "" {
				return def, fmt.Errorf("rewards[%d] is not a Reward(...)", i)
			}
			def.Rewards = append(def.Rewards, types.RewardDef{Kind: kind, Amount: getInt(rt, "amount")})
		}
	}

	// Stages come from the array part, in declaration order.
	for i := 1; i <= tbl.MaxN(); i++ {
		st, ok := tbl.RawGetInt(i).(*lua.LTable)
		if !ok || getString(st, "__stage") == "" {
			return def, fmt.Errorf("entry %d is not a Stage", i)
		}
		stage, err := c.compileStage(st)
		if err != nil {
			return def, fmt.Errorf("stage %q: %w", getString(st, "__stage"), err)
		}
		def.Stages = append(def.Stages, stage)
	}
	if len(def.Stages) == 0 {
		return def, fmt.Errorf("quest has no stages")
	}

	return def, nil
}

func (c *compiler) compileStage(tbl *lua.LTable) (types.StageDef, error) {
	stage := types.StageDef{
		Name:     getString(tbl, "__stage"),
		Terminal: getBool(tbl, "terminal", false),
	}

	for i := 1; i <= tbl.MaxN(); i++ {
		entry, ok := tbl.RawGetInt(i).(*lua.LTable)
		if !ok {
			return stage, fmt.Errorf("entry %d is not a table", i)
		}
		switch {
		case getString(entry, "__group") != "":
			group, err := c.compileGroup(entry)
			if err != nil {
				return stage, fmt.Errorf("group %q: %w", getString(entry, "name"), err)
			}
			stage.Groups = append(stage.Groups, group)

		case getString(entry, "__transition") != "":
			tr, err := c.compileTransition(entry)
			if err != nil {
				return stage, fmt.Errorf("transition %d: %w", i, err)
			}
			stage.Transitions = append(stage.Transitions, tr)

		default:
			return stage, fmt.Errorf("entry %d is neither a group nor a transition", i)
		}
	}

	return stage, nil
}

func (c *compiler) compileGroup(tbl *lua.LTable) (types.TaskGroupDef, error) {
	group := types.TaskGroupDef{
		Name:     getString(tbl, "name"),
		Mode:     getString(tbl, "__group"),
		Required: getInt(tbl, "required"),
	}

	tasks := getTable(tbl, "tasks")
	if tasks == nil {
		return group, fmt.Errorf("group has no task list")
	}
	for i := 1; i <= tasks.MaxN(); i++ {
		tt, ok := tasks.RawGetInt(i).(*lua.LTable)
		if !ok || getString(tt, "__task") == "" {
			return group, fmt.Errorf("tasks[%d] is not a task", i)
		}
		task, err := c.compileTask(tt)
		if err != nil {
			return group, fmt.Errorf("task %q: %w", getString(tt, "id"), err)
		}
		group.Tasks = append(group.Tasks, task)
	}

	return group, nil
}

func (c *compiler) compileTask(tbl *lua.LTable) (types.TaskDef, error) {
	def := types.TaskDef{
		ID:          getString(tbl, "id"),
		Name:        getString(tbl, "name"),
		Description: getString(tbl, "description"),
		Kind:        getString(tbl, "__task"),
	}

	var err error
	if def.Conditions, err = c.compileConditionList(tbl.RawGetString("conds")); err != nil {
		return def, err
	}
	if def.FailConditions, err = c.compileConditionList(tbl.RawGetString("fail_conds")); err != nil {
		return def, fmt.Errorf("failure conditions: %w", err)
	}

	switch def.Kind {
	case types.TaskBool:

	case types.TaskCount:
		def.Required = getInt(tbl, "required")

	case types.TaskMatch:
		// A match task is sugar for one string-equality event condition;
		// Kind stays "match" for display.
		channel := getString(tbl, "channel")
		def.Target = getString(tbl, "target")
		target, terr := c.payloadFor(channel, lua.LString(def.Target))
		if terr != nil {
			return def, terr
		}
		def.Conditions = []types.ConditionDef{{
			Kind:    types.CondEvent,
			Channel: channel,
			Op:      types.OpEquals,
			Target:  target,
		}}

	case types.TaskLocation:
		def.Target = getString(tbl, "target")
		def.Conditions = []types.ConditionDef{{
			Kind:    types.CondEvent,
			Channel: "location-entered",
			Op:      types.OpEquals,
			Target:  types.Payload{Kind: types.PayloadID, Str: def.Target},
		}}

	case types.TaskDiscovery:
		def.Required = getInt(tbl, "required")

	case types.TaskTimed:
		def.Limit = getNumber(tbl, "limit")
		def.FailQuestOnExpire = getBool(tbl, "fail_quest", false)

	default:
		return def, fmt.Errorf("unknown task kind %q", def.Kind)
	}

	return def, nil
}

func (c *compiler) compileTransition(tbl *lua.LTable) (types.TransitionDef, error) {
	tr := types.TransitionDef{
		Label:   getString(tbl, "label"),
		Target:  getString(tbl, "to"),
		SetFlag: getString(tbl, "set"),
	}
	if getString(tbl, "__transition") == "choice" && tr.Label == "" {
		return tr, fmt.Errorf("choice transition has no label")
	}
	if tr.Target == "" {
		return tr, fmt.Errorf("transition has no target stage")
	}
	if tr.SetFlag != "" {
		tr.SetValue = getBool(tbl, "value", true)
	}
	if when := getTable(tbl, "when"); when != nil {
		gate, err := c.compileCondition(when, map[*lua.LTable]bool{})
		if err != nil {
			return tr, fmt.Errorf("gate: %w", err)
		}
		tr.Gate = &gate
	}
	return tr, nil
}

// compileConditionList accepts either a single condition table or an
// array of them.
func (c *compiler) compileConditionList(v lua.LValue) ([]types.ConditionDef, error) {
	tbl, ok := v.(*lua.LTable)
	if !ok {
		return nil, nil
	}
	if getString(tbl, "kind") != "" {
		def, err := c.compileCondition(tbl, map[*lua.LTable]bool{})
		if err != nil {
			return nil, err
		}
		return []types.ConditionDef{def}, nil
	}
	var defs []types.ConditionDef
	for i := 1; i <= tbl.MaxN(); i++ {
		ct, ok := tbl.RawGetInt(i).(*lua.LTable)
		if !ok {
			return nil, fmt.Errorf("conditions[%d] is not a condition", i)
		}
		def, err := c.compileCondition(ct, map[*lua.LTable]bool{})
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// compileCondition converts one condition table. The visited set tracks
// the current recursion path so a Lua table that contains itself is
// rejected instead of recursing forever; compiled definitions hold
// children by value and cannot cycle.
func (c *compiler) compileCondition(tbl *lua.LTable, visited map[*lua.LTable]bool) (types.ConditionDef, error) {
	if visited[tbl] {
		return types.ConditionDef{}, fmt.Errorf("cyclic condition table")
	}
	visited[tbl] = true
	defer delete(visited, tbl)

	kind := getString(tbl, "kind")
	switch kind {
	case "not":
		inner := getTable(tbl, "inner")
		if inner == nil {
			return types.ConditionDef{}, fmt.Errorf("Not(...) has no inner condition")
		}
		def, err := c.compileCondition(inner, visited)
		if err != nil {
			return def, err
		}
		def.Invert = !def.Invert
		return def, nil

	case types.CondEvent:
		def := types.ConditionDef{
			Kind:       types.CondEvent,
			Channel:    getString(tbl, "channel"),
			FromAmount: getBool(tbl, "amount", false),
		}
		op, err := parseOp(getString(tbl, "op"))
		if err != nil {
			return def, err
		}
		def.Op = op
		if v := tbl.RawGetString("value"); v != lua.LNil {
			if def.Target, err = c.payloadFor(def.Channel, v); err != nil {
				return def, err
			}
		} else if c.kinds[def.Channel] == types.PayloadNone {
			def.Target = types.Payload{Kind: types.PayloadNone}
		}
		return def, nil

	case types.CondAllOf, types.CondAnyOf:
		def := types.ConditionDef{Kind: kind}
		children := getTable(tbl, "children")
		if children == nil || children.MaxN() == 0 {
			return def, fmt.Errorf("%s has no children", kind)
		}
		for i := 1; i <= children.MaxN(); i++ {
			ct, ok := children.RawGetInt(i).(*lua.LTable)
			if !ok {
				return def, fmt.Errorf("%s child %d is not a condition", kind, i)
			}
			child, err := c.compileCondition(ct, visited)
			if err != nil {
				return def, err
			}
			def.Children = append(def.Children, child)
		}
		return def, nil

	case types.CondFlag:
		def := types.ConditionDef{
			Kind:      types.CondFlag,
			Flag:      getString(tbl, "flag"),
			FlagValue: getBool(tbl, "value", true),
		}
		if def.Flag == "" {
			return def, fmt.Errorf("flag condition has no flag name")
		}
		return def, nil

	case types.CondQuestDone, types.CondQuestFail, types.CondLineDone:
		def := types.ConditionDef{Kind: kind, Ref: getString(tbl, "ref")}
		if def.Ref == "" {
			return def, fmt.Errorf("%s condition has no reference", kind)
		}
		return def, nil

	default:
		return types.ConditionDef{}, fmt.Errorf("unknown condition kind %q", kind)
	}
}

func parseOp(s string) (types.CompareOp, error) {
	switch s {
	case "", "==", "eq":
		return types.OpEquals, nil
	case "!=", "ne":
		return types.OpNotEquals, nil
	case ">", "gt":
		return types.OpGreaterThan, nil
	case ">=", "ge":
		return types.OpGreaterOrEqual, nil
	case "<", "lt":
		return types.OpLessThan, nil
	case "<=", "le":
		return types.OpLessOrEqual, nil
	}
	return "", fmt.Errorf("unknown comparison operator %q", s)
}

// payloadFor converts a Lua value into a payload typed by the channel's
// declared kind. Channels the kind table does not know get a payload
// inferred from the Lua value; validation reports the unknown channel.
func (c *compiler) payloadFor(channel string, v lua.LValue) (types.Payload, error) {
	kind, known := c.kinds[channel]
	if !known {
		switch val := v.(type) {
		case lua.LBool:
			return types.Payload{Kind: types.PayloadBool, Bool: bool(val)}, nil
		case lua.LNumber:
			return types.Payload{Kind: types.PayloadInt, Int: int(val)}, nil
		case lua.LString:
			return types.Payload{Kind: types.PayloadString, Str: string(val)}, nil
		}
		return types.Payload{}, fmt.Errorf("unsupported target value for channel %q", channel)
	}

	switch kind {
	case types.PayloadNone:
		return types.Payload{}, fmt.Errorf("channel %q carries no payload, target value is meaningless", channel)
	case types.PayloadBool:
		if b, ok := v.(lua.LBool); ok {
			return types.Payload{Kind: types.PayloadBool, Bool: bool(b)}, nil
		}
	case types.PayloadInt:
		if n, ok := v.(lua.LNumber); ok {
			return types.Payload{Kind: types.PayloadInt, Int: int(n)}, nil
		}
	case types.PayloadString:
		if s, ok := v.(lua.LString); ok {
			return types.Payload{Kind: types.PayloadString, Str: string(s)}, nil
		}
	case types.PayloadID:
		if s, ok := v.(lua.LString); ok {
			return types.Payload{Kind: types.PayloadID, Str: string(s)}, nil
		}
	}
	return types.Payload{}, fmt.Errorf("target value does not match %s payload of channel %q", kind, channel)
}

func (c *compiler) compileLine(raw rawLine) (types.QuestLineDef, error) {
	tbl := raw.table
	def := types.QuestLineDef{
		ID:          raw.id,
		Name:        getString(tbl, "name"),
		Description: getString(tbl, "description"),
	}

	quests := getTable(tbl, "quests")
	if quests == nil || quests.MaxN() == 0 {
		return def, fmt.Errorf("quest-line has no quests")
	}
	for i := 1; i <= quests.MaxN(); i++ {
		id, ok := quests.RawGetInt(i).(lua.LString)
		if !ok {
			return def, fmt.Errorf("quests[%d] is not a quest id", i)
		}
		def.Quests = append(def.Quests, string(id))
	}

	if prereq := getTable(tbl, "prereq"); prereq != nil {
		gate, err := c.compileCondition(prereq, map[*lua.LTable]bool{})
		if err != nil {
			return def, fmt.Errorf("prerequisite: %w", err)
		}
		def.Prereq = &gate
	}

	return def, nil
}
