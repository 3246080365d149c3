package loader

import (
	lua "github.com/yuin/gopher-lua"
)

// registerAPI registers all Lua constructors and helpers as globals.
func registerAPI(L *lua.LState, coll *collector) {
	registerConstructors(L, coll)
	registerConditionHelpers(L)
	registerTaskHelpers(L)
	registerGroupHelpers(L)
	registerTransitionHelpers(L)
}

func registerConstructors(L *lua.LState, coll *collector) {
	// Quest "id" { ... } — curried: Quest("id") returns a function that
	// takes the body table.
	L.SetGlobal("Quest", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.quests = append(coll.quests, rawQuest{id: id, table: tbl})
			return 0
		}))
		return 1
	}))

	// QuestLine "id" { ... } — curried.
	L.SetGlobal("QuestLine", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.lines = append(coll.lines, rawLine{id: id, table: tbl})
			return 0
		}))
		return 1
	}))

	// Stage "name" { ... } — curried, returns the body tagged as a stage.
	L.SetGlobal("Stage", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			tbl.RawSetString("__stage", lua.LString(name))
			L.Push(tbl)
			return 1
		}))
		return 1
	}))

	// Channel("name", "kind") — declare a custom event channel.
	L.SetGlobal("Channel", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		kind := L.CheckString(2)
		coll.channels = append(coll.channels, rawChannel{name: name, kind: kind})
		return 0
	}))

	// Reward("kind", amount)
	L.SetGlobal("Reward", L.NewFunction(func(L *lua.LState) int {
		kind := L.CheckString(1)
		amount := L.CheckNumber(2)
		tbl := L.NewTable()
		tbl.RawSetString("__reward", lua.LString(kind))
		tbl.RawSetString("amount", amount)
		L.Push(tbl)
		return 1
	}))
}

// condTable builds a condition table with a kind tag.
func condTable(L *lua.LState, kind string) *lua.LTable {
	tbl := L.NewTable()
	tbl.RawSetString("kind", lua.LString(kind))
	return tbl
}

func registerConditionHelpers(L *lua.LState) {
	// OnEvent("channel") or OnEvent("channel", value) — equality match
	// against the channel payload; bare form fires on any raise.
	L.SetGlobal("OnEvent", L.NewFunction(func(L *lua.LState) int {
		channel := L.CheckString(1)
		tbl := condTable(L, "event")
		tbl.RawSetString("channel", lua.LString(channel))
		if L.GetTop() >= 2 {
			tbl.RawSetString("value", L.Get(2))
		}
		L.Push(tbl)
		return 1
	}))

	// Compare("channel", ">=", value)
	L.SetGlobal("Compare", L.NewFunction(func(L *lua.LState) int {
		channel := L.CheckString(1)
		op := L.CheckString(2)
		value := L.Get(3)
		tbl := condTable(L, "event")
		tbl.RawSetString("channel", lua.LString(channel))
		tbl.RawSetString("op", lua.LString(op))
		tbl.RawSetString("value", value)
		L.Push(tbl)
		return 1
	}))

	// Amount("channel") — count tasks add the payload amount per event.
	L.SetGlobal("Amount", L.NewFunction(func(L *lua.LState) int {
		channel := L.CheckString(1)
		tbl := condTable(L, "event")
		tbl.RawSetString("channel", lua.LString(channel))
		tbl.RawSetString("amount", lua.LTrue)
		L.Push(tbl)
		return 1
	}))

	// Not(condition)
	L.SetGlobal("Not", L.NewFunction(func(L *lua.LState) int {
		inner := L.CheckTable(1)
		tbl := condTable(L, "not")
		tbl.RawSetString("inner", inner)
		L.Push(tbl)
		return 1
	}))

	// AllOf { cond1, cond2, ... } / AnyOf { ... }
	L.SetGlobal("AllOf", L.NewFunction(func(L *lua.LState) int {
		children := L.CheckTable(1)
		tbl := condTable(L, "all_of")
		tbl.RawSetString("children", children)
		L.Push(tbl)
		return 1
	}))
	L.SetGlobal("AnyOf", L.NewFunction(func(L *lua.LState) int {
		children := L.CheckTable(1)
		tbl := condTable(L, "any_of")
		tbl.RawSetString("children", children)
		L.Push(tbl)
		return 1
	}))

	// FlagSet("flag") / FlagIs("flag", value)
	L.SetGlobal("FlagSet", L.NewFunction(func(L *lua.LState) int {
		flag := L.CheckString(1)
		tbl := condTable(L, "flag")
		tbl.RawSetString("flag", lua.LString(flag))
		tbl.RawSetString("value", lua.LTrue)
		L.Push(tbl)
		return 1
	}))
	L.SetGlobal("FlagIs", L.NewFunction(func(L *lua.LState) int {
		flag := L.CheckString(1)
		value := L.CheckBool(2)
		tbl := condTable(L, "flag")
		tbl.RawSetString("flag", lua.LString(flag))
		tbl.RawSetString("value", lua.LBool(value))
		L.Push(tbl)
		return 1
	}))

	// QuestDone("id") / QuestFailed("id") / LineDone("id")
	for name, kind := range map[string]string{
		"QuestDone":   "quest_done",
		"QuestFailed": "quest_fail",
		"LineDone":    "line_done",
	} {
		k := kind
		L.SetGlobal(name, L.NewFunction(func(L *lua.LState) int {
			ref := L.CheckString(1)
			tbl := condTable(L, k)
			tbl.RawSetString("ref", lua.LString(ref))
			L.Push(tbl)
			return 1
		}))
	}
}

// taskTable builds a task table with a kind tag, id, and name.
func taskTable(L *lua.LState, kind, id, name string) *lua.LTable {
	tbl := L.NewTable()
	tbl.RawSetString("__task", lua.LString(kind))
	tbl.RawSetString("id", lua.LString(id))
	tbl.RawSetString("name", lua.LString(name))
	return tbl
}

// appendConds appends varargs condition tables starting at stack index
// from into the task's conds array.
func appendConds(L *lua.LState, tbl *lua.LTable, from int) {
	conds := L.NewTable()
	n := 0
	for i := from; i <= L.GetTop(); i++ {
		if c, ok := L.Get(i).(*lua.LTable); ok {
			n++
			conds.RawSetInt(n, c)
		}
	}
	tbl.RawSetString("conds", conds)
}

func registerTaskHelpers(L *lua.LState) {
	// BoolTask("id", "name", cond...)
	L.SetGlobal("BoolTask", L.NewFunction(func(L *lua.LState) int {
		tbl := taskTable(L, "bool", L.CheckString(1), L.CheckString(2))
		appendConds(L, tbl, 3)
		L.Push(tbl)
		return 1
	}))

	// CountTask("id", "name", required, cond...)
	L.SetGlobal("CountTask", L.NewFunction(func(L *lua.LState) int {
		tbl := taskTable(L, "count", L.CheckString(1), L.CheckString(2))
		tbl.RawSetString("required", L.CheckNumber(3))
		appendConds(L, tbl, 4)
		L.Push(tbl)
		return 1
	}))

	// MatchTask("id", "name", "channel", "target") — case-sensitive
	// string equality against the channel payload.
	L.SetGlobal("MatchTask", L.NewFunction(func(L *lua.LState) int {
		tbl := taskTable(L, "match", L.CheckString(1), L.CheckString(2))
		tbl.RawSetString("channel", lua.LString(L.CheckString(3)))
		tbl.RawSetString("target", lua.LString(L.CheckString(4)))
		L.Push(tbl)
		return 1
	}))

	// LocationTask("id", "name", "place") — location-entered equality.
	L.SetGlobal("LocationTask", L.NewFunction(func(L *lua.LState) int {
		tbl := taskTable(L, "location", L.CheckString(1), L.CheckString(2))
		tbl.RawSetString("target", lua.LString(L.CheckString(3)))
		L.Push(tbl)
		return 1
	}))

	// DiscoveryTask("id", "name", required, { cond, ... }) — required 0
	// means all.
	L.SetGlobal("DiscoveryTask", L.NewFunction(func(L *lua.LState) int {
		tbl := taskTable(L, "discovery", L.CheckString(1), L.CheckString(2))
		tbl.RawSetString("required", L.CheckNumber(3))
		tbl.RawSetString("conds", L.CheckTable(4))
		L.Push(tbl)
		return 1
	}))

	// TimedTask("id", "name", limitSeconds, failQuestOnExpire, cond...)
	L.SetGlobal("TimedTask", L.NewFunction(func(L *lua.LState) int {
		tbl := taskTable(L, "timed", L.CheckString(1), L.CheckString(2))
		tbl.RawSetString("limit", L.CheckNumber(3))
		tbl.RawSetString("fail_quest", lua.LBool(L.CheckBool(4)))
		appendConds(L, tbl, 5)
		L.Push(tbl)
		return 1
	}))

	// FailsOn(task, cond...) — attach dedicated failure conditions.
	L.SetGlobal("FailsOn", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		fails := L.NewTable()
		n := 0
		for i := 2; i <= L.GetTop(); i++ {
			if c, ok := L.Get(i).(*lua.LTable); ok {
				n++
				fails.RawSetInt(n, c)
			}
		}
		tbl.RawSetString("fail_conds", fails)
		L.Push(tbl)
		return 1
	}))

	// Describe(task, "text") — attach display description.
	L.SetGlobal("Describe", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		tbl.RawSetString("description", lua.LString(L.CheckString(2)))
		L.Push(tbl)
		return 1
	}))
}

func registerGroupHelpers(L *lua.LState) {
	// Sequential "name" { task, ... } — curried; same for Parallel and
	// AnyOrder.
	for name, mode := range map[string]string{
		"Sequential": "sequential",
		"Parallel":   "parallel",
		"AnyOrder":   "any_order",
	} {
		m := mode
		L.SetGlobal(name, L.NewFunction(func(L *lua.LState) int {
			groupName := L.CheckString(1)
			L.Push(L.NewFunction(func(L *lua.LState) int {
				tasks := L.CheckTable(1)
				tbl := L.NewTable()
				tbl.RawSetString("__group", lua.LString(m))
				tbl.RawSetString("name", lua.LString(groupName))
				tbl.RawSetString("tasks", tasks)
				L.Push(tbl)
				return 1
			}))
			return 1
		}))
	}

	// Optional("name", required) { task, ... } — curried X-of-Y group.
	L.SetGlobal("Optional", L.NewFunction(func(L *lua.LState) int {
		groupName := L.CheckString(1)
		required := L.CheckNumber(2)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tasks := L.CheckTable(1)
			tbl := L.NewTable()
			tbl.RawSetString("__group", lua.LString("optional"))
			tbl.RawSetString("name", lua.LString(groupName))
			tbl.RawSetString("required", required)
			tbl.RawSetString("tasks", tasks)
			L.Push(tbl)
			return 1
		}))
		return 1
	}))
}

func registerTransitionHelpers(L *lua.LState) {
	// Auto { to = "stage", when = cond, set = "flag", value = true }
	L.SetGlobal("Auto", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		tbl.RawSetString("__transition", lua.LString("auto"))
		L.Push(tbl)
		return 1
	}))

	// Choice { label = "...", to = "stage", when = cond, set = "flag" }
	L.SetGlobal("Choice", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		tbl.RawSetString("__transition", lua.LString("choice"))
		L.Push(tbl)
		return 1
	}))
}
