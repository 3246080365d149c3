package loader

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/questweave/engine"
)

// collector accumulates Lua definitions during file execution.
type collector struct {
	quests   []rawQuest
	lines    []rawLine
	channels []rawChannel
}

// rawQuest holds a quest table before compilation.
type rawQuest struct {
	id    string
	table *lua.LTable
}

// rawLine holds a quest-line table before compilation.
type rawLine struct {
	id    string
	table *lua.LTable
}

// rawChannel holds a custom channel declaration.
type rawChannel struct {
	name string
	kind string
}

// Load reads all .lua files from dir, compiles them into the content
// catalog, and validates referential integrity. Invalid definitions are
// dropped with a logged error; Load itself fails only when the directory
// is unreadable, a file does not execute, or no valid quest survives.
// The Lua VM is discarded after loading.
func Load(dir string, log *slog.Logger) (*engine.Catalog, error) {
	if log == nil {
		log = slog.Default()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading content directory %s: %w", dir, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".lua") {
			luaFiles = append(luaFiles, e.Name())
		}
	}
	if len(luaFiles) == 0 {
		return nil, fmt.Errorf("no .lua files found in %s", dir)
	}
	luaFiles = sortedLuaFiles(luaFiles)

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	openSafeLibs(L)
	sandbox(L)

	coll := &collector{}
	registerAPI(L, coll)

	for _, f := range luaFiles {
		path := filepath.Join(dir, f)
		if err := L.DoFile(path); err != nil {
			return nil, fmt.Errorf("executing %s: %w", f, err)
		}
	}

	cat, err := compile(coll, log)
	if err != nil {
		return nil, fmt.Errorf("compiling content: %w", err)
	}

	validate(cat, log)

	if len(cat.Quests) == 0 {
		return nil, fmt.Errorf("no valid quest definitions in %s", dir)
	}
	return cat, nil
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// sandbox removes dangerous globals and functions.
func sandbox(L *lua.LState) {
	dangerous := []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawset", "rawget", "rawequal",
		"collectgarbage",
	}
	for _, name := range dangerous {
		L.SetGlobal(name, lua.LNil)
	}
	if mathTbl := L.GetGlobal("math"); mathTbl != lua.LNil {
		if tbl, ok := mathTbl.(*lua.LTable); ok {
			tbl.RawSetString("randomseed", lua.LNil)
		}
	}
}

// sortedLuaFiles returns .lua files with game.lua first and the rest
// sorted alphabetically.
func sortedLuaFiles(files []string) []string {
	var gameFile string
	var others []string
	for _, f := range files {
		if f == "game.lua" {
			gameFile = f
		} else {
			others = append(others, f)
		}
	}
	sort.Strings(others)
	if gameFile != "" {
		return append([]string{gameFile}, others...)
	}
	return others
}
