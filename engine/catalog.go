package engine

import "github.com/nathoo/questweave/types"

// Catalog holds the immutable content definitions loaded from Lua.
// The order slices preserve declaration order for deterministic listings.
type Catalog struct {
	Quests   map[string]types.QuestDef
	Lines    map[string]types.QuestLineDef
	Channels []types.ChannelDef // content-declared channels beyond the standard table

	QuestOrder []string
	LineOrder  []string
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		Quests: map[string]types.QuestDef{},
		Lines:  map[string]types.QuestLineDef{},
	}
}

// AddQuest registers a quest definition, preserving order.
func (c *Catalog) AddQuest(def types.QuestDef) {
	if _, ok := c.Quests[def.ID]; !ok {
		c.QuestOrder = append(c.QuestOrder, def.ID)
	}
	c.Quests[def.ID] = def
}

// AddLine registers a quest-line definition, preserving order.
func (c *Catalog) AddLine(def types.QuestLineDef) {
	if _, ok := c.Lines[def.ID]; !ok {
		c.LineOrder = append(c.LineOrder, def.ID)
	}
	c.Lines[def.ID] = def
}
