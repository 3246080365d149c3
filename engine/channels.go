// Package engine provides the manager: the process-wide coordinator that
// holds the content catalog, the runtime registry buckets, and the event
// bus, and routes cross-entity notifications between quests and
// quest-lines.
package engine

import (
	"github.com/nathoo/questweave/engine/events"
	"github.com/nathoo/questweave/types"
)

// Standard gameplay channels and their payload kinds. Hosts raise these;
// content references them by name. Content may declare further channels
// of its own.
var StandardChannels = []types.ChannelDef{
	{Name: "location-entered", Kind: types.PayloadID},
	{Name: "location-attacked", Kind: types.PayloadID},
	{Name: "monster-killed", Kind: types.PayloadNone},
	{Name: "npc-killed", Kind: types.PayloadID},
	{Name: "boss-defeated", Kind: types.PayloadID},
	{Name: "enemy-alert", Kind: types.PayloadNone},
	{Name: "goblins-escaped", Kind: types.PayloadInt},
	{Name: "npc-dialogue-complete", Kind: types.PayloadID},
	{Name: "interrogation-string", Kind: types.PayloadString},
	{Name: "item-discovered", Kind: types.PayloadID},
	{Name: "item-collected", Kind: types.PayloadID},
	{Name: "item-destroyed", Kind: types.PayloadID},
	{Name: "goods-destroyed", Kind: types.PayloadInt},
	{Name: "player-level-up", Kind: types.PayloadInt},
	{Name: "player-death", Kind: types.PayloadBool},
}

// DeclareStandard registers the gameplay channel table on a bus.
func DeclareStandard(b *events.Bus) {
	for _, ch := range StandardChannels {
		b.Declare(ch.Name, ch.Kind)
	}
}

// ChannelKind returns the payload kind of a standard channel, or
// ("", false) for names outside the table.
func ChannelKind(name string) (types.PayloadKind, bool) {
	for _, ch := range StandardChannels {
		if ch.Name == name {
			return ch.Kind, true
		}
	}
	return "", false
}
