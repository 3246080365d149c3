package events

import "github.com/nathoo/questweave/types"

// Payload constructors for the five payload kinds.

// None returns an empty payload for signal-only channels.
func None() types.Payload {
	return types.Payload{Kind: types.PayloadNone}
}

// Bool returns a boolean payload.
func Bool(v bool) types.Payload {
	return types.Payload{Kind: types.PayloadBool, Bool: v}
}

// Int returns an integer payload.
func Int(v int) types.Payload {
	return types.Payload{Kind: types.PayloadInt, Int: v}
}

// String returns a string payload.
func String(v string) types.Payload {
	return types.Payload{Kind: types.PayloadString, Str: v}
}

// ID returns an identifier payload.
func ID(v string) types.Payload {
	return types.Payload{Kind: types.PayloadID, Str: v}
}
