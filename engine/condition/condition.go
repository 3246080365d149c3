// Package condition implements the predicate engine: event conditions
// that watch a channel, composites over child conditions, and gating
// conditions over flags and quest or quest-line lifecycle state.
//
// A condition is used two ways: passively via Evaluate, or event-driven
// via Subscribe, which invokes the completion callback the instant the
// predicate holds. Unknown kinds and undefined comparisons evaluate to
// false rather than erroring.
package condition

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/nathoo/questweave/engine/events"
	"github.com/nathoo/questweave/engine/world"
	"github.com/nathoo/questweave/types"
)

// StateSource reports quest and quest-line lifecycle state for gating
// conditions. The manager implements it.
type StateSource interface {
	QuestCompleted(id string) bool
	QuestFailed(id string) bool
	LineCompleted(id string) bool
}

// Env supplies the collaborators conditions evaluate against.
type Env struct {
	Bus    *events.Bus
	Flags  world.FlagStore
	States StateSource
	Log    *slog.Logger
}

func (e *Env) logger() *slog.Logger {
	if e.Log == nil {
		return slog.Default()
	}
	return e.Log
}

// Condition is the runtime form of a ConditionDef.
type Condition struct {
	def      types.ConditionDef
	env      *Env
	children []*Condition

	subs  []*events.Subscription
	onMet func()

	seen bool
	last types.Payload
}

// New builds a condition tree from a definition. Children are built
// recursively; definitions hold children by value so the tree is a DAG by
// construction.
func New(def types.ConditionDef, env *Env) *Condition {
	c := &Condition{def: def, env: env}
	for _, child := range def.Children {
		c.children = append(c.children, New(child, env))
	}
	return c
}

// Def returns the underlying definition.
func (c *Condition) Def() types.ConditionDef { return c.def }

// LastPayload returns the most recent payload seen while subscribed.
// Count tasks read it to add payload amounts.
func (c *Condition) LastPayload() (types.Payload, bool) {
	return c.last, c.seen
}

// Evaluate applies the predicate and then the inversion flag. An event
// condition that has seen no payload evaluates to false.
func (c *Condition) Evaluate() bool {
	switch c.def.Kind {
	case types.CondEvent:
		if !c.seen {
			return false
		}
		return c.def.Invert != compare(c.last, c.def.Op, c.def.Target)

	case types.CondAllOf:
		result := true
		for _, child := range c.children {
			if !child.Evaluate() {
				result = false
				break
			}
		}
		return c.def.Invert != result

	case types.CondAnyOf:
		result := false
		for _, child := range c.children {
			if child.Evaluate() {
				result = true
				break
			}
		}
		return c.def.Invert != result

	case types.CondFlag:
		return c.def.Invert != (c.env.Flags.Flag(c.def.Flag) == c.def.FlagValue)

	case types.CondQuestDone:
		return c.def.Invert != c.env.States.QuestCompleted(c.def.Ref)

	case types.CondQuestFail:
		return c.def.Invert != c.env.States.QuestFailed(c.def.Ref)

	case types.CondLineDone:
		return c.def.Invert != c.env.States.LineCompleted(c.def.Ref)

	default:
		// Fail closed: unknown kinds are false, inversion does not apply.
		return false
	}
}

// Subscribe wires the condition to its channels and registers the
// completion callback. Subscribing an already-subscribed condition is a
// no-op. The callback fires on every qualifying notification, not just
// the first; the owner unsubscribes on terminal transitions.
func (c *Condition) Subscribe(onMet func()) {
	if c.onMet != nil {
		return
	}
	c.onMet = onMet

	switch c.def.Kind {
	case types.CondEvent:
		ch := c.env.Bus.Lookup(c.def.Channel)
		if ch == nil {
			c.env.logger().Warn("condition on undeclared channel", "channel", c.def.Channel)
			return
		}
		c.subs = append(c.subs, ch.Subscribe(func(p types.Payload) {
			// Dispatch walks a snapshot of listeners, so this can still
			// run after Unsubscribe cancelled it mid-dispatch. A stopped
			// condition must not record the payload or fire.
			if c.onMet == nil {
				return
			}
			c.seen = true
			c.last = p
			if c.def.Invert != compare(p, c.def.Op, c.def.Target) {
				c.onMet()
			}
		}))

	case types.CondAllOf, types.CondAnyOf:
		for _, child := range c.children {
			child.Subscribe(func() {
				if c.Evaluate() {
					c.onMet()
				}
			})
		}

	case types.CondFlag:
		c.watch(events.ChanFlagChanged, c.def.Flag)

	case types.CondQuestDone, types.CondQuestFail:
		c.watch(events.ChanQuestCompleted, c.def.Ref)
		c.watch(events.ChanQuestFailed, c.def.Ref)
		c.watch(events.ChanQuestStarted, c.def.Ref)

	case types.CondLineDone:
		c.watch(events.ChanLineCompleted, c.def.Ref)
		c.watch(events.ChanLineAvailable, c.def.Ref)
	}
}

// watch subscribes to an internal notification channel, re-evaluating the
// condition whenever the notification names the watched entity.
func (c *Condition) watch(channel, ref string) {
	ch := c.env.Bus.Lookup(channel)
	if ch == nil {
		return
	}
	c.subs = append(c.subs, ch.Subscribe(func(p types.Payload) {
		// See the event closure: guard against cancellation mid-dispatch.
		if c.onMet == nil || p.Str != ref {
			return
		}
		if c.Evaluate() {
			c.onMet()
		}
	}))
}

// Unsubscribe cancels all channel subscriptions, recursively. Idempotent.
func (c *Condition) Unsubscribe() {
	for _, s := range c.subs {
		s.Cancel()
	}
	c.subs = nil
	for _, child := range c.children {
		child.Unsubscribe()
	}
	c.onMet = nil
}

// Reset clears the remembered payload so a restarted owner sees a fresh
// condition. Subscriptions must already be cancelled.
func (c *Condition) Reset() {
	c.seen = false
	c.last = types.Payload{}
	for _, child := range c.children {
		child.Reset()
	}
}

// compare applies op to (payload, target). Equals and NotEquals are
// defined for every payload kind; ordered operators only for int payloads
// and fail closed elsewhere.
func compare(p types.Payload, op types.CompareOp, target types.Payload) bool {
	// An unset target matches any payload: a bare event condition fires
	// on every raise of its channel.
	if target.Kind == "" {
		return op == types.OpEquals || op == ""
	}
	switch op {
	case types.OpEquals, "":
		return payloadEqual(p, target)
	case types.OpNotEquals:
		return !payloadEqual(p, target)
	}

	if p.Kind != types.PayloadInt || target.Kind != types.PayloadInt {
		return false
	}
	switch op {
	case types.OpGreaterThan:
		return p.Int > target.Int
	case types.OpGreaterOrEqual:
		return p.Int >= target.Int
	case types.OpLessThan:
		return p.Int < target.Int
	case types.OpLessOrEqual:
		return p.Int <= target.Int
	default:
		return false
	}
}

func payloadEqual(a, b types.Payload) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case types.PayloadNone:
		return true
	case types.PayloadBool:
		return a.Bool == b.Bool
	case types.PayloadInt:
		return a.Int == b.Int
	case types.PayloadString, types.PayloadID:
		return a.Str == b.Str
	default:
		return false
	}
}

// Describe renders the condition as human-readable gate text for the UI
// projection.
func (c *Condition) Describe() string {
	body := c.describeBody()
	if c.def.Invert {
		return "not " + body
	}
	return body
}

func (c *Condition) describeBody() string {
	switch c.def.Kind {
	case types.CondEvent:
		if c.def.Target.Kind == types.PayloadNone || c.def.Target.Kind == "" {
			return c.def.Channel
		}
		return fmt.Sprintf("%s %s %s", c.def.Channel, opText(c.def.Op), payloadText(c.def.Target))
	case types.CondAllOf:
		return "(" + strings.Join(c.describeChildren(), " and ") + ")"
	case types.CondAnyOf:
		return "(" + strings.Join(c.describeChildren(), " or ") + ")"
	case types.CondFlag:
		return fmt.Sprintf("flag %s is %v", c.def.Flag, c.def.FlagValue)
	case types.CondQuestDone:
		return fmt.Sprintf("quest %s completed", c.def.Ref)
	case types.CondQuestFail:
		return fmt.Sprintf("quest %s failed", c.def.Ref)
	case types.CondLineDone:
		return fmt.Sprintf("quest-line %s completed", c.def.Ref)
	default:
		return "unknown"
	}
}

func (c *Condition) describeChildren() []string {
	parts := make([]string, 0, len(c.children))
	for _, child := range c.children {
		parts = append(parts, child.Describe())
	}
	return parts
}

func opText(op types.CompareOp) string {
	switch op {
	case types.OpNotEquals:
		return "!="
	case types.OpGreaterThan:
		return ">"
	case types.OpGreaterOrEqual:
		return ">="
	case types.OpLessThan:
		return "<"
	case types.OpLessOrEqual:
		return "<="
	default:
		return "=="
	}
}

func payloadText(p types.Payload) string {
	switch p.Kind {
	case types.PayloadBool:
		return fmt.Sprintf("%v", p.Bool)
	case types.PayloadInt:
		return fmt.Sprintf("%d", p.Int)
	case types.PayloadString, types.PayloadID:
		return p.Str
	default:
		return "(none)"
	}
}

// NewAll builds one runtime condition per definition.
func NewAll(defs []types.ConditionDef, env *Env) []*Condition {
	conds := make([]*Condition, 0, len(defs))
	for _, def := range defs {
		conds = append(conds, New(def, env))
	}
	return conds
}

// EvalAll reports whether every condition holds. An empty list is
// vacuously true.
func EvalAll(conds []*Condition) bool {
	for _, c := range conds {
		if !c.Evaluate() {
			return false
		}
	}
	return true
}
