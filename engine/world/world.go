// Package world defines the world-flag store boundary. Flags are read by
// gating conditions and written as the committed side effect of taking a
// player-choice transition.
package world

// FlagStore is the external flag collaborator. Unset flags read as false.
type FlagStore interface {
	Flag(name string) bool
	SetFlag(name string, value bool)
}

// Flags is the in-memory FlagStore. OnChange, when set, fires after every
// write whose value actually changed, so flag conditions can re-evaluate.
type Flags struct {
	values   map[string]bool
	OnChange func(name string, value bool)
}

// NewFlags creates an empty in-memory flag store.
func NewFlags() *Flags {
	return &Flags{values: map[string]bool{}}
}

// Flag returns the value of a flag.
func (f *Flags) Flag(name string) bool {
	return f.values[name]
}

// SetFlag writes a flag and notifies OnChange if the value changed.
func (f *Flags) SetFlag(name string, value bool) {
	if f.values[name] == value {
		return
	}
	f.values[name] = value
	if f.OnChange != nil {
		f.OnChange(name, value)
	}
}

// Map returns a copy of all set flags, for snapshots.
func (f *Flags) Map() map[string]bool {
	m := make(map[string]bool, len(f.values))
	for k, v := range f.values {
		m[k] = v
	}
	return m
}

// Replace swaps in the given flag values without firing OnChange.
// Used by snapshot restore, which must not re-run side effects.
func (f *Flags) Replace(values map[string]bool) {
	if values == nil {
		values = map[string]bool{}
	}
	f.values = values
}
