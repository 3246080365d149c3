// Package reward defines the reward sink boundary. The engine calls Grant
// exactly once per reward on quest completion; actual inventory or
// currency mutation belongs to the host.
package reward

import "log/slog"

// Sink receives reward grants.
type Sink interface {
	Grant(kind string, amount int)
}

// LogSink logs grants without applying them. Suitable as a host default.
type LogSink struct {
	Log *slog.Logger
}

// Grant logs the reward.
func (s *LogSink) Grant(kind string, amount int) {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("reward granted", "kind", kind, "amount", amount)
}

// Grant records one granted reward.
type Grant struct {
	Kind   string
	Amount int
}

// MemorySink records grants in order, for tests and host inspection.
type MemorySink struct {
	Grants []Grant
}

// Grant appends the reward to the record.
func (s *MemorySink) Grant(kind string, amount int) {
	s.Grants = append(s.Grants, Grant{Kind: kind, Amount: amount})
}
