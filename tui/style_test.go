package tui

import "testing"

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		line string
		want lineKind
	}{
		{"Quest started: patrol", kindStarted},
		{"Quest-line available: bandit-arc", kindStarted},
		{"Quest completed: patrol", kindCompleted},
		{"Quest-line completed: bandit-arc", kindCompleted},
		{"Quest failed: patrol", kindFailed},
		{"Quest stuck: patrol", kindFailed},
		{"[trace] active:1 completed:0 failed:0 clock:0.0s", kindTrace},
		{"[Progress saved to test.save.json.]", kindSystem},
		{"Unknown command: frob. Type help for the command list.", kindError},
		{"Usage: raise <channel> [value]", kindError},
		{`Cannot choose "Mercy". Available: Spare him.`, kindError},
		{`No quest matches "ghost".`, kindError},
		{"Which quest? patrol matches: patrol-east, patrol-west.", kindError},
		{"  patrol    in progress    0%  Patrol", kindText},
	}
	for _, tt := range tests {
		if got := classifyLine(tt.line); got != tt.want {
			t.Errorf("classifyLine(%q) = %d, want %d", tt.line, got, tt.want)
		}
	}
}
