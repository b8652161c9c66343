package domain

import (
	"testing"
	"time"
)

func TestJobState_Terminal(t *testing.T) {
	tests := []struct {
		state JobState
		want  bool
	}{
		{StatePreparing, false},
		{StateActive, false},
		{StateCompleted, true},
		{StateFailed, true},
		{StateRemoved, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.Terminal(); got != tt.want {
				t.Errorf("%s.Terminal() = %v, want %v", tt.state, got, tt.want)
			}
		})
	}
}

func TestJob_Fields(t *testing.T) {
	now := time.Now()
	job := Job{
		GID:          "2089b05ecca3d829",
		Owner:        42,
		Name:         "file.iso",
		Conversation: 1001,
		StartedAt:    now,
		State:        StatePreparing,
	}

	if job.GID != "2089b05ecca3d829" {
		t.Errorf("GID = %q, want %q", job.GID, "2089b05ecca3d829")
	}
	if job.Owner != 42 {
		t.Errorf("Owner = %d, want 42", job.Owner)
	}
	if job.State != StatePreparing {
		t.Errorf("State = %q, want %q", job.State, StatePreparing)
	}
}
