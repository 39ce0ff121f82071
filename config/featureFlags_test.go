package config

import (
	"testing"
	"time"
)

func TestFollowUpStaleAfter(t *testing.T) {
	tests := []struct {
		env  string
		want time.Duration
	}{
		{"", 5 * time.Minute},
		{"60", time.Minute},
		{"0", 5 * time.Minute},
		{"soon", 5 * time.Minute},
	}
	for _, tt := range tests {
		t.Setenv("FOLLOW_UP_STALE_AFTER_SECONDS", tt.env)
		if got := FollowUpStaleAfter(); got != tt.want {
			t.Fatalf("env %q: want %s got %s", tt.env, tt.want, got)
		}
	}
}
