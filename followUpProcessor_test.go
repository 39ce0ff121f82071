package main

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type stubRunner struct {
	processed, failed int
	err               error
	calls             int
}

func (s *stubRunner) ProcessPendingFollowUps(_ context.Context, _ int) (int, int, error) {
	s.calls++
	return s.processed, s.failed, s.err
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestFollowUpProcessor_ProcessOnce(t *testing.T) {
	tests := []struct {
		name       string
		runner     *stubRunner
		wantFailed bool
	}{
		{name: "nothing pending", runner: &stubRunner{}},
		{name: "all applied", runner: &stubRunner{processed: 3}},
		{name: "some failed", runner: &stubRunner{processed: 3, failed: 1}, wantFailed: true},
		{name: "listing failed", runner: &stubRunner{err: errors.New("store down")}, wantFailed: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &FollowUpProcessor{Service: tt.runner, Logger: quietLogger(), BatchSize: 10, Interval: time.Second}
			if got := p.processOnce(context.Background()); got != tt.wantFailed {
				t.Fatalf("want failed=%v got %v", tt.wantFailed, got)
			}
		})
	}
}

func TestFollowUpProcessor_NextDelayBacksOff(t *testing.T) {
	p := &FollowUpProcessor{Interval: time.Second, MaxBackoff: 10 * time.Second}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 10 * time.Second, 10 * time.Second}
	for rounds, w := range want {
		if got := p.nextDelay(rounds); got != w {
			t.Fatalf("rounds=%d: want %s got %s", rounds, w, got)
		}
	}
}

func TestFollowUpProcessor_RunStopsOnCancel(t *testing.T) {
	runner := &stubRunner{}
	p := &FollowUpProcessor{Service: runner, Logger: quietLogger(), BatchSize: 10, Interval: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
	if runner.calls != 1 {
		t.Fatalf("expected one round before the wait, got %d", runner.calls)
	}
}
