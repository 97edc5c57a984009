package sqlite

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"lt-go/internal/testutil"
)

func TestRelayScheduler_RunsOnSchedule(t *testing.T) {
	ran := make(chan struct{}, 16)
	s := newRelayScheduler(func() error {
		ran <- struct{}{}
		return nil
	}, testutil.NewRecordingLogger())
	defer s.Stop()

	s.Schedule()

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("relay did not run after Schedule()")
	}
}

func TestRelayScheduler_CoalescesKicks(t *testing.T) {
	var runs atomic.Int64
	started := make(chan struct{})
	release := make(chan struct{})

	s := newRelayScheduler(func() error {
		if runs.Add(1) == 1 {
			close(started)
			<-release
		}
		return nil
	}, testutil.NewRecordingLogger())
	defer s.Stop()

	s.Schedule()
	<-started

	// Many kicks while a run is in flight coalesce into one pending run.
	for i := 0; i < 10; i++ {
		s.Schedule()
	}
	close(release)

	deadline := time.After(5 * time.Second)
	for runs.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("runs = %d, want the coalesced follow-up run", runs.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}

	// Settle, then confirm no extra runs were queued.
	time.Sleep(100 * time.Millisecond)
	if n := runs.Load(); n != 2 {
		t.Errorf("runs = %d, want exactly 2", n)
	}
}

func TestRelayScheduler_StopWaitsForLoop(t *testing.T) {
	s := newRelayScheduler(func() error { return nil }, testutil.NewRecordingLogger())

	s.Stop()

	// A second Stop must not panic or hang.
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second Stop() did not return")
	}
}

func TestRelayScheduler_StopInterruptsRetryBackoff(t *testing.T) {
	logger := testutil.NewRecordingLogger()
	s := newRelayScheduler(func() error {
		return fmt.Errorf("mirror unavailable")
	}, logger)

	s.Schedule()

	// Wait for the first failure to be logged, then Stop must return without
	// waiting out the backoff.
	deadline := time.After(5 * time.Second)
	for logger.CountLevel("ERROR") == 0 {
		select {
		case <-deadline:
			t.Fatal("relay failure never logged")
		case <-time.After(10 * time.Millisecond):
		}
	}

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() blocked on retry backoff")
	}
}
