package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestTimer_RunsAgainOnlyAfterScheduleNext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tm := NewTimer(zap.NewNop(), "web", Interval(5*time.Millisecond))
	var runs int32
	tm.Start(ctx, func(context.Context) {
		atomic.AddInt32(&runs, 1)
	})

	waitFor(t, func() bool { return atomic.LoadInt32(&runs) == 1 })
	time.Sleep(30 * time.Millisecond)
	if n := atomic.LoadInt32(&runs); n != 1 {
		t.Fatalf("ran %d times without ScheduleNext", n)
	}

	tm.ScheduleNext()
	waitFor(t, func() bool { return atomic.LoadInt32(&runs) == 2 })
}

func TestTimer_CyclesNeverOverlap(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tm := NewTimer(zap.NewNop(), "web", Interval(time.Millisecond))
	var inflight, overlap, runs int32
	tm.Start(ctx, func(context.Context) {
		defer tm.ScheduleNext()
		if atomic.AddInt32(&inflight, 1) > 1 {
			atomic.StoreInt32(&overlap, 1)
		}
		time.Sleep(3 * time.Millisecond)
		atomic.AddInt32(&inflight, -1)
		atomic.AddInt32(&runs, 1)
	})

	waitFor(t, func() bool { return atomic.LoadInt32(&runs) >= 5 })
	tm.Stop()
	if atomic.LoadInt32(&overlap) != 0 {
		t.Fatalf("cycles overlapped")
	}
}

func TestTimer_DuplicateScheduleNextArmsOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tm := NewTimer(zap.NewNop(), "web", Interval(10*time.Millisecond))
	var runs int32
	started := make(chan struct{})
	tm.Start(ctx, func(context.Context) {
		if atomic.AddInt32(&runs, 1) == 1 {
			close(started)
		}
	})
	<-started

	tm.ScheduleNext()
	tm.ScheduleNext()
	tm.ScheduleNext()

	waitFor(t, func() bool { return atomic.LoadInt32(&runs) == 2 })
	time.Sleep(40 * time.Millisecond)
	if n := atomic.LoadInt32(&runs); n != 2 {
		t.Fatalf("want 2 runs, got %d", n)
	}
}

func TestTimer_StopAndCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tm := NewTimer(zap.NewNop(), "web", Interval(20*time.Millisecond))
	var runs int32
	started := make(chan struct{})
	tm.Start(ctx, func(context.Context) {
		if atomic.AddInt32(&runs, 1) == 1 {
			close(started)
		}
	})
	<-started

	tm.ScheduleNext()
	cancel()
	waitFor(t, func() bool {
		tm.mu.Lock()
		defer tm.mu.Unlock()
		return tm.stopped
	})
	time.Sleep(40 * time.Millisecond)
	if n := atomic.LoadInt32(&runs); n != 1 {
		t.Fatalf("run after cancel: %d", n)
	}

	tm.ScheduleNext()
	tm.Stop()
}

func TestNewSchedule(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 30, 0, time.UTC)

	s, err := New(30*time.Second, "")
	if err != nil || s.Next(base) != base.Add(30*time.Second) {
		t.Fatalf("interval: %v %v", s, err)
	}

	s, err = New(0, "*/5 * * * *")
	if err != nil {
		t.Fatalf("cron: %v", err)
	}
	if got := s.Next(base); !got.Equal(time.Date(2024, 5, 1, 10, 5, 0, 0, time.UTC)) {
		t.Fatalf("cron next = %s", got)
	}

	if _, err := New(0, "@every 1m"); err != nil {
		t.Fatalf("descriptor: %v", err)
	}

	bad := []struct {
		interval time.Duration
		cron     string
	}{
		{0, ""},
		{-time.Second, ""},
		{time.Second, "* * * * *"},
		{0, "not a cron"},
	}
	for _, b := range bad {
		if _, err := New(b.interval, b.cron); err == nil {
			t.Fatalf("want error for %v/%q", b.interval, b.cron)
		}
	}
}
