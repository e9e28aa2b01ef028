package engine

import (
	"context"
	"testing"
	"time"
)

func TestEngineRunsTickBudget(t *testing.T) {
	e := NewEngine()
	e.MaxTicks = 5
	e.ReportEvery = 2

	var ticks, reports []uint64
	e.OnTick = func(tick uint64) { ticks = append(ticks, tick) }
	e.OnReport = func(tick uint64) { reports = append(reports, tick) }

	e.Run(context.Background())

	if len(ticks) != 5 || ticks[4] != 5 {
		t.Fatalf("ticks=%v want 1..5", ticks)
	}
	if len(reports) != 2 || reports[0] != 2 || reports[1] != 4 {
		t.Fatalf("reports=%v want [2 4]", reports)
	}
	if e.Tick() != 5 || e.Running() {
		t.Fatalf("tick=%d running=%v", e.Tick(), e.Running())
	}
}

func TestEngineStopFromCallback(t *testing.T) {
	e := NewEngine()
	e.OnTick = func(tick uint64) {
		if tick == 3 {
			e.Stop()
		}
	}
	e.Run(context.Background())
	if e.Tick() != 3 {
		t.Fatalf("tick=%d want 3", e.Tick())
	}
}

func TestEngineHonorsContextWhilePaused(t *testing.T) {
	e := NewEngine()
	e.SetSpeed(0)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop on context cancel")
	}
	if e.Tick() != 0 {
		t.Fatalf("paused engine ticked %d times", e.Tick())
	}
}

func TestEngineSpeedClampsNegative(t *testing.T) {
	e := NewEngine()
	e.SetSpeed(-3)
	if e.Speed() != 0 {
		t.Fatalf("speed=%v want 0", e.Speed())
	}
}
