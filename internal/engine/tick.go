// Package engine provides the polarization simulation and the tick loop
// that drives it.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Engine drives a simulation forward one tick at a time.
type Engine struct {
	Interval    time.Duration // Base tick interval at speed 1. Zero runs flat out.
	MaxTicks    uint64        // Tick budget; zero means unbounded
	ReportEvery uint64        // Ticks between OnReport calls; zero disables

	// Callbacks, populated during setup.
	OnTick   func(tick uint64) // Every tick
	OnReport func(tick uint64) // Every ReportEvery ticks

	mu      sync.Mutex
	tick    uint64
	speed   float64
	running atomic.Bool
}

// NewEngine creates an engine at speed 1 with no pacing.
func NewEngine() *Engine {
	return &Engine{speed: 1.0}
}

// Tick returns the number of ticks the engine has run.
func (e *Engine) Tick() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}

// Speed returns the current speed multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the speed multiplier: 1.0 = one tick per Interval, 0 = paused.
func (e *Engine) SetSpeed(speed float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if speed < 0 {
		speed = 0
	}
	e.speed = speed
}

// Running reports whether Run is active.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Run steps until the tick budget is spent, Stop is called, or ctx ends.
func (e *Engine) Run(ctx context.Context) {
	e.running.Store(true)
	defer e.running.Store(false)
	slog.Info("simulation engine started", "tick", e.Tick(), "speed", e.Speed(), "max_ticks", e.MaxTicks)

	for e.running.Load() {
		if ctx.Err() != nil {
			break
		}
		if e.MaxTicks > 0 && e.Tick() >= e.MaxTicks {
			slog.Info("tick budget reached", "tick", e.Tick())
			break
		}

		speed := e.Speed()
		if speed <= 0 {
			// Paused; sleep briefly and check again.
			sleep(ctx, 100*time.Millisecond)
			continue
		}

		start := time.Now()
		e.step()

		// Sleep for the remainder of the tick interval, adjusted for speed.
		target := time.Duration(float64(e.Interval) / speed)
		if elapsed := time.Since(start); elapsed < target {
			sleep(ctx, target-elapsed)
		}
	}

	slog.Info("simulation engine stopped", "tick", e.Tick())
}

// Stop halts the loop after the current tick.
func (e *Engine) Stop() {
	e.running.Store(false)
}

// step advances the engine by one tick.
func (e *Engine) step() {
	e.mu.Lock()
	e.tick++
	tick := e.tick
	e.mu.Unlock()

	if e.OnTick != nil {
		e.OnTick(tick)
	}
	if e.ReportEvery > 0 && tick%e.ReportEvery == 0 && e.OnReport != nil {
		e.OnReport(tick)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
