package cli

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/talgya/polarsim/internal/agents"
	"github.com/talgya/polarsim/internal/calibration"
	"github.com/talgya/polarsim/internal/engine"
	"github.com/talgya/polarsim/internal/metrics"
	"github.com/talgya/polarsim/internal/persistence"
)

// session wires a simulation to the engine callbacks, Prometheus and the
// database. Metrics are buffered per tick and written at each report.
type session struct {
	sim       *engine.Simulation
	db        *persistence.DB // nil = in-memory only
	runID     string
	snapshots bool

	mu      sync.Mutex
	pending []engine.Metrics
}

// onTick advances the simulation by one step.
func (s *session) onTick(tick uint64) {
	start := time.Now()
	m := s.sim.Step()
	metrics.TickDuration.Observe(time.Since(start).Seconds())
	metrics.Observe(m)

	s.mu.Lock()
	s.pending = append(s.pending, m)
	s.mu.Unlock()
}

// onReport logs a summary and persists buffered metrics and a snapshot.
func (s *session) onReport(tick uint64) {
	logReport(s.sim.Metrics())
	if err := s.flush(); err != nil {
		slog.Error("metrics save failed", "tick", tick, "error", err)
	}
	if s.db != nil && s.snapshots {
		if err := s.db.SaveSnapshot(s.runID, s.sim.Tick(), s.sim.Snapshot()); err != nil {
			slog.Error("snapshot save failed", "tick", tick, "error", err)
		}
	}
}

// flush writes buffered metrics.
func (s *session) flush() error {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	if s.db == nil || len(batch) == 0 {
		return nil
	}
	return s.db.SaveMetrics(s.runID, batch)
}

func logReport(m engine.Metrics) {
	slog.Info("tick report",
		"tick", m.Tick,
		"mean_ideology", fmt.Sprintf("%.3f", m.MeanIdeology),
		"sd_ideology", fmt.Sprintf("%.3f", m.SDIdeology),
		"mean_ap", fmt.Sprintf("%.3f", m.MeanAP),
		"social_diversity", fmt.Sprintf("%.3f", m.SocialDiversity),
		"media_diversity", fmt.Sprintf("%.3f", m.MediaDiversity),
		"happy_pct", fmt.Sprintf("%.1f", m.HappyPercent),
		"partisan_gap", fmt.Sprintf("%.3f", m.PartisanGap),
		"backfires", m.Backfires,
		"relocations", m.Relocations,
	)
}

// loadRecords reads calibration records from a CSV file or a stored
// dataset. Both empty means random initialization.
func loadRecords(db *persistence.DB, csvPath, dataset string) ([]agents.Record, error) {
	switch {
	case csvPath != "" && dataset != "":
		return nil, fmt.Errorf("use either --data or --dataset, not both")
	case csvPath != "":
		return calibration.LoadFile(csvPath)
	case dataset != "":
		if db == nil {
			return nil, fmt.Errorf("--dataset needs the database")
		}
		return db.LoadRecords(dataset)
	}
	return nil, nil
}
