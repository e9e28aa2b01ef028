package persistence

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/talgya/polarsim/internal/agents"
	"github.com/talgya/polarsim/internal/config"
	"github.com/talgya/polarsim/internal/engine"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunsRoundTrip(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.LatestRun(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("latest on empty db: err=%v want ErrNotFound", err)
	}

	p := config.Default()
	p.Seed = 99
	first, err := db.CreateRun(p, "baseline")
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	second, err := db.CreateRun(p, "")
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if first.ID == second.ID {
		t.Fatal("run IDs collide")
	}

	latest, err := db.LatestRun()
	if err != nil {
		t.Fatalf("latest run: %v", err)
	}
	if latest.ID != second.ID {
		t.Errorf("latest=%s want %s", latest.ID, second.ID)
	}

	got, err := db.GetRun(first.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got.Seed != 99 || got.Label != "baseline" || got.Params == "" {
		t.Errorf("run=%+v", got)
	}

	if _, err := db.GetRun("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing run: err=%v want ErrNotFound", err)
	}

	runs, err := db.ListRuns(10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("runs=%d want 2", len(runs))
	}
}

func TestMetricsHistory(t *testing.T) {
	db := openTestDB(t)
	run, err := db.CreateRun(config.Default(), "")
	if err != nil {
		t.Fatalf("create run: %v", err)
	}

	var batch []engine.Metrics
	for tick := uint64(1); tick <= 5; tick++ {
		batch = append(batch, engine.Metrics{
			Tick:         tick,
			Population:   10,
			MeanIdeology: 3 + float64(tick)/10,
			Backfires:    int(tick),
			ByParty: map[string]engine.PartyMetrics{
				"Democrat": {Count: 4, MeanIdeology: 2.1},
			},
		})
	}
	if err := db.SaveMetrics(run.ID, batch); err != nil {
		t.Fatalf("save metrics: %v", err)
	}

	all, err := db.History(run.ID, 0, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(all) != 5 || all[0].Tick != 1 || all[4].Tick != 5 {
		t.Fatalf("history ticks: %d rows", len(all))
	}
	if all[2].Backfires != 3 || all[2].ByParty["Democrat"].Count != 4 {
		t.Errorf("tick 3 = %+v", all[2])
	}

	window, err := db.History(run.ID, 2, 3)
	if err != nil {
		t.Fatalf("history window: %v", err)
	}
	if len(window) != 2 || window[0].Tick != 2 || window[1].Tick != 3 {
		t.Errorf("window=%v", window)
	}

	// Saving the same tick again replaces it.
	batch[0].Population = 11
	if err := db.SaveMetrics(run.ID, batch[:1]); err != nil {
		t.Fatalf("resave: %v", err)
	}
	again, _ := db.History(run.ID, 1, 1)
	if len(again) != 1 || again[0].Population != 11 {
		t.Errorf("resaved tick=%v", again)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	db := openTestDB(t)
	run, err := db.CreateRun(config.Default(), "")
	if err != nil {
		t.Fatalf("create run: %v", err)
	}

	snap := []engine.AgentSnapshot{
		{ID: 1, X: 3, Y: 4, Party: "Republican", Ideology: 4.2, AffectivePolarization: 6.5},
		{ID: 0, ExternalID: "r-17", X: 1, Y: 2, Party: "Democrat", Ideology: 1.8, AffectivePolarization: 3, Happy: true},
	}
	if err := db.SaveSnapshot(run.ID, 10, snap); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}

	got, err := db.LoadSnapshot(run.ID, 10)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("agents=%d want 2", len(got))
	}
	if got[0] != snap[1] || got[1] != snap[0] {
		t.Errorf("snapshot=%+v", got)
	}

	ticks, err := db.SnapshotTicks(run.ID)
	if err != nil {
		t.Fatalf("snapshot ticks: %v", err)
	}
	if len(ticks) != 1 || ticks[0] != 10 {
		t.Errorf("ticks=%v want [10]", ticks)
	}
}

func TestCalibrationRecords(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.LoadRecords("survey"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty dataset: err=%v want ErrNotFound", err)
	}

	records := []agents.Record{
		{ID: "z", Party: "D", Ideology: 2, NewsFrequency: 3, DiscussionFrequency: 1, AffectivePolarization: 5},
		{ID: "a", Party: "R", Ideology: 4.5, NewsFrequency: 1, DiscussionFrequency: 2, AffectivePolarization: 7.5},
	}
	if err := db.ImportRecords("survey", records); err != nil {
		t.Fatalf("import: %v", err)
	}
	got, err := db.LoadRecords("survey")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got[0] != records[0] || got[1] != records[1] {
		t.Fatalf("records=%+v", got)
	}

	// Re-import replaces the dataset.
	if err := db.ImportRecords("survey", records[1:]); err != nil {
		t.Fatalf("reimport: %v", err)
	}
	got, _ = db.LoadRecords("survey")
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("after reimport=%+v", got)
	}
}
