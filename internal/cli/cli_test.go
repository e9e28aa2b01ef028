package cli

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/talgya/polarsim/internal/config"
	"github.com/talgya/polarsim/internal/persistence"
)

func TestBatchJobs(t *testing.T) {
	base := config.Default()
	jobs, err := batchJobs(base, "backfire_probability", []string{"0.1", "0.5"}, 2, 10)
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	if len(jobs) != 4 {
		t.Fatalf("jobs=%d want 4", len(jobs))
	}
	last := jobs[3]
	if last.params.BackfireProbability != 0.5 || last.params.Seed != 11 {
		t.Errorf("last job params: backfire=%v seed=%d", last.params.BackfireProbability, last.params.Seed)
	}
	if last.label != "backfire_probability=0.5 seed=11" {
		t.Errorf("label=%q", last.label)
	}

	plain, err := batchJobs(base, "", nil, 3, 1)
	if err != nil || len(plain) != 3 || plain[2].label != "seed=3" {
		t.Fatalf("seed-only jobs=%v err=%v", plain, err)
	}

	if _, err := batchJobs(base, "no_such_param", []string{"1"}, 1, 1); !errors.Is(err, config.ErrUnknownParam) {
		t.Errorf("err=%v want ErrUnknownParam", err)
	}
	if _, err := batchJobs(base, "backfire_probability", []string{"2"}, 1, 1); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("err=%v want ErrInvalid", err)
	}
}

func TestSimulate(t *testing.T) {
	p := config.Default()
	p.Width, p.Height = 8, 8
	p.MaxTicks = 3
	p.Seed = 5

	history, err := simulate(context.Background(), batchJob{params: p})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if len(history) != 3 || history[2].Tick != 3 {
		t.Fatalf("history=%d rows", len(history))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := simulate(ctx, batchJob{params: p}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", err)
	}
}

func TestLoadRecordsSources(t *testing.T) {
	if recs, err := loadRecords(nil, "", ""); err != nil || recs != nil {
		t.Fatalf("random init: recs=%v err=%v", recs, err)
	}
	if _, err := loadRecords(nil, "a.csv", "survey"); err == nil {
		t.Fatal("expected error for both sources")
	}
	if _, err := loadRecords(nil, "", "survey"); err == nil {
		t.Fatal("expected error for dataset without database")
	}
}

func TestRunCommandRecordsRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.db")
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetArgs([]string{
		"run", "--db", path, "--ticks", "3", "--label", "smoke",
		"--set", "width=10", "--set", "height=10", "--set", "report_every=2", "--set", "seed=9",
	})
	if err := RootCmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), "finished at tick 3") {
		t.Errorf("output=%q", out.String())
	}

	db, err := persistence.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	run, err := db.LatestRun()
	if err != nil {
		t.Fatalf("latest run: %v", err)
	}
	if run.Seed != 9 || run.Label != "smoke" {
		t.Errorf("run=%+v", run)
	}
	history, err := db.History(run.ID, 0, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 {
		t.Errorf("history rows=%d want 3", len(history))
	}
	ticks, err := db.SnapshotTicks(run.ID)
	if err != nil {
		t.Fatalf("snapshot ticks: %v", err)
	}
	if len(ticks) != 3 || ticks[0] != 0 || ticks[1] != 2 || ticks[2] != 3 {
		t.Errorf("snapshot ticks=%v want [0 2 3]", ticks)
	}
}
