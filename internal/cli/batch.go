package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/talgya/polarsim/internal/config"
	"github.com/talgya/polarsim/internal/engine"
)

func init() {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Sweep a parameter across seeds",
		Long: "Run headless simulations for every combination of --values (applied to --param) " +
			"and seed, each for max_ticks ticks. Every run is recorded with its full " +
			"per-tick metrics history.",
		Example: "  polarsim batch --param backfire_probability --values 0.1,0.3,0.5 --seeds 10",
		RunE:    runBatch,
	}

	cmd.Flags().String("param", "", "Parameter to sweep (see `polarsim params`)")
	cmd.Flags().String("values", "", "Comma-separated values for --param")
	cmd.Flags().Int("seeds", 5, "Seeds per value")
	cmd.Flags().Int64("seed-base", 1, "First seed; seeds are consecutive")
	cmd.Flags().Int("ticks", 0, "Tick budget per run (overrides max_ticks; 0 keeps it)")
	cmd.Flags().Int("workers", 1, "Simulations run concurrently")

	RootCmd.AddCommand(cmd)
}

// batchJob is one parameter combination to simulate.
type batchJob struct {
	label  string
	params config.Params
}

type batchResult struct {
	job     batchJob
	history []engine.Metrics
	err     error
}

// batchJobs expands a sweep into jobs, value-major then seed.
func batchJobs(base config.Params, param string, values []string, seeds int, seedBase int64) ([]batchJob, error) {
	if param == "" {
		values = []string{""}
	}
	var jobs []batchJob
	for _, v := range values {
		for i := 0; i < seeds; i++ {
			p := base
			label := fmt.Sprintf("seed=%d", seedBase+int64(i))
			if param != "" {
				if err := p.Set(param, v); err != nil {
					return nil, err
				}
				label = fmt.Sprintf("%s=%s %s", param, v, label)
			}
			p.Seed = seedBase + int64(i)
			if err := p.Validate(); err != nil {
				return nil, fmt.Errorf("%s: %w", label, err)
			}
			jobs = append(jobs, batchJob{label: label, params: p})
		}
	}
	return jobs, nil
}

// simulate runs one job headless for its tick budget.
func simulate(ctx context.Context, job batchJob) ([]engine.Metrics, error) {
	sim, err := engine.Setup(job.params, nil)
	if err != nil {
		return nil, err
	}
	history := make([]engine.Metrics, 0, job.params.MaxTicks)
	for t := 0; t < job.params.MaxTicks; t++ {
		if ctx.Err() != nil {
			return history, ctx.Err()
		}
		history = append(history, sim.Step())
	}
	return history, nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	param, _ := cmd.Flags().GetString("param")
	valuesStr, _ := cmd.Flags().GetString("values")
	seeds, _ := cmd.Flags().GetInt("seeds")
	seedBase, _ := cmd.Flags().GetInt64("seed-base")
	ticks, _ := cmd.Flags().GetInt("ticks")
	workers, _ := cmd.Flags().GetInt("workers")

	base, err := loadParams()
	if err != nil {
		return err
	}
	if ticks > 0 {
		base.MaxTicks = ticks
	}
	if base.MaxTicks <= 0 {
		return fmt.Errorf("batch runs need a positive tick budget")
	}

	var values []string
	for _, v := range strings.Split(valuesStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	if param != "" && len(values) == 0 {
		return fmt.Errorf("--param %s needs --values", param)
	}
	if seeds < 1 {
		return fmt.Errorf("--seeds must be at least 1")
	}

	jobs, err := batchJobs(base, param, values, seeds, seedBase)
	if err != nil {
		return err
	}

	db, err := openDB(runtimeConfig())
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("batch starting", "runs", len(jobs), "param", param, "values", len(values), "seeds", seeds, "workers", workers)

	jobCh := make(chan batchJob)
	results := make(chan batchResult)
	var wg sync.WaitGroup
	for w := 0; w < max(workers, 1); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				history, err := simulate(ctx, job)
				results <- batchResult{job: job, history: history, err: err}
			}
		}()
	}
	go func() {
		defer close(jobCh)
		for _, job := range jobs {
			select {
			case jobCh <- job:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	// Results are written from this goroutine only.
	completed, failed := 0, 0
	var saveErr error
	for res := range results {
		if saveErr != nil {
			continue
		}
		if res.err != nil {
			slog.Error("batch run failed", "run", res.job.label, "error", res.err)
			failed++
			continue
		}
		run, err := db.CreateRun(res.job.params, res.job.label)
		if err == nil {
			err = db.SaveMetrics(run.ID, res.history)
		}
		if err != nil {
			saveErr = fmt.Errorf("save %s: %w", res.job.label, err)
			stop()
			continue
		}
		completed++

		final := res.history[len(res.history)-1]
		slog.Info("batch run complete",
			"run", run.ID,
			"label", res.job.label,
			"ticks", final.Tick,
			"sd_ideology", fmt.Sprintf("%.3f", final.SDIdeology),
			"mean_ap", fmt.Sprintf("%.3f", final.MeanAP),
			"partisan_gap", fmt.Sprintf("%.3f", final.PartisanGap),
			"happy_pct", fmt.Sprintf("%.1f", final.HappyPercent),
		)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "batch finished: %d completed, %d failed, %d skipped\n",
		completed, failed, len(jobs)-completed-failed)
	if saveErr != nil {
		return saveErr
	}
	return ctx.Err()
}
