package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/polarsim/internal/api"
	"github.com/talgya/polarsim/internal/engine"
	"github.com/talgya/polarsim/internal/persistence"
)

func init() {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one simulation",
		Long: "Run one simulation for max_ticks ticks (or until interrupted), recording " +
			"per-tick metrics and periodic agent snapshots. With --serve the run is " +
			"observable over HTTP while it progresses.",
		RunE: runRun,
	}

	cmd.Flags().Int("ticks", 0, "Tick budget (overrides max_ticks; 0 keeps it)")
	cmd.Flags().Duration("interval", 0, "Wall time per tick at speed 1 (0 = as fast as possible)")
	cmd.Flags().String("data", "", "Initialize humans from a calibration CSV file")
	cmd.Flags().String("dataset", "", "Initialize humans from a calibration dataset stored in the database")
	cmd.Flags().String("label", "", "Label stored with the run")
	cmd.Flags().Bool("no-db", false, "Do not record the run")
	cmd.Flags().Bool("no-snapshots", false, "Skip agent snapshots at report ticks")
	cmd.Flags().Bool("serve", false, "Serve the observation API while running")
	cmd.Flags().Int("port", 0, "API port (default: $POLARSIM_PORT or 8080)")

	RootCmd.AddCommand(cmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ticks, _ := cmd.Flags().GetInt("ticks")
	interval, _ := cmd.Flags().GetDuration("interval")
	dataPath, _ := cmd.Flags().GetString("data")
	dataset, _ := cmd.Flags().GetString("dataset")
	label, _ := cmd.Flags().GetString("label")
	noDB, _ := cmd.Flags().GetBool("no-db")
	noSnapshots, _ := cmd.Flags().GetBool("no-snapshots")
	serve, _ := cmd.Flags().GetBool("serve")
	port, _ := cmd.Flags().GetInt("port")

	p, err := loadParams()
	if err != nil {
		return err
	}
	if ticks > 0 {
		p.MaxTicks = ticks
	}
	rt := runtimeConfig()
	if port > 0 {
		rt.Port = port
	}

	var db *persistence.DB
	if !noDB {
		if db, err = openDB(rt); err != nil {
			return err
		}
		defer db.Close()
	}

	records, err := loadRecords(db, dataPath, dataset)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}

	sim, err := engine.Setup(p, records)
	if err != nil {
		return err
	}
	p.Seed = sim.Seed()

	s := &session{sim: sim, db: db, snapshots: !noSnapshots}
	if db != nil {
		run, err := db.CreateRun(p, label)
		if err != nil {
			return err
		}
		s.runID = run.ID
		if s.snapshots {
			if err := db.SaveSnapshot(run.ID, 0, sim.Snapshot()); err != nil {
				return fmt.Errorf("initial snapshot: %w", err)
			}
		}
	}

	eng := engine.NewEngine()
	eng.Interval = interval
	eng.MaxTicks = uint64(p.MaxTicks)
	eng.ReportEvery = uint64(p.ReportEvery)
	eng.OnTick = s.onTick
	eng.OnReport = s.onReport

	var srv *http.Server
	if serve {
		if rt.AdminKey == "" {
			slog.Warn("POLARSIM_ADMIN_KEY not set, admin POST endpoints will be disabled")
		}
		apiServer := &api.Server{
			Sim:         sim,
			Eng:         eng,
			DB:          db,
			RunID:       s.runID,
			Port:        rt.Port,
			AdminKey:    rt.AdminKey,
			CORSOrigins: rt.CORSOrigins,
		}
		srv = apiServer.Start()
		fmt.Fprintf(cmd.OutOrStdout(), "API: http://localhost:%d/api/v1/status\n", rt.Port)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng.Run(ctx)

	if err := s.flush(); err != nil {
		slog.Error("final metrics save failed", "error", err)
	}
	final := sim.Metrics()
	if db != nil && s.snapshots && eng.ReportEvery > 0 && final.Tick%eng.ReportEvery != 0 {
		if err := db.SaveSnapshot(s.runID, final.Tick, sim.Snapshot()); err != nil {
			slog.Error("final snapshot failed", "error", err)
		}
	}
	logReport(final)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP shutdown failed", "error", err)
		}
	}

	if s.runID != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "run %s finished at tick %d\n", s.runID, final.Tick)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "finished at tick %d\n", final.Tick)
	}
	return nil
}
