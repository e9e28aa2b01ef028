package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func init() {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs",
		RunE:  runRuns,
	}
	runsCmd.Flags().IntP("limit", "l", 20, "Max results")

	historyCmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Print a run's per-tick metrics as JSON (default: latest run)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHistory,
	}
	historyCmd.Flags().Uint64("from", 0, "First tick")
	historyCmd.Flags().Uint64("to", 0, "Last tick (0 = no limit)")

	paramsCmd := &cobra.Command{
		Use:   "params",
		Short: "Print the effective parameters as YAML",
		Long: "Print the parameters a run would use after applying the config file, " +
			"POLARSIM_<KEY> environment variables and --set overrides.",
		RunE: runParams,
	}

	RootCmd.AddCommand(runsCmd, historyCmd, paramsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	db, err := openDB(runtimeConfig())
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.ListRuns(limit)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(runs)
}

func runHistory(cmd *cobra.Command, args []string) error {
	from, _ := cmd.Flags().GetUint64("from")
	to, _ := cmd.Flags().GetUint64("to")

	db, err := openDB(runtimeConfig())
	if err != nil {
		return err
	}
	defer db.Close()

	var runID string
	if len(args) == 1 {
		runID = args[0]
	} else {
		run, err := db.LatestRun()
		if err != nil {
			return err
		}
		runID = run.ID
	}

	rows, err := db.History(runID, from, to)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func runParams(cmd *cobra.Command, args []string) error {
	p, err := loadParams()
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	defer enc.Close()
	return enc.Encode(p)
}
