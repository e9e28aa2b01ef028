package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/talgya/polarsim/internal/calibration"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Store a calibration CSV as a named dataset",
		Long: "Import calibration records (columns: id, party, ideology, news_frequency, " +
			"discussion_frequency, affective_polarization) into the database so runs can " +
			"start from them with --dataset. Re-importing a dataset replaces it.",
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}

	cmd.Flags().String("dataset", "default", "Dataset name")

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	dataset, _ := cmd.Flags().GetString("dataset")

	records, err := calibration.LoadFile(args[0])
	if err != nil {
		return err
	}

	db, err := openDB(runtimeConfig())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.ImportRecords(dataset, records); err != nil {
		return fmt.Errorf("import: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"dataset":%q,"imported":%d}`+"\n", dataset, len(records))
	return nil
}
