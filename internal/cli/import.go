package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"homescope/server/internal/models"
)

var importBatchSize int

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Upsert listings from a JSON file",
	Long: `Reads a JSON array of properties and upserts them in batches.
Records are validated before anything is written.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().IntVarP(&importBatchSize, "batch-size", "b", 500, "properties per transaction")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	if importBatchSize <= 0 {
		return fmt.Errorf("batch-size must be positive")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	var properties []*models.Property
	if err := json.Unmarshal(data, &properties); err != nil {
		return fmt.Errorf("failed to parse %s: %w", args[0], err)
	}

	for i, p := range properties {
		if p == nil {
			return fmt.Errorf("record %d: property is null", i)
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		p.EnsureID()
	}

	for start := 0; start < len(properties); start += importBatchSize {
		end := min(start+importBatchSize, len(properties))
		if err := services.Store.UpsertProperties(cmd.Context(), properties[start:end]); err != nil {
			return fmt.Errorf("failed to import records %d-%d: %w", start, end-1, err)
		}
	}

	if jsonOut {
		return printJSON(cmd, map[string]int{"imported": len(properties)})
	}
	cmd.Printf("Imported %d properties.\n", len(properties))
	return nil
}
