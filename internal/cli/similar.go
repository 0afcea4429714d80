package cli

import (
	"github.com/spf13/cobra"

	"homescope/server/internal/models"
)

var similarLimit int

var similarCmd = &cobra.Command{
	Use:   "similar [property-id]",
	Short: "List active listings similar to a stored property",
	Args:  cobra.ExactArgs(1),
	RunE:  runSimilar,
}

func init() {
	similarCmd.Flags().IntVarP(&similarLimit, "limit", "n", 0, "maximum number of results (0 uses the configured default)")
	rootCmd.AddCommand(similarCmd)
}

func runSimilar(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}

	limit := services.Config.ClampLimit(similarLimit)
	reference, similar, err := services.Engine.SimilarTo(cmd.Context(), args[0], limit)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(cmd, map[string]any{
			"reference_property": reference,
			"similar_properties": similar,
		})
	}

	cmd.Printf("Reference: %s, %s ($%d, %d bd)\n", reference.ID, reference.City, reference.Price, reference.Bedrooms)
	printCandidates(cmd, similar)
	return nil
}

func printCandidates(cmd *cobra.Command, candidates []models.ScoredCandidate) {
	if len(candidates) == 0 {
		cmd.Println("No comparable properties found.")
		return
	}

	for i := range candidates {
		c := &candidates[i]
		cmd.Printf("  [%d] %s %s $%d %d bd score=%d", i+1, c.ID, c.City, c.Price, c.Bedrooms, c.SimilarityScore)
		if c.AdjustedPrice != nil {
			cmd.Printf(" adjusted=$%d", *c.AdjustedPrice)
		}
		if c.DistanceMiles != nil {
			cmd.Printf(" %.2fmi", *c.DistanceMiles)
		}
		cmd.Println()
	}
}
