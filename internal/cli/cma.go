package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"homescope/server/internal/comparables"
	"homescope/server/internal/models"
)

var (
	cmaSubject  models.CMASubject
	cmaBedrooms int
	cmaLimit    int
	cmaRate     int64
)

var cmaCmd = &cobra.Command{
	Use:   "cma",
	Short: "Generate a comparative market analysis",
	Long: `Values a subject property with the fixed-rate estimator and lists
the comparable listings around the estimate.`,
	Args: cobra.NoArgs,
	RunE: runCMA,
}

func init() {
	f := cmaCmd.Flags()
	f.StringVar(&cmaSubject.City, "city", "", "subject city (required)")
	f.StringVar(&cmaSubject.Address, "address", "", "subject street address")
	f.IntVar(&cmaBedrooms, "bedrooms", 0, "number of bedrooms (required)")
	f.Float64Var(&cmaSubject.Bathrooms, "bathrooms", 2, "number of bathrooms")
	f.IntVar(&cmaSubject.SquareFeet, "sqft", 0, "living area in square feet (required)")
	f.BoolVar(&cmaSubject.Pool, "pool", false, "subject has a pool")
	f.BoolVar(&cmaSubject.Waterfront, "waterfront", false, "subject is waterfront")
	f.StringVar((*string)(&cmaSubject.Condition), "condition", string(models.ConditionAverage), "excellent, good, average, fair or poor")
	f.StringVar((*string)(&cmaSubject.PropertyType), "type", string(models.PropertyTypeSingleFamily), "property type")
	f.IntVarP(&cmaLimit, "limit", "n", 0, "maximum number of comparables (0 uses the configured default)")
	f.Int64Var(&cmaRate, "rate", 0, "dollars per square foot (0 uses the market assumptions)")
	_ = cmaCmd.MarkFlagRequired("bedrooms")
	_ = cmaCmd.MarkFlagRequired("city")
	_ = cmaCmd.MarkFlagRequired("sqft")
	rootCmd.AddCommand(cmaCmd)
}

func runCMA(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}

	if !cmaSubject.Condition.IsValid() {
		return fmt.Errorf("unknown condition %q", cmaSubject.Condition)
	}
	if !cmaSubject.PropertyType.IsValid() {
		return fmt.Errorf("unknown property type %q", cmaSubject.PropertyType)
	}

	cmaSubject.Bedrooms = &cmaBedrooms

	cfg := services.Config
	market := services.marketSnapshot()
	if cmaRate > 0 {
		market.BaseRatePerSqft = cmaRate
	}

	report, err := services.Engine.GenerateCMA(cmd.Context(), cmaSubject, comparables.CMAOptions{
		Limit:           cfg.ClampLimit(cmaLimit),
		BaseRatePerSqft: market.BaseRatePerSqft,
		IncludeSold:     cfg.Comparables.CMAIncludeSold,
		Insights:        market.Insights,
	})
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(cmd, report)
	}

	v := report.Valuation
	cmd.Printf("Estimated value: $%d (range $%d - $%d, confidence %s)\n", v.Mid, v.Low, v.High, v.Confidence)
	printCandidates(cmd, report.Comparables)
	return nil
}
