// Package cli implements the compsctl command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"homescope/server/config"
	"homescope/server/internal/comparables"
	"homescope/server/internal/storage"
)

// Services are the collaborators commands run against.
type Services struct {
	Store  storage.PropertyStore
	Engine *comparables.Engine
	Config *config.Config
	// Market is optional; without it the configured base rate applies.
	Market *config.MarketStore
}

func (s *Services) marketSnapshot() config.MarketAssumptions {
	if s.Market != nil {
		return s.Market.Snapshot()
	}
	// Without a file the store only serves defaults and cannot fail.
	market, _ := config.NewMarketStore("", s.Config.Comparables.BaseRatePerSqft, nil)
	return market.Snapshot()
}

var (
	services *Services
	jsonOut  bool
)

var rootCmd = &cobra.Command{
	Use:   "compsctl",
	Short: "Query and load the comparable property engine",
	Long: `compsctl works directly against the property database used by the
comparables server. It can bulk import listings, list similar properties
for a stored listing and produce a CMA report for an arbitrary subject.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output results as JSON")
}

// SetServices installs the collaborators used by every command.
func SetServices(s *Services) {
	services = s
}

// Execute runs the command tree with the process arguments.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func requireServices() error {
	if services == nil || services.Store == nil || services.Engine == nil || services.Config == nil {
		return fmt.Errorf("services not configured")
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
