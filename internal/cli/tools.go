package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcvidal/datapilot/pkg/coretools"
	"github.com/marcvidal/datapilot/pkg/frame"
	"github.com/marcvidal/datapilot/pkg/planner"
	"github.com/marcvidal/datapilot/pkg/tools"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the registered data tools",
	RunE:  runTools,
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}

// nullSnapshot lets the registry be built for inspection without a
// configured dataset source.
type nullSnapshot struct{}

func (nullSnapshot) Get(ctx context.Context) (*frame.Frame, error) {
	return nil, fmt.Errorf("no dataset configured")
}

func runTools(cmd *cobra.Command, args []string) error {
	registry := tools.NewRegistry()
	if err := coretools.Register(registry, planner.NewNormalizer(), coretools.Options{Snapshot: nullSnapshot{}}); err != nil {
		return err
	}

	for _, spec := range registry.Specs(tools.PhasePlanning) {
		fmt.Printf("%s\n  %s\n", spec.Name, spec.Description)
		if spec.Parameters != nil {
			params, err := json.MarshalIndent(spec.Parameters, "  ", "  ")
			if err == nil {
				fmt.Printf("  %s\n", params)
			}
		}
		fmt.Println()
	}
	return nil
}
