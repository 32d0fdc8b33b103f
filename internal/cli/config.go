package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcvidal/datapilot/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration with secrets masked",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader(cfgFile)
	cfg, err := loader.Load()
	if err != nil {
		return err
	}

	fmt.Printf("config file: %s\n", loader.GetConfigPath())
	fmt.Println(cfg.String())

	if err := cfg.Validate(); err != nil {
		fmt.Printf("warning: %v\n", err)
	}
	return nil
}
