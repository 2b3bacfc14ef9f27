package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"firestige.xyz/strix/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a configuration file without running anything.

This is useful for pre-checking configuration before launching a long run.

Examples:
  strix validate
  strix validate -c highway.yml`,
	Run: func(cmd *cobra.Command, args []string) {
		runValidateCommand()
	},
}

func runValidateCommand() {
	cfg, err := config.Load(configFile)
	if err != nil {
		exitWithError("configuration rejected", err)
	}

	fmt.Printf("VALID: %gs simulation, engine %q, traces from %q\n",
		cfg.SimTime, cfg.Engine.Name, cfg.TraceDir)
}
