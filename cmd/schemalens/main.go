package main

import (
	"fmt"
	"os"

	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"schemalens/internal/config"
	"schemalens/internal/logging"
	"schemalens/internal/registry"
	_ "schemalens/internal/schemas"
	"schemalens/internal/telemetry"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool

	// Loaded in PersistentPreRunE
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "schemalens",
	Short: "Inspect component schemas and what each audience sees of an entity",
	Long: `schemalens is developer and modding tooling for the simulation's
component schemas.

It lists and checks the registered schemas, projects saved entities for a
given audience (player, llm, agent, user, dev), builds UI panels, assembles
the LLM prompt for an agent and reports which saved components had to be
replaced when a world is loaded.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.DebugMode = true
			cfg.Logging.Level = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		if err := logging.Initialize(cfg.Logging.LoggerConfig()); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.BootDebug("config loaded from %s", configPath)

		// Every schema has declared itself by now.
		registry.Default().Freeze()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if cfg != nil && cfg.Metrics.Dump {
			if err := dumpMetrics(); err != nil {
				logging.Get(logging.CategoryCLI).Warn("failed to dump metrics: %v", err)
			}
		}
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "schemalens.yaml", "Config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print machine-readable JSON")

	schemasCmd.AddCommand(schemasListCmd)
	schemasCmd.AddCommand(schemasShowCmd)
	schemasCmd.AddCommand(schemasCheckCmd)

	rootCmd.AddCommand(schemasCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(panelCmd)
	rootCmd.AddCommand(promptCmd)
	rootCmd.AddCommand(loadCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

// dumpMetrics writes the gathered telemetry in the Prometheus text format.
func dumpMetrics() error {
	families, err := telemetry.Registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(os.Stderr, mf); err != nil {
			return err
		}
	}
	return nil
}
