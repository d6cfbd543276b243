package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fieldforge/fieldforge/cli"
	"github.com/fieldforge/fieldforge/config"
)

// Set via ldflags at build time.
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fieldforge",
	Short: "FieldForge implicit-geometry graph CLI",
	Long:  "FieldForge — a CLI for authoring, validating, and flattening implicit volumetric function graphs.",
	// SilenceUsage prevents printing usage on every error
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		verbose, _ := cmd.Flags().GetBool("verbose")

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		level, err := cfg.Log.SlogLevel()
		if err != nil {
			return err
		}
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().String("config", "", "Path to fieldforge.yaml")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate(fmt.Sprintf("fieldforge version %s\n", version))

	rootCmd.AddCommand(cli.NewValidateCmd())
	rootCmd.AddCommand(cli.NewFlattenCmd())
	rootCmd.AddCommand(cli.NewExportCmd())
	rootCmd.AddCommand(cli.NewExpressionCmd())
	rootCmd.AddCommand(cli.NewFunctionsCmd())
}
