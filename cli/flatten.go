package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldforge/fieldforge/graphio"
	"github.com/fieldforge/fieldforge/nodes"
	"github.com/fieldforge/fieldforge/service"
)

// NewFlattenCmd creates the "flatten" subcommand.
func NewFlattenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flatten <document.json>",
		Short: "Inline every function call into the entry function",
		Args:  cobra.ExactArgs(1),
		RunE:  runFlatten,
	}

	cmd.Flags().StringP("output", "o", "", "Write the flattened document to this file (default: stdout summary only)")
	cmd.Flags().String("otlp", "", "OTLP/HTTP endpoint for traces (host:port)")

	return cmd
}

func runFlatten(cmd *cobra.Command, args []string) error {
	outputPath, _ := cmd.Flags().GetString("output")
	otlpEndpoint, _ := cmd.Flags().GetString("otlp")
	out := cmd.OutOrStdout()

	assembly, err := loadAssembly(args[0])
	if err != nil {
		return err
	}

	doc := service.NewDocumentWithAssembly(assembly, nil)
	svc := service.NewGraphService(doc, nil)

	if otlpEndpoint != "" {
		shutdown, err := setupTelemetry(cmd.Context(), svc, otlpEndpoint)
		if err != nil {
			return err
		}
		defer func() { _ = shutdown(cmd.Context()) }()
	}

	// phase 1 (graph sync) and phase 2 (flatten) through the operation
	// surface, so the run shows up in telemetry
	result := svc.ValidateModel(service.ValidateOptions{Compile: true})
	if !result.Success {
		return exitError(exitFlattenFailed, "validate: %s", result.Error)
	}

	flattener := nodes.NewFlattener(assembly)
	flat, err := flattener.Flatten()
	if err != nil {
		return exitError(exitFlattenFailed, "flatten failed: %v", err)
	}

	entry := flat.AssemblyModel()
	fmt.Fprintf(out, "flattened into %q: %d nodes\n", entry.DisplayName(), entry.NodeCount())

	if outputPath != "" {
		if err := graphio.SaveDocument(outputPath, graphio.SerializeAssembly(flat)); err != nil {
			return err
		}
		fmt.Fprintf(out, "written to %s\n", outputPath)
	}
	return nil
}
