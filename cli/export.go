package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldforge/fieldforge/graphio"
	"github.com/fieldforge/fieldforge/nodes"
)

// NewExportCmd creates the "export" subcommand, which prints one function
// of a document in the minimal or verbose projection.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <document.json>",
		Short: "Print one function's JSON projection",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}

	cmd.Flags().Uint32("function", 0, "Resource id of the function (default: entry)")
	cmd.Flags().Bool("verbose", false, "Use the deep projection instead of the minimal one")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	functionID, _ := cmd.Flags().GetUint32("function")
	verbose, _ := cmd.Flags().GetBool("verbose")
	out := cmd.OutOrStdout()

	assembly, err := loadAssembly(args[0])
	if err != nil {
		return err
	}

	var m *nodes.Model
	if functionID == 0 {
		m = assembly.AssemblyModel()
	} else {
		m = assembly.FindModel(nodes.ResourceID(functionID))
	}
	if m == nil {
		return fmt.Errorf("function %d not found", functionID)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if verbose {
		return enc.Encode(graphio.SerializeVerbose(m))
	}
	return enc.Encode(graphio.SerializeMinimal(m))
}
