package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fieldforge/fieldforge/graphio"
	"github.com/fieldforge/fieldforge/nodes"
)

// NewValidateCmd creates the "validate" subcommand.
func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <document.json>",
		Short: "Validate a graph document without flattening",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}

	cmd.Flags().String("format", "text", "Output format: text | json")

	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	out := cmd.OutOrStdout()

	assembly, err := loadAssembly(args[0])
	if err != nil {
		return err
	}

	validator := nodes.NewValidator()
	valid := validator.Validate(assembly)

	if format == "json" {
		if err := printValidationJSON(out, valid, validator.Errors()); err != nil {
			return err
		}
	} else {
		printValidationText(out, valid, validator.Errors())
	}

	if !valid {
		return exitError(exitValidationFailed, "validation failed with %d error(s)", len(validator.Errors()))
	}
	return nil
}

func loadAssembly(path string) (*nodes.Assembly, error) {
	doc, err := graphio.LoadDocument(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, exitError(exitFileNotFound, "file not found: %s", path)
		}
		return nil, err
	}
	assembly, err := graphio.BuildAssembly(doc)
	if err != nil {
		return nil, fmt.Errorf("building assembly: %w", err)
	}
	return assembly, nil
}

func printValidationText(out io.Writer, valid bool, errs []nodes.ValidationError) {
	if valid {
		fmt.Fprintln(out, "OK: document is valid")
		return
	}
	fmt.Fprintf(out, "%d error(s):\n", len(errs))
	for _, e := range errs {
		fmt.Fprintf(out, "  - %s\n", e.String())
	}
}

func printValidationJSON(out io.Writer, valid bool, errs []nodes.ValidationError) error {
	type jsonError struct {
		Message   string `json:"message"`
		Model     string `json:"model"`
		Node      string `json:"node"`
		Port      string `json:"port"`
		Parameter string `json:"parameter"`
	}
	payload := struct {
		Valid  bool        `json:"valid"`
		Errors []jsonError `json:"errors"`
	}{Valid: valid}
	for _, e := range errs {
		payload.Errors = append(payload.Errors, jsonError(e))
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
