package cli

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/fieldforge/fieldforge/config"
	"github.com/fieldforge/fieldforge/graphio"
	"github.com/fieldforge/fieldforge/store"
)

// NewFunctionsCmd creates the "functions" subcommand group operating on
// the document store.
func NewFunctionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "functions",
		Short: "Manage stored graph documents",
	}

	cmd.PersistentFlags().String("db", "", "Document store DSN (default from fieldforge.yaml)")

	cmd.AddCommand(newFunctionsListCmd())
	cmd.AddCommand(newFunctionsSaveCmd())
	cmd.AddCommand(newFunctionsExportCmd())
	cmd.AddCommand(newFunctionsDeleteCmd())
	return cmd
}

func openStore(cmd *cobra.Command) (*store.DocumentStore, error) {
	dsn, _ := cmd.Flags().GetString("db")
	if dsn == "" {
		cfg, err := config.Load("")
		if err != nil {
			return nil, err
		}
		dsn = cfg.Store.DSN
	}
	return store.Open(dsn)
}

func newFunctionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			docs, err := s.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(docs) == 0 {
				fmt.Fprintln(out, "no documents stored")
				return nil
			}
			for _, doc := range docs {
				fmt.Fprintf(out, "%s  %-20s  %d function(s)  updated %s\n",
					doc.ID, doc.Name, doc.Functions, doc.UpdatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func newFunctionsSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save <document.json>",
		Short: "Store a graph document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := graphio.LoadDocument(args[0])
			if err != nil {
				return err
			}
			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			id := uuid.New()
			name := filepath.Base(args[0])
			if err := s.Save(cmd.Context(), id, name, doc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %s as %s\n", name, id)
			return nil
		},
	}
}

func newFunctionsExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <document-id>",
		Short: "Export a stored document to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid document id %q: %w", args[0], err)
			}
			outputPath, _ := cmd.Flags().GetString("output")

			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			doc, err := s.Load(cmd.Context(), id)
			if err != nil {
				return err
			}
			if err := graphio.SaveDocument(outputPath, doc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "written to %s\n", outputPath)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "document.json", "Output file")
	return cmd
}

func newFunctionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <document-id>",
		Short: "Delete a stored document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid document id %q: %w", args[0], err)
			}
			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
			return nil
		},
	}
}
