package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"llmunify/internal/ingest"
	"llmunify/internal/provider"
)

func init() {
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import <provider> <export-file>",
	Short: "Import a provider export file into the database",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := provider.Default().Lookup(args[0])
		if err != nil {
			return fmt.Errorf("%w (known: %v)", err, provider.Default().Names())
		}

		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		res, err := ingest.New(e.db, e.logger).ImportFile(ctx, p, args[1])
		if err != nil {
			return err
		}
		if res.Empty() {
			fmt.Printf("No conversations found in %s export\n", res.Provider)
			return nil
		}

		fmt.Printf("Imported %d conversations (%d messages) from %s\n", res.Imported, res.Messages, res.Provider)
		if len(res.Skipped) > 0 {
			fmt.Printf("Skipped %d already imported\n", len(res.Skipped))
		}
		return nil
	},
}
