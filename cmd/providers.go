package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"llmunify/internal/provider"
)

func init() {
	rootCmd.AddCommand(providersCmd)
}

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List supported providers and how many conversations each has",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		counts, err := e.db.Conversations().Providers(ctx)
		if err != nil {
			return err
		}
		stored := make(map[string]int, len(counts))
		for _, pc := range counts {
			stored[pc.Provider] = pc.Conversations
		}

		fmt.Printf("%-12s %s\n", "PROVIDER", "CONVERSATIONS")
		fmt.Println("──────────────────────────")
		for _, name := range provider.Default().Names() {
			fmt.Printf("%-12s %d\n", name, stored[name])
			delete(stored, name)
		}
		// conversations stored under a provider no parser is registered for
		for _, pc := range counts {
			if n, ok := stored[pc.Provider]; ok {
				fmt.Printf("%-12s %d (no parser)\n", pc.Provider, n)
			}
		}
		return nil
	},
}
