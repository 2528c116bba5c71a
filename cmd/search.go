package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var searchLimit int

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "maximum number of hits (0 = config default)")
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over message content (FTS5 query syntax)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		limit := searchLimit
		if limit <= 0 {
			limit = e.cfg.Search.DefaultLimit
		}
		query := strings.Join(args, " ")
		hits, err := e.db.Messages().Search(ctx, query, limit)
		if err != nil {
			return err
		}
		if len(hits) == 0 {
			fmt.Printf("No messages match %q\n", query)
			return nil
		}

		for _, h := range hits {
			fmt.Printf("%s  %-9s %-10s %s\n",
				h.Timestamp.Local().Format("2006-01-02 15:04"), h.Role, h.Provider, truncate(h.ConversationTitle, 50))
			fmt.Printf("  %s\n", h.Snippet)
			fmt.Printf("  conversation %s, message %s\n\n", h.ConversationID, h.ID)
		}
		return nil
	},
}
