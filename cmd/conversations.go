package cmd

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"llmunify/internal/store"
)

var (
	listProvider string
	listLimit    int
	listOffset   int
	showCopy     bool
)

func init() {
	rootCmd.AddCommand(conversationsCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(deleteCmd)

	conversationsCmd.Flags().StringVar(&listProvider, "provider", "", "only list conversations from this provider")
	conversationsCmd.Flags().IntVar(&listLimit, "limit", store.DefaultListLimit, "page size")
	conversationsCmd.Flags().IntVar(&listOffset, "offset", 0, "number of conversations to skip")
	showCmd.Flags().BoolVar(&showCopy, "copy", false, "copy the transcript to the clipboard")
}

var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"ls"},
	Short:   "List stored conversations, most recently updated first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		offset := max(listOffset, 0)
		convs, err := e.db.Conversations().List(ctx, store.ListFilter{
			Provider: listProvider,
			Limit:    listLimit,
			Offset:   offset,
		})
		if err != nil {
			return err
		}
		total, err := e.db.Conversations().Count(ctx, listProvider)
		if err != nil {
			return err
		}
		if total == 0 {
			fmt.Println("No conversations yet — run 'llmunify import' first")
			return nil
		}
		if len(convs) == 0 {
			fmt.Println(pageSummary(offset, 0, total))
			return nil
		}

		fmt.Printf("%-36s %-18s %-10s %s\n", "ID", "UPDATED", "PROVIDER", "TITLE")
		fmt.Println("─────────────────────────────────────────────────────────────────────────────────")
		for _, c := range convs {
			count, err := e.db.Messages().Count(ctx, c.ID)
			if err != nil {
				return err
			}
			fmt.Printf("%-36s %-18s %-10s %s (%d messages)\n",
				c.ID,
				c.UpdatedAt.Local().Format("2006-01-02 15:04"),
				c.Provider,
				truncate(c.Title, 60),
				count,
			)
		}
		fmt.Printf("\n%s\n", pageSummary(offset, len(convs), total))
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <conversation-id>",
	Short: "Show a conversation and its messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		conv, err := e.db.Conversations().Get(ctx, args[0])
		if err != nil {
			return err
		}
		msgs, err := e.db.Messages().ListByConversation(ctx, conv.ID)
		if err != nil {
			return err
		}

		fmt.Printf("Conversation: %s\n", conv.ID)
		fmt.Printf("Title:        %s\n", conv.Title)
		fmt.Printf("Provider:     %s\n", conv.Provider)
		fmt.Printf("Created:      %s\n", conv.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("Updated:      %s\n", conv.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("Messages:     %d\n\n", len(msgs))

		transcript := formatTranscript(msgs)
		fmt.Print(transcript)

		if showCopy {
			if err := clipboard.WriteAll(transcript); err != nil {
				e.logger.Warn("could not copy to clipboard", "err", err)
			} else {
				fmt.Println("Transcript copied to clipboard!")
			}
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <conversation-id>",
	Short: "Delete a conversation with all of its messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.db.Conversations().Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted conversation %s\n", args[0])
		return nil
	},
}

// pageSummary describes which slice of total a listing page shows.
func pageSummary(offset, shown, total int) string {
	if shown == 0 {
		return fmt.Sprintf("No conversations past offset %d (%d total)", offset, total)
	}
	return fmt.Sprintf("Showing %d-%d of %d conversations", offset+1, offset+shown, total)
}

func formatTranscript(msgs []store.Message) string {
	var sb strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&sb, "[%s] %s (%s)\n%s\n\n",
			m.Timestamp.Local().Format("2006-01-02 15:04:05"), m.Role, m.ID, m.Content)
	}
	return sb.String()
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
