package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/streed/notes-browser/internal/browser"
	"github.com/streed/notes-browser/internal/constants"
	"github.com/streed/notes-browser/internal/querycache"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List a page of notes",
	Long: `List one page of notes from the notes API, newest first.

Examples:
  notes-browser list                   # First page
  notes-browser list --page 2          # Second page
  notes-browser list --search groceries`,
	RunE: runList,
}

var (
	listPage   int
	listSearch string
	listShort  bool
)

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().IntVarP(&listPage, "page", "p", 1, "Page to display (1-based)")
	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "Only show notes whose title or content contains this text")
	listCmd.Flags().BoolVar(&listShort, "short", false, "Show only ID and title")
}

func runList(cmd *cobra.Command, args []string) error {
	controller := newController(browser.WithRetryPolicy(querycache.NoRetry))
	defer controller.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), appConfig.RequestTimeout()+time.Second)
	defer cancel()

	view, err := controller.Goto(ctx, listPage, listSearch)
	if err != nil {
		return fmt.Errorf("failed to list notes: %w", err)
	}
	if view.Err != nil {
		return fmt.Errorf("failed to list notes: %w", view.Err)
	}

	if len(view.Notes) == 0 {
		fmt.Println("No notes found.")
		return nil
	}

	fmt.Printf("Page %d of %d:\n\n", view.Page, view.TotalPages)

	for _, note := range view.Notes {
		if listShort {
			fmt.Printf("[%s] %s\n", note.ID, note.Title)
			continue
		}
		fmt.Printf("ID: %s\n", note.ID)
		fmt.Printf("Title: %s\n", note.Title)
		fmt.Printf("Tag: %s\n", note.Tag)
		fmt.Printf("Created: %s\n", formatTime(note.CreatedAt))
		fmt.Printf("Preview: %s\n", note.Preview(constants.PreviewLength))
		fmt.Println(strings.Repeat("-", 60))
	}

	if view.ShowPagination && view.Page < view.TotalPages {
		fmt.Printf("\nNext: notes-browser list --page %d", view.Page+1)
		if view.DebouncedSearch != "" {
			fmt.Printf(" --search %q", view.DebouncedSearch)
		}
		fmt.Println()
	}

	return nil
}

func formatTime(t time.Time) string {
	now := time.Now()
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		minutes := int(diff.Minutes())
		if minutes == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Local().Format("2006-01-02 15:04")
	}
}
