package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/streed/notes-browser/internal/logger"
	"golang.org/x/term"
)

var deleteCmd = &cobra.Command{
	Use:   "delete [note IDs...]",
	Short: "Delete one or more notes",
	Long: `Delete notes by their IDs.

You will be prompted for confirmation when running in a terminal.
Use --force to skip the confirmation prompt.`,
	Args:    cobra.MinimumNArgs(1),
	Aliases: []string{"rm", "remove"},
	RunE:    runDelete,
}

var forceDelete bool

func init() {
	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().BoolVarP(&forceDelete, "force", "f", false, "Skip confirmation prompt")
}

func runDelete(cmd *cobra.Command, args []string) error {
	if !forceDelete && term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Printf("About to delete %d note(s): %v\n", len(args), args)
		if !confirm(bufio.NewReader(os.Stdin), "Are you sure? (y/N): ") {
			fmt.Println("Deletion cancelled.")
			return nil
		}
	}

	controller := newController()
	defer controller.Close()

	var failed int
	for _, id := range args {
		ctx, cancel := context.WithTimeout(cmd.Context(), appConfig.RequestTimeout())
		note, err := controller.DeleteNote(ctx, id)
		cancel()
		if err != nil {
			logger.Error("Failed to delete note %s: %v", id, err)
			failed++
			continue
		}
		fmt.Printf("Deleted note %s (%s)\n", note.ID, note.Title)
	}

	if failed > 0 {
		return fmt.Errorf("failed to delete %d of %d notes", failed, len(args))
	}
	return nil
}
