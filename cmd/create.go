package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/streed/notes-browser/internal/models"
	"golang.org/x/term"
)

var createCmd = &cobra.Command{
	Use:     "create",
	Aliases: []string{"add"},
	Short:   "Create a new note",
	Long: `Create a new note with a title, optional content and a tag.

Content can be provided in several ways:
1. Via --content flag: notes-browser create -t "Title" -c "Content"
2. Via stdin: echo "Content" | notes-browser create -t "Title"
3. Interactively, when stdin is a terminal

Tags: Todo (default), Work, Personal, Meeting, Shopping.`,
	RunE: runCreate,
}

var (
	createTitle   string
	createContent string
	createTag     string
)

func init() {
	rootCmd.AddCommand(createCmd)
	createCmd.Flags().StringVarP(&createTitle, "title", "t", "", "Note title (required)")
	createCmd.Flags().StringVarP(&createContent, "content", "c", "", "Note content")
	createCmd.Flags().StringVarP(&createTag, "tag", "T", "", "Note tag (Todo, Work, Personal, Meeting, Shopping)")
	_ = createCmd.MarkFlagRequired("title")
}

func runCreate(cmd *cobra.Command, args []string) error {
	tag, err := models.ParseTag(createTag)
	if err != nil {
		return err
	}

	if createContent == "" {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Println("Enter note content (press Ctrl+D when finished):")
		}
		createContent = readAll(os.Stdin)
	}

	controller := newController()
	defer controller.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), appConfig.RequestTimeout())
	defer cancel()

	note, err := controller.SubmitNote(ctx, models.CreateNoteRequest{
		Title:   createTitle,
		Content: createContent,
		Tag:     tag,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Note created successfully!\n")
	fmt.Printf("ID: %s\n", note.ID)
	fmt.Printf("Title: %s\n", note.Title)
	fmt.Printf("Tag: %s\n", note.Tag)
	return nil
}

func readAll(f *os.File) string {
	scanner := bufio.NewScanner(f)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return strings.Join(lines, "\n")
}
