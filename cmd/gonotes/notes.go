package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"gonotes/internal/client"
	"gonotes/internal/note"
	"gonotes/internal/render"
)

var serverURL string

// notesCmd groups the API client commands.
var notesCmd = &cobra.Command{
	Use:     "notes",
	Short:   "Manage notes on a running server",
	Aliases: []string{"n"},
}

var listNotesCmd = &cobra.Command{
	Use:     "list",
	Short:   "List notes, newest first",
	Aliases: []string{"ls"},
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.Load(cmd.Context()); err != nil {
			return err
		}
		printNotes(cmd.OutOrStdout(), c.Notes())
		return nil
	},
}

var addNoteCmd = &cobra.Command{
	Use:     "add [title] [content]",
	Short:   "Create a note",
	Aliases: []string{"a"},
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		n, err := c.Create(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if n == nil {
			return fmt.Errorf("title and content are required")
		}
		printNotes(cmd.OutOrStdout(), []*note.Note{n})
		return nil
	},
}

var editNoteCmd = &cobra.Command{
	Use:     "edit [noteID] [title] [content]",
	Short:   "Replace a note's title and content",
	Aliases: []string{"e"},
	Args:    cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseNoteID(args[0])
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		n, err := c.SaveEdit(cmd.Context(), id, args[1], args[2])
		if err != nil {
			return err
		}
		if n == nil {
			return fmt.Errorf("title and content are required")
		}
		printNotes(cmd.OutOrStdout(), []*note.Note{n})
		return nil
	},
}

var deleteNoteCmd = &cobra.Command{
	Use:     "rm [noteID]",
	Short:   "Delete a note (unknown ids succeed)",
	Aliases: []string{"delete"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseNoteID(args[0])
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.Delete(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted note %d\n", id)
		return nil
	},
}

func init() {
	defaultURL := os.Getenv("GONOTES_SERVER")
	if defaultURL == "" {
		defaultURL = "http://localhost:3000"
	}
	notesCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", defaultURL, "Base URL of the gonotes server")
	notesCmd.AddCommand(listNotesCmd, addNoteCmd, editNoteCmd, deleteNoteCmd)
	rootCmd.AddCommand(notesCmd)
}

func newClient() (*client.Controller, error) {
	return client.New(serverURL)
}

func parseNoteID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid note id %q", s)
	}
	return id, nil
}

// printNotes renders notes as a table.
func printNotes(w io.Writer, notes []*note.Note) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		text.FgGreen.Sprint("ID"), text.FgGreen.Sprint("Title"),
		text.FgGreen.Sprint("Content"), text.FgGreen.Sprint("Created"),
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, WidthMax: 48},
	})
	for _, n := range notes {
		t.AppendRow(table.Row{n.ID, n.Title, n.Content, n.CreatedAt.Local().Format(render.DateLayout)})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d notes", len(notes)), ""})
	t.Render()
}
