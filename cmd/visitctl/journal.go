package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	journalCmd := &cobra.Command{Use: "journal", Short: "Journal entry operations"}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list USER_ID",
		Short: "List a user's journal entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doJSON(client().R().
				SetQueryParam("limit", fmt.Sprintf("%d", limit)).
				Get(fmt.Sprintf("/api/users/%s/journal", args[0])))
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum entries to return")
	journalCmd.AddCommand(listCmd)

	getCmd := &cobra.Command{
		Use:   "get ENTRY_ID",
		Short: "Get a journal entry by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doJSON(client().R().Get(fmt.Sprintf("/api/journal/%s", args[0])))
		},
	}
	journalCmd.AddCommand(getCmd)

	sessionCmd := &cobra.Command{
		Use:   "session SESSION_ID",
		Short: "Get the journal entry for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doJSON(client().R().Get(fmt.Sprintf("/api/sessions/%s/journal", args[0])))
		},
	}
	journalCmd.AddCommand(sessionCmd)

	var notes string
	notesCmd := &cobra.Command{
		Use:   "notes ENTRY_ID",
		Short: "Update personal notes on an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]interface{}{"personalNotes": notes}
			return doJSON(client().R().SetBody(payload).Patch(fmt.Sprintf("/api/journal/%s/notes", args[0])))
		},
	}
	notesCmd.Flags().StringVarP(&notes, "notes", "m", "", "Notes text (required)")
	_ = notesCmd.MarkFlagRequired("notes")
	journalCmd.AddCommand(notesCmd)

	rootCmd.AddCommand(journalCmd)
}
