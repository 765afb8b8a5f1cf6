package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	sessionsCmd := &cobra.Command{Use: "sessions", Short: "Session lifecycle operations"}

	// start
	var userID, patient, family, lang string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start a visit session",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]interface{}{
				"userId":         userID,
				"patientName":    patient,
				"familyId":       family,
				"targetLanguage": lang,
			}
			return doJSON(client().R().SetBody(payload).Post("/api/sessions"))
		},
	}
	startCmd.Flags().StringVarP(&userID, "user", "u", "", "User ID (required)")
	startCmd.Flags().StringVarP(&patient, "patient", "p", "", "Patient display name (required)")
	startCmd.Flags().StringVarP(&family, "family", "f", "", "Family ID (required)")
	startCmd.Flags().StringVarP(&lang, "lang", "l", "en", "Target language code")
	_ = startCmd.MarkFlagRequired("user")
	_ = startCmd.MarkFlagRequired("patient")
	_ = startCmd.MarkFlagRequired("family")
	sessionsCmd.AddCommand(startCmd)

	// get
	getCmd := &cobra.Command{
		Use:   "get SESSION_ID",
		Short: "Get session by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doJSON(client().R().Get(fmt.Sprintf("/api/sessions/%s", args[0])))
		},
	}
	sessionsCmd.AddCommand(getCmd)

	// list
	listCmd := &cobra.Command{
		Use:   "list USER_ID",
		Short: "List a user's sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doJSON(client().R().Get(fmt.Sprintf("/api/users/%s/sessions", args[0])))
		},
	}
	sessionsCmd.AddCommand(listCmd)

	// end
	var outcome string
	endCmd := &cobra.Command{
		Use:   "end SESSION_ID",
		Short: "Terminate a session (completed synthesizes the journal entry)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]interface{}{"outcome": outcome}
			return doJSON(client().R().SetBody(payload).Post(fmt.Sprintf("/api/sessions/%s/end", args[0])))
		},
	}
	endCmd.Flags().StringVarP(&outcome, "outcome", "o", "completed", "Terminal outcome: completed or failed")
	sessionsCmd.AddCommand(endCmd)

	// append
	var speaker, role, text, translated string
	var tStart, tEnd, confidence float64
	appendCmd := &cobra.Command{
		Use:   "append SESSION_ID",
		Short: "Append a transcribed segment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]interface{}{
				"speakerLabel":   speaker,
				"roleHint":       role,
				"originalText":   text,
				"translatedText": translated,
				"timestampStart": tStart,
				"timestampEnd":   tEnd,
				"confidence":     confidence,
			}
			return doJSON(client().R().SetBody(payload).Post(fmt.Sprintf("/api/sessions/%s/segments", args[0])))
		},
	}
	appendCmd.Flags().StringVarP(&speaker, "speaker", "s", "", "Speaker label")
	appendCmd.Flags().StringVarP(&role, "role", "r", "", "Speaker role hint")
	appendCmd.Flags().StringVarP(&text, "text", "t", "", "Original text (required)")
	appendCmd.Flags().StringVar(&translated, "translated", "", "Translated text")
	appendCmd.Flags().Float64Var(&tStart, "start", 0, "Segment start offset in seconds")
	appendCmd.Flags().Float64Var(&tEnd, "end", 0, "Segment end offset in seconds")
	appendCmd.Flags().Float64VarP(&confidence, "confidence", "c", 1, "Transcription confidence [0,1]")
	_ = appendCmd.MarkFlagRequired("text")
	sessionsCmd.AddCommand(appendCmd)

	// segments
	segmentsCmd := &cobra.Command{
		Use:   "segments SESSION_ID",
		Short: "List the ordered segment sequence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doJSON(client().R().Get(fmt.Sprintf("/api/sessions/%s/segments", args[0])))
		},
	}
	sessionsCmd.AddCommand(segmentsCmd)

	rootCmd.AddCommand(sessionsCmd)
}
