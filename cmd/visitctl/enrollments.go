package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	enrollCmd := &cobra.Command{Use: "enrollments", Short: "Voice enrollment operations"}

	var family, name, relationship, embeddingJSON string
	var quality, consistency float64
	var samples int
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Enroll a voice template",
		RunE: func(cmd *cobra.Command, args []string) error {
			var embedding []float32
			if err := json.Unmarshal([]byte(embeddingJSON), &embedding); err != nil {
				return fmt.Errorf("--embedding must be a JSON array of numbers: %w", err)
			}
			payload := map[string]interface{}{
				"familyId":         family,
				"speakerName":      name,
				"relationship":     relationship,
				"meanEmbedding":    embedding,
				"qualityScore":     quality,
				"consistencyScore": consistency,
				"sampleCount":      samples,
			}
			return doJSON(client().R().SetBody(payload).Post("/api/enrollments"))
		},
	}
	createCmd.Flags().StringVarP(&family, "family", "f", "", "Family ID (required)")
	createCmd.Flags().StringVarP(&name, "name", "n", "", "Speaker name (required)")
	createCmd.Flags().StringVarP(&relationship, "relationship", "r", "", "Relationship label")
	createCmd.Flags().StringVarP(&embeddingJSON, "embedding", "e", "", "Mean embedding as JSON array (required)")
	createCmd.Flags().Float64VarP(&quality, "quality", "q", 1, "Quality score [0,1]")
	createCmd.Flags().Float64Var(&consistency, "consistency", 1, "Consistency score [0,1]")
	createCmd.Flags().IntVarP(&samples, "samples", "s", 1, "Number of voice samples")
	_ = createCmd.MarkFlagRequired("family")
	_ = createCmd.MarkFlagRequired("name")
	_ = createCmd.MarkFlagRequired("embedding")
	enrollCmd.AddCommand(createCmd)

	listCmd := &cobra.Command{
		Use:   "list FAMILY_ID",
		Short: "List a family's active enrollments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doJSON(client().R().Get(fmt.Sprintf("/api/families/%s/enrollments", args[0])))
		},
	}
	enrollCmd.AddCommand(listCmd)

	deactivateCmd := &cobra.Command{
		Use:   "deactivate ENROLLMENT_ID",
		Short: "Retire an enrollment from matching",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doJSON(client().R().Delete(fmt.Sprintf("/api/enrollments/%s", args[0])))
		},
	}
	enrollCmd.AddCommand(deactivateCmd)

	rootCmd.AddCommand(enrollCmd)
}
