package main

import (
	"context"
	"encoding/json"
	"fmt"

	"gig-match/internal/app"
	"gig-match/internal/delivery/http/dto"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var generateJobID string

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate and store matches for a job",
	RunE: func(cmd *cobra.Command, _ []string) error {
		jobID, err := uuid.Parse(generateJobID)
		if err != nil {
			return fmt.Errorf("invalid --job-id: %w", err)
		}
		return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
			ms, err := c.Matching.GenerateForJob(ctx, jobID)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(dto.NewMatchListResponse(ms))
		})
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVar(&generateJobID, "job-id", "", "job to match")
	_ = generateCmd.MarkFlagRequired("job-id")
}
