package main

import (
	"context"
	"fmt"

	"gig-match/internal/app"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire every pending match past its deadline",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
			expired, err := c.Matching.Sweep(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "%d match(es) expired\n", len(expired))
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
