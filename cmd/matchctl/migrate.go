package main

import (
	"context"
	"fmt"

	"gig-match/internal/app"

	"github.com/spf13/cobra"
)

var migrateDir string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
			if c.DB == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "memory store has no schema, nothing to migrate")
				return nil
			}
			applied, err := c.Migrate(ctx, migrateDir)
			if err != nil {
				return err
			}
			for _, m := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", m.Filename)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d migration(s) applied\n", len(applied))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().StringVar(&migrateDir, "dir", "", "read migrations from this directory instead of the embedded set")
}
