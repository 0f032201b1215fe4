package main

import (
	"context"

	"gig-match/internal/app"
	"gig-match/internal/database/seeder"
	"gig-match/internal/domain/geo"
	"gig-match/internal/logger"

	"github.com/spf13/cobra"
)

var (
	seedLat       float64
	seedLon       float64
	seedCity      string
	seedProviders int
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert demo providers and jobs around a point",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
			center := geo.NewPoint(seedLon, seedLat)
			r := seeder.Runner{
				Log: logger.Component(c.Log, "seeder"),
				Seeders: []seeder.Seeder{
					seeder.ProvidersSeeder{Center: center, City: seedCity, Count: seedProviders},
					seeder.JobsSeeder{Center: center, City: seedCity},
				},
			}
			return r.Run(ctx, seeder.Target{Jobs: c.Jobs, Providers: c.Providers})
		})
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().Float64Var(&seedLat, "lat", 12.9716, "center latitude")
	seedCmd.Flags().Float64Var(&seedLon, "lon", 77.5946, "center longitude")
	seedCmd.Flags().StringVar(&seedCity, "city", "Bangalore", "city recorded on seeded rows")
	seedCmd.Flags().IntVar(&seedProviders, "providers", 32, "number of providers")
}
