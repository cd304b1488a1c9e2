package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"circlenotes/cmd/internal/config"
	"circlenotes/cmd/internal/utils/uid"

	"github.com/labstack/gommon/log"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "circlenotes",
		Short:         "Circle Notes API server and maintenance tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newTrendingCommand())
	rootCmd.AddCommand(newBlobsCommand())
	return rootCmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and background jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Serve(cmd.Context())
		},
	}
}

func newTrendingCommand() *cobra.Command {
	trendingCmd := &cobra.Command{
		Use:   "trending",
		Short: "Trending rankings",
	}

	trendingCmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Recompute the weekly and monthly rankings once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.trending.AggregateAll(cmd.Context()); err != nil {
				return err
			}
			log.Info("Trending rankings recomputed")
			return nil
		},
	})
	return trendingCmd
}

func newBlobsCommand() *cobra.Command {
	var itemID int64

	blobsCmd := &cobra.Command{
		Use:   "blobs",
		Short: "Item body storage",
	}

	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete every stored body of a removed item",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if itemID <= 0 {
				return fmt.Errorf("--item must be a positive item id")
			}

			app, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			n, err := app.pipeline.PurgeBlobs(cmd.Context(), itemID)
			if err != nil {
				return err
			}
			log.Infof("Purged %d blobs of item %d", n, itemID)
			return nil
		},
	}
	purgeCmd.Flags().Int64Var(&itemID, "item", 0, "id of the removed item")
	_ = purgeCmd.MarkFlagRequired("item")

	blobsCmd.AddCommand(purgeCmd)
	return blobsCmd
}

func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}

	uid.Init(cfg.MachineID)
	if cfg.Env != "production" {
		log.SetLevel(log.DEBUG)
	}
	return cfg, nil
}
