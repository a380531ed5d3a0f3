package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"invdash/pkg/bus"
	"invdash/pkg/db"
	"invdash/pkg/objstore"
	"invdash/pkg/render"
	"invdash/services/reports"
	"invdash/services/warehouse"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "invctl",
		Short:         "Utility for managing the inventory warehouse",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newLoadCommand())
	cmd.AddCommand(newFetchCommand())
	cmd.AddCommand(newReportCommand())
	return cmd
}

func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		return nil, fmt.Errorf("DB_DSN is not set")
	}
	return db.Open(ctx, dsn)
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply warehouse schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := openPool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			return db.Migrate(cmd.Context(), pool)
		},
	}
}

func newLoadCommand() *cobra.Command {
	var natsURL string

	cmd := &cobra.Command{
		Use:   "load <snapshot-file-or-dir>",
		Short: "Load one snapshot file, or every snapshot in a directory in date order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			var events *bus.Bus
			if natsURL != "" {
				events, err = bus.New(natsURL)
				if err != nil {
					return fmt.Errorf("connect nats: %w", err)
				}
				defer events.Close()
			}

			loader, err := warehouse.NewLoader(pool, events, log.Logger)
			if err != nil {
				return err
			}

			info, err := os.Stat(args[0])
			if err != nil {
				return err
			}
			if info.IsDir() {
				results, err := loader.LoadDir(ctx, args[0])
				for _, res := range results {
					fmt.Printf("loaded %s: %d staged, %d facts\n", res.DateKey, res.Staged, res.FactsDeployed+res.FactsChanged)
				}
				return err
			}

			res, err := loader.LoadFile(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("loaded %s: %d staged, %d facts\n", res.DateKey, res.Staged, res.FactsDeployed+res.FactsChanged)
			return nil
		},
	}

	cmd.Flags().StringVar(&natsURL, "nats", os.Getenv("NATS_URL"), "NATS endpoint for load events (omit to skip publishing)")
	return cmd
}

func newFetchCommand() *cobra.Command {
	var (
		bucket string
		prefix string
		dest   string
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download snapshot files from the object store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			client, err := objstore.NewClientFromEnv()
			if err != nil {
				return fmt.Errorf("object store client: %w", err)
			}

			if err := os.MkdirAll(dest, 0o755); err != nil {
				return err
			}

			keys, err := client.List(ctx, bucket, prefix)
			if err != nil {
				return err
			}
			for _, key := range keys {
				path, err := client.Download(ctx, bucket, key, dest)
				if err != nil {
					return fmt.Errorf("download %s: %w", key, err)
				}
				fmt.Printf("fetched %s\n", path)
			}
			fmt.Printf("%d objects fetched\n", len(keys))
			return nil
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", os.Getenv("S3_BUCKET"), "Bucket holding the snapshot files")
	cmd.Flags().StringVar(&prefix, "prefix", "asset-report-", "Key prefix to match")
	cmd.Flags().StringVar(&dest, "dest", "snapshots", "Destination directory")
	return cmd
}

func newReportCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the dashboard outputs once",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := reports.LoadConfig(configPath)
			if err != nil {
				return err
			}

			pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			renderer, err := render.New()
			if err != nil {
				return err
			}

			gen, err := reports.NewGenerator(pool, renderer, cfg, log.Logger)
			if err != nil {
				return err
			}
			return gen.Generate(ctx)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", os.Getenv("REPORT_CONFIG"), "YAML report definition")
	return cmd
}
