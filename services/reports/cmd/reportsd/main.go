package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-envconfig"

	"invdash/pkg/bus"
	"invdash/pkg/db"
	"invdash/pkg/render"
	"invdash/services/reports"
)

type appConfig struct {
	DBDSN        string `env:"DB_DSN,required"`
	NATSURL      string `env:"NATS_URL,default=nats://127.0.0.1:4222"`
	ReportConfig string `env:"REPORT_CONFIG"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var cfg appConfig
	if err := envconfig.Process(ctx, &cfg); err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	reportCfg, err := reports.LoadConfig(cfg.ReportConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("load report config")
	}

	pool, err := db.Open(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	renderer, err := render.New()
	if err != nil {
		log.Fatal().Err(err).Msg("load templates")
	}

	gen, err := reports.NewGenerator(pool, renderer, reportCfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("create generator")
	}

	// Render the current state once so a fresh deployment has output before
	// the first snapshot event arrives.
	if err := gen.Generate(ctx); err != nil {
		log.Error().Err(err).Msg("initial report generation")
	}

	events, err := bus.New(cfg.NATSURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect nats")
	}
	defer events.Close()

	sub, err := events.Subscribe(ctx, bus.SnapshotsLoadedSubject, "reportsd", func(ctx context.Context, data []byte) error {
		log.Info().RawJSON("event", data).Msg("snapshot loaded, regenerating reports")
		return gen.Generate(ctx)
	})
	if err != nil {
		log.Fatal().Err(err).Msg("subscribe")
	}
	defer sub.Close()

	log.Info().Str("subject", bus.SnapshotsLoadedSubject).Str("dir", reportCfg.OutputDir).Msg("starting reportsd")
	<-ctx.Done()
}
