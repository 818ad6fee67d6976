package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/Schidstorm/edge_config/apps/totp-display/pkg/display"
	"github.com/Schidstorm/edge_config/apps/totp-display/pkg/form"
	"github.com/Schidstorm/edge_config/apps/totp-display/pkg/scheduler"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

var version = "dev"

var log = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.InfoLevel)

func main() {
	loadDotenv(".env")

	cfg := getConfig()
	log = log.Level(cfg.logLevel)
	zlog.Logger = log
	zerolog.DefaultContextLogger = &log

	log.Debug().Str("version", version).Msg("Starting totp-display")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)
	defer stop()

	term := display.NewTerminal(os.Stdout, display.WithGrouping(cfg.group))
	sched := scheduler.New(term)
	defer func() {
		sched.Close()
		term.Finish()
	}()

	f := form.New(sched, os.Stdout)
	if cfg.uri != "" {
		form.Report(f.SetURI(cfg.uri))
	} else {
		form.Report(f.Load(cfg.input()))
	}

	if !cfg.interactive {
		<-ctx.Done()
		return
	}

	err := f.Run(ctx, os.Stdin)
	if err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("Failed to read input")
	}
}
