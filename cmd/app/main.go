package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"currencyalert/internal/config"
	"currencyalert/internal/provider"
	"currencyalert/internal/service"
)

// Exit codes. An attempted alert exits 0 whether or not it was delivered.
const (
	exitOK      = 0
	exitStartup = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	cmd, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	cfg, err := config.LoadConfig(cmd.EnvFile)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return exitStartup
	}

	zapLogger, err := newLogger(cfg.Log)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Failed to init logger: %v\n", err)
		return exitStartup
	}
	defer func() { _ = zapLogger.Sync() }()
	sugar := zapLogger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg, sugar)
	if err != nil {
		sugar.Errorw("Failed to initialize app", "error", err)
		return exitStartup
	}
	defer func() {
		if err := app.close(); err != nil {
			sugar.Warnw("Connection cleanup errors", "error", err)
		}
	}()

	out := app.Run(ctx, service.AlertRequest{
		Pair:          provider.CurrencyPair{Base: cmd.Source, Quote: cmd.Target},
		Recipient:     cmd.Email,
		ReferenceDate: cmd.ReferenceDate,
	})
	sugar.Debugw("Alert finished", "alert_id", out.AlertID, "status", out.Status)
	return exitOK
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log.level %q: %w", cfg.Level, err)
	}
	zcfg.Level = level
	return zcfg.Build()
}
