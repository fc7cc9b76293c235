package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/maltedev/ddtech-scraper/internal/app"
	"github.com/maltedev/ddtech-scraper/internal/config"
	"github.com/maltedev/ddtech-scraper/internal/logger"
	"github.com/maltedev/ddtech-scraper/internal/scraper"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, scraper.NewConsoleReporter(os.Stdout), log)
	if err != nil {
		log.Error("failed to initialize", "error", err)
		return 1
	}
	defer a.Close()

	summary, err := a.RunDefault(ctx)
	if err != nil {
		if scraper.IsFatal(err) {
			log.Error("browser session unavailable", "error", err)
			fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
			return 1
		}
		if summary == nil {
			log.Error("scrape failed", "error", err)
			return 1
		}
		log.Warn("scrape interrupted", "error", err)
	}

	if summary != nil && summary.SinkErr() != nil {
		log.Error("export failed", "error", summary.SinkErr())
	}

	return 0
}
