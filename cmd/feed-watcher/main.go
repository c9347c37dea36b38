package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"d2stats/internal/config"
	"d2stats/internal/pipeline"
	"d2stats/internal/storage"
	"d2stats/internal/util"
	"d2stats/internal/watcher"
)

func main() {
	cfg, err := config.Load()
	must(err)
	must(util.SetLogLevel(cfg.LogLevel))

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	processor, err := pipeline.NewProcessingService(db, cfg)
	must(err)
	svc := watcher.NewService(cfg, processor.Sync(), processor, db)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
