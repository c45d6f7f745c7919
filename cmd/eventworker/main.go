package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/acme/amd-screening/internal/app"
	"github.com/acme/amd-screening/internal/telemetry"
	"github.com/acme/amd-screening/internal/worker/event"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	path := *configPath
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path == "" {
		path = "configs/config.yaml"
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := app.Build(ctx, path)
	if err != nil {
		log.Fatalf("eventworker: build container: %v", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			log.Printf("eventworker: close container: %v", err)
		}
	}()

	lg := container.Logger.Named("eventworker")

	shutdownTracing, err := telemetry.Setup(ctx, container.Config.Telemetry, container.Config.App.Name+"-eventworker")
	if err != nil {
		lg.Fatal("setup telemetry", zap.Error(err))
	}
	defer func() {
		timeout := container.Config.Telemetry.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			lg.Warn("shutdown tracing", zap.Error(err))
		}
	}()

	if err := container.EnsureTopics(ctx); err != nil {
		lg.Fatal("ensure topics", zap.Error(err))
	}

	lg.Info("event worker starting",
		zap.String("topic", container.Config.Kafka.EventTopic),
		zap.String("group", container.Config.Kafka.EventConsumerGroupID),
	)

	w := event.New(container)
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		lg.Fatal("event worker stopped", zap.Error(err))
	}

	lg.Info("event worker shut down")
}
