package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/acme/amd-screening/internal/config"
	"github.com/acme/amd-screening/internal/detection"
	"github.com/acme/amd-screening/internal/detection/registry"
	"github.com/acme/amd-screening/internal/domain"
	"github.com/acme/amd-screening/pkg/logger"
)

// amdprobe runs a single detection strategy against a local audio file or a
// provider event name and prints the normalized result. Useful for checking
// credentials and endpoint reachability before deploying the workers.
func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	strategyName := flag.String("strategy", "", "strategy kind: signaling, sip-event, ml-inference, llm-audio")
	audioPath := flag.String("audio", "", "path to raw PCM audio (24kHz, 16-bit mono)")
	eventName := flag.String("event", "", "provider event name for event-driven strategies")
	timeout := flag.Duration("timeout", 30*time.Second, "overall probe timeout")
	flag.Parse()

	if *strategyName == "" {
		log.Fatal("amdprobe: -strategy is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("amdprobe: load config: %v", err)
	}

	lg, err := logger.New(cfg.App.Env)
	if err != nil {
		log.Fatalf("amdprobe: build logger: %v", err)
	}
	defer lg.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	kind := domain.StrategyKind(*strategyName)
	strategy, err := registry.New(cfg.Detection, lg).Create(ctx, kind)
	if err != nil {
		log.Fatalf("amdprobe: create strategy: %v", err)
	}
	defer func() {
		cleanupCtx, cancelCleanup := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelCleanup()
		_ = strategy.Cleanup(cleanupCtx)
	}()

	var result domain.DetectionResult
	switch {
	case kind.EventDriven():
		if *eventName == "" {
			log.Fatalf("amdprobe: -event is required for strategy %s", kind)
		}
		interpreter, ok := strategy.(detection.EventInterpreter)
		if !ok {
			log.Fatalf("amdprobe: strategy %s does not interpret events", kind)
		}
		result, err = interpreter.InterpretEvent(ctx, domain.ProviderEvent{
			CallID:     uuid.New(),
			Name:       *eventName,
			ReceivedAt: time.Now().UTC(),
		})
	default:
		if *audioPath == "" {
			log.Fatalf("amdprobe: -audio is required for strategy %s", kind)
		}
		audio, rerr := os.ReadFile(*audioPath)
		if rerr != nil {
			log.Fatalf("amdprobe: read audio: %v", rerr)
		}
		result, err = strategy.Detect(ctx, audio)
	}
	if err != nil {
		log.Fatalf("amdprobe: detect: %v", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("amdprobe: encode result: %v", err)
	}
	fmt.Println(string(out))
}
