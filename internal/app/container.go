package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/acme/amd-screening/internal/config"
	"github.com/acme/amd-screening/internal/detection/registry"
	"github.com/acme/amd-screening/internal/infra/db"
	"github.com/acme/amd-screening/internal/infra/redis"
	"github.com/acme/amd-screening/internal/queue"
	"github.com/acme/amd-screening/internal/repository"
	pgrepo "github.com/acme/amd-screening/internal/repository/postgres"
	scyllarepo "github.com/acme/amd-screening/internal/repository/scylla"
	"github.com/acme/amd-screening/internal/service/concurrency"
	screeningsvc "github.com/acme/amd-screening/internal/service/screening"
	telephonySvc "github.com/acme/amd-screening/internal/telephony"
	telephonyMock "github.com/acme/amd-screening/internal/telephony/mock"
	"github.com/acme/amd-screening/pkg/logger"
)

// Container wires together shared infrastructure dependencies.
type Container struct {
	Config *config.Config
	Logger *logger.Logger

	Postgres *db.Postgres
	Scylla   *db.Scylla
	Redis    *redis.Client
	Kafka    *queue.Kafka

	// lazily initialised components
	components struct {
		once         sync.Once
		repositories *repositories
		services     *services
		dispatchers  *dispatchers
		providers    *providers
		limiters     *limiters
		registry     *registry.Registry
	}
}

type repositories struct {
	CallRecords repository.CallRecordRepository
	Attempts    repository.DetectionAttemptStore
}

type services struct {
	Screening *screeningsvc.Service
}

type dispatchers struct {
	Jobs    *queue.JobDispatcher
	Results *queue.ResultPublisher
}

type providers struct {
	Telephony telephonySvc.Provider
}

type limiters struct {
	Concurrency *concurrency.Limiter
}

// Build constructs a container for the given configuration path.
func Build(ctx context.Context, configPath string) (*Container, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	lg, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, err
	}

	pg, err := db.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("bootstrap postgres: %w", err)
	}

	scylla, err := db.NewScylla(cfg.Scylla)
	if err != nil {
		return nil, fmt.Errorf("bootstrap scylla: %w", err)
	}

	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("bootstrap redis: %w", err)
	}

	kafka, err := queue.NewKafka(cfg.Kafka)
	if err != nil {
		return nil, fmt.Errorf("bootstrap kafka: %w", err)
	}

	return &Container{
		Config:   cfg,
		Logger:   lg,
		Postgres: pg,
		Scylla:   scylla,
		Redis:    redisClient,
		Kafka:    kafka,
	}, nil
}

func (c *Container) initComponents() {
	c.components.once.Do(func() {
		repos := &repositories{
			CallRecords: pgrepo.NewCallRecordRepository(c.Postgres.DB()),
			Attempts:    scyllarepo.NewDetectionStore(c.Scylla.Session()),
		}

		disp := &dispatchers{
			Jobs:    queue.NewJobDispatcher(c.Kafka, c.Config.Kafka.JobTopic),
			Results: queue.NewResultPublisher(c.Kafka, c.Config.Kafka.ResultTopic),
		}

		providers := &providers{
			Telephony: telephonyMock.NewProvider(c.Config.Telephony),
		}

		services := &services{
			Screening: screeningsvc.NewService(
				repos.CallRecords,
				repos.Attempts,
				providers.Telephony,
				disp.Jobs,
				disp.Results,
			),
		}

		limiters := &limiters{
			Concurrency: concurrency.NewLimiter(c.Redis.Inner(), c.Config.Throttle.DefaultPerCampaign, c.Config.Throttle.SlotTTL),
		}

		c.components.repositories = repos
		c.components.dispatchers = disp
		c.components.services = services
		c.components.providers = providers
		c.components.limiters = limiters
		c.components.registry = registry.New(c.Config.Detection, c.Logger)
	})
}

// Repositories exposes initialized repositories.
func (c *Container) Repositories() *repositories {
	c.initComponents()
	return c.components.repositories
}

// Services exposes initialized services.
func (c *Container) Services() *services {
	c.initComponents()
	return c.components.services
}

// Dispatchers exposes Kafka dispatchers.
func (c *Container) Dispatchers() *dispatchers {
	c.initComponents()
	return c.components.dispatchers
}

// Providers exposes external providers.
func (c *Container) Providers() *providers {
	c.initComponents()
	return c.components.providers
}

// Limiters exposes limiter utilities.
func (c *Container) Limiters() *limiters {
	c.initComponents()
	return c.components.limiters
}

// Registry exposes the strategy registry.
func (c *Container) Registry() *registry.Registry {
	c.initComponents()
	return c.components.registry
}

// Close releases all held resources.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	if d := c.components.dispatchers; d != nil {
		if d.Jobs != nil {
			if err := d.Jobs.Close(); err != nil {
				errs = append(errs, fmt.Errorf("job dispatcher close: %w", err))
			}
		}
		if d.Results != nil {
			if err := d.Results.Close(); err != nil {
				errs = append(errs, fmt.Errorf("result publisher close: %w", err))
			}
		}
	}
	if c.Kafka != nil {
		if err := c.Kafka.Close(); err != nil {
			errs = append(errs, fmt.Errorf("kafka close: %w", err))
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if c.Scylla != nil {
		if err := c.Scylla.Close(); err != nil {
			errs = append(errs, fmt.Errorf("scylla close: %w", err))
		}
	}
	if c.Postgres != nil {
		if err := c.Postgres.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("postgres close: %w", err))
		}
	}
	if c.Logger != nil {
		c.Logger.Sync()
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// EnsureTopics ensures required Kafka topics exist.
func (c *Container) EnsureTopics(ctx context.Context) error {
	topics := []string{c.Config.Kafka.EventTopic, c.Config.Kafka.JobTopic, c.Config.Kafka.ResultTopic}
	return c.Kafka.EnsureTopics(ctx, topics, 48, 1)
}
