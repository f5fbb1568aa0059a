package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/ssv445/360dialog-feedback-bot/internal/pkg/analyzer"
	"github.com/ssv445/360dialog-feedback-bot/internal/pkg/cache"
	"github.com/ssv445/360dialog-feedback-bot/internal/pkg/config"
	"github.com/ssv445/360dialog-feedback-bot/internal/pkg/deadletter"
	"github.com/ssv445/360dialog-feedback-bot/internal/pkg/dialog"
	"github.com/ssv445/360dialog-feedback-bot/internal/pkg/env"
	"github.com/ssv445/360dialog-feedback-bot/internal/pkg/jobqueue"
	"github.com/ssv445/360dialog-feedback-bot/internal/pkg/router"
)

const shutdownTimeout = 30 * time.Second

func main() {
	env.SetupEnvFile()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	application, err := NewApplication(cfg)
	if err != nil {
		log.Fatal(err)
	}

	application.Manager.Start()

	go func() {
		log.Infof("🚀 Feedback Bot running on %s", cfg.Addr())
		log.Infof("📱 Webhook URL: http://localhost:%s/webhook", cfg.Port)
		if err := application.App.Listen(cfg.Addr()); err != nil {
			log.Errorf("[Server] Listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("[Server] Shutting down...")
	application.Shutdown(shutdownTimeout)
	log.Info("[Server] Bye")
}

// Application bundles the HTTP app with the background processing it owns
type Application struct {
	App     *fiber.App
	Manager *jobqueue.Manager
	Queue   *jobqueue.Queue

	store          jobqueue.Store
	redisClient    *redis.Client
	limiterStorage fiber.Storage
}

// NewApplication wires store, queue, collaborators and routes. Nothing is started.
func NewApplication(cfg *config.Config) (*Application, error) {
	a := &Application{}

	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		log.Warn("[Server] Using in-memory store, queued events are lost on restart")
		a.store = jobqueue.NewMemoryStore()
	default:
		client, err := cache.NewClient(cfg.Store)
		if err != nil {
			return nil, err
		}
		a.redisClient = client
		a.store = jobqueue.NewRedisStore(client)

		// Redis must be reachable at boot: the limiter storage panics otherwise.
		// Later outages only make the worker back off.
		if err := cache.Ping(context.Background(), client); err != nil {
			_ = client.Close()
			return nil, err
		}
		a.limiterStorage = router.NewLimiterStorage(cfg.Store)
	}

	a.Queue = jobqueue.NewQueue(a.store, jobqueue.QueueConfig{DedupTTL: cfg.Store.DedupTTL})

	worker := jobqueue.NewWorker(a.Queue, analyzer.NewClient(cfg.OpenAI), dialog.NewClient(cfg.Dialog), jobqueue.WorkerConfig{
		MaxRetries:      cfg.Worker.MaxRetries,
		AnalyzerTimeout: cfg.Worker.AnalyzerTimeout,
		NotifierTimeout: cfg.Worker.NotifierTimeout,
		Backoff: jobqueue.BackoffPolicy{
			Initial: cfg.Worker.BackoffInitial,
			Max:     cfg.Worker.BackoffMax,
		},
	})

	archiveCfg, err := deadletter.LoadConfig()
	if err != nil {
		return nil, err
	}
	var archiver jobqueue.Archiver
	if archiveCfg.Enabled {
		s3Client, err := deadletter.NewS3Client(context.Background(), archiveCfg)
		if err != nil {
			return nil, err
		}
		archiver = deadletter.NewArchiver(a.store, a.Queue.Config().FailedKey, s3Client, archiveCfg.BucketName, archiveCfg.BatchSize)
	}
	a.Manager = jobqueue.NewManager(worker, archiver, archiveCfg.Interval)

	a.App = fiber.New(fiber.Config{
		AppName:   "360dialog Feedback Bot",
		BodyLimit: 4 * 1024 * 1024,
	})

	// recovery and logging
	a.App.Use(recover.New(), logger.New())

	// ROUTER
	router.InstallRouter(a.App, router.Dependencies{
		Config:         cfg,
		Queue:          a.Queue,
		LimiterStorage: a.limiterStorage,
	})

	return a, nil
}

// Shutdown stops accepting requests, lets the in-flight event finish, then closes the store
func (a *Application) Shutdown(timeout time.Duration) {
	if err := a.App.ShutdownWithTimeout(timeout); err != nil {
		log.Errorf("[Server] HTTP shutdown: %v", err)
	}
	a.Manager.Stop()
	if err := a.store.Close(); err != nil {
		log.Errorf("[Server] Store close: %v", err)
	}
	if a.limiterStorage != nil {
		if err := a.limiterStorage.Close(); err != nil {
			log.Errorf("[Server] Limiter storage close: %v", err)
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			log.Errorf("[Server] Redis close: %v", err)
		}
	}
}
