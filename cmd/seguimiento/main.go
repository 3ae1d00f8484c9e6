package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"

	"seguimiento/internal/activity"
	"seguimiento/internal/aggregate"
	"seguimiento/internal/amqp"
	"seguimiento/internal/backend"
	"seguimiento/internal/cache"
	"seguimiento/internal/cli"
	"seguimiento/internal/editbuffer"
	apphttp "seguimiento/internal/http"
	"seguimiento/internal/log"
	"seguimiento/internal/logfeed"
	"seguimiento/internal/session"
)

const (
	sessionPurgeSpec = "@every 1h"
	cacheSweepEvery  = 5 * time.Minute
	shutdownTimeout  = 30 * time.Second
)

func main() {
	cfg, logger := cli.Init(log.ComponentApp)

	ctx, stop := cli.SignalContext()
	defer stop()

	catalog, err := aggregate.LoadCatalog(cfg.ProjectCatalogFile)
	if err != nil {
		cli.Fatal(logger, "Failed to load project catalog", err, "path", cfg.ProjectCatalogFile)
	}
	if err := catalog.Validate(); err != nil {
		cli.Fatal(logger, "Invalid project catalog", err)
	}

	factory := backend.NewFactory(logger)
	gw, err := factory.Gateway(ctx, cfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize data backend", err, "backend", cfg.DataBackend)
	}
	defer gw.Cleanup()

	store, err := factory.Sessions(ctx, cfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize session store", err, "store", cfg.SessionStore)
	}
	defer store.Cleanup()
	sessions := session.NewService(store.Store, cfg.SessionTTL)
	edits := editbuffer.New(cfg.SessionTTL)

	// Activity goes through the queue when AMQP is configured, directly to
	// the gateway otherwise.
	recorderOpts := []activity.Option{activity.WithLogger(logger)}
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, writing activity directly", log.FieldError, err.Error())
		} else {
			defer amqpClient.Close()
			recorderOpts = append(recorderOpts, activity.WithPublisher(amqpClient))
			logger.Info("AMQP client initialized - activity will be written by activity-worker",
				"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - activity is written directly")
	}
	recorder := activity.NewRecorder(gw.Gateway, recorderOpts...)

	feed := logfeed.New(gw.Gateway, cfg.LogPollInterval, cfg.LogPollLimit, logger)
	if err := feed.Start(ctx); err != nil {
		cli.Fatal(logger, "Failed to start activity log poller", err)
	}
	defer feed.Stop()

	// Session buffers and, for the memory store, sessions themselves live in
	// LRU caches swept here.
	caches := cache.NewManager(logger.Logger.With(log.FieldComponent, log.ComponentCache))
	caches.Register(edits.Cache())
	if mem, ok := store.Store.(*session.MemoryStore); ok {
		caches.Register(mem.Cache())
	}
	caches.StartCleanup(cacheSweepEvery)
	defer caches.Stop()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(sessionPurgeSpec, func() {
		n, err := sessions.Purge(ctx)
		if err != nil {
			logger.Warn("Session purge failed", log.FieldError, err.Error())
			return
		}
		if n > 0 {
			logger.Info("Expired sessions purged", "count", n)
		}
	}); err != nil {
		cli.Fatal(logger, "Failed to schedule session purge", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Gateway:  gw.Gateway,
		Engine:   aggregate.NewEngine(catalog),
		Sessions: sessions,
		Edits:    edits,
		Activity: recorder,
		Feed:     feed,
		Logger:   logger,
	},
		apphttp.WithSecureCookies(cfg.SecureCookies),
		apphttp.WithRateLimit(cfg.RateLimit),
	)
	srv.Start()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting seguimiento server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"session_store", cfg.SessionStore)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
	case err := <-serverErr:
		if err != nil {
			cli.Fatal(logger, "Server error", err, "port", cfg.Port)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err.Error())
	}
	// pending activity writes finish before the gateway and queue close
	recorder.Wait()
	logger.Info("Server stopped gracefully")
}
