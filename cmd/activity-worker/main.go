package main

import (
	"context"
	"errors"
	"time"

	"seguimiento/internal/amqp"
	"seguimiento/internal/backend"
	"seguimiento/internal/cache"
	"seguimiento/internal/cli"
	"seguimiento/internal/log"
	"seguimiento/internal/worker"
)

const statsInterval = 10 * time.Minute

func main() {
	cfg, logger := cli.Init(log.ComponentWorker)
	logger.Info("Starting activity-worker")
	if cfg.AMQPURL == "" {
		cli.Fatal(logger, "Missing queue configuration", errors.New("AMQP_URL is required by the activity worker"))
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	gw, err := backend.NewFactory(logger).Gateway(ctx, cfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize data backend", err, "backend", cfg.DataBackend)
	}
	defer gw.Cleanup()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer amqpClient.Close()

	activityWorker := worker.NewActivityWorker(gw.Gateway, cfg.GatewayTimeout, logger)

	caches := cache.NewManager(logger.Logger.With(log.FieldComponent, log.ComponentCache))
	caches.Register(activityWorker.Seen())
	caches.StartCleanup(statsInterval)
	defer caches.Stop()

	go func() {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s := activityWorker.Stats()
				logger.Info("Activity worker stats", "written", s.Written, "duplicates", s.Duplicates, "failed", s.Failed)
			}
		}
	}()

	err = amqpClient.ConsumeActivity(ctx, activityWorker.HandleActivityMessage)
	if err != nil && !errors.Is(err, context.Canceled) {
		cli.Fatal(logger, "Message consumption failed", err)
	}
	logger.Info("Activity worker stopped", log.FieldOperation, log.OpShutdown)
}
