// Command events-worker consumes the comparison events published by the
// dashboard and periodically logs the most viewed selections.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"tweetcompare/internal/amqp"
	"tweetcompare/internal/cli"
	"tweetcompare/internal/log"
	"tweetcompare/internal/worker"
)

const (
	reportInterval = time.Minute
	reportTop      = 5
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	logger.Info("Starting events-worker", log.FieldOperation, log.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the events worker",
			"error_type", log.ErrorTypeConfiguration)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)

	client, err := amqp.ConnectWithRetry(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, 5, logger)
	if err != nil {
		logger.Error("Failed to connect to AMQP",
			"error_type", log.ErrorTypeNetwork,
			log.FieldError, err.Error())
		os.Exit(1)
	}
	defer client.Close()

	w := worker.NewEventsWorker(logger)
	go w.Report(ctx, reportInterval, reportTop)

	if err := client.ConsumeComparisonViewed(ctx, w.HandleComparisonViewed); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Consumer stopped", log.FieldError, err.Error())
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("events-worker stopped", "events", w.Total())
}
