package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mapagent/internal/env"
	"mapagent/internal/logging"
	"mapagent/internal/resolve"
	"mapagent/internal/service"
	"mapagent/pkg/graceful"
	"mapagent/pkg/kafkaclient"
)

func main() {
	env.LoadEnv(nil)
	cfg, err := env.Load()
	if err != nil {
		panic(err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := graceful.Context(context.Background(), logger)
	defer cancel()

	broker := env.MustGetEnv(logger, "KAFKA_BROKER")
	requestTopic := env.MustGetEnv(logger, "KAFKA_REQUEST_TOPIC")
	resultTopic := env.MustGetEnv(logger, "KAFKA_RESULT_TOPIC")
	groupID := env.MustGetEnv(logger, "KAFKA_GROUP_ID")

	logger.Info("connecting to kafka",
		zap.String("broker", broker),
		zap.String("request_topic", requestTopic),
		zap.String("result_topic", resultTopic),
		zap.String("group_id", groupID))

	metricsSrv := serveMetrics(cfg.MetricsAddr, logger)

	consumer := kafkaclient.NewKafkaConsumer(requestTopic, groupID, broker, logger.Named("consumer"))
	producer := kafkaclient.NewProducer(resultTopic, broker, logger.Named("producer"))
	components := resolve.FromConfig(cfg, logger)

	consumer.StartConsuming(ctx)
	service.NewWorker(consumer.NewIterator(), components.Resolver, producer, logger.Named("worker")).Run(ctx)

	consumer.Stop()
	if err := producer.Close(); err != nil {
		logger.Warn("failed to close producer", zap.Error(err))
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	logger.Info("worker exiting")
}

// serveMetrics exposes /metrics on addr. An empty addr disables it.
func serveMetrics(addr string, logger *zap.Logger) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	return srv
}
