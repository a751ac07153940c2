package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/feichai0017/songplay-etl/config"
	"github.com/feichai0017/songplay-etl/internal/service/pipeline"
	"github.com/feichai0017/songplay-etl/pkg/logger"
	"github.com/feichai0017/songplay-etl/pkg/metrics"
)

func main() {
	os.Exit(run())
}

func run() int {
	appCfg := config.GetAppConfig()

	outputs := []string{"stdout"}
	if appCfg.LogFile != "" {
		outputs = append(outputs, appCfg.LogFile)
	}
	log, err := logger.NewLogger(
		logger.WithLevel(appCfg.LogLevel),
		logger.WithEncoding(appCfg.LogEncoding),
		logger.WithOutputPaths(outputs),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	svc, err := pipeline.GetService(ctx, log, m)
	if err != nil {
		log.Error("Failed to create pipeline service", logger.Error(err))
		return 1
	}

	report, runErr := svc.Run(ctx)

	if pusher := metrics.NewPusher(appCfg.PushgatewayURL, "songplay_etl", nil); pusher != nil {
		pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := pusher.Push(pushCtx, reg); err != nil {
			log.Warn("Failed to push metrics", logger.Error(err))
		}
		cancel()
	}

	if runErr != nil {
		log.Error("Pipeline run failed", logger.Error(runErr))
		return 1
	}
	for _, t := range report.Tables {
		log.Info("Table written",
			logger.String("table", t.Table),
			logger.String("location", t.Location),
			logger.Int("rows", t.Rows),
			logger.Int("partitions", t.Partitions),
		)
	}
	return 0
}
