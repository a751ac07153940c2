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
	"github.com/feichai0017/songplay-etl/pkg/queue"
	"github.com/feichai0017/songplay-etl/pkg/worker"
)

func main() {
	appCfg := config.GetAppConfig()

	// 初始化日志
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	pusher := metrics.NewPusher(appCfg.PushgatewayURL, "songplay_etl_worker", nil)

	svc, err := pipeline.GetService(ctx, log, m)
	if err != nil {
		log.Error("Failed to create pipeline service", logger.Error(err))
		os.Exit(1)
	}

	runQueue, err := queue.GetQueue()
	if err != nil {
		log.Error("Failed to create run queue", logger.Error(err))
		os.Exit(1)
	}
	defer runQueue.Close()

	workerCfg := &worker.Config{
		RedisAddr:   appCfg.RedisAddr,
		RedisDB:     appCfg.RedisDB,
		Concurrency: 1,
		Queues: map[string]int{
			"critical": 6,
			"default":  3,
			"low":      1,
		},
	}

	pipelineWorker, err := worker.NewPipelineWorker(workerCfg, svc, runQueue, log)
	if err != nil {
		log.Error("Failed to create pipeline worker", logger.Error(err))
		os.Exit(1)
	}

	if err := pipelineWorker.Start(ctx); err != nil {
		log.Error("Failed to start worker", logger.Error(err))
		os.Exit(1)
	}

	// 定期推送指标
	if pusher != nil {
		go func() {
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := pusher.Push(ctx, reg); err != nil {
						log.Warn("Failed to push metrics", logger.Error(err))
					}
				}
			}
		}()
	}

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down worker...")
	cancel()
	pipelineWorker.Stop()
	log.Info("Worker stopped")
}
