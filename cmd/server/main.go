package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/feichai0017/songplay-etl/api/handlers"
	"github.com/feichai0017/songplay-etl/api/routes"
	"github.com/feichai0017/songplay-etl/config"
	"github.com/feichai0017/songplay-etl/internal/catalog/dbt"
	"github.com/feichai0017/songplay-etl/pkg/logger"
	"github.com/feichai0017/songplay-etl/pkg/queue"
)

func main() {
	appCfg := config.GetAppConfig()

	// init logger
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

	// init queue
	runQueue, err := queue.GetQueue()
	if err != nil {
		log.Fatal("Failed to create run queue", logger.Error(err))
	}
	defer runQueue.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// init handlers
	h := handlers.NewHandlers(runQueue, dbt.NewGenerator("sparkify", "spark", log), config.OutputData, log)
	r := gin.New()
	r.Use(gin.Recovery())
	routes.SetupRoutes(r, h, reg, appCfg.CORSOrigins...)

	srv := &http.Server{
		Addr:    appCfg.ServerAddr,
		Handler: r,
	}

	// start server
	go func() {
		log.Info("Server starting", logger.String("addr", appCfg.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error", logger.Error(err))
		}
	}()

	// wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", logger.Error(err))
	}
}
