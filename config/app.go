package config

import (
	"strings"
	"sync"
)

var (
	appOnce   sync.Once
	appConfig *AppConfig
)

// AppConfig carries the settings shared by the binaries. The input and
// output locations are constants in paths.go.
type AppConfig struct {
	StorageType      string
	LogLevel         string
	LogEncoding      string
	LogFile          string
	ScanConcurrency  int
	WriteConcurrency int

	RedisAddr      string
	RedisDB        int
	ServerAddr     string
	CORSOrigins    []string
	PushgatewayURL string
}

func GetAppConfig() *AppConfig {
	appOnce.Do(func() {
		loadDotEnv()
		appConfig = loadAppConfig()
	})
	return appConfig
}

func loadAppConfig() *AppConfig {
	return &AppConfig{
		StorageType:      getenv("STORAGE_TYPE", "s3"),
		LogLevel:         getenv("LOG_LEVEL", "info"),
		LogEncoding:      getenv("LOG_ENCODING", "json"),
		LogFile:          getenv("LOG_FILE", ""),
		ScanConcurrency:  getenvInt("SCAN_CONCURRENCY", 16),
		WriteConcurrency: getenvInt("WRITE_CONCURRENCY", 8),
		RedisAddr:        getenv("REDIS_ADDR", "localhost:6379"),
		RedisDB:          getenvInt("REDIS_DB", 0),
		ServerAddr:       getenv("SERVER_ADDR", ":8080"),
		CORSOrigins:      strings.Split(getenv("CORS_ALLOW_ORIGINS", "*"), ","),
		PushgatewayURL:   getenv("PUSHGATEWAY_URL", ""),
	}
}
