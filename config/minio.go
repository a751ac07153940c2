package config

import (
	"sync"
)

var (
	minioOnce   sync.Once
	minioConfig *MinioConfig
)

type MinioConfig struct {
	Endpoint string
	UseSSL   bool
	Region   string
}

func GetMinioConfig() *MinioConfig {
	minioOnce.Do(func() {
		loadDotEnv()
		minioConfig = loadMinioConfig()
	})
	return minioConfig
}

func loadMinioConfig() *MinioConfig {
	return &MinioConfig{
		Endpoint: getenv("MINIO_ENDPOINT", "localhost:9000"),
		UseSSL:   getenvBool("MINIO_USE_SSL", false),
		Region:   getenv("MINIO_REGION", DefaultRegion),
	}
}
