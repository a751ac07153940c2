package config

import (
	"sync"
)

var (
	s3Once   sync.Once
	s3Config *S3Config
)

// S3Config holds the connection settings of the S3 backend. Bucket names come
// from the input/output locations and keys come from Credentials.
type S3Config struct {
	Region       string
	Endpoint     string
	UsePathStyle bool
}

func GetS3Config() *S3Config {
	s3Once.Do(func() {
		loadDotEnv()
		s3Config = loadS3Config()
	})
	return s3Config
}

func loadS3Config() *S3Config {
	return &S3Config{
		Region:       getenv("AWS_REGION", DefaultRegion),
		Endpoint:     getenv("AWS_ENDPOINT", ""),
		UsePathStyle: getenvBool("AWS_S3_USE_PATH_STYLE", false),
	}
}
