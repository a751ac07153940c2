package s3

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfg "github.com/feichai0017/songplay-etl/config"
	"github.com/feichai0017/songplay-etl/pkg/logger"
)

func TestNewS3StorageKeepsCredentialsOutOfLogs(t *testing.T) {
	log := logger.NewTestLogger()
	creds := cfg.Credentials{AccessKeyID: "AKIAEXAMPLEKEY", SecretAccessKey: "example-secret"}

	s, err := NewS3Storage(context.Background(), &cfg.S3Config{Region: "us-west-2"}, "udacity-dend", creds, log)
	require.NoError(t, err)
	require.NotNil(t, s)

	require.NotEmpty(t, log.GetEntries())
	for _, e := range log.GetEntries() {
		for _, f := range e.Fields {
			rendered := fmt.Sprintf("%s %v %v", f.String, f.Interface, f.Integer)
			assert.NotContains(t, rendered, creds.AccessKeyID, e.Message)
			assert.NotContains(t, rendered, creds.SecretAccessKey, e.Message)
		}
	}
}
