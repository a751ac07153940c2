package minio

import (
	"errors"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrainRemoveErrorsReadsEveryResult(t *testing.T) {
	denied := errors.New("access denied")
	errCh := make(chan minio.RemoveObjectError)
	sent := make(chan struct{})
	go func() {
		defer close(sent)
		defer close(errCh)
		errCh <- minio.RemoveObjectError{ObjectName: "a", Err: denied}
		errCh <- minio.RemoveObjectError{ObjectName: "b"}
		errCh <- minio.RemoveObjectError{ObjectName: "c", Err: errors.New("slow down")}
	}()

	failed, err := drainRemoveErrors(errCh)
	require.Error(t, err)
	assert.ErrorIs(t, err, denied)
	assert.ErrorContains(t, err, "a:")
	assert.Equal(t, 2, failed)

	select {
	case <-sent:
	case <-time.After(time.Second):
		t.Fatal("sender still blocked after drain")
	}
}

func TestDrainRemoveErrorsEmpty(t *testing.T) {
	errCh := make(chan minio.RemoveObjectError)
	close(errCh)
	failed, err := drainRemoveErrors(errCh)
	assert.NoError(t, err)
	assert.Zero(t, failed)
}
