package contract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type sampleWorker struct{}

func (sampleWorker) Run(context.Context) error { return nil }

func TestGetWorkerName(t *testing.T) {
	req := require.New(t)
	req.Equal("sampleWorker", GetWorkerName(sampleWorker{}))
	req.Equal("sampleWorker", GetWorkerName(&sampleWorker{}))
	req.Equal("NilWorker", GetWorkerName(nil))
}
