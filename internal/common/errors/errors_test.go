package errors

import (
	"context"
	"fmt"
	"testing"

	"marketing-workers/internal/common/camunda/camundatest"
	"marketing-workers/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name        string
		err         *StandardError
		wantRetries int
		wantCat     string
	}{
		{"retryable discovery", NewDiscoveryFailedError(fmt.Errorf("boom")), 3, "COMPETITOR"},
		{"search", NewSearchFailedError(fmt.Errorf("es down")), 2, "ANALYSIS"},
		{"cache", NewCacheUnavailableError(fmt.Errorf("redis")), 1, "STORAGE"},
		{"not found never retries", NewPostNotFoundError("p1"), 0, "CONTENT"},
		{"invalid input", NewInvalidInputError("bad json"), 0, "VALIDATION"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ConvertToBPMNError(tt.err.WithMetadata("workspaceId", "ws1"))
			assert.Equal(t, tt.wantRetries, b.Retries)
			assert.Equal(t, string(tt.err.Code), b.Code)
			assert.Equal(t, tt.wantCat, GetErrorCategory(tt.err.Code))
			assert.Equal(t, "ws1", b.ToErrorVariables()["workspaceId"])
		})
	}
}

func TestNormalize(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NewPublishFailedError("tiktok", fmt.Errorf("401")))
	assert.Equal(t, ErrCodePublishFailed, Normalize(wrapped).Code)
	assert.Equal(t, ErrCodeInternal, Normalize(fmt.Errorf("plain")).Code)
}

func TestHandleJobError(t *testing.T) {
	h := NewErrorHandler(logger.NewTestLogger(t))

	t.Run("invalid input fails with zero retries", func(t *testing.T) {
		client := camundatest.NewJobClient()
		h.HandleJobError(context.Background(), client, camundatest.Job("x", "{}"), NewInvalidInputError("bad"))

		failed := client.Failed()
		require.Len(t, failed, 1)
		assert.Equal(t, int32(0), failed[0].Retries)
		assert.Empty(t, client.Thrown())
	})

	t.Run("retryable fails with capped retries", func(t *testing.T) {
		client := camundatest.NewJobClient()
		job := camundatest.Job("x", "{}")
		job.Retries = 2
		h.HandleJobError(context.Background(), client, job, NewDiscoveryFailedError(fmt.Errorf("503")))

		failed := client.Failed()
		require.Len(t, failed, 1)
		assert.Equal(t, int32(2), failed[0].Retries)
	})

	t.Run("non retryable throws", func(t *testing.T) {
		client := camundatest.NewJobClient()
		h.HandleJobError(context.Background(), client, camundatest.Job("x", "{}"), NewCompetitorNotFoundError("c9"))

		thrown := client.Thrown()
		require.Len(t, thrown, 1)
		assert.Equal(t, "COMPETITOR_NOT_FOUND", thrown[0].ErrorCode)
	})
}
