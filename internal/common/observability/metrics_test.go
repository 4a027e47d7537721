package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObservability_RecordsWithoutTracing(t *testing.T) {
	o := New("test-service")
	defer o.Shutdown()

	ctx, span := o.StartSpan(context.Background(), "job")
	defer span.End()

	assert.NotPanics(t, func() {
		o.RecordJobProcessed(ctx, "discover-competitors", "completed")
		o.RecordJobDuration(ctx, "discover-competitors", 120*time.Millisecond, "completed")
		o.RecordFallback(ctx, "discover-competitors", "empty_result")
	})
}

func TestObservability_NilSafeSpan(t *testing.T) {
	var o *Observability
	_, span := o.StartSpan(context.Background(), "noop")
	assert.NotNil(t, span)
	span.End()
}
