package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestZeroValueIsNoop(t *testing.T) {
	var o *Observability
	ctx, span := o.StartSpan(context.Background(), "noop")
	defer span.End()

	assert.NotNil(t, ctx)
	assert.False(t, span.SpanContext().IsValid())
	assert.NotPanics(t, func() {
		o.RecordJob(ctx, "rank-flights", "completed", time.Millisecond)
		o.RecordSearch(ctx, "JFK", "ok", time.Millisecond)
	})
	assert.NoError(t, o.Shutdown(context.Background()))
}

func TestNew_RecordsAndShutsDown(t *testing.T) {
	o, err := New("travel-workers-test")
	require.NoError(t, err)

	ctx, span := o.StartSpan(context.Background(), "aggregate", attribute.String("destination", "ORD"))
	o.RecordSearch(ctx, "JFK", "ok", 12*time.Millisecond)
	o.RecordJob(ctx, "plan-group-travel", "completed", 40*time.Millisecond)
	span.End()

	assert.NoError(t, o.Shutdown(context.Background()))
}
