package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestNoop_RecordAndSpanDoNotPanic(t *testing.T) {
	o := NewNoop()

	ctx, span := o.StartSpan(context.Background(), "turn", attribute.String("stage", "initial"))
	assert.NotNil(t, ctx)
	span.End()

	assert.NotPanics(t, func() {
		o.RecordTurn(context.Background(), "initial", "ok", 5*time.Millisecond)
		o.Shutdown()
	})
}

func TestNilObservability_IsSafe(t *testing.T) {
	var o *Observability

	_, span := o.StartSpan(context.Background(), "turn")
	span.End()

	assert.NotPanics(t, func() {
		o.RecordTurn(context.Background(), "initial", "ok", time.Millisecond)
		o.Shutdown()
	})
}
