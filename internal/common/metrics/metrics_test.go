package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestScreeningCounters(t *testing.T) {
	before := testutil.ToFloat64(ScreeningTransitionsTotal.WithLabelValues("screening_questions", "rejected"))
	ScreeningTransitionsTotal.WithLabelValues("screening_questions", "rejected").Inc()
	after := testutil.ToFloat64(ScreeningTransitionsTotal.WithLabelValues("screening_questions", "rejected"))

	assert.Equal(t, before+1, after)

	ScreeningUploadsTotal.WithLabelValues("degree", "success").Inc()
	assert.GreaterOrEqual(t, testutil.ToFloat64(ScreeningUploadsTotal.WithLabelValues("degree", "success")), float64(1))
}
