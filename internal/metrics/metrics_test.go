package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordTierOutcomes(t *testing.T) {
	before := testutil.ToFloat64(toolTiersTotal.WithLabelValues("text_search", "free_text", OutcomeEmpty))
	RecordTier("text_search", "free_text", 0, nil)
	after := testutil.ToFloat64(toolTiersTotal.WithLabelValues("text_search", "free_text", OutcomeEmpty))
	assert.Equal(t, before+1, after)

	before = testutil.ToFloat64(toolTiersTotal.WithLabelValues("text_search", "free_text", OutcomeError))
	RecordTier("text_search", "free_text", 0, errors.New("boom"))
	after = testutil.ToFloat64(toolTiersTotal.WithLabelValues("text_search", "free_text", OutcomeError))
	assert.Equal(t, before+1, after)
}

func TestRecordMirrorAttempt(t *testing.T) {
	c := mirrorAttemptsTotal.WithLabelValues("http://mirror-a", OutcomeOK)
	before := testutil.ToFloat64(c)
	RecordMirrorAttempt("http://mirror-a", nil)
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}

func TestRecordResolve(t *testing.T) {
	c := resolvesTotal.WithLabelValues("fallback")
	before := testutil.ToFloat64(c)
	RecordResolve("fallback")
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}
