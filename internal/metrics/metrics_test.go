package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestObserveExtraction(t *testing.T) {
	before := testutil.ToFloat64(extractionsTotal.WithLabelValues(ModeAuthoritative, StrategyNone))
	beforeRSpec := testutil.ToFloat64(failureRecordsTotal.WithLabelValues("RSpec"))

	ObserveExtraction(ModeAuthoritative, "", nil, time.Millisecond)
	ObserveExtraction(ModeAuthoritative, "failed-examples", []string{"RSpec", "RSpec"}, -time.Second)

	assert.Equal(t, before+1, testutil.ToFloat64(extractionsTotal.WithLabelValues(ModeAuthoritative, StrategyNone)))
	assert.Equal(t, beforeRSpec+2, testutil.ToFloat64(failureRecordsTotal.WithLabelValues("RSpec")))
}

func TestObserveBuildkiteRequest(t *testing.T) {
	before := testutil.ToFloat64(buildkiteRequestsTotal.WithLabelValues("get_build", "error"))
	ObserveBuildkiteRequest("get_build", 0)
	assert.Equal(t, before+1, testutil.ToFloat64(buildkiteRequestsTotal.WithLabelValues("get_build", "error")))

	before = testutil.ToFloat64(buildkiteRequestsTotal.WithLabelValues("get_build", "404"))
	ObserveBuildkiteRequest("get_build", 404)
	assert.Equal(t, before+1, testutil.ToFloat64(buildkiteRequestsTotal.WithLabelValues("get_build", "404")))
}

func TestObserveLogCache(t *testing.T) {
	hits := testutil.ToFloat64(logCacheTotal.WithLabelValues("hit"))
	misses := testutil.ToFloat64(logCacheTotal.WithLabelValues("miss"))

	ObserveLogCache(true)
	ObserveLogCache(false)
	ObserveLogCache(false)

	assert.Equal(t, hits+1, testutil.ToFloat64(logCacheTotal.WithLabelValues("hit")))
	assert.Equal(t, misses+2, testutil.ToFloat64(logCacheTotal.WithLabelValues("miss")))
}
