package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectors_RegisterCleanly(t *testing.T) {
	reg := prometheus.NewRegistry()
	for _, c := range Collectors() {
		require.NoError(t, reg.Register(c))
	}
}

func TestRecordFeedUpdate(t *testing.T) {
	before := testutil.ToFloat64(FeedUpdatesTotal.WithLabelValues("feed-a", "error"))
	RecordFeedUpdate("feed-a", false)
	RecordFeedUpdate("feed-a", true)
	assert.Equal(t, before+1, testutil.ToFloat64(FeedUpdatesTotal.WithLabelValues("feed-a", "error")))
}

func TestRecordMissingData(t *testing.T) {
	before := testutil.ToFloat64(MissingDataTotal.WithLabelValues("current_price"))
	RecordMissingData("current_price")
	assert.Equal(t, before+1, testutil.ToFloat64(MissingDataTotal.WithLabelValues("current_price")))
}

func TestRecordFeedLastUpdate(t *testing.T) {
	RecordFeedLastUpdate("feed-b", 50000)
	assert.Equal(t, float64(50000), testutil.ToFloat64(FeedLastUpdate.WithLabelValues("feed-b")))
}

func TestRecordAggregation(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordAggregation("median", 5*time.Millisecond)
		RecordUpdateCycle(time.Second)
		RecordHTTPRequest("/health", "200", time.Millisecond)
	})
}
