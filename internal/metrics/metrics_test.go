package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New()

	m.IncRun()
	m.IncScraped()
	m.IncScraped()
	m.IncFailed("navigation_timeout")
	m.AddExported("csv", true, 2)
	m.ObserveExtract(3 * time.Second)
	m.SetDiscovered(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ProductsScraped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProductsFailed.WithLabelValues("navigation_timeout")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ProductsExported.WithLabelValues("csv", "ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.DiscoveredURLs))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ExtractDuration))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.IncRun()
		m.IncScraped()
		m.IncFailed("x")
		m.AddExported("csv", false, 1)
		m.ObserveExtract(time.Second)
		m.SetDiscovered(1)
	})
}
