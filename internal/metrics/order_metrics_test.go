package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveOperation(t *testing.T) {
	m := NewOrderMetricsWithRegisterer(prometheus.NewRegistry())

	m.ObserveOperation("create", ResultOK, 10*time.Millisecond)
	m.ObserveOperation("create", ResultOK, 20*time.Millisecond)
	m.ObserveOperation("get", ResultNotFound, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("create", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("get", ResultNotFound)))
}

func TestRecordUpload(t *testing.T) {
	m := NewOrderMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordUpload(128, nil)
	m.RecordUpload(64, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues(ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues(ResultError)))
	assert.Equal(t, 128.0, testutil.ToFloat64(m.uploadBytes))
}

func TestRecordDownloadLink(t *testing.T) {
	m := NewOrderMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordDownloadLink()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.downloadLinks))
}

func TestRegisterTwiceReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewOrderMetricsWithRegisterer(reg)
	second := NewOrderMetricsWithRegisterer(reg)

	first.RecordDownloadLink()
	second.RecordDownloadLink()

	assert.Equal(t, 2.0, testutil.ToFloat64(first.downloadLinks))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *OrderMetrics

	assert.NotPanics(t, func() {
		m.ObserveOperation("create", ResultOK, time.Second)
		m.RecordUpload(1, nil)
		m.RecordDownloadLink()
	})
}
