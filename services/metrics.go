package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts check-in traffic. A nil *Metrics records nothing.
type Metrics struct {
	submissions *prometheus.CounterVec
	uploadBytes prometheus.Counter
	mounts      prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "checkin_submissions_total",
			Help: "Check-in submissions by result.",
		}, []string{"result"}),
		uploadBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "checkin_upload_bytes_total",
			Help: "Bytes of check-in images written to file storage.",
		}),
		mounts: f.NewCounter(prometheus.CounterOpts{
			Name: "checkin_dashboard_mounts_total",
			Help: "Dashboard page sessions created.",
		}),
	}
}

func (m *Metrics) submission(result string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(result).Inc()
}

func (m *Metrics) uploaded(n int64) {
	if m == nil {
		return
	}
	m.uploadBytes.Add(float64(n))
}

func (m *Metrics) mounted() {
	if m == nil {
		return
	}
	m.mounts.Inc()
}
