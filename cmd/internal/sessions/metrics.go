package sessions

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricSessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "contour",
		Subsystem: "sessions",
		Name:      "created_total",
		Help:      "Capture sessions created.",
	})

	metricImageSetsAppended = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "contour",
		Subsystem: "sessions",
		Name:      "image_sets_appended_total",
		Help:      "Body image sets appended, first sets included.",
	})

	metricDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "contour",
		Subsystem: "sessions",
		Name:      "denials_total",
		Help:      "Eligibility denials by reason.",
	}, []string{"reason"})
)

func observeDenial(d Decision) {
	if !d.Allowed {
		metricDenials.WithLabelValues(string(d.Reason)).Inc()
	}
}
