package handlers

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	LoginAttempts  *prometheus.CounterVec
	MFAEnrollments prometheus.Counter
	DataWrites     *prometheus.CounterVec
}

func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		LoginAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "login_attempts_total",
				Help: "Total login attempts by flow and outcome.",
			},
			[]string{"flow", "outcome"},
		),
		MFAEnrollments: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "mfa_enrollments_total",
				Help: "Total MFA secret provisionings.",
			},
		),
		DataWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extracted_data_writes_total",
				Help: "Total extracted-data mutations by operation.",
			},
			[]string{"op"},
		),
	}

	registry.MustRegister(m.LoginAttempts, m.MFAEnrollments, m.DataWrites)
	return m
}
