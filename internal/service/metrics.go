package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	InitDataValidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_init_data_validations_total",
			Help: "Init data validations by outcome (valid, expired, signature_mismatch, not_configured, ...)",
		},
		[]string{"outcome"},
	)
	SessionTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_tokens_total",
			Help: "Session token operations by kind and result",
		},
		[]string{"op", "result"},
	)
)

func init() {
	prometheus.MustRegister(InitDataValidations)
	prometheus.MustRegister(SessionTokens)
}
