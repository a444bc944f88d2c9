package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Action outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
	OutcomeDeclined = "declined"
)

type Registry struct {
	registry         *prometheus.Registry
	actionsTotal     *prometheus.CounterVec
	remoteErrors     *prometheus.CounterVec
	confirmationTime *prometheus.HistogramVec
	walletBalance    prometheus.Gauge
}

func NewRegistry() *Registry {
	actions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nftcli_actions_total",
		Help: "Console actions by outcome",
	}, []string{"action", "outcome"})

	remote := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nftcli_remote_errors_total",
		Help: "Failed gateway calls",
	}, []string{"op"})

	confirmation := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nftcli_confirmation_seconds",
		Help:    "Time from submission to confirmed receipt",
		Buckets: []float64{1, 2, 5, 10, 15, 30, 60, 120, 300},
	}, []string{"action"})

	balance := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nftcli_wallet_balance_eth",
		Help: "Last observed balance of the signer account",
	})

	r := prometheus.NewRegistry()
	r.MustRegister(actions, remote, confirmation, balance)

	return &Registry{
		registry:         r,
		actionsTotal:     actions,
		remoteErrors:     remote,
		confirmationTime: confirmation,
		walletBalance:    balance,
	}
}

func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Registry) IncAction(action, outcome string) {
	m.actionsTotal.WithLabelValues(action, outcome).Inc()
}

func (m *Registry) IncRemoteError(op string) {
	m.remoteErrors.WithLabelValues(op).Inc()
}

func (m *Registry) ObserveConfirmation(action string, d time.Duration) {
	m.confirmationTime.WithLabelValues(action).Observe(d.Seconds())
}

func (m *Registry) SetBalance(eth float64) {
	m.walletBalance.Set(eth)
}
