// Package metrics provides Prometheus instrumentation for the captcha
// service: counters for created challenges and verification outcomes, and a
// histogram for image generation latency.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ChallengesTotal counts images successfully served.
	ChallengesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mathcaptcha_challenges_total",
		Help: "Total number of captcha challenges created",
	})

	// VerificationsTotal counts verify calls, labeled by result: "pass" or "fail".
	VerificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mathcaptcha_verifications_total",
		Help: "Total number of captcha verifications",
	}, []string{"result"})

	// RenderSeconds records how long Create takes, store write included.
	RenderSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mathcaptcha_render_seconds",
		Help:    "Captcha image generation latency in seconds",
		Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25},
	})

	// ErrorsTotal counts failed requests, labeled by kind: "rendering",
	// "session_store" or "request".
	ErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mathcaptcha_errors_total",
		Help: "Total number of failed captcha requests",
	}, []string{"kind"})

	// StoreSweptTotal counts expired entries removed by the memory store sweeper.
	StoreSweptTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mathcaptcha_store_swept_total",
		Help: "Expired captcha answers removed from the in-memory store",
	})
)

func init() {
	prometheus.MustRegister(
		ChallengesTotal,
		VerificationsTotal,
		RenderSeconds,
		ErrorsTotal,
		StoreSweptTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveVerify records a verification outcome.
func ObserveVerify(ok bool) {
	if ok {
		VerificationsTotal.WithLabelValues("pass").Inc()
		return
	}
	VerificationsTotal.WithLabelValues("fail").Inc()
}
