package manager

import (
	"net/http"

	"github.com/stinkydev/moqgo/internal/envconfig"
	"github.com/stinkydev/moqgo/internal/logging"
	"github.com/stinkydev/moqgo/internal/metrics"
)

// ConfigFromEnv builds the environment-driven portion of a Config: logger,
// metrics, and reconnect policy read from the process environment (and any
// .env file on envPaths), the way a deployable client picks up its settings
// without a dedicated flags package. Callers still set ServerURL, Namespace,
// and Mode themselves; ConfigFromEnv only fills in the ambient knobs.
func ConfigFromEnv(envPaths ...string) Config {
	if err := envconfig.Load(envPaths...); err != nil {
		// Missing .env is expected outside local development; environment
		// variables already set in the process still apply.
		_ = err
	}
	ec := envconfig.LoadManagerConfig()

	return Config{
		Logger:               logging.New(ec.LogLevel, ec.LogFormat),
		Metrics:              metrics.New(),
		ReconnectOnFailure:   ec.ReconnectEnabled,
		ReconnectMinInterval: ec.ReconnectMinInterval,
		ReconnectMaxAttempts: ec.ReconnectMaxAttempts,
	}
}

// ServeMetrics starts an HTTP server exposing m in the Prometheus
// exposition format at addr, returning immediately. A nil Metrics or empty
// addr is a no-op, matching MOQ_METRICS_ADDR being unset.
func ServeMetrics(addr string, m *metrics.Metrics) {
	if m == nil || addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	go http.ListenAndServe(addr, mux)
}
