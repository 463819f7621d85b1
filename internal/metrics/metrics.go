// Package metrics holds the dispatcher's Prometheus registry and the
// enablement gate the prometheus subpackage's recorder is built behind.
// Kept deliberately thin: the metric definitions themselves live in
// internal/metrics/prometheus, which this package never imports; this
// package itself depends on client_golang only for the Registry type.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	enabled  bool
	registry *prometheus.Registry
)

// InitRegistry records whether metrics collection is enabled and, if so,
// allocates the Registry the prometheus subpackage registers collectors
// against. Call once during startup before constructing any recorder.
func InitRegistry(on bool) *prometheus.Registry {
	enabled = on
	if !on {
		registry = nil
		return nil
	}
	registry = prometheus.NewRegistry()
	return registry
}

// IsEnabled reports whether metrics collection was turned on at startup.
func IsEnabled() bool {
	return enabled
}

// GetRegistry returns the registry allocated by InitRegistry, or nil if
// metrics are disabled or InitRegistry was never called.
func GetRegistry() *prometheus.Registry {
	return registry
}
