// Package prometheus implements internal/dispatch's Metrics interface
// with client_golang collectors. Nothing in internal/dispatch imports
// this package; Recorder satisfies dispatch.Metrics structurally, so a
// cmd binary wires the two together without either package depending on
// the other.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder records dispatcher fleet and call-routing metrics against a
// caller-supplied registry.
type Recorder struct {
	registeredCars prometheus.Gauge
	queueDepth     *prometheus.GaugeVec
	callsServed    prometheus.Counter
	callsRejected  prometheus.Counter
}

// New registers the dispatcher's collectors against reg. Call only when
// metrics collection is enabled; reg must not be nil.
func New(reg *prometheus.Registry) *Recorder {
	return &Recorder{
		registeredCars: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "liftgrid_dispatcher_registered_cars",
			Help: "Number of cars currently registered with the dispatcher.",
		}),
		queueDepth: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "liftgrid_dispatcher_queue_depth",
			Help: "Pending stops in a car's floor queue.",
		}, []string{"car"}),
		callsServed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "liftgrid_dispatcher_calls_served_total",
			Help: "Passenger calls successfully assigned to a car.",
		}),
		callsRejected: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "liftgrid_dispatcher_calls_rejected_total",
			Help: "Passenger calls rejected for lack of a suitable car or a malformed floor.",
		}),
	}
}

func (r *Recorder) SetRegisteredCars(n int) {
	r.registeredCars.Set(float64(n))
}

func (r *Recorder) SetQueueDepth(car string, n int) {
	r.queueDepth.WithLabelValues(car).Set(float64(n))
}

func (r *Recorder) IncCallsServed() {
	r.callsServed.Inc()
}

func (r *Recorder) IncCallsRejected() {
	r.callsRejected.Inc()
}
