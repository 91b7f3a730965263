// Package metrics exposes allocation outcomes to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Allocation counts admission attempts.  A nil *Allocation is valid and
// records nothing.
type Allocation struct {
	committed prometheus.Counter
	failed    *prometheus.CounterVec
	released  prometheus.Counter
}

// NewAllocation creates the collectors and registers them with reg.
func NewAllocation(reg prometheus.Registerer) *Allocation {
	a := &Allocation{
		committed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "frontdesk",
			Subsystem: "allocation",
			Name:      "committed_total",
			Help:      "Admissions committed with a reserved bed.",
		}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "frontdesk",
			Subsystem: "allocation",
			Name:      "failed_total",
			Help:      "Admission attempts that ended in Failed, by reason.",
		}, []string{"reason"}),
		released: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "frontdesk",
			Subsystem: "allocation",
			Name:      "released_total",
			Help:      "Beds released by discharge or compensation.",
		}),
	}
	if reg != nil {
		reg.MustRegister(a.committed, a.failed, a.released)
	}
	return a
}

func (a *Allocation) Committed() {
	if a != nil {
		a.committed.Inc()
	}
}

func (a *Allocation) Failed(reason string) {
	if a != nil {
		a.failed.WithLabelValues(reason).Inc()
	}
}

func (a *Allocation) Released() {
	if a != nil {
		a.released.Inc()
	}
}
