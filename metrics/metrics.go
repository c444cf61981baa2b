package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	NotesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jot_notes_created_total",
			Help: "Notes saved from the page",
		},
	)

	NotesDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jot_notes_deleted_total",
			Help: "Delete requests issued from the page",
		},
	)

	// PersistenceErrors counts failed note requests by operation.
	PersistenceErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jot_persistence_errors_total",
			Help: "Note create/read/delete requests that failed",
		},
		[]string{"op"},
	)

	AuthEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jot_auth_events_total",
			Help: "Auth state changes applied by pages",
		},
		[]string{"event"},
	)

	Pages = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "jot_pages",
			Help: "Live pages held by the server",
		},
	)
)

func Init() {
	prometheus.MustRegister(NotesCreated)
	prometheus.MustRegister(NotesDeleted)
	prometheus.MustRegister(PersistenceErrors)
	prometheus.MustRegister(AuthEvents)
	prometheus.MustRegister(Pages)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
