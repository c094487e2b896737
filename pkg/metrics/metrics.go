package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	RemindersFiredTotal     prometheus.Counter
	DeliveryFailuresTotal   prometheus.Counter
	DosesLoggedTotal        *prometheus.CounterVec
	MedicationsQuarantined  prometheus.Counter
	TrackedMedicationsGauge prometheus.Gauge

	MedicationsCreatedTotal prometheus.Counter
	PrescriptionsUploaded   prometheus.Counter
	PushDeliveriesTotal     *prometheus.CounterVec

	DBQueryDuration *prometheus.HistogramVec
	DBConnections   prometheus.Gauge

	ActivityEntriesTotal  prometheus.Counter
	ActivityBufferDropped prometheus.Counter
}

func NewCollector(serviceName string) *Collector {
	return &Collector{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "path", "status"}),

		InFlightGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		RemindersFiredTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "reminder",
			Name:      "fired_total",
			Help:      "Total dose reminders fired.",
		}),

		DeliveryFailuresTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "reminder",
			Name:      "delivery_failed_total",
			Help:      "Reminder deliveries that failed and will be retried.",
		}),

		DosesLoggedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "reminder",
			Name:      "doses_logged_total",
			Help:      "Dose log rows written, by resulting status.",
		}, []string{"status"}),

		MedicationsQuarantined: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "reminder",
			Name:      "medications_quarantined_total",
			Help:      "Medications excluded from polling due to corrupt records. Alert if non-zero.",
		}),

		TrackedMedicationsGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "reminder",
			Name:      "tracked_medications",
			Help:      "Medications currently tracked by the reminder scheduler.",
		}),

		MedicationsCreatedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "meds",
			Name:      "created_total",
			Help:      "Total medication records created.",
		}),

		PrescriptionsUploaded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "meds",
			Name:      "prescriptions_uploaded_total",
			Help:      "Total prescription documents uploaded.",
		}),

		PushDeliveriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "push",
			Name:      "deliveries_total",
			Help:      "Push gateway deliveries by outcome.",
		}, []string{"outcome"}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query latency distribution.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}, []string{"operation", "table"}),

		DBConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "db",
			Name:      "open_connections",
			Help:      "Current number of open database connections.",
		}),

		ActivityEntriesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "activity",
			Name:      "entries_total",
			Help:      "Total activity feed entries written.",
		}),

		ActivityBufferDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "activity",
			Name:      "buffer_dropped_total",
			Help:      "Activity entries dropped due to full buffer. Alert if non-zero.",
		}),
	}
}

// ReminderFired and friends satisfy the scheduler's Metrics interface.
func (c *Collector) ReminderFired()           { c.RemindersFiredTotal.Inc() }
func (c *Collector) ReminderDeliveryFailed()  { c.DeliveryFailuresTotal.Inc() }
func (c *Collector) DoseLogged(status string) { c.DosesLoggedTotal.WithLabelValues(status).Inc() }
func (c *Collector) MedicationQuarantined()   { c.MedicationsQuarantined.Inc() }

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
