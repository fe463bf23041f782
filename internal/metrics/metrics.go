package metrics

import "github.com/prometheus/client_golang/prometheus"

// Результаты попытки записи (метка result)
const (
	ResultBooked        = "booked"
	ResultFull          = "full"
	ResultExpired       = "expired"
	ResultAlreadyBooked = "already_booked"
	ResultError         = "error"
)

// SchedulingMetrics: счётчики и гистограммы расписания частных занятий
type SchedulingMetrics struct {
	bookingsTotal        *prometheus.CounterVec
	materializationTotal *prometheus.CounterVec
	slotsListed          prometheus.Histogram
	cancellationsTotal   *prometheus.CounterVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lessons",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Booking attempts by result",
		}, []string{"result"}),
		materializationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lessons",
			Subsystem: "scheduling",
			Name:      "slot_materializations_total",
			Help:      "Virtual slots promoted to persisted slots",
		}, []string{"outcome"}),
		slotsListed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lessons",
			Subsystem: "scheduling",
			Name:      "bookable_slots_listed",
			Help:      "Number of bookable slots returned per listing",
			Buckets:   []float64{0, 5, 10, 25, 50, 100, 250, 500},
		}),
		cancellationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lessons",
			Subsystem: "scheduling",
			Name:      "booking_cancellations_total",
			Help:      "Cancelled bookings by previous status",
		}, []string{"from_status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.materializationTotal, m.slotsListed, m.cancellationsTotal)
	return m
}

func (m *SchedulingMetrics) ObserveBooking(result string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(result).Inc()
}

func (m *SchedulingMetrics) ObserveMaterialization(created bool) {
	if m == nil {
		return
	}
	outcome := "fetched"
	if created {
		outcome = "created"
	}
	m.materializationTotal.WithLabelValues(outcome).Inc()
}

func (m *SchedulingMetrics) ObserveSlotsListed(count int) {
	if m == nil {
		return
	}
	m.slotsListed.Observe(float64(count))
}

func (m *SchedulingMetrics) ObserveCancellation(fromStatus string) {
	if m == nil {
		return
	}
	m.cancellationsTotal.WithLabelValues(fromStatus).Inc()
}
