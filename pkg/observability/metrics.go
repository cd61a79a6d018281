package observability

import (
	"context"
	"strconv"

	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the ledger collectors.
type Metrics struct {
	Events         *prometheus.CounterVec
	Rejections     *prometheus.CounterVec
	AmountFunded   prometheus.Counter
	AmountBurned   *prometheus.CounterVec
	TasksCreated   prometheus.Counter
	PartnersActive prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
// A nil registerer skips registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "timelock_events_total",
				Help: "Ledger events published, by type.",
			},
			[]string{"type"},
		),
		Rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "timelock_rejections_total",
				Help: "Rejected ledger operations, by operation and reason.",
			},
			[]string{"op", "reason"},
		),
		AmountFunded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timelock_funded_amount_total",
			Help: "Sum of amounts credited to partner vaults.",
		}),
		AmountBurned: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "timelock_burned_amount_total",
				Help: "Sum of amounts burned from partner vaults.",
			},
			[]string{"forced"},
		),
		TasksCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timelock_tasks_created_total",
			Help: "Tasks appended to the ledger.",
		}),
		PartnersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "timelock_partners_active",
			Help: "Partners created minus partners removed since start.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Events, m.Rejections, m.AmountFunded, m.AmountBurned, m.TasksCreated, m.PartnersActive)
	}
	return m
}

// Hooks returns lifecycle hooks recording into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	count := func(_ context.Context, e *domain.Event) {
		m.Events.WithLabelValues(string(e.Type)).Inc()
	}
	return domain.LifecycleHooks{
		OnPartnerCreated: func(ctx context.Context, e *domain.Event) {
			count(ctx, e)
			m.PartnersActive.Inc()
		},
		OnPartnerRemoved: func(ctx context.Context, e *domain.Event) {
			count(ctx, e)
			m.PartnersActive.Dec()
		},
		OnTaskCreated: func(ctx context.Context, e *domain.Event) {
			count(ctx, e)
			m.TasksCreated.Inc()
		},
		OnFundsReceived: func(ctx context.Context, e *domain.Event) {
			count(ctx, e)
			m.AmountFunded.Add(float64(e.Amount))
		},
		OnBurned: func(ctx context.Context, e *domain.Event) {
			count(ctx, e)
			m.AmountBurned.WithLabelValues(strconv.FormatBool(e.Forced)).Add(float64(e.Amount))
		},
		OnRejected: func(_ context.Context, op string, err error) {
			m.Rejections.WithLabelValues(op, domain.Reason(err)).Inc()
		},
	}
}
