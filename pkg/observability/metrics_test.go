package observability_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
	"github.com/liqingnz/btc-timelock-contracts/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnPartnerCreated(ctx, &domain.Event{Type: domain.EventPartnerCreated})
	hooks.OnPartnerCreated(ctx, &domain.Event{Type: domain.EventPartnerCreated})
	hooks.OnPartnerRemoved(ctx, &domain.Event{Type: domain.EventPartnerRemoved})
	hooks.OnTaskCreated(ctx, &domain.Event{Type: domain.EventTaskCreated, Amount: 500})
	hooks.OnFundsReceived(ctx, &domain.Event{Type: domain.EventFundsReceived, Amount: 500})
	hooks.OnBurned(ctx, &domain.Event{Type: domain.EventBurned, Amount: 500, Forced: true})
	hooks.OnRejected(ctx, "burn", fmt.Errorf("wrapped: %w", domain.ErrTimelockNotReached))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Events.WithLabelValues("partner_created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PartnersActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksCreated))
	assert.Equal(t, 500.0, testutil.ToFloat64(m.AmountFunded))
	assert.Equal(t, 500.0, testutil.ToFloat64(m.AmountBurned.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rejections.WithLabelValues("burn", "timelock_not_reached")))

	n, err := testutil.GatherAndCount(reg, "timelock_events_total")
	assert.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestMetrics_NilRegisterer(t *testing.T) {
	assert.NotPanics(t, func() {
		m := observability.NewMetrics(nil)
		m.Hooks().OnRejected(context.Background(), "x", nil)
	})
}
