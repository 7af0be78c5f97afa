package catalog

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CountOutcomes(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	svc := NewService(NewMemStore(widgetCatalog()), WithMetrics(m))
	ctx := context.Background()

	_, err := svc.Purchase(ctx, []CartLine{{ID: 1, Quantity: 1}})
	require.NoError(t, err)
	_, err = svc.Purchase(ctx, []CartLine{{ID: 1, Quantity: 100}})
	require.ErrorIs(t, err, ErrInsufficientStock)
	_, err = svc.AddReview(ctx, 2, 4, "good")
	require.NoError(t, err)
	_, err = svc.AdjustStock(ctx, 2, 1)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Purchases.WithLabelValues(purchaseCompleted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Purchases.WithLabelValues(purchaseRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Reviews))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Adjustments))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.purchase(purchaseFailed)
		m.review()
		m.adjustment()
	})
}
