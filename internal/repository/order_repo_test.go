package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/amorempixels/amor_server/internal/model"
	"github.com/amorempixels/amor_server/internal/testutil"
)

func TestOrderRepository_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewOrderRepository(db)

	site := testutil.TestSite(t, db, testutil.WithStatus(model.SiteStatusPending))
	order := &model.Order{
		SiteID:    site.ID,
		SessionID: "cs_test_1",
		Plan:      "basic",
		Email:     "ana@example.com",
		Amount:    1990,
		Currency:  "brl",
		Status:    model.OrderStatusOpen,
	}
	require.NoError(t, repo.Create(order))

	found, err := repo.GetBySession("cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, site.ID, found.SiteID)
	assert.Equal(t, int64(1990), found.Amount)

	_, err = repo.GetBySession("cs_missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestOrderRepository_MarkPaid(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewOrderRepository(db)

	site := testutil.TestSite(t, db)
	order := testutil.TestOrder(t, db, site.ID)

	ok, err := repo.MarkPaid(order.SessionID, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkPaid(order.SessionID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	found, err := repo.GetBySession(order.SessionID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, found.Status)
	assert.NotNil(t, found.PaidAt)

	paid, err := repo.HasPaidForSite(site.ID)
	require.NoError(t, err)
	assert.True(t, paid)
}

func TestOrderRepository_MarkStatus_OnlyOpen(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewOrderRepository(db)

	site := testutil.TestSite(t, db)
	open := testutil.TestOrder(t, db, site.ID)
	paid := testutil.TestOrder(t, db, site.ID, testutil.WithOrderStatus(model.OrderStatusPaid))

	require.NoError(t, repo.MarkStatus(open.SessionID, model.OrderStatusExpired))
	require.NoError(t, repo.MarkStatus(paid.SessionID, model.OrderStatusExpired))

	got, _ := repo.GetBySession(open.SessionID)
	assert.Equal(t, model.OrderStatusExpired, got.Status)
	got, _ = repo.GetBySession(paid.SessionID)
	assert.Equal(t, model.OrderStatusPaid, got.Status)
}

func TestOrderRepository_CancelOpenForSite(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewOrderRepository(db)

	site := testutil.TestSite(t, db)
	first := testutil.TestOrder(t, db, site.ID)
	second := testutil.TestOrder(t, db, site.ID)

	require.NoError(t, repo.CancelOpenForSite(site.ID))

	for _, o := range []*model.Order{first, second} {
		got, err := repo.GetBySession(o.SessionID)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusCancelled, got.Status)
	}

	paid, err := repo.HasPaidForSite(site.ID)
	require.NoError(t, err)
	assert.False(t, paid)
}

func TestOrderRepository_DeleteBySite(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewOrderRepository(db)

	site := testutil.TestSite(t, db)
	first := testutil.TestOrder(t, db, site.ID)
	second := testutil.TestOrder(t, db, site.ID)

	require.NoError(t, repo.DeleteBySite(site.ID))
	_, err := repo.GetBySession(first.SessionID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = repo.GetBySession(second.SessionID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
