package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/domain"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/repository"
)

func newOrder(t *testing.T, tenantID, number string) domain.PurchaseOrder {
	t.Helper()
	order, err := domain.NewPurchaseOrder(domain.NewOrderParams{
		TenantID:     tenantID,
		OrderNumber:  number,
		SupplierID:   "supplier-1",
		Subject:      "consumables",
		DeliveryDate: time.Now().Add(7 * 24 * time.Hour),
		Currency:     "EUR",
		TaxRate:      decimal.NewFromInt(19),
		Items: []domain.LineItem{
			{Description: "paper", Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(5)},
		},
		CreatedBy: "user-1",
	})
	require.NoError(t, err)
	return order
}

func TestCreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository("tenant-1")

	order := newOrder(t, "tenant-1", "PO-1")
	created, err := repo.Create(ctx, order)
	require.NoError(t, err)
	assert.Equal(t, order.ID, created.ID)

	byID, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "PO-1", byID.OrderNumber)

	byNumber, err := repo.FindByOrderNumber(ctx, "PO-1")
	require.NoError(t, err)
	assert.Equal(t, order.ID, byNumber.ID)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestOrderNumberUniquePerTenant(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository("tenant-1")

	_, err := repo.Create(ctx, newOrder(t, "tenant-1", "PO-1"))
	require.NoError(t, err)

	_, err = repo.Create(ctx, newOrder(t, "tenant-1", "PO-1"))
	assert.ErrorIs(t, err, domain.ErrOrderNumberTaken)

	// a second tenant's store may reuse the same number
	other := NewOrderRepository("tenant-2")
	_, err = other.Create(ctx, newOrder(t, "tenant-2", "PO-1"))
	assert.NoError(t, err)
}

func TestUpdateVersionCheck(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository("tenant-1")

	order := newOrder(t, "tenant-1", "PO-1")
	_, err := repo.Create(ctx, order)
	require.NoError(t, err)

	approved, err := order.Approve("manager-1")
	require.NoError(t, err)
	_, err = repo.Update(ctx, order.ID, approved)
	require.NoError(t, err)

	// a second writer still holding version 1 must be rejected
	stale, err := order.Cancel()
	require.NoError(t, err)
	_, err = repo.Update(ctx, order.ID, stale)
	assert.ErrorIs(t, err, domain.ErrVersionConflict)
}

func TestUpdateRejectsNumberChange(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository("tenant-1")

	order := newOrder(t, "tenant-1", "PO-1")
	_, err := repo.Create(ctx, order)
	require.NoError(t, err)

	renamed, err := order.Approve("manager-1")
	require.NoError(t, err)
	renamed.OrderNumber = "PO-2"
	_, err = repo.Update(ctx, order.ID, renamed)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeValidation))
}

func TestFindAllPagination(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository("tenant-1")

	for i := 0; i < 5; i++ {
		_, err := repo.Create(ctx, newOrder(t, "tenant-1", fmt.Sprintf("PO-%d", i)))
		require.NoError(t, err)
	}

	page, err := repo.FindAll(ctx, repository.OrderFilter{}, repository.OrderSort{Field: repository.SortByOrderNumber}, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, page.TotalCount)
	assert.Equal(t, 3, page.PageCount)
	assert.Len(t, page.Items, 2)
	assert.True(t, page.HasNext)
	assert.False(t, page.HasPrev)
	assert.Equal(t, "PO-0", page.Items[0].OrderNumber)

	last, err := repo.FindAll(ctx, repository.OrderFilter{}, repository.OrderSort{Field: repository.SortByOrderNumber}, 3, 2)
	require.NoError(t, err)
	assert.Len(t, last.Items, 1)
	assert.False(t, last.HasNext)
	assert.True(t, last.HasPrev)

	// a page beyond the data set is empty, not an error
	beyond, err := repo.FindAll(ctx, repository.OrderFilter{}, repository.OrderSort{}, 9, 2)
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)
}

func TestFindAllFilterAndSort(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository("tenant-1")

	a := newOrder(t, "tenant-1", "PO-A")
	_, err := repo.Create(ctx, a)
	require.NoError(t, err)

	b := newOrder(t, "tenant-1", "PO-B")
	b.SupplierID = "supplier-2"
	_, err = repo.Create(ctx, b)
	require.NoError(t, err)

	approved, err := a.Approve("manager-1")
	require.NoError(t, err)
	_, err = repo.Update(ctx, a.ID, approved)
	require.NoError(t, err)

	bySupplier, err := repo.FindAll(ctx, repository.OrderFilter{SupplierID: "supplier-2"}, repository.OrderSort{}, 1, 10)
	require.NoError(t, err)
	require.Len(t, bySupplier.Items, 1)
	assert.Equal(t, "PO-B", bySupplier.Items[0].OrderNumber)

	byStatus, err := repo.FindAll(ctx, repository.OrderFilter{Status: domain.StatusApproved}, repository.OrderSort{}, 1, 10)
	require.NoError(t, err)
	require.Len(t, byStatus.Items, 1)
	assert.Equal(t, "PO-A", byStatus.Items[0].OrderNumber)

	desc, err := repo.FindAll(ctx, repository.OrderFilter{}, repository.OrderSort{Field: repository.SortByOrderNumber, Descending: true}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, "PO-B", desc.Items[0].OrderNumber)
}

func TestFindOverdueAndPendingApproval(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository("tenant-1")
	now := time.Now()

	late := newOrder(t, "tenant-1", "PO-LATE")
	late.DeliveryDate = now.Add(-48 * time.Hour)
	_, err := repo.Create(ctx, late)
	require.NoError(t, err)

	onTime := newOrder(t, "tenant-1", "PO-OK")
	_, err = repo.Create(ctx, onTime)
	require.NoError(t, err)

	overdue, err := repo.FindOverdue(ctx, now)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "PO-LATE", overdue[0].OrderNumber)

	pending, err := repo.FindPendingApproval(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository("tenant-1")

	order := newOrder(t, "tenant-1", "PO-1")
	_, err := repo.Create(ctx, order)
	require.NoError(t, err)

	deleted, err := repo.Delete(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	// the order number is free again after deletion
	_, err = repo.Create(ctx, newOrder(t, "tenant-1", "PO-1"))
	assert.NoError(t, err)
}

func TestStatistics(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository("tenant-1")
	now := time.Now()

	first := newOrder(t, "tenant-1", "PO-1")
	_, err := repo.Create(ctx, first)
	require.NoError(t, err)

	second := newOrder(t, "tenant-1", "PO-2")
	second.DeliveryDate = now.Add(-24 * time.Hour)
	_, err = repo.Create(ctx, second)
	require.NoError(t, err)

	approved, err := first.Approve("manager-1")
	require.NoError(t, err)
	_, err = repo.Update(ctx, first.ID, approved)
	require.NoError(t, err)

	stats, err := repo.Statistics(ctx, now)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalCount)
	assert.Equal(t, 1, stats.CountByStatus[domain.StatusDraft])
	assert.Equal(t, 1, stats.CountByStatus[domain.StatusApproved])
	assert.Equal(t, 0, stats.CountByStatus[domain.StatusCancelled])
	assert.Equal(t, 1, stats.OverdueCount)
	assert.Equal(t, 1, stats.PendingApprovalCount)

	// each order totals 10 * 5 * 1.19 = 59.50
	assert.True(t, decimal.NewFromFloat(119).Equal(stats.TotalValue), "total %s", stats.TotalValue)
	assert.True(t, decimal.NewFromFloat(59.5).Equal(stats.AverageValue), "average %s", stats.AverageValue)
}

func TestStatisticsEmpty(t *testing.T) {
	repo := NewOrderRepository("tenant-1")
	stats, err := repo.Statistics(context.Background(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, 0, stats.TotalCount)
	assert.True(t, stats.TotalValue.IsZero())
	assert.True(t, stats.AverageValue.IsZero())
	assert.Len(t, stats.CountByStatus, len(domain.AllOrderStatuses))
}
