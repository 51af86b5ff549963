package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return d
}

func sampleParams() NewOrderParams {
	return NewOrderParams{
		TenantID:     "tenant-1",
		OrderNumber:  "PO-2026-0001",
		SupplierID:   "supplier-9",
		Subject:      "office hardware",
		DeliveryDate: time.Now().Add(14 * 24 * time.Hour),
		Currency:     "eur",
		TaxRate:      dec("19"),
		Items: []LineItem{
			{Description: "widgets", Quantity: dec("10"), UnitPrice: dec("25.50"), DiscountPercent: dec("5")},
			{Description: "shipping", Quantity: dec("1"), UnitPrice: dec("150.00")},
		},
		CreatedBy: "user-1",
	}
}

func TestNewPurchaseOrder(t *testing.T) {
	order, err := NewPurchaseOrder(sampleParams())
	require.NoError(t, err)

	assert.NotEmpty(t, order.ID)
	assert.Equal(t, StatusDraft, order.Status)
	assert.Equal(t, 1, order.Version)
	assert.Equal(t, "EUR", order.Currency)
	assert.False(t, order.OrderDate.IsZero())
	for _, item := range order.Items {
		assert.NotEmpty(t, item.ID)
	}
}

func TestNewPurchaseOrderValidation(t *testing.T) {
	params := sampleParams()
	params.Items = nil
	_, err := NewPurchaseOrder(params)
	require.Error(t, err)
	assert.True(t, IsDomainError(err, ErrCodeValidation))

	params = sampleParams()
	params.SupplierID = "  "
	_, err = NewPurchaseOrder(params)
	assert.True(t, IsDomainError(err, ErrCodeValidation))

	params = sampleParams()
	params.Items[0].Quantity = dec("0")
	_, err = NewPurchaseOrder(params)
	assert.True(t, IsDomainError(err, ErrCodeValidation))

	params = sampleParams()
	params.Items[0].DiscountPercent = dec("101")
	_, err = NewPurchaseOrder(params)
	assert.True(t, IsDomainError(err, ErrCodeValidation))
}

func TestOrderTotals(t *testing.T) {
	order, err := NewPurchaseOrder(sampleParams())
	require.NoError(t, err)

	// 10 * 25.50 = 255.00, minus 5% = 242.25, plus 150.00 = 392.25
	assert.True(t, dec("392.25").Equal(order.Subtotal()), "subtotal %s", order.Subtotal())
	assert.True(t, dec("74.5275").Equal(order.TaxAmount()), "tax %s", order.TaxAmount())
	assert.True(t, dec("466.7775").Equal(order.GrandTotal()), "total %s", order.GrandTotal())
}

func TestLineItemAmounts(t *testing.T) {
	item := LineItem{Description: "widgets", Quantity: dec("10"), UnitPrice: dec("25.50"), DiscountPercent: dec("5")}
	assert.True(t, dec("255").Equal(item.GrossAmount()))
	assert.True(t, dec("12.75").Equal(item.DiscountAmount()))
	assert.True(t, dec("242.25").Equal(item.TotalAmount()))
}

func TestStatusTransitions(t *testing.T) {
	draft, err := NewPurchaseOrder(sampleParams())
	require.NoError(t, err)

	approved, err := draft.Approve("manager-1")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)
	assert.Equal(t, 2, approved.Version)
	assert.Equal(t, "manager-1", approved.ApprovedBy)
	require.NotNil(t, approved.ApprovedAt)

	ordered, err := approved.MarkOrdered("buyer-1")
	require.NoError(t, err)
	assert.Equal(t, StatusOrdered, ordered.Status)
	assert.Equal(t, 3, ordered.Version)

	partial, err := ordered.MarkPartiallyDelivered()
	require.NoError(t, err)
	assert.Equal(t, StatusPartiallyDelivered, partial.Status)

	// partial deliveries may repeat before completion
	again, err := partial.MarkPartiallyDelivered()
	require.NoError(t, err)

	delivered, err := again.MarkDelivered()
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, delivered.Status)
	assert.Equal(t, 6, delivered.Version)
}

func TestIllegalTransitions(t *testing.T) {
	draft, err := NewPurchaseOrder(sampleParams())
	require.NoError(t, err)

	_, err = draft.MarkOrdered("buyer-1")
	assert.True(t, IsDomainError(err, ErrCodeState))

	_, err = draft.MarkDelivered()
	assert.True(t, IsDomainError(err, ErrCodeState))

	approved, _ := draft.Approve("manager-1")
	_, err = approved.Approve("manager-2")
	assert.True(t, IsDomainError(err, ErrCodeState))

	ordered, _ := approved.MarkOrdered("buyer-1")
	delivered, _ := ordered.MarkDelivered()
	_, err = delivered.Cancel()
	assert.True(t, IsDomainError(err, ErrCodeState))
}

func TestCancelFromAnyOpenState(t *testing.T) {
	draft, err := NewPurchaseOrder(sampleParams())
	require.NoError(t, err)

	cancelled, err := draft.Cancel()
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	approved, _ := draft.Approve("manager-1")
	_, err = approved.Cancel()
	require.NoError(t, err)

	ordered, _ := approved.MarkOrdered("buyer-1")
	partial, _ := ordered.MarkPartiallyDelivered()
	_, err = partial.Cancel()
	require.NoError(t, err)
}

func TestTransitionsDoNotMutateReceiver(t *testing.T) {
	draft, err := NewPurchaseOrder(sampleParams())
	require.NoError(t, err)

	approved, err := draft.Approve("manager-1")
	require.NoError(t, err)

	assert.Equal(t, StatusDraft, draft.Status)
	assert.Equal(t, 1, draft.Version)
	assert.Empty(t, draft.ApprovedBy)
	assert.Equal(t, StatusApproved, approved.Status)

	// item mutation on the copy must not leak back
	updated, err := approved.AddItem(LineItem{Description: "extra", Quantity: dec("1"), UnitPrice: dec("10")})
	require.NoError(t, err)
	assert.Len(t, approved.Items, 2)
	assert.Len(t, updated.Items, 3)
}

func TestRevise(t *testing.T) {
	draft, err := NewPurchaseOrder(sampleParams())
	require.NoError(t, err)

	due := time.Now().Add(30 * 24 * time.Hour)
	revised, err := draft.Revise(ReviseParams{
		Subject:      "office hardware, revised",
		Notes:        "expedite",
		DeliveryDate: due,
		Items: []LineItem{
			{Description: "widgets", Quantity: dec("5"), UnitPrice: dec("25.50")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, revised.Version)
	assert.Equal(t, "office hardware, revised", revised.Subject)
	assert.Equal(t, "expedite", revised.Notes)
	assert.Len(t, revised.Items, 1)

	// nil items keeps current lines
	kept, err := draft.Revise(ReviseParams{Notes: "unchanged lines"})
	require.NoError(t, err)
	assert.Len(t, kept.Items, 2)

	_, err = draft.Revise(ReviseParams{Items: []LineItem{}})
	assert.True(t, IsDomainError(err, ErrCodeValidation))
}

func TestRemoveItem(t *testing.T) {
	draft, err := NewPurchaseOrder(sampleParams())
	require.NoError(t, err)

	reduced, err := draft.RemoveItem(draft.Items[0].ID)
	require.NoError(t, err)
	assert.Len(t, reduced.Items, 1)

	_, err = reduced.RemoveItem(reduced.Items[0].ID)
	assert.True(t, IsDomainError(err, ErrCodeValidation), "last item must not be removable")

	_, err = draft.RemoveItem("missing")
	assert.True(t, IsDomainError(err, ErrCodeNotFound))
}

func TestIsOverdue(t *testing.T) {
	now := time.Now()

	order, err := NewPurchaseOrder(sampleParams())
	require.NoError(t, err)
	assert.False(t, order.IsOverdue(now))

	late := order
	late.DeliveryDate = now.Add(-24 * time.Hour)
	assert.True(t, late.IsOverdue(now))

	cancelled, _ := late.Cancel()
	assert.False(t, cancelled.IsOverdue(now))

	noDate := order
	noDate.DeliveryDate = time.Time{}
	assert.False(t, noDate.IsOverdue(now))
}

func TestCanBeModified(t *testing.T) {
	draft, err := NewPurchaseOrder(sampleParams())
	require.NoError(t, err)
	assert.True(t, draft.CanBeModified())

	approved, _ := draft.Approve("manager-1")
	assert.False(t, approved.CanBeModified())
}
