package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus models the purchase-order lifecycle.
type OrderStatus string

const (
	StatusDraft              OrderStatus = "draft"
	StatusApproved           OrderStatus = "approved"
	StatusOrdered            OrderStatus = "ordered"
	StatusPartiallyDelivered OrderStatus = "partially_delivered"
	StatusDelivered          OrderStatus = "delivered"
	StatusCancelled          OrderStatus = "cancelled"
)

// AllOrderStatuses lists every lifecycle state, used by statistics and filters.
var AllOrderStatuses = []OrderStatus{
	StatusDraft,
	StatusApproved,
	StatusOrdered,
	StatusPartiallyDelivered,
	StatusDelivered,
	StatusCancelled,
}

// Address is an optional structured shipping destination.
type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// LineItem is owned exclusively by its parent purchase order; it has no
// identity lifecycle of its own.
type LineItem struct {
	ID              string          `json:"id"`
	Description     string          `json:"description"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

var oneHundred = decimal.NewFromInt(100)

// GrossAmount is unit price times quantity before any discount.
func (li LineItem) GrossAmount() decimal.Decimal {
	return li.UnitPrice.Mul(li.Quantity)
}

// DiscountAmount is the absolute discount derived from the percentage.
func (li LineItem) DiscountAmount() decimal.Decimal {
	return li.GrossAmount().Mul(li.DiscountPercent).Div(oneHundred)
}

// TotalAmount is the line total after discount.
func (li LineItem) TotalAmount() decimal.Decimal {
	return li.GrossAmount().Sub(li.DiscountAmount())
}

// Validate enforces the line-level invariants.
func (li LineItem) Validate() error {
	if strings.TrimSpace(li.Description) == "" {
		return NewError(ErrCodeValidation, "line item description is required")
	}
	if !li.Quantity.IsPositive() {
		return NewError(ErrCodeValidation, "line item quantity must be positive")
	}
	if li.UnitPrice.IsNegative() {
		return NewError(ErrCodeValidation, "line item unit price must not be negative")
	}
	if li.DiscountPercent.IsNegative() || li.DiscountPercent.GreaterThan(oneHundred) {
		return NewError(ErrCodeValidation, "line item discount must be between 0 and 100 percent")
	}
	return nil
}

// PurchaseOrder is the order aggregate. It is treated as an immutable value:
// every mutating operation returns a fresh copy with Version incremented and
// never touches the receiver. Totals are derived, never stored.
type PurchaseOrder struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenant_id"`
	OrderNumber string `json:"order_number"`

	SupplierID      string          `json:"supplier_id"`
	Subject         string          `json:"subject"`
	OrderDate       time.Time       `json:"order_date"`
	DeliveryDate    time.Time       `json:"delivery_date"`
	Currency        string          `json:"currency"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
	Notes           string          `json:"notes,omitempty"`
	ShippingAddress *Address        `json:"shipping_address,omitempty"`
	Items           []LineItem      `json:"items"`

	Status    OrderStatus `json:"status"`
	Version   int         `json:"version"`
	CreatedBy string      `json:"created_by"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`

	ApprovedBy string     `json:"approved_by,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	OrderedBy  string     `json:"ordered_by,omitempty"`
	OrderedAt  *time.Time `json:"ordered_at,omitempty"`
}

// NewOrderParams carries the caller-supplied attributes of a new order.
type NewOrderParams struct {
	TenantID        string
	OrderNumber     string
	SupplierID      string
	Subject         string
	OrderDate       time.Time
	DeliveryDate    time.Time
	Currency        string
	TaxRate         decimal.Decimal
	Notes           string
	ShippingAddress *Address
	Items           []LineItem
	CreatedBy       string
}

// NewPurchaseOrder builds a draft order at version 1, validating the
// aggregate-level invariants.
func NewPurchaseOrder(params NewOrderParams) (PurchaseOrder, error) {
	if params.TenantID == "" {
		return PurchaseOrder{}, NewError(ErrCodeValidation, "tenant id is required")
	}
	if strings.TrimSpace(params.SupplierID) == "" {
		return PurchaseOrder{}, NewError(ErrCodeValidation, "supplier id is required")
	}
	if len(params.Items) == 0 {
		return PurchaseOrder{}, NewError(ErrCodeValidation, "purchase order requires at least one line item")
	}
	items, err := cloneItems(params.Items)
	if err != nil {
		return PurchaseOrder{}, err
	}

	now := time.Now().UTC()
	order := PurchaseOrder{
		ID:              uuid.NewString(),
		TenantID:        params.TenantID,
		OrderNumber:     params.OrderNumber,
		SupplierID:      params.SupplierID,
		Subject:         params.Subject,
		OrderDate:       params.OrderDate,
		DeliveryDate:    params.DeliveryDate,
		Currency:        strings.ToUpper(params.Currency),
		TaxRate:         params.TaxRate,
		Notes:           params.Notes,
		ShippingAddress: params.ShippingAddress,
		Items:           items,
		Status:          StatusDraft,
		Version:         1,
		CreatedBy:       params.CreatedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if order.OrderDate.IsZero() {
		order.OrderDate = now
	}
	return order, nil
}

// Subtotal is the sum of all line totals.
func (o PurchaseOrder) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range o.Items {
		sum = sum.Add(item.TotalAmount())
	}
	return sum
}

// TaxAmount applies the order tax rate to the subtotal.
func (o PurchaseOrder) TaxAmount() decimal.Decimal {
	return o.Subtotal().Mul(o.TaxRate).Div(oneHundred)
}

// GrandTotal is subtotal plus tax.
func (o PurchaseOrder) GrandTotal() decimal.Decimal {
	return o.Subtotal().Add(o.TaxAmount())
}

// CanBeModified reports whether line items may still change.
func (o PurchaseOrder) CanBeModified() bool {
	return o.Status == StatusDraft
}

// IsOverdue reports whether delivery is late relative to now.
func (o PurchaseOrder) IsOverdue(now time.Time) bool {
	if o.DeliveryDate.IsZero() {
		return false
	}
	if o.Status == StatusDelivered || o.Status == StatusCancelled {
		return false
	}
	return o.DeliveryDate.Before(now)
}

// Approve moves a draft order to approved.
func (o PurchaseOrder) Approve(by string) (PurchaseOrder, error) {
	if o.Status != StatusDraft {
		return PurchaseOrder{}, NewError(ErrCodeState, "only draft orders can be approved")
	}
	next := o.next()
	now := next.UpdatedAt
	next.Status = StatusApproved
	next.ApprovedBy = by
	next.ApprovedAt = &now
	return next, nil
}

// MarkOrdered moves an approved order to ordered.
func (o PurchaseOrder) MarkOrdered(by string) (PurchaseOrder, error) {
	if o.Status != StatusApproved {
		return PurchaseOrder{}, NewError(ErrCodeState, "only approved orders can be ordered")
	}
	next := o.next()
	now := next.UpdatedAt
	next.Status = StatusOrdered
	next.OrderedBy = by
	next.OrderedAt = &now
	return next, nil
}

// MarkPartiallyDelivered records an incomplete delivery.
func (o PurchaseOrder) MarkPartiallyDelivered() (PurchaseOrder, error) {
	if o.Status != StatusOrdered && o.Status != StatusPartiallyDelivered {
		return PurchaseOrder{}, NewError(ErrCodeState, "only ordered orders can be partially delivered")
	}
	next := o.next()
	next.Status = StatusPartiallyDelivered
	return next, nil
}

// MarkDelivered records a completed delivery.
func (o PurchaseOrder) MarkDelivered() (PurchaseOrder, error) {
	if o.Status != StatusOrdered && o.Status != StatusPartiallyDelivered {
		return PurchaseOrder{}, NewError(ErrCodeState, "only ordered orders can be delivered")
	}
	next := o.next()
	next.Status = StatusDelivered
	return next, nil
}

// Cancel is legal from any state except delivered.
func (o PurchaseOrder) Cancel() (PurchaseOrder, error) {
	if o.Status == StatusDelivered {
		return PurchaseOrder{}, NewError(ErrCodeState, "delivered orders cannot be cancelled")
	}
	next := o.next()
	next.Status = StatusCancelled
	return next, nil
}

// WithItems replaces the line items and recomputes derived state. The order
// itself does not gate on CanBeModified; the service layer does.
func (o PurchaseOrder) WithItems(items []LineItem) (PurchaseOrder, error) {
	if len(items) == 0 {
		return PurchaseOrder{}, NewError(ErrCodeValidation, "purchase order requires at least one line item")
	}
	cloned, err := cloneItems(items)
	if err != nil {
		return PurchaseOrder{}, err
	}
	next := o.next()
	next.Items = cloned
	return next, nil
}

// AddItem appends a line item.
func (o PurchaseOrder) AddItem(item LineItem) (PurchaseOrder, error) {
	if err := item.Validate(); err != nil {
		return PurchaseOrder{}, err
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	next := o.next()
	next.Items = append(next.Items, item)
	return next, nil
}

// RemoveItem drops a line item by id; the last item cannot be removed.
func (o PurchaseOrder) RemoveItem(itemID string) (PurchaseOrder, error) {
	if len(o.Items) <= 1 {
		return PurchaseOrder{}, NewError(ErrCodeValidation, "purchase order requires at least one line item")
	}
	next := o.next()
	kept := next.Items[:0]
	found := false
	for _, item := range next.Items {
		if item.ID == itemID {
			found = true
			continue
		}
		kept = append(kept, item)
	}
	if !found {
		return PurchaseOrder{}, NewErrorf(ErrCodeNotFound, "line item %s not found", itemID)
	}
	next.Items = kept
	return next, nil
}

// ReviseParams carries a combined header/item update applied in one version step.
type ReviseParams struct {
	Subject         string
	Notes           string
	DeliveryDate    time.Time
	ShippingAddress *Address
	Items           []LineItem
}

// Revise applies a full update in a single version increment. Nil item slice
// keeps the current items.
func (o PurchaseOrder) Revise(params ReviseParams) (PurchaseOrder, error) {
	next := o.next()
	if params.Subject != "" {
		next.Subject = params.Subject
	}
	next.Notes = params.Notes
	if !params.DeliveryDate.IsZero() {
		next.DeliveryDate = params.DeliveryDate
	}
	if params.ShippingAddress != nil {
		copied := *params.ShippingAddress
		next.ShippingAddress = &copied
	}
	if params.Items != nil {
		if len(params.Items) == 0 {
			return PurchaseOrder{}, NewError(ErrCodeValidation, "purchase order requires at least one line item")
		}
		items, err := cloneItems(params.Items)
		if err != nil {
			return PurchaseOrder{}, err
		}
		next.Items = items
	}
	return next, nil
}

// next copies the aggregate, bumps the version and refreshes UpdatedAt.
// Every mutation-producing operation goes through here.
func (o PurchaseOrder) next() PurchaseOrder {
	next := o
	next.Items = append([]LineItem(nil), o.Items...)
	if o.ShippingAddress != nil {
		addr := *o.ShippingAddress
		next.ShippingAddress = &addr
	}
	next.Version = o.Version + 1
	next.UpdatedAt = time.Now().UTC()
	return next
}

func cloneItems(items []LineItem) ([]LineItem, error) {
	cloned := make([]LineItem, 0, len(items))
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return nil, err
		}
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		cloned = append(cloned, item)
	}
	return cloned, nil
}
