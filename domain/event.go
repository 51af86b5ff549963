package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType is the closed enumeration of order lifecycle facts. The string
// value doubles as the broker subject the event is published to.
type EventType string

const (
	EventOrderCreated            EventType = "procurement.order.created"
	EventOrderUpdated            EventType = "procurement.order.updated"
	EventOrderApproved           EventType = "procurement.order.approved"
	EventOrderOrdered            EventType = "procurement.order.ordered"
	EventOrderPartiallyDelivered EventType = "procurement.order.partially_delivered"
	EventOrderDelivered          EventType = "procurement.order.delivered"
	EventOrderCancelled          EventType = "procurement.order.cancelled"
	EventOrderInvoiced           EventType = "procurement.order.invoiced"
)

// AllEventTypes is the fixed subject set consumers subscribe to.
var AllEventTypes = []EventType{
	EventOrderCreated,
	EventOrderUpdated,
	EventOrderApproved,
	EventOrderOrdered,
	EventOrderPartiallyDelivered,
	EventOrderDelivered,
	EventOrderCancelled,
	EventOrderInvoiced,
}

// EventSource identifies this system in outgoing event metadata.
const EventSource = "procurement-core"

// EventSchemaVersion is bumped on wire-incompatible payload changes.
const EventSchemaVersion = 1

// Actor identifies who triggered a state change.
type Actor struct {
	UserID     string `json:"userId"`
	Role       string `json:"role,omitempty"`
	Department string `json:"department,omitempty"`
}

// EventMetadata carries tracing and schema information.
type EventMetadata struct {
	CorrelationID string `json:"correlationId,omitempty"`
	CausationID   string `json:"causationId,omitempty"`
	Version       int    `json:"version"`
	Source        string `json:"source"`
}

// DomainEvent is an immutable fact constructed after a successful repository
// write. Field names follow the published wire contract.
type DomainEvent struct {
	ID          string        `json:"eventId"`
	Type        EventType     `json:"eventType"`
	AggregateID string        `json:"aggregateId"`
	TenantID    string        `json:"tenantId"`
	Timestamp   time.Time     `json:"timestamp"`
	Actor       Actor         `json:"actor"`
	Payload     interface{}   `json:"payload"`
	Metadata    EventMetadata `json:"metadata"`
}

// NewDomainEvent builds an event with generated id, timestamp and default
// metadata.
func NewDomainEvent(eventType EventType, order PurchaseOrder, actor Actor, payload interface{}) DomainEvent {
	return DomainEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		AggregateID: order.ID,
		TenantID:    order.TenantID,
		Timestamp:   time.Now().UTC(),
		Actor:       actor,
		Payload:     payload,
		Metadata: EventMetadata{
			Version: EventSchemaVersion,
			Source:  EventSource,
		},
	}
}

// OrderSnapshotPayload is shared by created and updated events.
type OrderSnapshotPayload struct {
	OrderNumber string          `json:"orderNumber"`
	SupplierID  string          `json:"supplierId"`
	Status      OrderStatus     `json:"status"`
	Currency    string          `json:"currency"`
	ItemCount   int             `json:"itemCount"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	TaxAmount   decimal.Decimal `json:"taxAmount"`
	GrandTotal  decimal.Decimal `json:"grandTotal"`
	Version     int             `json:"aggregateVersion"`
}

// StatusChangedPayload accompanies every pure status transition.
type StatusChangedPayload struct {
	OrderNumber    string      `json:"orderNumber"`
	PreviousStatus OrderStatus `json:"previousStatus"`
	NewStatus      OrderStatus `json:"newStatus"`
	Version        int         `json:"aggregateVersion"`
}

// OrderCancelledPayload adds the cancellation reason.
type OrderCancelledPayload struct {
	StatusChangedPayload
	Reason string `json:"reason,omitempty"`
}

// OrderInvoicedPayload records the invoicing fact layered on top of delivery;
// the order status itself is intentionally unchanged.
type OrderInvoicedPayload struct {
	OrderNumber string          `json:"orderNumber"`
	InvoiceID   string          `json:"invoiceId,omitempty"`
	GrandTotal  decimal.Decimal `json:"grandTotal"`
	Currency    string          `json:"currency"`
}

// SnapshotPayload derives the shared payload from an aggregate value.
func SnapshotPayload(order PurchaseOrder) OrderSnapshotPayload {
	return OrderSnapshotPayload{
		OrderNumber: order.OrderNumber,
		SupplierID:  order.SupplierID,
		Status:      order.Status,
		Currency:    order.Currency,
		ItemCount:   len(order.Items),
		Subtotal:    order.Subtotal(),
		TaxAmount:   order.TaxAmount(),
		GrandTotal:  order.GrandTotal(),
		Version:     order.Version,
	}
}
