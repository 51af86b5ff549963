package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/domain"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/repository"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/usecase"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/usecase/tenant"
)

// Service is the order-lifecycle orchestration core for one tenant. Every
// operation follows the same shape: gate the tenant, load and validate, apply
// the aggregate transition, persist, publish the domain event best effort,
// write an audit entry. Failures before the publish step produce a
// security-incident audit entry and surface the domain error unchanged.
type Service struct {
	tenantID  string
	tenants   *tenant.Provider
	orders    repository.OrderRepository
	usage     repository.UsageRepository
	publisher usecase.EventPublisher
	audit     usecase.AuditSink
	logger    *zap.Logger
}

// New wires a tenant-scoped order service.
func New(
	tenantID string,
	tenants *tenant.Provider,
	orders repository.OrderRepository,
	usage repository.UsageRepository,
	publisher usecase.EventPublisher,
	audit usecase.AuditSink,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		tenantID:  tenantID,
		tenants:   tenants,
		orders:    orders,
		usage:     usage,
		publisher: publisher,
		audit:     audit,
		logger:    logger.With(zap.String("tenant_id", tenantID)),
	}
}

// LineItemInput is a caller-supplied line item.
type LineItemInput struct {
	Description     string
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
}

// CreateOrderInput carries the attributes of a new purchase order.
type CreateOrderInput struct {
	OrderNumber     string
	SupplierID      string
	Subject         string
	OrderDate       time.Time
	DeliveryDate    time.Time
	Currency        string
	TaxRate         decimal.Decimal
	Notes           string
	ShippingAddress *domain.Address
	Items           []LineItemInput
}

// UpdateOrderInput carries a draft revision. A nil Items slice keeps the
// current line items; a non-nil slice replaces them entirely.
type UpdateOrderInput struct {
	Subject         string
	Notes           string
	DeliveryDate    time.Time
	ShippingAddress *domain.Address
	Items           []LineItemInput
}

// CreatePurchaseOrder validates input, assigns a unique tenant-scoped order
// number and persists a new draft aggregate.
func (s *Service) CreatePurchaseOrder(ctx context.Context, actor domain.Actor, input CreateOrderInput) (*domain.PurchaseOrder, error) {
	if err := s.gate(ctx); err != nil {
		return nil, s.incident(ctx, actor, "order.create", err, nil)
	}

	count, err := s.orders.Count(ctx)
	if err != nil {
		return nil, s.incident(ctx, actor, "order.create", err, nil)
	}
	if !s.tenants.CheckLimits(s.tenantID, domain.ResourceOrders, count) {
		err := domain.NewErrorf(domain.ErrCodeTenant, "order limit reached for tenant %s", s.tenantID)
		return nil, s.incident(ctx, actor, "order.create", err, nil)
	}

	number := input.OrderNumber
	if number == "" {
		number, err = s.nextOrderNumber(ctx)
		if err != nil {
			return nil, s.incident(ctx, actor, "order.create", err, nil)
		}
	} else if _, err := s.orders.FindByOrderNumber(ctx, number); err == nil {
		return nil, s.incident(ctx, actor, "order.create", domain.ErrOrderNumberTaken, map[string]interface{}{
			"order_number": number,
		})
	} else if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		return nil, s.incident(ctx, actor, "order.create", err, nil)
	}

	order, err := domain.NewPurchaseOrder(domain.NewOrderParams{
		TenantID:        s.tenantID,
		OrderNumber:     number,
		SupplierID:      input.SupplierID,
		Subject:         input.Subject,
		OrderDate:       input.OrderDate,
		DeliveryDate:    input.DeliveryDate,
		Currency:        input.Currency,
		TaxRate:         input.TaxRate,
		Notes:           input.Notes,
		ShippingAddress: input.ShippingAddress,
		Items:           mapItems(input.Items),
		CreatedBy:       actor.UserID,
	})
	if err != nil {
		return nil, s.incident(ctx, actor, "order.create", err, nil)
	}

	stored, err := s.orders.Create(ctx, order)
	if err != nil {
		return nil, s.incident(ctx, actor, "order.create", err, map[string]interface{}{
			"order_number": number,
		})
	}

	s.emit(ctx, domain.NewDomainEvent(domain.EventOrderCreated, *stored, actor, domain.SnapshotPayload(*stored)))
	s.activity(ctx, actor, "order.created", map[string]interface{}{
		"order_id":     stored.ID,
		"order_number": stored.OrderNumber,
		"grand_total":  stored.GrandTotal().String(),
	})
	return stored, nil
}

// GetPurchaseOrder loads a single aggregate.
func (s *Service) GetPurchaseOrder(ctx context.Context, id string) (*domain.PurchaseOrder, error) {
	if err := s.gate(ctx); err != nil {
		return nil, err
	}
	return s.orders.FindByID(ctx, id)
}

// GetByOrderNumber loads an aggregate by its business key.
func (s *Service) GetByOrderNumber(ctx context.Context, number string) (*domain.PurchaseOrder, error) {
	if err := s.gate(ctx); err != nil {
		return nil, err
	}
	return s.orders.FindByOrderNumber(ctx, number)
}

// ListPurchaseOrders runs a filtered, sorted, paginated query.
func (s *Service) ListPurchaseOrders(ctx context.Context, filter repository.OrderFilter, sort repository.OrderSort, page, pageSize int) (*repository.OrderPage, error) {
	if err := s.gate(ctx); err != nil {
		return nil, err
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return s.orders.FindAll(ctx, filter, sort, page, pageSize)
}

// UpdatePurchaseOrder revises a draft order in a single version step.
func (s *Service) UpdatePurchaseOrder(ctx context.Context, actor domain.Actor, id string, input UpdateOrderInput) (*domain.PurchaseOrder, error) {
	if err := s.gate(ctx); err != nil {
		return nil, s.incident(ctx, actor, "order.update", err, nil)
	}

	current, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, s.incident(ctx, actor, "order.update", err, map[string]interface{}{"order_id": id})
	}
	if !current.CanBeModified() {
		err := domain.NewError(domain.ErrCodeState, "only draft orders can be modified")
		return nil, s.incident(ctx, actor, "order.update", err, map[string]interface{}{"order_id": id})
	}

	var items []domain.LineItem
	if input.Items != nil {
		items = mapItems(input.Items)
	}
	next, err := current.Revise(domain.ReviseParams{
		Subject:         input.Subject,
		Notes:           input.Notes,
		DeliveryDate:    input.DeliveryDate,
		ShippingAddress: input.ShippingAddress,
		Items:           items,
	})
	if err != nil {
		return nil, s.incident(ctx, actor, "order.update", err, map[string]interface{}{"order_id": id})
	}

	stored, err := s.orders.Update(ctx, id, next)
	if err != nil {
		return nil, s.incident(ctx, actor, "order.update", err, map[string]interface{}{"order_id": id})
	}

	s.emit(ctx, domain.NewDomainEvent(domain.EventOrderUpdated, *stored, actor, domain.SnapshotPayload(*stored)))
	s.activity(ctx, actor, "order.updated", map[string]interface{}{
		"order_id": stored.ID,
		"version":  stored.Version,
	})
	return stored, nil
}

// ApprovePurchaseOrder moves a draft order to approved.
func (s *Service) ApprovePurchaseOrder(ctx context.Context, actor domain.Actor, id string) (*domain.PurchaseOrder, error) {
	return s.transition(ctx, actor, id, "order.approve", domain.EventOrderApproved,
		func(o domain.PurchaseOrder) (domain.PurchaseOrder, error) { return o.Approve(actor.UserID) }, nil)
}

// OrderPurchaseOrder places an approved order with the supplier.
func (s *Service) OrderPurchaseOrder(ctx context.Context, actor domain.Actor, id string) (*domain.PurchaseOrder, error) {
	return s.transition(ctx, actor, id, "order.order", domain.EventOrderOrdered,
		func(o domain.PurchaseOrder) (domain.PurchaseOrder, error) { return o.MarkOrdered(actor.UserID) }, nil)
}

// MarkPartiallyDelivered records an incomplete delivery.
func (s *Service) MarkPartiallyDelivered(ctx context.Context, actor domain.Actor, id string) (*domain.PurchaseOrder, error) {
	return s.transition(ctx, actor, id, "order.partial_delivery", domain.EventOrderPartiallyDelivered,
		func(o domain.PurchaseOrder) (domain.PurchaseOrder, error) { return o.MarkPartiallyDelivered() }, nil)
}

// MarkDelivered records a completed delivery.
func (s *Service) MarkDelivered(ctx context.Context, actor domain.Actor, id string) (*domain.PurchaseOrder, error) {
	return s.transition(ctx, actor, id, "order.delivery", domain.EventOrderDelivered,
		func(o domain.PurchaseOrder) (domain.PurchaseOrder, error) { return o.MarkDelivered() }, nil)
}

// CancelPurchaseOrder cancels from any state except delivered and always
// produces an audit entry and a cancellation event.
func (s *Service) CancelPurchaseOrder(ctx context.Context, actor domain.Actor, id, reason string) (*domain.PurchaseOrder, error) {
	return s.transition(ctx, actor, id, "order.cancel", domain.EventOrderCancelled,
		func(o domain.PurchaseOrder) (domain.PurchaseOrder, error) { return o.Cancel() },
		func(prev, next domain.PurchaseOrder) interface{} {
			return domain.OrderCancelledPayload{
				StatusChangedPayload: statusPayload(prev, next),
				Reason:               reason,
			}
		})
}

// MarkAsInvoiced records the invoicing fact for a delivered order. Invoicing
// is tracked as an event and audit fact layered on top of delivery; the order
// status and version stay untouched.
func (s *Service) MarkAsInvoiced(ctx context.Context, actor domain.Actor, id, invoiceID string) (*domain.PurchaseOrder, error) {
	if err := s.gate(ctx); err != nil {
		return nil, s.incident(ctx, actor, "order.invoice", err, nil)
	}

	current, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, s.incident(ctx, actor, "order.invoice", err, map[string]interface{}{"order_id": id})
	}
	if current.Status != domain.StatusDelivered {
		err := domain.NewError(domain.ErrCodeState, "only delivered orders can be invoiced")
		return nil, s.incident(ctx, actor, "order.invoice", err, map[string]interface{}{"order_id": id})
	}

	s.emit(ctx, domain.NewDomainEvent(domain.EventOrderInvoiced, *current, actor, domain.OrderInvoicedPayload{
		OrderNumber: current.OrderNumber,
		InvoiceID:   invoiceID,
		GrandTotal:  current.GrandTotal(),
		Currency:    current.Currency,
	}))
	s.activity(ctx, actor, "order.invoiced", map[string]interface{}{
		"order_id":   current.ID,
		"invoice_id": invoiceID,
	})
	return current, nil
}

// DeletePurchaseOrder removes a draft order. Deleting a non-draft order is a
// state error; deleting an unknown id reports false without failing.
func (s *Service) DeletePurchaseOrder(ctx context.Context, actor domain.Actor, id string) (bool, error) {
	if err := s.gate(ctx); err != nil {
		return false, s.incident(ctx, actor, "order.delete", err, nil)
	}

	current, err := s.orders.FindByID(ctx, id)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return false, nil
		}
		return false, s.incident(ctx, actor, "order.delete", err, map[string]interface{}{"order_id": id})
	}
	if current.Status != domain.StatusDraft {
		err := domain.NewError(domain.ErrCodeState, "only draft orders can be deleted")
		return false, s.incident(ctx, actor, "order.delete", err, map[string]interface{}{"order_id": id})
	}

	deleted, err := s.orders.Delete(ctx, id)
	if err != nil {
		return false, s.incident(ctx, actor, "order.delete", err, map[string]interface{}{"order_id": id})
	}
	s.activity(ctx, actor, "order.deleted", map[string]interface{}{
		"order_id":     id,
		"order_number": current.OrderNumber,
	})
	return deleted, nil
}

// GetStatistics aggregates the tenant's order book.
func (s *Service) GetStatistics(ctx context.Context) (*repository.OrderStatistics, error) {
	if err := s.gate(ctx); err != nil {
		return nil, err
	}
	return s.orders.Statistics(ctx, time.Now().UTC())
}

// FindOverdueOrders lists orders whose delivery is late.
func (s *Service) FindOverdueOrders(ctx context.Context) ([]domain.PurchaseOrder, error) {
	if err := s.gate(ctx); err != nil {
		return nil, err
	}
	return s.orders.FindOverdue(ctx, time.Now().UTC())
}

// FindPendingApproval lists draft orders awaiting approval.
func (s *Service) FindPendingApproval(ctx context.Context) ([]domain.PurchaseOrder, error) {
	if err := s.gate(ctx); err != nil {
		return nil, err
	}
	return s.orders.FindPendingApproval(ctx)
}

// transition implements the generic load-transition-persist-publish-audit
// shape shared by all pure status transitions.
func (s *Service) transition(
	ctx context.Context,
	actor domain.Actor,
	id, operation string,
	eventType domain.EventType,
	apply func(domain.PurchaseOrder) (domain.PurchaseOrder, error),
	payload func(prev, next domain.PurchaseOrder) interface{},
) (*domain.PurchaseOrder, error) {
	if err := s.gate(ctx); err != nil {
		return nil, s.incident(ctx, actor, operation, err, nil)
	}

	current, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, s.incident(ctx, actor, operation, err, map[string]interface{}{"order_id": id})
	}

	next, err := apply(*current)
	if err != nil {
		return nil, s.incident(ctx, actor, operation, err, map[string]interface{}{
			"order_id": id,
			"status":   string(current.Status),
		})
	}

	stored, err := s.orders.Update(ctx, id, next)
	if err != nil {
		return nil, s.incident(ctx, actor, operation, err, map[string]interface{}{"order_id": id})
	}

	var body interface{}
	if payload != nil {
		body = payload(*current, *stored)
	} else {
		body = statusPayload(*current, *stored)
	}
	s.emit(ctx, domain.NewDomainEvent(eventType, *stored, actor, body))
	s.activity(ctx, actor, operation+"d", map[string]interface{}{
		"order_id":     stored.ID,
		"order_number": stored.OrderNumber,
		"status":       string(stored.Status),
		"version":      stored.Version,
	})
	return stored, nil
}

// gate validates the tenant and enforces the daily API-call quota before any
// repository access happens.
func (s *Service) gate(ctx context.Context) error {
	if _, err := s.tenants.ValidateAndGetTenant(ctx, s.tenantID); err != nil {
		return err
	}
	if s.usage == nil {
		return nil
	}
	calls, err := s.usage.IncrementAPICalls(ctx, s.tenantID)
	if err != nil {
		// Counter trouble must not block business operations.
		s.logger.Warn("usage counter unavailable", zap.Error(err))
		return nil
	}
	if !s.tenants.CheckLimits(s.tenantID, domain.ResourceAPICalls, calls-1) {
		return domain.NewErrorf(domain.ErrCodeTenant, "daily api call limit exceeded for tenant %s", s.tenantID)
	}
	return nil
}

// emit publishes best effort; a broker failure never unwinds a committed
// repository write.
func (s *Service) emit(ctx context.Context, event domain.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed",
			zap.String("event_type", string(event.Type)),
			zap.String("aggregate_id", event.AggregateID),
			zap.Error(err))
	}
}

// activity writes a routine audit entry.
func (s *Service) activity(ctx context.Context, actor domain.Actor, eventType string, details map[string]interface{}) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, domain.NewAuditEntry(s.tenantID, actor.UserID, eventType, details, domain.AuditInfo))
}

// incident writes exactly one security-incident audit entry for a failed
// operation and returns the error unchanged.
func (s *Service) incident(ctx context.Context, actor domain.Actor, operation string, err error, details map[string]interface{}) error {
	if details == nil {
		details = make(map[string]interface{}, 2)
	}
	details["operation"] = operation
	details["error"] = err.Error()
	if s.audit != nil {
		s.audit.Record(ctx, domain.NewAuditEntry(s.tenantID, actor.UserID, "security.incident", details, domain.AuditCritical))
	}
	s.logger.Error("operation failed", zap.String("operation", operation), zap.Error(err))
	return err
}

func statusPayload(prev, next domain.PurchaseOrder) domain.StatusChangedPayload {
	return domain.StatusChangedPayload{
		OrderNumber:    next.OrderNumber,
		PreviousStatus: prev.Status,
		NewStatus:      next.Status,
		Version:        next.Version,
	}
}

func mapItems(inputs []LineItemInput) []domain.LineItem {
	items := make([]domain.LineItem, 0, len(inputs))
	for _, input := range inputs {
		items = append(items, domain.LineItem{
			Description:     input.Description,
			Quantity:        input.Quantity,
			UnitPrice:       input.UnitPrice,
			DiscountPercent: input.DiscountPercent,
		})
	}
	return items
}
