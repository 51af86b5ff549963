package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/domain"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/repository"
)

// orderRepository is the reference in-memory implementation of the
// tenant-scoped order store. A transactional backend substitutes it without
// changing the contract semantics.
type orderRepository struct {
	tenantID string

	mu       sync.RWMutex
	byID     map[string]domain.PurchaseOrder
	byNumber map[string]string
}

// NewOrderRepository creates an empty store scoped to one tenant.
func NewOrderRepository(tenantID string) repository.OrderRepository {
	return &orderRepository{
		tenantID: tenantID,
		byID:     make(map[string]domain.PurchaseOrder),
		byNumber: make(map[string]string),
	}
}

func (r *orderRepository) Create(ctx context.Context, order domain.PurchaseOrder) (*domain.PurchaseOrder, error) {
	if err := validateOrder(order); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[order.ID]; exists {
		return nil, domain.NewErrorf(domain.ErrCodeConflict, "purchase order %s already exists", order.ID)
	}
	if _, taken := r.byNumber[order.OrderNumber]; taken {
		return nil, domain.ErrOrderNumberTaken
	}

	r.byID[order.ID] = order
	r.byNumber[order.OrderNumber] = order.ID

	stored := order
	return &stored, nil
}

func (r *orderRepository) Update(ctx context.Context, id string, order domain.PurchaseOrder) (*domain.PurchaseOrder, error) {
	if err := validateOrder(order); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.byID[id]
	if !exists {
		return nil, domain.ErrOrderNotFound
	}
	if current.OrderNumber != order.OrderNumber {
		return nil, domain.NewError(domain.ErrCodeValidation, "order number is immutable once assigned")
	}
	// Optimistic concurrency: the incoming aggregate must have been derived
	// from the currently stored version.
	if order.Version != current.Version+1 {
		return nil, domain.ErrVersionConflict
	}

	r.byID[id] = order
	stored := order
	return &stored, nil
}

func (r *orderRepository) FindByID(ctx context.Context, id string) (*domain.PurchaseOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, exists := r.byID[id]
	if !exists {
		return nil, domain.ErrOrderNotFound
	}
	found := order
	return &found, nil
}

func (r *orderRepository) FindByOrderNumber(ctx context.Context, number string) (*domain.PurchaseOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byNumber[number]
	if !exists {
		return nil, domain.ErrOrderNotFound
	}
	order := r.byID[id]
	return &order, nil
}

func (r *orderRepository) FindAll(ctx context.Context, filter repository.OrderFilter, sortBy repository.OrderSort, page, pageSize int) (*repository.OrderPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	r.mu.RLock()
	matched := make([]domain.PurchaseOrder, 0, len(r.byID))
	for _, order := range r.byID {
		if matchesFilter(order, filter) {
			matched = append(matched, order)
		}
	}
	r.mu.RUnlock()

	sortOrders(matched, sortBy)

	total := len(matched)
	pageCount := (total + pageSize - 1) / pageSize
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return &repository.OrderPage{
		Items:      matched[start:end],
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
		PageCount:  pageCount,
		HasNext:    page < pageCount,
		HasPrev:    page > 1 && total > 0,
	}, nil
}

func (r *orderRepository) FindOverdue(ctx context.Context, now time.Time) ([]domain.PurchaseOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var overdue []domain.PurchaseOrder
	for _, order := range r.byID {
		if order.IsOverdue(now) {
			overdue = append(overdue, order)
		}
	}
	return overdue, nil
}

func (r *orderRepository) FindPendingApproval(ctx context.Context) ([]domain.PurchaseOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var pending []domain.PurchaseOrder
	for _, order := range r.byID {
		if order.Status == domain.StatusDraft {
			pending = append(pending, order)
		}
	}
	return pending, nil
}

func (r *orderRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, exists := r.byID[id]
	if !exists {
		return false, nil
	}
	delete(r.byID, id)
	delete(r.byNumber, order.OrderNumber)
	return true, nil
}

func (r *orderRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID), nil
}

func (r *orderRepository) Statistics(ctx context.Context, now time.Time) (*repository.OrderStatistics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &repository.OrderStatistics{
		CountByStatus: make(map[domain.OrderStatus]int, len(domain.AllOrderStatuses)),
		TotalValue:    decimal.Zero,
		AverageValue:  decimal.Zero,
	}
	for _, status := range domain.AllOrderStatuses {
		stats.CountByStatus[status] = 0
	}

	for _, order := range r.byID {
		stats.TotalCount++
		stats.CountByStatus[order.Status]++
		stats.TotalValue = stats.TotalValue.Add(order.GrandTotal())
		if order.IsOverdue(now) {
			stats.OverdueCount++
		}
		if order.Status == domain.StatusDraft {
			stats.PendingApprovalCount++
		}
	}
	if stats.TotalCount > 0 {
		stats.AverageValue = stats.TotalValue.DivRound(decimal.NewFromInt(int64(stats.TotalCount)), 4)
	}
	return stats, nil
}

func validateOrder(order domain.PurchaseOrder) error {
	if order.ID == "" {
		return domain.NewError(domain.ErrCodeValidation, "order id is required")
	}
	if strings.TrimSpace(order.OrderNumber) == "" {
		return domain.NewError(domain.ErrCodeValidation, "order number is required")
	}
	if strings.TrimSpace(order.SupplierID) == "" {
		return domain.NewError(domain.ErrCodeValidation, "supplier id is required")
	}
	if len(order.Items) == 0 {
		return domain.NewError(domain.ErrCodeValidation, "purchase order requires at least one line item")
	}
	for _, item := range order.Items {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func matchesFilter(order domain.PurchaseOrder, filter repository.OrderFilter) bool {
	if filter.SupplierID != "" && order.SupplierID != filter.SupplierID {
		return false
	}
	if filter.Status != "" && order.Status != filter.Status {
		return false
	}
	if filter.CreatedBy != "" && order.CreatedBy != filter.CreatedBy {
		return false
	}
	if filter.ApprovedBy != "" && order.ApprovedBy != filter.ApprovedBy {
		return false
	}
	if filter.OrderedBy != "" && order.OrderedBy != filter.OrderedBy {
		return false
	}
	if filter.OrderDateFrom != nil && order.OrderDate.Before(*filter.OrderDateFrom) {
		return false
	}
	if filter.OrderDateTo != nil && order.OrderDate.After(*filter.OrderDateTo) {
		return false
	}
	if filter.DeliveryDateFrom != nil && order.DeliveryDate.Before(*filter.DeliveryDateFrom) {
		return false
	}
	if filter.DeliveryDateTo != nil && order.DeliveryDate.After(*filter.DeliveryDateTo) {
		return false
	}
	if filter.MinTotal != nil && order.GrandTotal().LessThan(*filter.MinTotal) {
		return false
	}
	if filter.MaxTotal != nil && order.GrandTotal().GreaterThan(*filter.MaxTotal) {
		return false
	}
	return true
}

func sortOrders(orders []domain.PurchaseOrder, sortBy repository.OrderSort) {
	field := sortBy.Field
	if field == "" {
		field = repository.SortByCreatedAt
	}

	sort.SliceStable(orders, func(i, j int) bool {
		a, b := orders[i], orders[j]
		if sortBy.Descending {
			a, b = b, a
		}
		switch field {
		case repository.SortByOrderNumber:
			return a.OrderNumber < b.OrderNumber
		case repository.SortByOrderDate:
			return a.OrderDate.Before(b.OrderDate)
		case repository.SortByDeliveryDate:
			return a.DeliveryDate.Before(b.DeliveryDate)
		case repository.SortByStatus:
			return a.Status < b.Status
		case repository.SortByGrandTotal:
			return a.GrandTotal().LessThan(b.GrandTotal())
		case repository.SortByUpdatedAt:
			return a.UpdatedAt.Before(b.UpdatedAt)
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	})
}
