package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/domain"
)

// OrderFilter narrows FindAll results. Zero values mean "no constraint".
type OrderFilter struct {
	SupplierID string
	Status     domain.OrderStatus
	CreatedBy  string
	ApprovedBy string
	OrderedBy  string

	OrderDateFrom    *time.Time
	OrderDateTo      *time.Time
	DeliveryDateFrom *time.Time
	DeliveryDateTo   *time.Time

	MinTotal *decimal.Decimal
	MaxTotal *decimal.Decimal
}

// OrderSortField is the fixed set of sortable fields.
type OrderSortField string

const (
	SortByOrderNumber  OrderSortField = "order_number"
	SortByOrderDate    OrderSortField = "order_date"
	SortByDeliveryDate OrderSortField = "delivery_date"
	SortByStatus       OrderSortField = "status"
	SortByGrandTotal   OrderSortField = "grand_total"
	SortByCreatedAt    OrderSortField = "created_at"
	SortByUpdatedAt    OrderSortField = "updated_at"
)

// OrderSort selects ordering; an empty Field defaults to creation time.
type OrderSort struct {
	Field      OrderSortField
	Descending bool
}

// OrderPage is a 1-indexed result page with navigation flags.
type OrderPage struct {
	Items      []domain.PurchaseOrder `json:"items"`
	TotalCount int                    `json:"total_count"`
	Page       int                    `json:"page"`
	PageSize   int                    `json:"page_size"`
	PageCount  int                    `json:"page_count"`
	HasNext    bool                   `json:"has_next"`
	HasPrev    bool                   `json:"has_prev"`
}

// OrderStatistics aggregates the full tenant data set in one pass.
type OrderStatistics struct {
	TotalCount           int                        `json:"total_count"`
	CountByStatus        map[domain.OrderStatus]int `json:"count_by_status"`
	TotalValue           decimal.Decimal            `json:"total_value"`
	AverageValue         decimal.Decimal            `json:"average_value"`
	OverdueCount         int                        `json:"overdue_count"`
	PendingApprovalCount int                        `json:"pending_approval_count"`
}

// OrderRepository is the tenant-scoped persistence contract. Implementations
// are constructed for one tenant; every operation is implicitly scoped to it.
// Update performs a compare-and-swap on the aggregate version: the stored
// version must be exactly one behind the incoming value.
type OrderRepository interface {
	Create(ctx context.Context, order domain.PurchaseOrder) (*domain.PurchaseOrder, error)
	Update(ctx context.Context, id string, order domain.PurchaseOrder) (*domain.PurchaseOrder, error)
	FindByID(ctx context.Context, id string) (*domain.PurchaseOrder, error)
	FindByOrderNumber(ctx context.Context, number string) (*domain.PurchaseOrder, error)
	FindAll(ctx context.Context, filter OrderFilter, sort OrderSort, page, pageSize int) (*OrderPage, error)
	FindOverdue(ctx context.Context, now time.Time) ([]domain.PurchaseOrder, error)
	FindPendingApproval(ctx context.Context) ([]domain.PurchaseOrder, error)
	Delete(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int, error)
	Statistics(ctx context.Context, now time.Time) (*OrderStatistics, error)
}
