package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/domain"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/repository"
)

// Orders are stored as a JSONB payload next to a handful of indexed columns
// that drive filtering, sorting and the optimistic concurrency check.
type orderRepository struct {
	pool     *pgxpool.Pool
	tenantID string
}

// NewOrderRepository returns a Postgres-backed OrderRepository scoped to one tenant.
func NewOrderRepository(pool *pgxpool.Pool, tenantID string) repository.OrderRepository {
	return &orderRepository{pool: pool, tenantID: tenantID}
}

var sortColumns = map[repository.OrderSortField]string{
	repository.SortByOrderNumber:  "order_number",
	repository.SortByOrderDate:    "order_date",
	repository.SortByDeliveryDate: "delivery_date",
	repository.SortByStatus:       "status",
	repository.SortByGrandTotal:   "grand_total",
	repository.SortByCreatedAt:    "created_at",
	repository.SortByUpdatedAt:    "updated_at",
}

func (r *orderRepository) Create(ctx context.Context, order domain.PurchaseOrder) (*domain.PurchaseOrder, error) {
	if order.ID == "" || order.TenantID != r.tenantID {
		return nil, domain.NewError(domain.ErrCodeValidation, "order does not belong to this tenant")
	}

	exists, err := r.numberExists(ctx, order.OrderNumber)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrOrderNumberTaken
	}

	payload, err := json.Marshal(order)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "order serialization failed", err)
	}

	const query = `
	INSERT INTO purchase_orders
		(id, tenant_id, order_number, supplier_id, status, version, grand_total,
		 order_date, delivery_date, created_by, approved_by, ordered_by, payload,
		 created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = r.pool.Exec(ctx, query,
		order.ID,
		order.TenantID,
		order.OrderNumber,
		order.SupplierID,
		string(order.Status),
		order.Version,
		order.GrandTotal(),
		order.OrderDate,
		nullTime(order.DeliveryDate),
		order.CreatedBy,
		order.ApprovedBy,
		order.OrderedBy,
		payload,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Update performs a compare-and-swap: the row is replaced only when its stored
// version is exactly one behind the incoming aggregate.
func (r *orderRepository) Update(ctx context.Context, id string, order domain.PurchaseOrder) (*domain.PurchaseOrder, error) {
	current, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.OrderNumber != current.OrderNumber {
		return nil, domain.NewError(domain.ErrCodeValidation, "order number cannot be changed")
	}

	payload, err := json.Marshal(order)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "order serialization failed", err)
	}

	const query = `
	UPDATE purchase_orders
	SET supplier_id = $1,
		status = $2,
		version = $3,
		grand_total = $4,
		delivery_date = $5,
		approved_by = $6,
		ordered_by = $7,
		payload = $8,
		updated_at = $9
	WHERE id = $10 AND tenant_id = $11 AND version = $12
	`
	tag, err := r.pool.Exec(ctx, query,
		order.SupplierID,
		string(order.Status),
		order.Version,
		order.GrandTotal(),
		nullTime(order.DeliveryDate),
		order.ApprovedBy,
		order.OrderedBy,
		payload,
		order.UpdatedAt,
		id,
		r.tenantID,
		order.Version-1,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrVersionConflict
	}
	return &order, nil
}

func (r *orderRepository) FindByID(ctx context.Context, id string) (*domain.PurchaseOrder, error) {
	const query = `
	SELECT payload FROM purchase_orders
	WHERE id = $1 AND tenant_id = $2
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, id, r.tenantID))
}

func (r *orderRepository) FindByOrderNumber(ctx context.Context, number string) (*domain.PurchaseOrder, error) {
	const query = `
	SELECT payload FROM purchase_orders
	WHERE order_number = $1 AND tenant_id = $2
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, number, r.tenantID))
}

func (r *orderRepository) FindAll(ctx context.Context, filter repository.OrderFilter, sort repository.OrderSort, page, pageSize int) (*repository.OrderPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	where, args := r.buildWhere(filter)

	countQuery := "SELECT COUNT(*) FROM purchase_orders " + where
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, err
	}

	column, ok := sortColumns[sort.Field]
	if !ok {
		column = "created_at"
	}
	direction := "ASC"
	if sort.Descending {
		direction = "DESC"
	}

	listQuery := fmt.Sprintf(
		"SELECT payload FROM purchase_orders %s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		where, column, direction, len(args)+1, len(args)+2,
	)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.pool.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}

	pageCount := (total + pageSize - 1) / pageSize
	return &repository.OrderPage{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
		PageCount:  pageCount,
		HasNext:    page < pageCount,
		HasPrev:    page > 1 && total > 0,
	}, nil
}

func (r *orderRepository) FindOverdue(ctx context.Context, now time.Time) ([]domain.PurchaseOrder, error) {
	const query = `
	SELECT payload FROM purchase_orders
	WHERE tenant_id = $1
	  AND delivery_date IS NOT NULL
	  AND delivery_date < $2
	  AND status NOT IN ('delivered', 'cancelled')
	ORDER BY delivery_date ASC
	`
	rows, err := r.pool.Query(ctx, query, r.tenantID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

func (r *orderRepository) FindPendingApproval(ctx context.Context) ([]domain.PurchaseOrder, error) {
	const query = `
	SELECT payload FROM purchase_orders
	WHERE tenant_id = $1 AND status = 'draft'
	ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, r.tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

func (r *orderRepository) Delete(ctx context.Context, id string) (bool, error) {
	const query = `
	DELETE FROM purchase_orders
	WHERE id = $1 AND tenant_id = $2
	`
	tag, err := r.pool.Exec(ctx, query, id, r.tenantID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *orderRepository) Count(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM purchase_orders WHERE tenant_id = $1`
	var count int
	if err := r.pool.QueryRow(ctx, query, r.tenantID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *orderRepository) Statistics(ctx context.Context, now time.Time) (*repository.OrderStatistics, error) {
	const query = `
	SELECT
		COUNT(*),
		COALESCE(SUM(grand_total), 0),
		COUNT(*) FILTER (WHERE delivery_date IS NOT NULL
			AND delivery_date < $2
			AND status NOT IN ('delivered', 'cancelled')),
		COUNT(*) FILTER (WHERE status = 'draft')
	FROM purchase_orders
	WHERE tenant_id = $1
	`
	stats := &repository.OrderStatistics{
		CountByStatus: make(map[domain.OrderStatus]int, len(domain.AllOrderStatuses)),
		TotalValue:    decimal.Zero,
		AverageValue:  decimal.Zero,
	}
	var totalValue decimal.Decimal
	if err := r.pool.QueryRow(ctx, query, r.tenantID, now).Scan(
		&stats.TotalCount,
		&totalValue,
		&stats.OverdueCount,
		&stats.PendingApprovalCount,
	); err != nil {
		return nil, err
	}
	stats.TotalValue = totalValue
	if stats.TotalCount > 0 {
		stats.AverageValue = totalValue.DivRound(decimal.NewFromInt(int64(stats.TotalCount)), 4)
	}

	for _, status := range domain.AllOrderStatuses {
		stats.CountByStatus[status] = 0
	}

	const byStatus = `
	SELECT status, COUNT(*) FROM purchase_orders
	WHERE tenant_id = $1
	GROUP BY status
	`
	rows, err := r.pool.Query(ctx, byStatus, r.tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.CountByStatus[domain.OrderStatus(status)] = count
	}
	return stats, rows.Err()
}

func (r *orderRepository) numberExists(ctx context.Context, number string) (bool, error) {
	const query = `
	SELECT EXISTS(SELECT 1 FROM purchase_orders WHERE order_number = $1 AND tenant_id = $2)
	`
	var exists bool
	err := r.pool.QueryRow(ctx, query, number, r.tenantID).Scan(&exists)
	return exists, err
}

func (r *orderRepository) buildWhere(filter repository.OrderFilter) (string, []interface{}) {
	clauses := []string{"tenant_id = $1"}
	args := []interface{}{r.tenantID}

	add := func(clause string, value interface{}) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if filter.SupplierID != "" {
		add("supplier_id = $%d", filter.SupplierID)
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.CreatedBy != "" {
		add("created_by = $%d", filter.CreatedBy)
	}
	if filter.ApprovedBy != "" {
		add("approved_by = $%d", filter.ApprovedBy)
	}
	if filter.OrderedBy != "" {
		add("ordered_by = $%d", filter.OrderedBy)
	}
	if filter.OrderDateFrom != nil {
		add("order_date >= $%d", *filter.OrderDateFrom)
	}
	if filter.OrderDateTo != nil {
		add("order_date <= $%d", *filter.OrderDateTo)
	}
	if filter.DeliveryDateFrom != nil {
		add("delivery_date >= $%d", *filter.DeliveryDateFrom)
	}
	if filter.DeliveryDateTo != nil {
		add("delivery_date <= $%d", *filter.DeliveryDateTo)
	}
	if filter.MinTotal != nil {
		add("grand_total >= $%d", *filter.MinTotal)
	}
	if filter.MaxTotal != nil {
		add("grand_total <= $%d", *filter.MaxTotal)
	}

	return "WHERE " + strings.Join(clauses, " AND "), args
}

func (r *orderRepository) scanOne(row pgx.Row) (*domain.PurchaseOrder, error) {
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	var order domain.PurchaseOrder
	if err := json.Unmarshal(payload, &order); err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "order deserialization failed", err)
	}
	return &order, nil
}

func scanOrders(rows pgx.Rows) ([]domain.PurchaseOrder, error) {
	var orders []domain.PurchaseOrder
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var order domain.PurchaseOrder
		if err := json.Unmarshal(payload, &order); err != nil {
			return nil, domain.WrapError(domain.ErrCodeInternal, "order deserialization failed", err)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
