package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/domain"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/repository"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/usecase"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/usecase/tenant"
)

// RepositoryResolver hands the scanner a tenant-scoped order repository
// without coupling it to the dependency container.
type RepositoryResolver func(ctx context.Context, tenantID string) (repository.OrderRepository, error)

// ScannerConfig controls how often the order books are swept.
type ScannerConfig struct {
	Interval time.Duration
}

// OverdueScanner periodically sweeps every active tenant's order book for
// orders past their promised delivery date and records audit warnings so
// monitoring can follow up.
type OverdueScanner struct {
	tenants *tenant.Provider
	repos   RepositoryResolver
	audit   usecase.AuditSink
	logger  *zap.Logger
	cron    *cron.Cron
	cfg     ScannerConfig
}

// NewOverdueScanner schedules the sweep on a cron ticker.
func NewOverdueScanner(
	tenants *tenant.Provider,
	repos RepositoryResolver,
	audit usecase.AuditSink,
	logger *zap.Logger,
	cfg ScannerConfig,
) *OverdueScanner {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	scanner := &OverdueScanner{
		tenants: tenants,
		repos:   repos,
		audit:   audit,
		logger:  logger,
		cfg:     cfg,
		cron:    cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = scanner.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		scanner.Sweep(ctx)
	})
	return scanner
}

// Start launches the cron scheduler.
func (s *OverdueScanner) Start() {
	if s == nil || s.cron == nil {
		return
	}
	s.cron.Start()
	s.logger.Info("overdue scanner started", zap.Duration("interval", s.cfg.Interval))
}

// Stop gracefully stops the scheduler.
func (s *OverdueScanner) Stop(ctx context.Context) {
	if s == nil || s.cron == nil {
		return
	}
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	s.logger.Info("overdue scanner stopped")
}

// Sweep runs one pass over all active tenants.
func (s *OverdueScanner) Sweep(ctx context.Context) {
	now := time.Now().UTC()

	for _, tenantID := range s.tenants.ListActiveTenantIDs() {
		repo, err := s.repos(ctx, tenantID)
		if err != nil {
			s.logger.Warn("repository resolution failed", zap.String("tenant_id", tenantID), zap.Error(err))
			continue
		}

		overdue, err := repo.FindOverdue(ctx, now)
		if err != nil {
			s.logger.Warn("overdue query failed", zap.String("tenant_id", tenantID), zap.Error(err))
			continue
		}
		if len(overdue) == 0 {
			continue
		}

		s.logger.Info("overdue orders found",
			zap.String("tenant_id", tenantID),
			zap.Int("count", len(overdue)))

		if s.audit == nil {
			continue
		}
		for _, order := range overdue {
			s.audit.Record(ctx, domain.NewAuditEntry(tenantID, "", "order.overdue", map[string]interface{}{
				"order_id":      order.ID,
				"order_number":  order.OrderNumber,
				"delivery_date": order.DeliveryDate,
				"status":        string(order.Status),
			}, domain.AuditWarning))
		}
	}
}
