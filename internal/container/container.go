package container

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/repository"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/usecase"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/usecase/order"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/usecase/tenant"
)

// RepositoryFactory builds a tenant-scoped order repository for the chosen
// storage backend.
type RepositoryFactory func(tenantID string) (repository.OrderRepository, error)

// TenantServices bundles everything that is constructed once per tenant.
type TenantServices struct {
	TenantID   string
	Repository repository.OrderRepository
	Orders     *order.Service
}

// Dependencies are the process-wide singletons the container wires from.
type Dependencies struct {
	Tenants      *tenant.Provider
	Usage        repository.UsageRepository
	Publisher    usecase.EventPublisher
	Audit        usecase.AuditSink
	Repositories RepositoryFactory
	Logger       *zap.Logger
}

// Container is the dependency injection root. Shared infrastructure is held
// as named singletons; per-tenant service bundles are created lazily, cached
// and handed out idempotently.
type Container struct {
	deps Dependencies

	mu         sync.RWMutex
	singletons map[string]interface{}
	tenants    map[string]*TenantServices
}

// New validates the dependency set and creates an empty container.
func New(deps Dependencies) (*Container, error) {
	if deps.Tenants == nil {
		return nil, fmt.Errorf("container: tenant provider is required")
	}
	if deps.Repositories == nil {
		return nil, fmt.Errorf("container: repository factory is required")
	}
	if deps.Publisher == nil {
		return nil, fmt.Errorf("container: event publisher is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &Container{
		deps:       deps,
		singletons: make(map[string]interface{}),
		tenants:    make(map[string]*TenantServices),
	}, nil
}

// Register stores a named process-wide singleton.
func (c *Container) Register(name string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.singletons[name] = value
}

// Resolve returns a registered singleton or fails fast with a descriptive
// error naming the missing dependency.
func (c *Container) Resolve(name string) (interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.singletons[name]
	if !ok {
		return nil, fmt.Errorf("container: no dependency registered under %q", name)
	}
	return value, nil
}

// ForTenant returns the tenant's service bundle, creating it on first use.
// The tenant must exist and be active; repeated calls return the same bundle.
func (c *Container) ForTenant(ctx context.Context, tenantID string) (*TenantServices, error) {
	c.mu.RLock()
	services, ok := c.tenants[tenantID]
	c.mu.RUnlock()
	if ok {
		return services, nil
	}

	if _, err := c.deps.Tenants.GetTenant(ctx, tenantID); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if services, ok := c.tenants[tenantID]; ok {
		return services, nil
	}

	services, err := c.createTenantServices(tenantID)
	if err != nil {
		return nil, err
	}
	c.tenants[tenantID] = services
	c.deps.Logger.Info("tenant services created", zap.String("tenant_id", tenantID))
	return services, nil
}

// OrderRepository resolves the tenant's repository, building the bundle if needed.
func (c *Container) OrderRepository(ctx context.Context, tenantID string) (repository.OrderRepository, error) {
	services, err := c.ForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return services.Repository, nil
}

// ReleaseTenant drops a cached bundle, typically after deactivation.
func (c *Container) ReleaseTenant(tenantID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tenants, tenantID)
}

// TenantCount reports how many tenant bundles are cached.
func (c *Container) TenantCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tenants)
}

// HealthCheck probes each wired dependency and reports a per-entry verdict
// without raising.
func (c *Container) HealthCheck() map[string]bool {
	return map[string]bool{
		"tenant_provider": c.deps.Tenants != nil,
		"publisher":       c.deps.Publisher != nil && c.deps.Publisher.IsHealthy(),
		"audit_sink":      c.deps.Audit != nil,
		"usage_tracker":   c.deps.Usage != nil,
	}
}

func (c *Container) createTenantServices(tenantID string) (*TenantServices, error) {
	repo, err := c.deps.Repositories(tenantID)
	if err != nil {
		return nil, fmt.Errorf("container: repository for tenant %s: %w", tenantID, err)
	}

	svc := order.New(
		tenantID,
		c.deps.Tenants,
		repo,
		c.deps.Usage,
		c.deps.Publisher,
		c.deps.Audit,
		c.deps.Logger,
	)

	return &TenantServices{
		TenantID:   tenantID,
		Repository: repo,
		Orders:     svc,
	}, nil
}
