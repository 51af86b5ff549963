package tenant

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/domain"
)

// RequestContext is an opaque request-scoped handle, separate from the
// long-lived tenant record. Callers must release it on every exit path.
type RequestContext struct {
	ID        string
	TenantID  string
	UserID    string
	RemoteIP  string
	StartedAt time.Time
}

// CreateTenantInput carries the attributes of a new tenant registration.
type CreateTenantInput struct {
	ID             string
	Name           string
	OrganizationID string
	Tier           domain.SubscriptionTier
}

// Provider is the registry of tenant metadata gate-keeping every operation.
type Provider struct {
	mu       sync.RWMutex
	tenants  map[string]*domain.TenantContext
	requests map[string]*RequestContext
	logger   *zap.Logger
}

// NewProvider creates an empty tenant registry.
func NewProvider(logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		tenants:  make(map[string]*domain.TenantContext),
		requests: make(map[string]*RequestContext),
		logger:   logger,
	}
}

// CreateTenant registers a tenant; the id must not exist yet. Features,
// limits and security policy are derived from the tier tables.
func (p *Provider) CreateTenant(ctx context.Context, input CreateTenantInput) (*domain.TenantContext, error) {
	if strings.TrimSpace(input.ID) == "" || strings.TrimSpace(input.Name) == "" {
		return nil, domain.NewError(domain.ErrCodeValidation, "tenant id and name are required")
	}
	tier := input.Tier
	if tier == "" {
		tier = domain.TierBasic
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.tenants[input.ID]; exists {
		return nil, domain.NewErrorf(domain.ErrCodeConflict, "tenant %s already exists", input.ID)
	}

	now := time.Now().UTC()
	tenant := &domain.TenantContext{
		ID:             input.ID,
		Name:           input.Name,
		OrganizationID: input.OrganizationID,
		Tier:           tier,
		Features:       domain.FeaturesForTier(tier),
		Limits:         domain.LimitsForTier(tier),
		Policy:         domain.PolicyForTier(tier),
		Status:         domain.TenantActive,
		CreatedAt:      now,
		LastActiveAt:   now,
	}
	p.tenants[input.ID] = tenant

	p.logger.Info("tenant created",
		zap.String("tenant_id", tenant.ID),
		zap.String("tier", string(tier)))

	snapshot := *tenant
	return &snapshot, nil
}

// ValidateAndGetTenant fails for unknown or inactive tenants and touches
// the tenant's last-active timestamp on success.
func (p *Provider) ValidateAndGetTenant(ctx context.Context, tenantID string) (*domain.TenantContext, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tenant, exists := p.tenants[tenantID]
	if !exists {
		return nil, domain.ErrTenantNotFound
	}
	if tenant.Status != domain.TenantActive {
		return nil, domain.NewErrorf(domain.ErrCodeTenant, "tenant %s is %s", tenantID, tenant.Status)
	}
	tenant.LastActiveAt = time.Now().UTC()

	snapshot := *tenant
	return &snapshot, nil
}

// GetTenant returns the tenant record without gating on status.
func (p *Provider) GetTenant(ctx context.Context, tenantID string) (*domain.TenantContext, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	tenant, exists := p.tenants[tenantID]
	if !exists {
		return nil, domain.ErrTenantNotFound
	}
	snapshot := *tenant
	return &snapshot, nil
}

// HasFeature is a pure gate; unknown tenants simply have no features.
func (p *Provider) HasFeature(tenantID, feature string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tenants[tenantID].HasFeature(feature)
}

// CheckLimits reports whether currentUsage still fits the tenant's quota for
// the resource. It never fails; unknown tenants or resources are denied.
func (p *Provider) CheckLimits(tenantID, resource string, currentUsage int) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	tenant, exists := p.tenants[tenantID]
	if !exists {
		return false
	}
	limit := tenant.LimitFor(resource)
	if limit <= 0 {
		return false
	}
	return currentUsage < limit
}

// ChangeSubscription recomputes features, limits and policy from the tier
// tables; no partial overrides happen in this layer.
func (p *Provider) ChangeSubscription(ctx context.Context, tenantID string, tier domain.SubscriptionTier) (*domain.TenantContext, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tenant, exists := p.tenants[tenantID]
	if !exists {
		return nil, domain.ErrTenantNotFound
	}

	tenant.Tier = tier
	tenant.Features = domain.FeaturesForTier(tier)
	tenant.Limits = domain.LimitsForTier(tier)
	tenant.Policy = domain.PolicyForTier(tier)

	p.logger.Info("tenant subscription changed",
		zap.String("tenant_id", tenantID),
		zap.String("tier", string(tier)))

	snapshot := *tenant
	return &snapshot, nil
}

// SuspendTenant sets the tenant inactive, retaining the reason.
func (p *Provider) SuspendTenant(ctx context.Context, tenantID, reason string) error {
	return p.setStatus(tenantID, domain.TenantSuspended, reason)
}

// ReactivateTenant returns a suspended tenant to active.
func (p *Provider) ReactivateTenant(ctx context.Context, tenantID string) error {
	return p.setStatus(tenantID, domain.TenantActive, "")
}

// DeactivateTenant permanently disables a tenant.
func (p *Provider) DeactivateTenant(ctx context.Context, tenantID, reason string) error {
	return p.setStatus(tenantID, domain.TenantDeactivated, reason)
}

func (p *Provider) setStatus(tenantID string, status domain.TenantStatus, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	tenant, exists := p.tenants[tenantID]
	if !exists {
		return domain.ErrTenantNotFound
	}
	tenant.Status = status
	tenant.StatusReason = reason

	p.logger.Info("tenant status changed",
		zap.String("tenant_id", tenantID),
		zap.String("status", string(status)),
		zap.String("reason", reason))
	return nil
}

// ListActiveTenantIDs supports background jobs iterating all live tenants.
func (p *Provider) ListActiveTenantIDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]string, 0, len(p.tenants))
	for id, tenant := range p.tenants {
		if tenant.Status == domain.TenantActive {
			ids = append(ids, id)
		}
	}
	return ids
}

// CreateRequestContext validates the tenant, enforces the IP allowlist when
// configured and registers a request-scoped handle. The caller must release
// the handle with ClearRequestContext on every exit path.
func (p *Provider) CreateRequestContext(ctx context.Context, tenantID, userID, remoteIP string) (*RequestContext, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tenant, exists := p.tenants[tenantID]
	if !exists {
		return nil, domain.ErrTenantNotFound
	}
	if tenant.Status != domain.TenantActive {
		return nil, domain.NewErrorf(domain.ErrCodeTenant, "tenant %s is %s", tenantID, tenant.Status)
	}
	if len(tenant.Policy.IPAllowlist) > 0 && !ipAllowed(remoteIP, tenant.Policy.IPAllowlist) {
		return nil, domain.NewErrorf(domain.ErrCodeTenant, "ip %s is not allowlisted for tenant %s", remoteIP, tenantID)
	}

	request := &RequestContext{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		UserID:    userID,
		RemoteIP:  remoteIP,
		StartedAt: time.Now().UTC(),
	}
	p.requests[request.ID] = request
	return request, nil
}

// ClearRequestContext releases a request-scoped handle; unknown ids are a no-op.
func (p *Provider) ClearRequestContext(requestID string) {
	if requestID == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.requests, requestID)
}

// ActiveRequestCount reports the number of unreleased request contexts.
func (p *Provider) ActiveRequestCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.requests)
}

func ipAllowed(ip string, allowlist []string) bool {
	for _, allowed := range allowlist {
		if ip == allowed {
			return true
		}
	}
	return false
}
