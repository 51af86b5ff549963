package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/domain"
)

func newTestProvider(t *testing.T, tier domain.SubscriptionTier) *Provider {
	t.Helper()
	provider := NewProvider(nil)
	_, err := provider.CreateTenant(context.Background(), CreateTenantInput{
		ID:   "tenant-1",
		Name: "Acme Procurement",
		Tier: tier,
	})
	require.NoError(t, err)
	return provider
}

func TestCreateTenant(t *testing.T) {
	provider := NewProvider(nil)
	ctx := context.Background()

	created, err := provider.CreateTenant(ctx, CreateTenantInput{
		ID:   "tenant-1",
		Name: "Acme Procurement",
		Tier: domain.TierProfessional,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TenantActive, created.Status)
	assert.True(t, created.Features[domain.FeatureApprovalWorkflow])
	assert.Equal(t, 10000, created.Limits.MaxOrders)

	_, err = provider.CreateTenant(ctx, CreateTenantInput{ID: "tenant-1", Name: "Duplicate"})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeConflict))

	_, err = provider.CreateTenant(ctx, CreateTenantInput{Name: "no id"})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeValidation))
}

func TestCreateTenantDefaultsToBasic(t *testing.T) {
	provider := NewProvider(nil)
	created, err := provider.CreateTenant(context.Background(), CreateTenantInput{ID: "tenant-1", Name: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, domain.TierBasic, created.Tier)
	assert.False(t, created.Features[domain.FeatureApprovalWorkflow])
}

func TestValidateAndGetTenant(t *testing.T) {
	provider := newTestProvider(t, domain.TierBasic)
	ctx := context.Background()

	tenant, err := provider.ValidateAndGetTenant(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", tenant.ID)

	_, err = provider.ValidateAndGetTenant(ctx, "unknown")
	assert.ErrorIs(t, err, domain.ErrTenantNotFound)

	require.NoError(t, provider.SuspendTenant(ctx, "tenant-1", "payment overdue"))
	_, err = provider.ValidateAndGetTenant(ctx, "tenant-1")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeTenant))

	// GetTenant still returns the record, including the reason
	record, err := provider.GetTenant(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TenantSuspended, record.Status)
	assert.Equal(t, "payment overdue", record.StatusReason)

	require.NoError(t, provider.ReactivateTenant(ctx, "tenant-1"))
	_, err = provider.ValidateAndGetTenant(ctx, "tenant-1")
	assert.NoError(t, err)
}

func TestCheckLimits(t *testing.T) {
	provider := newTestProvider(t, domain.TierBasic)

	assert.True(t, provider.CheckLimits("tenant-1", domain.ResourceOrders, 999))
	assert.False(t, provider.CheckLimits("tenant-1", domain.ResourceOrders, 1000))
	assert.False(t, provider.CheckLimits("tenant-1", "unknown_resource", 0))
	assert.False(t, provider.CheckLimits("unknown", domain.ResourceOrders, 0))
}

func TestChangeSubscription(t *testing.T) {
	provider := newTestProvider(t, domain.TierBasic)
	ctx := context.Background()

	upgraded, err := provider.ChangeSubscription(ctx, "tenant-1", domain.TierEnterprise)
	require.NoError(t, err)
	assert.Equal(t, domain.TierEnterprise, upgraded.Tier)
	assert.True(t, upgraded.Features[domain.FeatureFinanceReporting])
	assert.Equal(t, 100000, upgraded.Limits.MaxOrders)
	assert.True(t, upgraded.Policy.RequireMFA)

	// downgrade recomputes from the tables, nothing is retained
	downgraded, err := provider.ChangeSubscription(ctx, "tenant-1", domain.TierBasic)
	require.NoError(t, err)
	assert.False(t, downgraded.Features[domain.FeatureFinanceReporting])
	assert.Equal(t, 1000, downgraded.Limits.MaxOrders)

	_, err = provider.ChangeSubscription(ctx, "unknown", domain.TierBasic)
	assert.ErrorIs(t, err, domain.ErrTenantNotFound)
}

func TestHasFeature(t *testing.T) {
	provider := newTestProvider(t, domain.TierProfessional)

	assert.True(t, provider.HasFeature("tenant-1", domain.FeatureDocumentExport))
	assert.False(t, provider.HasFeature("tenant-1", domain.FeatureAdvancedAnalytics))
	assert.False(t, provider.HasFeature("unknown", domain.FeatureOrderManagement))
}

func TestListActiveTenantIDs(t *testing.T) {
	provider := newTestProvider(t, domain.TierBasic)
	ctx := context.Background()

	_, err := provider.CreateTenant(ctx, CreateTenantInput{ID: "tenant-2", Name: "Other"})
	require.NoError(t, err)
	require.NoError(t, provider.DeactivateTenant(ctx, "tenant-2", "churned"))

	ids := provider.ListActiveTenantIDs()
	assert.Equal(t, []string{"tenant-1"}, ids)
}

func TestRequestContextLifecycle(t *testing.T) {
	provider := newTestProvider(t, domain.TierBasic)
	ctx := context.Background()

	request, err := provider.CreateRequestContext(ctx, "tenant-1", "user-1", "10.0.0.1")
	require.NoError(t, err)
	assert.NotEmpty(t, request.ID)
	assert.Equal(t, 1, provider.ActiveRequestCount())

	provider.ClearRequestContext(request.ID)
	assert.Equal(t, 0, provider.ActiveRequestCount())

	// releasing twice or with an empty id is harmless
	provider.ClearRequestContext(request.ID)
	provider.ClearRequestContext("")
	assert.Equal(t, 0, provider.ActiveRequestCount())

	_, err = provider.CreateRequestContext(ctx, "unknown", "user-1", "10.0.0.1")
	assert.ErrorIs(t, err, domain.ErrTenantNotFound)
}

func TestRequestContextIPAllowlist(t *testing.T) {
	provider := newTestProvider(t, domain.TierEnterprise)
	ctx := context.Background()

	provider.mu.Lock()
	provider.tenants["tenant-1"].Policy.IPAllowlist = []string{"10.0.0.1"}
	provider.mu.Unlock()

	_, err := provider.CreateRequestContext(ctx, "tenant-1", "user-1", "10.0.0.1")
	assert.NoError(t, err)

	_, err = provider.CreateRequestContext(ctx, "tenant-1", "user-1", "192.168.1.5")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeTenant))
}
