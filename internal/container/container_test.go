package container

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/domain"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/repository"
	memoryRepo "github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/repository/memory"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/usecase/tenant"
)

type noopPublisher struct{}

func (noopPublisher) Publish(ctx context.Context, event domain.DomainEvent) error { return nil }
func (noopPublisher) PublishBatch(ctx context.Context, events []domain.DomainEvent) error {
	return nil
}
func (noopPublisher) IsHealthy() bool { return true }

type noopAudit struct{}

func (noopAudit) Record(ctx context.Context, entry domain.AuditEntry) {}

func testDependencies(t *testing.T) Dependencies {
	t.Helper()

	provider := tenant.NewProvider(nil)
	_, err := provider.CreateTenant(context.Background(), tenant.CreateTenantInput{
		ID:   "tenant-1",
		Name: "Acme",
		Tier: domain.TierProfessional,
	})
	require.NoError(t, err)

	return Dependencies{
		Tenants:   provider,
		Usage:     memoryRepo.NewUsageRepository(),
		Publisher: noopPublisher{},
		Audit:     noopAudit{},
		Repositories: func(tenantID string) (repository.OrderRepository, error) {
			return memoryRepo.NewOrderRepository(tenantID), nil
		},
	}
}

func TestNewValidatesDependencies(t *testing.T) {
	deps := testDependencies(t)
	deps.Tenants = nil
	_, err := New(deps)
	assert.Error(t, err)

	deps = testDependencies(t)
	deps.Repositories = nil
	_, err = New(deps)
	assert.Error(t, err)

	deps = testDependencies(t)
	deps.Publisher = nil
	_, err = New(deps)
	assert.Error(t, err)
}

func TestForTenantIsIdempotent(t *testing.T) {
	c, err := New(testDependencies(t))
	require.NoError(t, err)

	first, err := c.ForTenant(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.NotNil(t, first.Orders)
	require.NotNil(t, first.Repository)

	second, err := c.ForTenant(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, c.TenantCount())
}

func TestForTenantUnknownTenant(t *testing.T) {
	c, err := New(testDependencies(t))
	require.NoError(t, err)

	_, err = c.ForTenant(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrTenantNotFound)
	assert.Equal(t, 0, c.TenantCount())
}

func TestForTenantConcurrent(t *testing.T) {
	c, err := New(testDependencies(t))
	require.NoError(t, err)

	const workers = 16
	bundles := make([]*TenantServices, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			bundle, err := c.ForTenant(context.Background(), "tenant-1")
			assert.NoError(t, err)
			bundles[slot] = bundle
		}(i)
	}
	wg.Wait()

	for _, bundle := range bundles {
		assert.Same(t, bundles[0], bundle, "concurrent callers must share one bundle")
	}
	assert.Equal(t, 1, c.TenantCount())
}

func TestOrderRepositoryResolvesBundle(t *testing.T) {
	c, err := New(testDependencies(t))
	require.NoError(t, err)

	repo, err := c.OrderRepository(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.NotNil(t, repo)

	bundle, err := c.ForTenant(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, bundle.Repository, repo)

	_, err = c.OrderRepository(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrTenantNotFound)
}

func TestReleaseTenant(t *testing.T) {
	c, err := New(testDependencies(t))
	require.NoError(t, err)

	first, err := c.ForTenant(context.Background(), "tenant-1")
	require.NoError(t, err)

	c.ReleaseTenant("tenant-1")
	assert.Equal(t, 0, c.TenantCount())

	rebuilt, err := c.ForTenant(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.NotSame(t, first, rebuilt)
}

func TestResolve(t *testing.T) {
	c, err := New(testDependencies(t))
	require.NoError(t, err)

	c.Register("signing_key", "k1")
	value, err := c.Resolve("signing_key")
	require.NoError(t, err)
	assert.Equal(t, "k1", value)

	_, err = c.Resolve("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestHealthCheck(t *testing.T) {
	c, err := New(testDependencies(t))
	require.NoError(t, err)

	health := c.HealthCheck()
	assert.True(t, health["tenant_provider"])
	assert.True(t, health["publisher"])
	assert.True(t, health["audit_sink"])
	assert.True(t, health["usage_tracker"])
}
