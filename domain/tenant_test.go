package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTierOrdering(t *testing.T) {
	assert.True(t, TierEnterprise.AtLeast(TierBasic))
	assert.True(t, TierEnterprise.AtLeast(TierProfessional))
	assert.True(t, TierProfessional.AtLeast(TierBasic))
	assert.False(t, TierBasic.AtLeast(TierProfessional))
	assert.True(t, TierBasic.AtLeast(TierBasic))
}

func TestFeaturesForTier(t *testing.T) {
	basic := FeaturesForTier(TierBasic)
	assert.True(t, basic[FeatureOrderManagement])
	assert.False(t, basic[FeatureApprovalWorkflow])
	assert.False(t, basic[FeatureFinanceReporting])

	pro := FeaturesForTier(TierProfessional)
	assert.True(t, pro[FeatureApprovalWorkflow])
	assert.True(t, pro[FeatureDocumentExport])
	assert.True(t, pro[FeatureInventorySync])
	assert.False(t, pro[FeatureFinanceReporting])

	ent := FeaturesForTier(TierEnterprise)
	assert.True(t, ent[FeatureFinanceReporting])
	assert.True(t, ent[FeatureAdvancedAnalytics])
}

func TestLimitsForTier(t *testing.T) {
	assert.Equal(t, 1000, LimitsForTier(TierBasic).MaxOrders)
	assert.Equal(t, 10000, LimitsForTier(TierProfessional).MaxOrders)
	assert.Equal(t, 100000, LimitsForTier(TierEnterprise).MaxOrders)
}

func TestPolicyForTier(t *testing.T) {
	basic := PolicyForTier(TierBasic)
	assert.False(t, basic.RequireMFA)
	assert.Equal(t, "aes-128-gcm", basic.EncryptionLevel)

	ent := PolicyForTier(TierEnterprise)
	assert.True(t, ent.RequireMFA)
	assert.Equal(t, "full", ent.AuditLevel)
	assert.Equal(t, 30*time.Minute, ent.SessionTimeout)
}

func TestTenantContextGates(t *testing.T) {
	ctx := &TenantContext{
		ID:       "tenant-1",
		Tier:     TierProfessional,
		Status:   TenantActive,
		Features: FeaturesForTier(TierProfessional),
		Limits:   LimitsForTier(TierProfessional),
	}

	assert.True(t, ctx.IsActive())
	assert.True(t, ctx.HasFeature(FeatureDocumentExport))
	assert.False(t, ctx.HasFeature(FeatureFinanceReporting))
	assert.Equal(t, 10000, ctx.LimitFor(ResourceOrders))
	assert.Equal(t, 0, ctx.LimitFor("unknown"))

	ctx.Status = TenantSuspended
	assert.False(t, ctx.IsActive())

	var nilCtx *TenantContext
	assert.False(t, nilCtx.IsActive())
	assert.False(t, nilCtx.HasFeature(FeatureOrderManagement))
	assert.Equal(t, 0, nilCtx.LimitFor(ResourceOrders))
}
