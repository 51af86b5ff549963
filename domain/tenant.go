package domain

import (
	"time"
)

// SubscriptionTier is the ordered plan enumeration: Basic < Professional < Enterprise.
type SubscriptionTier string

const (
	TierBasic        SubscriptionTier = "basic"
	TierProfessional SubscriptionTier = "professional"
	TierEnterprise   SubscriptionTier = "enterprise"
)

// Rank gives the ordering used for tier comparisons.
func (t SubscriptionTier) Rank() int {
	switch t {
	case TierProfessional:
		return 2
	case TierEnterprise:
		return 3
	default:
		return 1
	}
}

// AtLeast reports whether the tier meets the given minimum.
func (t SubscriptionTier) AtLeast(min SubscriptionTier) bool {
	return t.Rank() >= min.Rank()
}

// TenantStatus models the tenant lifecycle.
type TenantStatus string

const (
	TenantActive      TenantStatus = "active"
	TenantSuspended   TenantStatus = "suspended"
	TenantDeactivated TenantStatus = "deactivated"
)

// Resource names accepted by limit checks.
const (
	ResourceUsers    = "users"
	ResourceOrders   = "orders"
	ResourceStorage  = "storage_mb"
	ResourceAPICalls = "api_calls_per_day"
)

// Feature flags recognized by the platform.
const (
	FeatureOrderManagement   = "order_management"
	FeatureApprovalWorkflow  = "approval_workflow"
	FeatureDocumentExport    = "document_export"
	FeatureInventorySync     = "inventory_sync"
	FeatureFinanceReporting  = "finance_reporting"
	FeatureAdvancedAnalytics = "advanced_analytics"
)

// TenantLimits holds the numeric quotas of a subscription.
type TenantLimits struct {
	MaxUsers       int `json:"max_users"`
	MaxOrders      int `json:"max_orders"`
	StorageMB      int `json:"storage_mb"`
	APICallsPerDay int `json:"api_calls_per_day"`
}

// SecurityPolicy holds per-tenant security settings.
type SecurityPolicy struct {
	RequireMFA        bool          `json:"require_mfa"`
	PasswordMinLength int           `json:"password_min_length"`
	SessionTimeout    time.Duration `json:"session_timeout"`
	IPAllowlist       []string      `json:"ip_allowlist,omitempty"`
	EncryptionLevel   string        `json:"encryption_level"`
	AuditLevel        string        `json:"audit_level"`
}

// TenantContext is the long-lived tenant record gating every operation.
type TenantContext struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	OrganizationID string           `json:"organization_id"`
	Tier           SubscriptionTier `json:"tier"`
	Features       map[string]bool  `json:"features"`
	Limits         TenantLimits     `json:"limits"`
	Policy         SecurityPolicy   `json:"policy"`
	Status         TenantStatus     `json:"status"`
	StatusReason   string           `json:"status_reason,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	LastActiveAt   time.Time        `json:"last_active_at"`
}

// IsActive reports whether the tenant may execute operations.
func (t *TenantContext) IsActive() bool {
	return t != nil && t.Status == TenantActive
}

// HasFeature is a pure gate; it never fails.
func (t *TenantContext) HasFeature(feature string) bool {
	if t == nil {
		return false
	}
	return t.Features[feature]
}

// LimitFor returns the quota for a resource name, 0 meaning unknown resource.
func (t *TenantContext) LimitFor(resource string) int {
	if t == nil {
		return 0
	}
	switch resource {
	case ResourceUsers:
		return t.Limits.MaxUsers
	case ResourceOrders:
		return t.Limits.MaxOrders
	case ResourceStorage:
		return t.Limits.StorageMB
	case ResourceAPICalls:
		return t.Limits.APICallsPerDay
	default:
		return 0
	}
}

// Tier tables: subscription changes recompute features, limits and policy
// from these fixed maps, never partial overrides.

// FeaturesForTier returns a fresh feature set for the tier.
func FeaturesForTier(tier SubscriptionTier) map[string]bool {
	features := map[string]bool{
		FeatureOrderManagement: true,
	}
	if tier.AtLeast(TierProfessional) {
		features[FeatureApprovalWorkflow] = true
		features[FeatureDocumentExport] = true
		features[FeatureInventorySync] = true
	}
	if tier.AtLeast(TierEnterprise) {
		features[FeatureFinanceReporting] = true
		features[FeatureAdvancedAnalytics] = true
	}
	return features
}

// LimitsForTier returns the quota table of the tier.
func LimitsForTier(tier SubscriptionTier) TenantLimits {
	switch tier {
	case TierEnterprise:
		return TenantLimits{MaxUsers: 1000, MaxOrders: 100000, StorageMB: 512000, APICallsPerDay: 1000000}
	case TierProfessional:
		return TenantLimits{MaxUsers: 100, MaxOrders: 10000, StorageMB: 51200, APICallsPerDay: 100000}
	default:
		return TenantLimits{MaxUsers: 10, MaxOrders: 1000, StorageMB: 5120, APICallsPerDay: 10000}
	}
}

// PolicyForTier returns the security policy table of the tier.
func PolicyForTier(tier SubscriptionTier) SecurityPolicy {
	switch tier {
	case TierEnterprise:
		return SecurityPolicy{
			RequireMFA:        true,
			PasswordMinLength: 14,
			SessionTimeout:    30 * time.Minute,
			EncryptionLevel:   "aes-256-gcm",
			AuditLevel:        "full",
		}
	case TierProfessional:
		return SecurityPolicy{
			RequireMFA:        true,
			PasswordMinLength: 12,
			SessionTimeout:    time.Hour,
			EncryptionLevel:   "aes-256-gcm",
			AuditLevel:        "standard",
		}
	default:
		return SecurityPolicy{
			RequireMFA:        false,
			PasswordMinLength: 10,
			SessionTimeout:    4 * time.Hour,
			EncryptionLevel:   "aes-128-gcm",
			AuditLevel:        "basic",
		}
	}
}
