package repository

import "context"

// UsageRepository tracks per-tenant daily API-call counters feeding the
// tenant limit checks.
type UsageRepository interface {
	IncrementAPICalls(ctx context.Context, tenantID string) (int, error)
	APICallsToday(ctx context.Context, tenantID string) (int, error)
}
