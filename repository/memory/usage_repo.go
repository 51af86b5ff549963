package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/repository"
)

// usageRepository keeps daily API-call counters in process memory. Used as
// the fallback when no Redis endpoint is configured.
type usageRepository struct {
	mu       sync.Mutex
	counters map[string]int
}

// NewUsageRepository creates an empty in-memory counter store.
func NewUsageRepository() repository.UsageRepository {
	return &usageRepository{counters: make(map[string]int)}
}

func (r *usageRepository) IncrementAPICalls(ctx context.Context, tenantID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := usageKey(tenantID, time.Now().UTC())
	r.counters[key]++
	return r.counters[key], nil
}

func (r *usageRepository) APICallsToday(ctx context.Context, tenantID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters[usageKey(tenantID, time.Now().UTC())], nil
}

func usageKey(tenantID string, day time.Time) string {
	return fmt.Sprintf("%s:%s", tenantID, day.Format("2006-01-02"))
}
