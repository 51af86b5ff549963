package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/domain"
)

const numberAttempts = 5

// nextOrderNumber generates a tenant-namespaced business key of the form
// PO-<year>-<suffix>. Uniqueness is per tenant; the repository enforces it
// again on write.
func (s *Service) nextOrderNumber(ctx context.Context) (string, error) {
	year := time.Now().UTC().Year()
	for attempt := 0; attempt < numberAttempts; attempt++ {
		suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
		number := fmt.Sprintf("PO-%d-%s", year, suffix)

		_, err := s.orders.FindByOrderNumber(ctx, number)
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return number, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", domain.NewError(domain.ErrCodeInternal, "could not generate a unique order number")
}
