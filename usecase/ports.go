package usecase

import (
	"context"

	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/domain"
)

// EventPublisher abstracts the broker so the orchestration core stays
// transport-agnostic. Publishing is best effort: a failure after a committed
// repository write is contained, never propagated to the caller.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.DomainEvent) error
	PublishBatch(ctx context.Context, events []domain.DomainEvent) error
	IsHealthy() bool
}

// AuditSink accepts routine activity and security-incident entries. It must
// never fail back into business logic; implementations log their own errors.
type AuditSink interface {
	Record(ctx context.Context, entry domain.AuditEntry)
}
