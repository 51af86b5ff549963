package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/domain"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/internal/collaborator"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/internal/infrastructure/broker"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/pkg/taskgroup"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/usecase/tenant"
)

// EventReactor turns consumed domain events into cross-domain side effects.
// All side effects of one event run concurrently; individual failures are
// collected and logged without aborting siblings or the consume loop.
type EventReactor struct {
	tenants       *tenant.Provider
	documents     collaborator.DocumentService
	notifications collaborator.NotificationService
	inventory     collaborator.InventoryService
	finance       collaborator.FinanceService
	logger        *zap.Logger
}

// NewEventReactor wires the reactor against the collaborator contracts.
func NewEventReactor(
	tenants *tenant.Provider,
	documents collaborator.DocumentService,
	notifications collaborator.NotificationService,
	inventory collaborator.InventoryService,
	finance collaborator.FinanceService,
	logger *zap.Logger,
) *EventReactor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventReactor{
		tenants:       tenants,
		documents:     documents,
		notifications: notifications,
		inventory:     inventory,
		finance:       finance,
		logger:        logger,
	}
}

// RegisterAll binds the reactor to every order-event subject.
func (r *EventReactor) RegisterAll(consumer *broker.Consumer) {
	for _, eventType := range domain.AllEventTypes {
		consumer.Register(eventType, r.Handle)
	}
}

// Handle fans out the side effects of one event. It always returns nil:
// side-effect failures are contained here, per task, and only logged.
func (r *EventReactor) Handle(ctx context.Context, event domain.DomainEvent) error {
	group := taskgroup.New()

	for _, effect := range r.effectsFor(event) {
		effect := effect
		group.Go(effect.name, func() error {
			return effect.run(ctx)
		})
	}

	for _, failure := range group.Wait() {
		r.logger.Error("side effect failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.String("tenant_id", event.TenantID),
			zap.String("side_effect", failure.Name),
			zap.Error(failure.Err))
	}
	return nil
}

type sideEffect struct {
	name string
	run  func(ctx context.Context) error
}

// effectsFor maps an event type to its downstream side effects, honoring the
// tenant's feature entitlements for the optional ones.
func (r *EventReactor) effectsFor(event domain.DomainEvent) []sideEffect {
	tenantID := event.TenantID
	hasDocuments := r.tenants.HasFeature(tenantID, domain.FeatureDocumentExport)
	hasInventory := r.tenants.HasFeature(tenantID, domain.FeatureInventorySync)
	hasFinance := r.tenants.HasFeature(tenantID, domain.FeatureFinanceReporting)

	var effects []sideEffect
	notify := func() {
		effects = append(effects, sideEffect{"notification", func(ctx context.Context) error {
			return r.notifications.Notify(ctx, tenantID, event)
		}})
	}
	document := func() {
		if hasDocuments {
			effects = append(effects, sideEffect{"document", func(ctx context.Context) error {
				return r.documents.GenerateDocument(ctx, tenantID, event)
			}})
		}
	}
	inventory := func() {
		if hasInventory {
			effects = append(effects, sideEffect{"inventory", func(ctx context.Context) error {
				return r.inventory.UpdateInventory(ctx, tenantID, event)
			}})
		}
	}
	finance := func() {
		if hasFinance {
			effects = append(effects, sideEffect{"finance", func(ctx context.Context) error {
				return r.finance.RecordTransaction(ctx, tenantID, event)
			}})
		}
	}

	switch event.Type {
	case domain.EventOrderCreated:
		notify()
		document()
	case domain.EventOrderUpdated:
		document()
	case domain.EventOrderApproved:
		notify()
		document()
		finance()
	case domain.EventOrderOrdered:
		notify()
		document()
		inventory()
		finance()
	case domain.EventOrderPartiallyDelivered:
		notify()
		inventory()
	case domain.EventOrderDelivered:
		notify()
		inventory()
		finance()
	case domain.EventOrderCancelled:
		notify()
		inventory()
		finance()
	case domain.EventOrderInvoiced:
		document()
		finance()
	}
	return effects
}
