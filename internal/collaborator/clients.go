// Package collaborator holds the contracts for the downstream business
// domains reached from the event consumer, plus their HTTP implementations.
// Every collaborator must tolerate duplicate invocations for the same event
// id; delivery is at least once.
package collaborator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/domain"
)

// DocumentService generates order documents (confirmations, delivery notes).
type DocumentService interface {
	GenerateDocument(ctx context.Context, tenantID string, event domain.DomainEvent) error
}

// NotificationService dispatches notifications to approvers and requesters.
type NotificationService interface {
	Notify(ctx context.Context, tenantID string, event domain.DomainEvent) error
}

// InventoryService updates expected and received stock levels.
type InventoryService interface {
	UpdateInventory(ctx context.Context, tenantID string, event domain.DomainEvent) error
}

// FinanceService records purchase commitments and invoicing facts.
type FinanceService interface {
	RecordTransaction(ctx context.Context, tenantID string, event domain.DomainEvent) error
}

// Config carries the collaborator endpoints.
type Config struct {
	DocumentURL     string
	NotificationURL string
	InventoryURL    string
	FinanceURL      string
	RequestTimeout  time.Duration
}

// HTTPClients implements all collaborator contracts over plain
// request/response HTTP calls keyed by tenant id.
type HTTPClients struct {
	cfg    Config
	client *fasthttp.Client
	logger *zap.Logger
}

// NewHTTPClients builds the shared collaborator client set.
func NewHTTPClients(cfg Config, logger *zap.Logger) *HTTPClients {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClients{
		cfg: cfg,
		client: &fasthttp.Client{
			ReadTimeout:  cfg.RequestTimeout,
			WriteTimeout: cfg.RequestTimeout,
		},
		logger: logger,
	}
}

func (c *HTTPClients) GenerateDocument(ctx context.Context, tenantID string, event domain.DomainEvent) error {
	return c.post(c.cfg.DocumentURL, "/documents/generate", tenantID, event)
}

func (c *HTTPClients) Notify(ctx context.Context, tenantID string, event domain.DomainEvent) error {
	return c.post(c.cfg.NotificationURL, "/notifications/dispatch", tenantID, event)
}

func (c *HTTPClients) UpdateInventory(ctx context.Context, tenantID string, event domain.DomainEvent) error {
	return c.post(c.cfg.InventoryURL, "/inventory/update", tenantID, event)
}

func (c *HTTPClients) RecordTransaction(ctx context.Context, tenantID string, event domain.DomainEvent) error {
	return c.post(c.cfg.FinanceURL, "/finance/transactions", tenantID, event)
}

func (c *HTTPClients) post(baseURL, path, tenantID string, event domain.DomainEvent) error {
	if baseURL == "" {
		return domain.NewErrorf(domain.ErrCodeIntegration, "collaborator endpoint for %s not configured", path)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(baseURL + path)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("X-Tenant-ID", tenantID)
	req.Header.Set("X-Event-ID", event.ID)
	req.SetBody(body)

	if err := c.client.DoTimeout(req, resp, c.cfg.RequestTimeout); err != nil {
		return domain.WrapError(domain.ErrCodeIntegration, "collaborator call failed", err)
	}
	if resp.StatusCode() >= fasthttp.StatusBadRequest {
		return domain.NewErrorf(domain.ErrCodeIntegration,
			"collaborator %s returned status %d", path, resp.StatusCode())
	}
	return nil
}

var (
	_ DocumentService     = (*HTTPClients)(nil)
	_ NotificationService = (*HTTPClients)(nil)
	_ InventoryService    = (*HTTPClients)(nil)
	_ FinanceService      = (*HTTPClients)(nil)
)

// Describe returns a short endpoint summary for health reporting.
func (c *HTTPClients) Describe() string {
	return fmt.Sprintf("documents=%s notifications=%s inventory=%s finance=%s",
		c.cfg.DocumentURL, c.cfg.NotificationURL, c.cfg.InventoryURL, c.cfg.FinanceURL)
}
