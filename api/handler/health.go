package handler

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/api/transport"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/internal/container"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/internal/infrastructure/monitor"
	"github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/pkg/httpcontext"
)

type HealthHandler struct {
	baseHandler
	monitor   *monitor.Monitor
	container *container.Container
}

func NewHealthHandler(mon *monitor.Monitor, di *container.Container, adapter *httpcontext.Adapter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		monitor:     mon,
		container:   di,
	}
}

// @Summary Health check
// @Tags health
// @Router /health [get]
func (h *HealthHandler) Check(ctx *fasthttp.RequestCtx) {
	status := h.monitor.GetStatus()
	payload := map[string]interface{}{
		"timestamp": time.Now().UTC(),
		"services": map[string]interface{}{
			"broker":     status.Broker,
			"postgresql": status.PostgreSQL,
			"redis":      status.Redis,
			"audit": map[string]interface{}{
				"online":  status.AuditStore,
				"entries": status.AuditEntries,
			},
		},
	}
	if h.container != nil {
		payload["dependencies"] = h.container.HealthCheck()
		payload["active_tenants"] = h.container.TenantCount()
	}

	if h.monitor.IsOnline() {
		h.respondSuccess(ctx, http.StatusOK, payload)
		return
	}
	h.respondJSON(ctx, http.StatusServiceUnavailable, transport.NewError("DEGRADED", "dependencies unhealthy", payload))
}
