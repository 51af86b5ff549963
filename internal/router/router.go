package router

import (
	"github.com/fasthttp/router"

	apiHandler "github.com/JochenWeerda/VALEO-NeuroERP-3.0-sub003/api/handler"
)

type Handlers struct {
	Health *apiHandler.HealthHandler
}

// New wires the operational HTTP surface. Business operations are invoked
// through the service layer, not over HTTP.
func New(handlers Handlers) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	return r
}
