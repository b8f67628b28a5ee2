package api

import (
	"net/http"

	"github.com/okian/fleetview/internal/navigation"
)

// RoutesHandler publishes the navigation table.
type RoutesHandler struct {
	table *navigation.Table
}

// NewRoutesHandler creates a new routes handler.
func NewRoutesHandler(table *navigation.Table) *RoutesHandler {
	return &RoutesHandler{table: table}
}

type routesResponse struct {
	Default string             `json:"default"`
	Routes  []navigation.Route `json:"routes"`
}

// HandleRoutes handles GET /routes requests.
func (h *RoutesHandler) HandleRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, routesResponse{
		Default: h.table.DefaultPath(),
		Routes:  h.table.Routes(),
	})
}
