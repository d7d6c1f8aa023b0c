package httpserver

import (
	"net/http"

	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/http/handlers"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/http/middleware"
)

// RoleOperator may change connector status.
const RoleOperator = "operator"

// RouterDeps collects handler dependencies.
type RouterDeps struct {
	Stations      *handlers.StationsHandlers
	Charging      *handlers.ChargingHandlers
	Backend       *handlers.BackendHandlers
	HealthHandler http.HandlerFunc
	Metrics       http.Handler
}

// NewRouter wires HTTP routes. authMiddleware guards everything a user owns.
func NewRouter(deps RouterDeps, authMiddleware func(http.Handler) http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/health", method(http.MethodGet, deps.HealthHandler))
	if deps.Metrics != nil {
		mux.Handle("/metrics", method(http.MethodGet, deps.Metrics))
	}

	mux.HandleFunc("GET /stations", deps.Stations.List)
	mux.HandleFunc("GET /stations/{siteId}", deps.Stations.Get)

	authenticated := func(handler http.HandlerFunc) http.Handler {
		return middleware.Chain(handler, authMiddleware)
	}
	operator := func(handler http.HandlerFunc) http.Handler {
		return middleware.Chain(handler, authMiddleware, middleware.RequireRole(RoleOperator))
	}

	mux.Handle("PUT /stations/{siteId}/connectors/{gunId}/status", operator(deps.Stations.SetConnectorStatus))

	mux.Handle("POST /charging/sessions", authenticated(deps.Charging.Create))
	mux.Handle("GET /charging/sessions/{id}", authenticated(deps.Charging.Get))
	mux.Handle("DELETE /charging/sessions/{id}", authenticated(deps.Charging.Cancel))
	mux.Handle("POST /charging/sessions/{id}/start", authenticated(deps.Charging.Start))
	mux.Handle("POST /charging/sessions/{id}/stop", authenticated(deps.Charging.Stop))
	mux.Handle("POST /charging/sessions/{id}/reset", authenticated(deps.Charging.Reset))
	mux.Handle("GET /charging/sessions/{id}/stream", authenticated(deps.Charging.Stream))
	mux.Handle("GET /charging/history", authenticated(deps.Charging.History))
	mux.Handle("GET /charging/history/{id}/receipt", authenticated(deps.Charging.Receipt))
	mux.Handle("GET /wallet", authenticated(deps.Charging.Wallet))

	if deps.Backend != nil {
		mux.Handle("POST /backend/sessions", authenticated(deps.Backend.ConfirmStart))
		mux.Handle("POST /backend/sessions/{token}/stop", authenticated(deps.Backend.ConfirmStop))
	}

	return middleware.Chain(mux, middlewares...)
}

func method(expected string, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
