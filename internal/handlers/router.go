package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dapurpintar/dpmbggo/internal/config"
	"github.com/dapurpintar/dpmbggo/internal/middleware"
	deliveryService "github.com/dapurpintar/dpmbggo/internal/services/delivery"
	"github.com/dapurpintar/dpmbggo/internal/store"
	"github.com/dapurpintar/dpmbggo/internal/websocket"
)

// Router wraps the mux router and the store it serves from. With a remote
// store configured the process is a kitchen-local instance: commits go through
// the durable queue and the syncer replicates them upstream. Without one it
// writes the authoritative store directly.
type Router struct {
	*mux.Router
	store    *store.Store
	hub      *websocket.Hub
	delivery *deliveryService.Service
	cfg      *config.Config
	local    bool
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(st *store.Store, hub *websocket.Hub, delivery *deliveryService.Service, cfg *config.Config) *Router {
	r := &Router{
		Router:   mux.NewRouter(),
		store:    st,
		hub:      hub,
		delivery: delivery,
		cfg:      cfg,
		local:    cfg.Sync.RemoteURL != "",
	}

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// Print dispatch API (consumed by the poller on the mini PC)
	r.HandleFunc("/print-queue", middleware.PrintKey(cfg.PrintKey, r.getPrintQueue)).Methods("GET")
	r.HandleFunc("/print-complete", middleware.PrintKey(cfg.PrintKey, r.postPrintComplete)).Methods("POST")

	// Scan terminal API (device-token bound to a stage)
	r.HandleFunc("/api/scan", middleware.DeviceToken(cfg.DeviceTokens, r.handleScan)).Methods("POST")

	// Receiving & registration
	r.HandleFunc("/api/items", r.createItem).Methods("POST")
	r.HandleFunc("/api/trays", r.registerTray).Methods("POST")

	// QR label sheets for registration
	r.HandleFunc("/api/labels/pdf", r.generateLabelSheet).Methods("POST")

	// Live scan events for dashboards
	r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		websocket.ServeWs(hub, w, req)
	})

	// Scan terminal pages for browser-based scanner devices
	r.HandleFunc("/scan/{stage}", r.scanPage).Methods("GET")

	return r
}

// commit routes an accepted scan to the durable path for this deployment.
func (r *Router) commit(a store.AcceptedScan) error {
	if r.local {
		return r.store.CommitLocal(a)
	}
	return r.store.CommitAuthoritative(a)
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
