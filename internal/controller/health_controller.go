package controller

import (
	"net/http"
	"sync/atomic"
)

// HealthController reports process health. The service is ready once the
// gateway has been initialized.
type HealthController struct {
	provider string
	ready    atomic.Bool
}

func NewHealthController(provider string) *HealthController {
	return &HealthController{provider: provider}
}

// MarkReady records that the gateway finished initializing.
func (h *HealthController) MarkReady() {
	h.ready.Store(true)
}

func (h *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthController) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (h *HealthController) Readiness(w http.ResponseWriter, r *http.Request) {
	if !h.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not ready",
			"reason":   "gateway not initialized",
			"provider": h.provider,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "provider": h.provider})
}
