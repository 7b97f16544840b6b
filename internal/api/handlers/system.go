package handlers

import (
	"net/http"
	"runtime"

	"github.com/ramonehamilton/deck-winrate/internal/api/response"
	"github.com/ramonehamilton/deck-winrate/internal/metrics"
	"github.com/ramonehamilton/deck-winrate/internal/version"
)

// ServiceName identifies this API in health and version responses.
const ServiceName = "deck-winrate-api"

// SystemHandler handles system-related API requests.
type SystemHandler struct {
	metrics *metrics.Recorder
}

// NewSystemHandler creates a new SystemHandler. recorder may be nil.
func NewSystemHandler(recorder *metrics.Recorder) *SystemHandler {
	return &SystemHandler{metrics: recorder}
}

// GetVersion returns the application version.
func (h *SystemHandler) GetVersion(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{
		"version":   version.GetVersion(),
		"service":   ServiceName,
		"goVersion": runtime.Version(),
	})
}

// GetStatus returns calculation statistics since startup.
func (h *SystemHandler) GetStatus(w http.ResponseWriter, _ *http.Request) {
	if h.metrics == nil {
		response.Success(w, &metrics.Stats{})
		return
	}
	response.Success(w, h.metrics.Snapshot())
}
