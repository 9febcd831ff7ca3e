package http

import (
	"log/slog"
	"net/http"

	"github.com/wokeornotsite/wokeornot-sub000/internal/domain"
	"github.com/wokeornotsite/wokeornot-sub000/internal/service"
	"github.com/wokeornotsite/wokeornot-sub000/pkg/httputil"
)

// MaintenanceHandler exposes the two-step review cleanup to admins.
type MaintenanceHandler struct {
	maintenance MaintenanceService
	logger      *slog.Logger
}

// NewMaintenanceHandler creates a new maintenance HTTP handler.
func NewMaintenanceHandler(maintenance MaintenanceService, logger *slog.Logger) *MaintenanceHandler {
	return &MaintenanceHandler{maintenance: maintenance, logger: logger}
}

// ScanRequest is the optional JSON body of a scan.
type ScanRequest struct {
	Limit      int `json:"limit" validate:"gte=0"`
	BatchSize  int `json:"batch_size" validate:"gte=0,lte=5000"`
	SampleSize int `json:"sample_size" validate:"gte=0,lte=1000"`
}

// PurgeRequest is the JSON body of a purge: the ids a scan reported.
type PurgeRequest struct {
	IDs []string `json:"ids" validate:"required"`
}

// Scan handles POST /api/v1/admin/maintenance/reviews/scan
func (h *MaintenanceHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}

	report, err := h.maintenance.Scan(r.Context(), domain.ScanOptions{
		Limit:      req.Limit,
		BatchSize:  req.BatchSize,
		SampleSize: req.SampleSize,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, report)
}

// Purge handles POST /api/v1/admin/maintenance/reviews/purge
func (h *MaintenanceHandler) Purge(w http.ResponseWriter, r *http.Request) {
	var req PurgeRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.IDs) > service.MaxPurgeIDs {
		httputil.WriteErrorCode(w, r, http.StatusBadRequest, "INVALID_INPUT", "too many ids in one purge")
		return
	}

	result, err := h.maintenance.Purge(r.Context(), req.IDs)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, result)
}
