package rest

import (
	"log"
	"net/http"

	"montshop-terminal/internal/transport/auth"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) exportReceipts(w http.ResponseWriter, r *http.Request) {
	req, err := ValidateReceiptsExportRequest(r)
	if err != nil {
		if _, ok := err.(*ValidationError); ok {
			ErrorBadRequest(w, err.Error())
			return
		}
		ErrorBadRequest(w, "invalid JSON")
		return
	}

	terminalID, err := auth.GetTerminalID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	exportID, err := h.exporter.StartReceiptsExport(r.Context(), req.Fields, req.ToRepositoryFilter(), terminalID)
	if err != nil {
		log.Printf("[HTTP] startReceiptsExport error: %v", err)
		ErrorInternal(w, "failed to start export")
		return
	}

	SuccessAccepted(w, "Exportação enfileirada", map[string]interface{}{"export_id": exportID})
}

func (h *Handler) listExports(w http.ResponseWriter, r *http.Request) {
	terminalID, err := auth.GetTerminalID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	exports, err := h.exportList.GetExports(r.Context(), terminalID)
	if err != nil {
		log.Printf("[HTTP] listExports error: %v", err)
		ErrorInternal(w, "failed to get exports")
		return
	}

	Success(w, "", exports)
}

func (h *Handler) getExport(w http.ResponseWriter, r *http.Request) {
	terminalID, err := auth.GetTerminalID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	exportID := chi.URLParam(r, "export_id")
	if exportID == "" {
		ErrorBadRequest(w, "export_id is required")
		return
	}

	export, err := h.exportList.GetExport(r.Context(), exportID, terminalID)
	if err != nil {
		log.Printf("[HTTP] getExport error: %v", err)
		ErrorNotFound(w, "export not found")
		return
	}

	Success(w, "", export)
}
