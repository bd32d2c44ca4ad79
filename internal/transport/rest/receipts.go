package rest

import (
	"database/sql"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) getReceipt(w http.ResponseWriter, r *http.Request) {
	receiptID := chi.URLParam(r, "receiptID")
	if receiptID == "" {
		ErrorBadRequest(w, "receiptID is required")
		return
	}

	rec, err := h.receipts.Get(r.Context(), receiptID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			ErrorNotFound(w, "Recibo não encontrado")
			return
		}
		log.Printf("[HTTP] getReceipt error: %v", err)
		ErrorInternal(w, "failed to load receipt")
		return
	}

	Success(w, "", rec)
}

// printReceipt returns the rendered receipt as plain text for the print
// subsystem. Missing aggregate figures render as "não disponível" and do
// not block printing.
func (h *Handler) printReceipt(w http.ResponseWriter, r *http.Request) {
	receiptID := chi.URLParam(r, "receiptID")
	if receiptID == "" {
		ErrorBadRequest(w, "receiptID is required")
		return
	}

	text, err := h.receipts.RenderText(r.Context(), receiptID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			ErrorNotFound(w, "Recibo não encontrado")
			return
		}
		log.Printf("[HTTP] printReceipt error: %v", err)
		ErrorInternal(w, "failed to render receipt")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}
