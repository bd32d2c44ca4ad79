package rest

import (
	"log"
	"net/http"

	"montshop-terminal/internal/settlement"

	"github.com/go-chi/chi/v5"
)

// customerSummary loads the customer's outstanding installments with the
// requested view filter applied. A backend failure is an explicit error
// payload, never an empty "no pending debt" response.
func (h *Handler) customerSummary(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")
	if customerID == "" {
		ErrorBadRequest(w, "customerID is required")
		return
	}

	filter, err := settlement.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		ErrorBadRequest(w, err.Error())
		return
	}

	view, err := h.summaries.Load(r.Context(), customerID, filter)
	if err != nil {
		log.Printf("[HTTP] customerSummary error: %v", err)
		ErrorBadGateway(w, "Falha ao carregar dívidas do cliente")
		return
	}

	Success(w, "", view)
}

func (h *Handler) installmentDetail(w http.ResponseWriter, r *http.Request) {
	installmentID := chi.URLParam(r, "installmentID")
	if installmentID == "" {
		ErrorBadRequest(w, "installmentID is required")
		return
	}

	detail, err := h.summaries.Installment(r.Context(), installmentID)
	if err != nil {
		log.Printf("[HTTP] installmentDetail error: %v", err)
		ErrorBadGateway(w, "Falha ao carregar a parcela")
		return
	}

	Success(w, "", detail)
}

func (h *Handler) myCompany(w http.ResponseWriter, r *http.Request) {
	company, err := h.summaries.Company(r.Context())
	if err != nil {
		log.Printf("[HTTP] myCompany error: %v", err)
		ErrorBadGateway(w, "Falha ao carregar dados da empresa")
		return
	}

	Success(w, "", company)
}
