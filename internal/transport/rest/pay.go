package rest

import (
	"errors"
	"log"
	"net/http"

	"montshop-terminal/internal/service"
	"montshop-terminal/internal/settlement"
	"montshop-terminal/internal/transport/auth"

	"github.com/go-chi/chi/v5"
)

// payBulk runs one settlement: allocation replay, the single atomic
// backend call, post-payment reconciliation and receipt journaling.
func (h *Handler) payBulk(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")
	if customerID == "" {
		ErrorBadRequest(w, "customerID is required")
		return
	}

	req, err := ValidatePayBulkRequest(r)
	if err != nil {
		if _, ok := err.(*ValidationError); ok {
			ErrorBadRequest(w, err.Error())
			return
		}
		ErrorBadRequest(w, "invalid JSON")
		return
	}

	result, err := h.settlements.Pay(r.Context(), customerID, service.PayRequest{
		Method:       req.PaymentMethod,
		Notes:        req.Notes,
		OperatorName: auth.GetOperatorName(r.Context()),
		CustomerName: req.CustomerName,
		PayAll:       req.PayAll,
		Installments: req.Installments,
	})
	if err != nil {
		switch {
		case errors.Is(err, settlement.ErrNothingSelected),
			errors.Is(err, settlement.ErrNoDebt),
			errors.Is(err, settlement.ErrUnknownInstallment),
			errors.Is(err, settlement.ErrMalformedAmount),
			errors.Is(err, settlement.ErrDuplicateInstallment):
			ErrorUnprocessable(w, err.Error())
		case errors.Is(err, settlement.ErrSubmitInFlight):
			ErrorBadRequest(w, err.Error())
		default:
			log.Printf("[HTTP] payBulk error: %v", err)
			ErrorBadGateway(w, "Falha ao registrar pagamento")
		}
		return
	}

	message := result.Result.Message
	if message == "" {
		message = "Pagamento registrado"
	}

	Success(w, message, map[string]interface{}{
		"result":                result.Result,
		"billets":               result.Billets,
		"has_new_billets":       len(result.Billets) > 0,
		"receipt":               result.Receipt,
		"post_summary":          result.PostSummary,
		"reconciliation_failed": result.ReconciliationFailed(),
	})
}
