package service

import (
	"context"
	"fmt"

	"montshop-terminal/internal/domain"
	"montshop-terminal/internal/settlement"
)

// PayRequest is one settlement submission from the POS UI: either an
// explicit list of {installment, amount} pairs or the pay-all flag.
type PayRequest struct {
	Method       domain.PaymentMethod
	Notes        string
	OperatorName string
	CustomerName string
	PayAll       bool
	Installments []domain.InstallmentPayment
}

// SettlementService runs the full debt settlement workflow for one HTTP
// submission: load the current summary, rebuild the allocation session
// from the requested amounts, submit and reconcile.
type SettlementService struct {
	backend  settlement.Backend
	workflow *settlement.Workflow
}

func NewSettlementService(backend settlement.Backend, workflow *settlement.Workflow) *SettlementService {
	return &SettlementService{backend: backend, workflow: workflow}
}

// Pay executes a settlement. Allocation validation (unknown installment,
// malformed or clamped amounts, empty payload, no debt) happens before
// the single atomic pay call; a local rejection never touches the
// network beyond the summary load.
func (s *SettlementService) Pay(ctx context.Context, customerID string, req PayRequest) (*settlement.Settlement, error) {
	summary, err := s.backend.CustomerDebtSummary(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("falha ao carregar dívidas do cliente: %w", err)
	}

	sess := settlement.NewSession(customerID, summary)
	opts := settlement.SubmitOptions{
		Method:       req.Method,
		Notes:        req.Notes,
		OperatorName: req.OperatorName,
		CustomerName: req.CustomerName,
	}

	if req.PayAll {
		return s.workflow.PayAll(ctx, sess, opts)
	}

	// The request carries the operator's final allocation; replay it
	// through the engine so clamping and validation apply. A repeated id
	// would flip the toggle back off, so duplicates are rejected up
	// front.
	sess.SetFilter(settlement.FilterAll)
	sess.ClearSelection()
	seen := make(map[string]bool, len(req.Installments))
	for _, p := range req.Installments {
		if seen[p.InstallmentID] {
			return nil, fmt.Errorf("%w: %s", settlement.ErrDuplicateInstallment, p.InstallmentID)
		}
		seen[p.InstallmentID] = true
		if err := sess.ToggleSelection(p.InstallmentID); err != nil {
			return nil, fmt.Errorf("%w: %s", err, p.InstallmentID)
		}
		if err := sess.UpdateAmount(p.InstallmentID, p.Amount.StringFixed(2)); err != nil {
			return nil, fmt.Errorf("%w: %s", err, p.InstallmentID)
		}
	}

	return s.workflow.PaySelected(ctx, sess, opts)
}
