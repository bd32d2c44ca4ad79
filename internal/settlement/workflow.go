package settlement

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"time"

	"montshop-terminal/internal/domain"
	"montshop-terminal/internal/receipt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Backend is the remote Montshop API surface the workflow consumes.
type Backend interface {
	CustomerDebtSummary(ctx context.Context, customerID string) (domain.CustomerDebtSummary, error)
	PayBulk(ctx context.Context, customerID string, batch domain.PaymentBatch) (domain.PaymentResult, error)
}

// DebtCache is the injectable customer-total cache used as the fallback
// aggregate source when the post-payment reconciliation fetch fails.
type DebtCache interface {
	CustomerTotalDebt(ctx context.Context, customerID string) (decimal.Decimal, bool)
	StoreCustomerTotalDebt(ctx context.Context, customerID string, total decimal.Decimal)
}

// Journal persists completed receipts for reprint and history.
type Journal interface {
	Record(ctx context.Context, r domain.Receipt) error
}

// BilletStore saves freshly generated billet documents so the host can
// offer them for download.
type BilletStore interface {
	SaveBillet(ctx context.Context, fileName string, pdf []byte) (savedName, url string, err error)
}

// Notifier pushes settlement events to host views.
type Notifier interface {
	NotifyDebtSettled(ctx context.Context, customerID, receiptID string, totalPaid decimal.Decimal)
}

// SubmitOptions carries the operator-chosen parameters of a settlement.
type SubmitOptions struct {
	Method       domain.PaymentMethod
	Notes        string
	OperatorName string
	CustomerName string
}

// Settlement is the outcome of a completed submission: the captured
// backend result, the generated billets awaiting the operator's
// confirmation step, the journaled receipt, and the reconciled
// post-payment summary (nil when the reconciliation fetch failed).
type Settlement struct {
	Result      domain.PaymentResult
	Billets     []domain.GeneratedBillet
	Receipt     domain.Receipt
	PostSummary *domain.CustomerDebtSummary
}

// ReconciliationFailed reports whether the post-payment summary fetch
// degraded to the cache or to "unavailable".
func (s *Settlement) ReconciliationFailed() bool {
	return s.PostSummary == nil
}

// Workflow submits payment batches and reconciles the customer's true
// remaining debt afterwards. Journal, cache, billet store and notifier
// are optional; a nil collaborator degrades that concern gracefully.
type Workflow struct {
	backend  Backend
	cache    DebtCache
	journal  Journal
	billets  BilletStore
	notifier Notifier
	now      func() time.Time
}

func NewWorkflow(backend Backend, cache DebtCache, journal Journal, billets BilletStore, notifier Notifier) *Workflow {
	return &Workflow{
		backend:  backend,
		cache:    cache,
		journal:  journal,
		billets:  billets,
		notifier: notifier,
		now:      time.Now,
	}
}

// PaySelected settles the installments currently selected in the session.
// An effectively empty payload is rejected locally; no network call is
// made.
func (w *Workflow) PaySelected(ctx context.Context, s *Session, opts SubmitOptions) (*Settlement, error) {
	if !opts.Method.Valid() {
		return nil, fmt.Errorf("forma de pagamento inválida: %q", opts.Method)
	}
	batch, err := s.buildBatch(opts.Method, opts.Notes)
	if err != nil {
		return nil, err
	}
	return w.submit(ctx, s, batch, opts)
}

// PayAll delegates settling every outstanding installment to the backend,
// ignoring the active filter. Rejected locally when there is no debt at
// all.
func (w *Workflow) PayAll(ctx context.Context, s *Session, opts SubmitOptions) (*Settlement, error) {
	if !opts.Method.Valid() {
		return nil, fmt.Errorf("forma de pagamento inválida: %q", opts.Method)
	}
	if !s.HasDebt() {
		return nil, ErrNoDebt
	}
	batch := domain.PaymentBatch{
		PaymentMethod: opts.Method,
		Notes:         opts.Notes,
		PayAll:        true,
	}
	return w.submit(ctx, s, batch, opts)
}

// submit performs the single atomic settlement call and the success-path
// choreography: capture result, assemble billets, reconcile via re-fetch,
// journal the receipt, fire onPaid exactly once, notify host views.
// A failed call leaves every installment as it was; nothing is assumed
// to have succeeded.
func (w *Workflow) submit(ctx context.Context, s *Session, batch domain.PaymentBatch, opts SubmitOptions) (*Settlement, error) {
	if err := s.beginSubmit(); err != nil {
		return nil, err
	}
	defer s.endSubmit()

	preTotal := preSubmitTotal(s)

	result, err := w.backend.PayBulk(ctx, s.CustomerID(), batch)
	if err != nil {
		return nil, fmt.Errorf("falha ao registrar pagamento: %w", err)
	}
	if s.Closed() {
		// Dialog went away mid-flight; the money moved server-side but
		// the stale result must not leak into closed UI state.
		return nil, ErrSessionClosed
	}

	if result.PaidAt.IsZero() {
		result.PaidAt = w.now()
	}

	billets := w.collectBillets(ctx, s, result)

	postSummary, fetchedTotal, cachedTotal := w.fetchPostPayment(ctx, s.CustomerID())

	var remainingAfter *decimal.Decimal
	switch {
	case fetchedTotal != nil:
		remainingAfter = fetchedTotal
	case cachedTotal != nil:
		adjusted := receipt.AdjustFetchedTotal(*cachedTotal, result.TotalPaid, preTotal)
		remainingAfter = &adjusted
	}

	rec := domain.Receipt{
		ID:                 uuid.NewString(),
		CustomerID:         s.CustomerID(),
		CustomerName:       opts.CustomerName,
		PaymentMethod:      result.PaymentMethod,
		Notes:              opts.Notes,
		TotalPaid:          result.TotalPaid,
		RemainingDebtAfter: remainingAfter,
		OperatorName:       opts.OperatorName,
		PaidAt:             result.PaidAt,
		Lines:              w.receiptLines(s, result),
	}
	if rec.PaymentMethod == "" {
		rec.PaymentMethod = opts.Method
	}

	// A single-installment receipt also carries the customer's remaining
	// debt outside that installment.
	if len(rec.Lines) == 1 {
		if inst, ok := s.installment(rec.Lines[0].InstallmentID); ok {
			_, other := receipt.ReconcileSingle(inst.RemainingAmount, rec.Lines[0].AmountPaid, fetchedTotal, cachedTotal)
			rec.OtherDebtsAfter = other
		}
	}

	if w.journal != nil {
		if err := w.journal.Record(ctx, rec); err != nil {
			log.Printf("[SETTLEMENT] receipt journal write failed: %v", err)
		}
	}

	s.firePaid()

	if w.notifier != nil {
		w.notifier.NotifyDebtSettled(ctx, s.CustomerID(), rec.ID, rec.TotalPaid)
	}

	return &Settlement{
		Result:      result,
		Billets:     billets,
		Receipt:     rec,
		PostSummary: postSummary,
	}, nil
}

// fetchPostPayment re-fetches the customer's post-payment ground truth.
// The client never derives the post-payment state purely from
// pre-payment subtraction; the backend may apply rounding or fees not
// visible here. It returns the fresh summary and aggregate total when
// the fetch succeeded, or the cached customer total when it did not;
// with neither source the aggregate is reported unavailable (all nil).
func (w *Workflow) fetchPostPayment(ctx context.Context, customerID string) (*domain.CustomerDebtSummary, *decimal.Decimal, *decimal.Decimal) {
	summary, err := w.backend.CustomerDebtSummary(ctx, customerID)
	if err == nil {
		if w.cache != nil {
			w.cache.StoreCustomerTotalDebt(ctx, customerID, summary.TotalDebt)
		}
		total := summary.TotalDebt
		return &summary, &total, nil
	}
	log.Printf("[SETTLEMENT] post-payment reconciliation fetch failed: %v", err)

	if w.cache != nil {
		if cached, ok := w.cache.CustomerTotalDebt(ctx, customerID); ok {
			return nil, nil, &cached
		}
	}
	return nil, nil, nil
}

// collectBillets joins payment records that produced a billet with the
// session's installment metadata and, when a store is configured, saves
// the decoded document for download.
func (w *Workflow) collectBillets(ctx context.Context, s *Session, result domain.PaymentResult) []domain.GeneratedBillet {
	var out []domain.GeneratedBillet
	for _, p := range result.Payments {
		if p.NewBilletPDF == nil || *p.NewBilletPDF == "" {
			continue
		}
		b := domain.GeneratedBillet{
			InstallmentID:  p.InstallmentID,
			RemainingAfter: p.RemainingAfter,
			PDF:            *p.NewBilletPDF,
		}
		if inst, ok := s.installment(p.InstallmentID); ok {
			b.InstallmentNumber = inst.InstallmentNumber
			b.TotalInstallments = inst.TotalInstallments
			b.DueDate = inst.DueDate
		}
		if w.billets != nil {
			if data, err := base64.StdEncoding.DecodeString(*p.NewBilletPDF); err == nil {
				fileName := fmt.Sprintf("boleto_%s_%s.pdf", s.CustomerID(), p.InstallmentID)
				saved, url, err := w.billets.SaveBillet(ctx, fileName, data)
				if err != nil {
					log.Printf("[SETTLEMENT] billet save failed: %v", err)
				} else {
					b.FileName = saved
					b.FileURL = url
				}
			} else {
				log.Printf("[SETTLEMENT] billet payload for %s is not valid base64: %v", p.InstallmentID, err)
			}
		}
		out = append(out, b)
	}
	return out
}

func (w *Workflow) receiptLines(s *Session, result domain.PaymentResult) []domain.ReceiptLine {
	var lines []domain.ReceiptLine
	for _, p := range result.Payments {
		line := domain.ReceiptLine{
			InstallmentID:  p.InstallmentID,
			AmountPaid:     p.AmountPaid,
			RemainingAfter: p.RemainingAfter,
		}
		if inst, ok := s.installment(p.InstallmentID); ok {
			line.InstallmentNumber = inst.InstallmentNumber
			line.TotalInstallments = inst.TotalInstallments
			line.DueDate = inst.DueDate
		}
		lines = append(lines, line)
	}
	return lines
}

// preSubmitTotal is the customer's outstanding total at submit time,
// unfiltered; used only for the cache-fallback adjustment.
func preSubmitTotal(s *Session) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, sel := range s.selections {
		total = total.Add(sel.Remaining).Round(2)
	}
	return total
}
