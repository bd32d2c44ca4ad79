package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"montshop-terminal/internal/domain"

	"github.com/shopspring/decimal"
)

type fakeBackend struct {
	summary    domain.CustomerDebtSummary
	summaryErr error
	result     domain.PaymentResult
	payErr     error

	payCalls     []domain.PaymentBatch
	payCustomer  string
	summaryCalls int

	onPay func()
}

func (b *fakeBackend) CustomerDebtSummary(ctx context.Context, customerID string) (domain.CustomerDebtSummary, error) {
	b.summaryCalls++
	if b.summaryErr != nil {
		return domain.CustomerDebtSummary{}, b.summaryErr
	}
	return b.summary, nil
}

func (b *fakeBackend) PayBulk(ctx context.Context, customerID string, batch domain.PaymentBatch) (domain.PaymentResult, error) {
	b.payCustomer = customerID
	b.payCalls = append(b.payCalls, batch)
	if b.onPay != nil {
		b.onPay()
	}
	if b.payErr != nil {
		return domain.PaymentResult{}, b.payErr
	}
	return b.result, nil
}

type fakeCache struct {
	totals map[string]decimal.Decimal
	stored map[string]decimal.Decimal
}

func newFakeCache() *fakeCache {
	return &fakeCache{totals: map[string]decimal.Decimal{}, stored: map[string]decimal.Decimal{}}
}

func (c *fakeCache) CustomerTotalDebt(ctx context.Context, customerID string) (decimal.Decimal, bool) {
	d, ok := c.totals[customerID]
	return d, ok
}

func (c *fakeCache) StoreCustomerTotalDebt(ctx context.Context, customerID string, total decimal.Decimal) {
	c.stored[customerID] = total
}

type fakeJournal struct {
	records []domain.Receipt
	err     error
}

func (j *fakeJournal) Record(ctx context.Context, r domain.Receipt) error {
	j.records = append(j.records, r)
	return j.err
}

type fakeBilletStore struct {
	saved map[string][]byte
}

func (b *fakeBilletStore) SaveBillet(ctx context.Context, fileName string, pdf []byte) (string, string, error) {
	if b.saved == nil {
		b.saved = map[string][]byte{}
	}
	b.saved[fileName] = pdf
	return fileName, "/files/" + fileName, nil
}

type fakeNotifier struct {
	calls int
	total decimal.Decimal
}

func (n *fakeNotifier) NotifyDebtSettled(ctx context.Context, customerID, receiptID string, totalPaid decimal.Decimal) {
	n.calls++
	n.total = totalPaid
}

func paidResult(total string, records ...domain.PaymentRecord) domain.PaymentResult {
	return domain.PaymentResult{
		TotalPaid:     dec(total),
		PaymentMethod: domain.PaymentMethodCash,
		Payments:      records,
		PaidAt:        testNow,
	}
}

func TestPaySelectedHappyPath(t *testing.T) {
	overdue := testNow.AddDate(0, -1, 0)
	s := testSession(
		inst("i1", "100.00", overdue, 1),
		inst("i2", "50.00", overdue, 2),
	)

	backend := &fakeBackend{
		result: paidResult("150.00",
			domain.PaymentRecord{InstallmentID: "i1", AmountPaid: dec("100.00"), RemainingAfter: dec("0.00")},
			domain.PaymentRecord{InstallmentID: "i2", AmountPaid: dec("50.00"), RemainingAfter: dec("0.00")},
		),
		summary: domain.CustomerDebtSummary{TotalDebt: dec("0.00")},
	}
	cache := newFakeCache()
	journal := &fakeJournal{}
	notifier := &fakeNotifier{}
	w := NewWorkflow(backend, cache, journal, nil, notifier)

	paidEvents := 0
	s.SetOnPaid(func() { paidEvents++ })

	got, err := w.PaySelected(context.Background(), s, SubmitOptions{
		Method:       domain.PaymentMethodCash,
		OperatorName: "Maria",
		CustomerName: "João",
	})
	if err != nil {
		t.Fatalf("PaySelected: %v", err)
	}

	if backend.payCustomer != "cust-1" {
		t.Fatalf("expected customer cust-1, got %q", backend.payCustomer)
	}
	if len(backend.payCalls) != 1 || len(backend.payCalls[0].Installments) != 2 {
		t.Fatalf("expected one batch with 2 pairs, got %+v", backend.payCalls)
	}
	if paidEvents != 1 {
		t.Fatalf("onPaid must fire exactly once, fired %d times", paidEvents)
	}
	if notifier.calls != 1 || !notifier.total.Equal(dec("150.00")) {
		t.Fatalf("expected one notification for 150.00, got %d/%s", notifier.calls, notifier.total)
	}
	if len(journal.records) != 1 {
		t.Fatalf("expected one journaled receipt, got %d", len(journal.records))
	}
	rec := journal.records[0]
	if rec.ID == "" || rec.OperatorName != "Maria" || rec.CustomerName != "João" {
		t.Fatalf("unexpected receipt header: %+v", rec)
	}
	if len(rec.Lines) != 2 || rec.Lines[0].InstallmentNumber != 1 {
		t.Fatalf("receipt lines must carry installment metadata, got %+v", rec.Lines)
	}

	// reconciliation came from the re-fetch, not subtraction
	if got.ReconciliationFailed() {
		t.Fatal("expected successful reconciliation")
	}
	if got.Receipt.RemainingDebtAfter == nil || !got.Receipt.RemainingDebtAfter.Equal(dec("0.00")) {
		t.Fatalf("expected remaining 0.00, got %v", got.Receipt.RemainingDebtAfter)
	}
	if stored, ok := cache.stored["cust-1"]; !ok || !stored.Equal(dec("0.00")) {
		t.Fatalf("fresh total must be cached, got %v ok=%v", stored, ok)
	}
	if got.Receipt.OtherDebtsAfter != nil {
		t.Fatalf("multi-installment receipts carry no other-debts figure, got %s", got.Receipt.OtherDebtsAfter)
	}
}

func TestSingleInstallmentReceiptCarriesOtherDebts(t *testing.T) {
	s := testSession(inst("i1", "100.00", testNow.AddDate(0, -1, 0), 1))
	if err := s.UpdateAmount("i1", "40"); err != nil {
		t.Fatalf("UpdateAmount: %v", err)
	}

	backend := &fakeBackend{
		result: paidResult("40.00",
			domain.PaymentRecord{InstallmentID: "i1", AmountPaid: dec("40.00"), RemainingAfter: dec("60.00")},
		),
		// fetched aggregate still includes the 40.00 just paid
		summary: domain.CustomerDebtSummary{TotalDebt: dec("200.00")},
	}
	w := NewWorkflow(backend, nil, nil, nil, nil)

	got, err := w.PaySelected(context.Background(), s, SubmitOptions{Method: domain.PaymentMethodPix})
	if err != nil {
		t.Fatalf("PaySelected: %v", err)
	}
	if got.Receipt.RemainingDebtAfter == nil || !got.Receipt.RemainingDebtAfter.Equal(dec("200.00")) {
		t.Fatalf("aggregate must come from the re-fetch, got %v", got.Receipt.RemainingDebtAfter)
	}
	// 200 - min(40, 100) = 160 outstanding, minus the 60 left on this
	// installment
	if got.Receipt.OtherDebtsAfter == nil || !got.Receipt.OtherDebtsAfter.Equal(dec("100.00")) {
		t.Fatalf("expected other debts 100.00, got %v", got.Receipt.OtherDebtsAfter)
	}
}

func TestSingleInstallmentOtherDebtsFromCache(t *testing.T) {
	s := testSession(inst("i1", "100.00", testNow.AddDate(0, -1, 0), 1))
	if err := s.UpdateAmount("i1", "40"); err != nil {
		t.Fatalf("UpdateAmount: %v", err)
	}

	backend := &fakeBackend{
		result: paidResult("40.00",
			domain.PaymentRecord{InstallmentID: "i1", AmountPaid: dec("40.00"), RemainingAfter: dec("60.00")},
		),
		summaryErr: errors.New("backend down"),
	}
	cache := newFakeCache()
	cache.totals["cust-1"] = dec("250.00")
	w := NewWorkflow(backend, cache, nil, nil, nil)

	got, err := w.PaySelected(context.Background(), s, SubmitOptions{Method: domain.PaymentMethodCash})
	if err != nil {
		t.Fatalf("PaySelected: %v", err)
	}
	if !got.ReconciliationFailed() {
		t.Fatal("expected degraded reconciliation")
	}
	// 250 - min(40, 100) = 210, minus the 60 left on this installment
	if got.Receipt.OtherDebtsAfter == nil || !got.Receipt.OtherDebtsAfter.Equal(dec("150.00")) {
		t.Fatalf("expected other debts 150.00, got %v", got.Receipt.OtherDebtsAfter)
	}
}

func TestPaySelectedEmptyPayloadMakesNoCall(t *testing.T) {
	s := testSession(inst("i1", "100.00", testNow.AddDate(0, -1, 0), 1))
	s.ClearSelection()

	backend := &fakeBackend{}
	w := NewWorkflow(backend, nil, nil, nil, nil)

	_, err := w.PaySelected(context.Background(), s, SubmitOptions{Method: domain.PaymentMethodCash})
	if !errors.Is(err, ErrNothingSelected) {
		t.Fatalf("expected ErrNothingSelected, got %v", err)
	}
	if len(backend.payCalls) != 0 {
		t.Fatal("empty payload must never reach the network")
	}
}

func TestPaySelectedInvalidMethod(t *testing.T) {
	s := testSession(inst("i1", "100.00", testNow.AddDate(0, -1, 0), 1))
	backend := &fakeBackend{}
	w := NewWorkflow(backend, nil, nil, nil, nil)

	if _, err := w.PaySelected(context.Background(), s, SubmitOptions{Method: "check"}); err == nil {
		t.Fatal("expected error for unknown payment method")
	}
	if len(backend.payCalls) != 0 {
		t.Fatal("invalid method must never reach the network")
	}
}

func TestPayAllIgnoresFilter(t *testing.T) {
	overdue := testNow.AddDate(0, -1, 0)
	future := testNow.AddDate(0, 2, 0)
	s := testSession(
		inst("i1", "100.00", overdue, 1),
		inst("i2", "200.00", future, 2),
	)
	s.SetFilter(FilterOverdue)

	backend := &fakeBackend{
		result:  paidResult("300.00"),
		summary: domain.CustomerDebtSummary{TotalDebt: dec("0.00")},
	}
	w := NewWorkflow(backend, nil, nil, nil, nil)

	if _, err := w.PayAll(context.Background(), s, SubmitOptions{Method: domain.PaymentMethodPix}); err != nil {
		t.Fatalf("PayAll: %v", err)
	}
	if len(backend.payCalls) != 1 {
		t.Fatalf("expected a single call, got %d", len(backend.payCalls))
	}
	batch := backend.payCalls[0]
	if !batch.PayAll || len(batch.Installments) != 0 {
		t.Fatalf("pay-all batch must delegate fully to the backend, got %+v", batch)
	}
}

func TestPayAllWithoutDebt(t *testing.T) {
	s := testSession(inst("i1", "0.00", testNow, 1)) // settled only

	backend := &fakeBackend{}
	w := NewWorkflow(backend, nil, nil, nil, nil)

	if _, err := w.PayAll(context.Background(), s, SubmitOptions{Method: domain.PaymentMethodCash}); !errors.Is(err, ErrNoDebt) {
		t.Fatalf("expected ErrNoDebt, got %v", err)
	}
	if len(backend.payCalls) != 0 {
		t.Fatal("no-debt case must never reach the network")
	}
}

func TestSubmitFailureLeavesStateIntact(t *testing.T) {
	s := testSession(inst("i1", "100.00", testNow.AddDate(0, -1, 0), 1))

	backend := &fakeBackend{payErr: errors.New("boom")}
	w := NewWorkflow(backend, nil, nil, nil, nil)

	paidEvents := 0
	s.SetOnPaid(func() { paidEvents++ })

	if _, err := w.PaySelected(context.Background(), s, SubmitOptions{Method: domain.PaymentMethodCash}); err == nil {
		t.Fatal("expected error from backend failure")
	}
	if paidEvents != 0 {
		t.Fatal("onPaid must not fire on failure")
	}

	sel, _ := s.Selection("i1")
	if !sel.Selected || !sel.Amount.Equal(dec("100.00")) {
		t.Fatalf("failed submit must leave selection intact, got %+v", sel)
	}

	// the in-flight flag must be released so a retry can go through
	backend.payErr = nil
	backend.result = paidResult("100.00")
	backend.summary = domain.CustomerDebtSummary{TotalDebt: dec("0.00")}
	if _, err := w.PaySelected(context.Background(), s, SubmitOptions{Method: domain.PaymentMethodCash}); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
}

func TestCloseMidFlightDiscardsResult(t *testing.T) {
	s := testSession(inst("i1", "100.00", testNow.AddDate(0, -1, 0), 1))

	backend := &fakeBackend{result: paidResult("100.00")}
	backend.onPay = func() { s.Close() } // dialog closes while the call is out

	journal := &fakeJournal{}
	notifier := &fakeNotifier{}
	w := NewWorkflow(backend, nil, journal, nil, notifier)

	paidEvents := 0
	s.SetOnPaid(func() { paidEvents++ })

	_, err := w.PaySelected(context.Background(), s, SubmitOptions{Method: domain.PaymentMethodCash})
	if !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
	if paidEvents != 0 || notifier.calls != 0 || len(journal.records) != 0 {
		t.Fatal("a closed session must swallow the stale result entirely")
	}
	// no reconciliation fetch either
	if backend.summaryCalls != 0 {
		t.Fatalf("expected no reconciliation fetch, got %d", backend.summaryCalls)
	}
}

func TestReconcileFallsBackToCache(t *testing.T) {
	s := testSession(inst("i1", "100.00", testNow.AddDate(0, -1, 0), 1))

	backend := &fakeBackend{
		result: paidResult("100.00",
			domain.PaymentRecord{InstallmentID: "i1", AmountPaid: dec("100.00"), RemainingAfter: dec("0.00")},
		),
		summaryErr: errors.New("backend down"),
	}
	cache := newFakeCache()
	// cached aggregate still includes the amount just paid
	cache.totals["cust-1"] = dec("250.00")

	w := NewWorkflow(backend, cache, nil, nil, nil)

	got, err := w.PaySelected(context.Background(), s, SubmitOptions{Method: domain.PaymentMethodCash})
	if err != nil {
		t.Fatalf("PaySelected: %v", err)
	}
	if !got.ReconciliationFailed() {
		t.Fatal("expected degraded reconciliation")
	}
	if got.Receipt.RemainingDebtAfter == nil {
		t.Fatal("cache fallback must still produce a total")
	}
	if !got.Receipt.RemainingDebtAfter.Equal(dec("150.00")) {
		t.Fatalf("expected 250 - 100 = 150.00, got %s", got.Receipt.RemainingDebtAfter)
	}
}

func TestReconcileWithoutAnySourceReportsUnavailable(t *testing.T) {
	s := testSession(inst("i1", "100.00", testNow.AddDate(0, -1, 0), 1))

	backend := &fakeBackend{
		result:     paidResult("100.00"),
		summaryErr: errors.New("backend down"),
	}
	w := NewWorkflow(backend, newFakeCache(), nil, nil, nil)

	got, err := w.PaySelected(context.Background(), s, SubmitOptions{Method: domain.PaymentMethodCash})
	if err != nil {
		t.Fatalf("PaySelected: %v", err)
	}
	if got.Receipt.RemainingDebtAfter != nil {
		t.Fatalf("expected unavailable (nil) total, got %s", got.Receipt.RemainingDebtAfter)
	}
}

func TestCollectBilletsDecodesAndStores(t *testing.T) {
	due := testNow.AddDate(0, -1, 0)
	s := testSession(inst("i1", "100.00", due, 2))

	pdf := "JVBERi0xLjQ=" // base64("%PDF-1.4")
	backend := &fakeBackend{
		result: paidResult("40.00",
			domain.PaymentRecord{InstallmentID: "i1", AmountPaid: dec("40.00"), RemainingAfter: dec("60.00"), NewBilletPDF: &pdf},
		),
		summary: domain.CustomerDebtSummary{TotalDebt: dec("60.00")},
	}
	store := &fakeBilletStore{}
	w := NewWorkflow(backend, nil, nil, store, nil)

	got, err := w.PaySelected(context.Background(), s, SubmitOptions{Method: domain.PaymentMethodCash})
	if err != nil {
		t.Fatalf("PaySelected: %v", err)
	}
	if len(got.Billets) != 1 {
		t.Fatalf("expected 1 billet, got %d", len(got.Billets))
	}
	b := got.Billets[0]
	if b.InstallmentNumber != 2 || b.TotalInstallments != 3 || !b.DueDate.Equal(due) {
		t.Fatalf("billet must carry installment metadata, got %+v", b)
	}
	if b.FileName == "" || b.FileURL == "" {
		t.Fatalf("billet must reference the stored file, got %+v", b)
	}
	if string(store.saved[b.FileName]) != "%PDF-1.4" {
		t.Fatalf("stored payload mismatch: %q", store.saved[b.FileName])
	}
	if !got.Result.HasNewBillets() {
		t.Fatal("HasNewBillets must report the fresh document")
	}
}

func TestJournalFailureDoesNotFailSettlement(t *testing.T) {
	s := testSession(inst("i1", "100.00", testNow.AddDate(0, -1, 0), 1))

	backend := &fakeBackend{
		result:  paidResult("100.00"),
		summary: domain.CustomerDebtSummary{TotalDebt: dec("0.00")},
	}
	journal := &fakeJournal{err: errors.New("disk full")}
	w := NewWorkflow(backend, nil, journal, nil, nil)

	if _, err := w.PaySelected(context.Background(), s, SubmitOptions{Method: domain.PaymentMethodCash}); err != nil {
		t.Fatalf("journal failure must not fail the settlement: %v", err)
	}
}

func TestPaidAtDefaultsWhenBackendOmitsIt(t *testing.T) {
	s := testSession(inst("i1", "100.00", testNow.AddDate(0, -1, 0), 1))

	result := paidResult("100.00")
	result.PaidAt = time.Time{}
	backend := &fakeBackend{result: result, summary: domain.CustomerDebtSummary{}}
	w := NewWorkflow(backend, nil, nil, nil, nil)

	got, err := w.PaySelected(context.Background(), s, SubmitOptions{Method: domain.PaymentMethodCash})
	if err != nil {
		t.Fatalf("PaySelected: %v", err)
	}
	if got.Receipt.PaidAt.IsZero() {
		t.Fatal("PaidAt must be filled in locally when the backend omits it")
	}
}
