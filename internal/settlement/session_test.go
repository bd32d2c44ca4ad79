package settlement

import (
	"errors"
	"testing"
	"time"

	"montshop-terminal/internal/domain"

	"github.com/shopspring/decimal"
)

var testNow = time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func inst(id, remaining string, due time.Time, number int) domain.Installment {
	return domain.Installment{
		ID:                id,
		Amount:            dec(remaining),
		RemainingAmount:   dec(remaining),
		DueDate:           due,
		InstallmentNumber: number,
		TotalInstallments: 3,
	}
}

// testSession builds a session over the given installments with a frozen
// clock so filter windows are deterministic.
func testSession(installments ...domain.Installment) *Session {
	s := NewSession("cust-1", domain.CustomerDebtSummary{Installments: installments})
	s.now = func() time.Time { return testNow }
	return s
}

func TestNewSessionSelectsEverythingInFull(t *testing.T) {
	overdue := testNow.AddDate(0, -1, 0)
	s := testSession(
		inst("i1", "40.00", overdue, 1),
		inst("i2", "60.00", overdue, 2),
		inst("i3", "0.00", overdue, 3), // settled, must not be selectable
	)

	sel, ok := s.Selection("i1")
	if !ok || !sel.Selected {
		t.Fatalf("expected i1 selected on load, got %+v ok=%v", sel, ok)
	}
	if !sel.Amount.Equal(dec("40.00")) {
		t.Fatalf("expected i1 amount 40.00, got %s", sel.Amount)
	}
	if sel.InputValue != "40.00" {
		t.Fatalf("expected input value 40.00, got %q", sel.InputValue)
	}

	if _, ok := s.Selection("i3"); ok {
		t.Fatal("settled installment must have no selection state")
	}

	if got := s.TotalToPay(); !got.Equal(dec("100.00")) {
		t.Fatalf("expected total 100.00, got %s", got)
	}
}

func TestUpdateAmountPartial(t *testing.T) {
	overdue := testNow.AddDate(0, -1, 0)
	s := testSession(
		inst("i1", "100.00", overdue, 1),
		inst("i2", "50.00", overdue, 2),
	)

	if err := s.UpdateAmount("i1", "40.00"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := s.TotalToPay(); !got.Equal(dec("90.00")) {
		t.Fatalf("expected total 90.00, got %s", got)
	}

	batch, err := s.buildBatch(domain.PaymentMethodCash, "")
	if err != nil {
		t.Fatalf("buildBatch: %v", err)
	}
	if len(batch.Installments) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(batch.Installments))
	}
	if !batch.Installments[0].Amount.Equal(dec("40.00")) {
		t.Fatalf("expected pair amount 40.00, got %s", batch.Installments[0].Amount)
	}
}

func TestUpdateAmountCommaSeparator(t *testing.T) {
	s := testSession(inst("i1", "100.00", testNow.AddDate(0, -1, 0), 1))

	if err := s.UpdateAmount("i1", "12,5"); err != nil {
		t.Fatalf("update: %v", err)
	}
	sel, _ := s.Selection("i1")
	if !sel.Amount.Equal(dec("12.50")) {
		t.Fatalf("expected 12.50, got %s", sel.Amount)
	}
	// raw input survives verbatim when no clamping happened
	if sel.InputValue != "12,5" {
		t.Fatalf("expected raw input kept, got %q", sel.InputValue)
	}
}

func TestUpdateAmountRejectsGarbage(t *testing.T) {
	s := testSession(inst("i1", "100.00", testNow.AddDate(0, -1, 0), 1))

	for _, raw := range []string{"abc", "12.3.4", "1,2,3", "12a", "-5", "1 2"} {
		if err := s.UpdateAmount("i1", raw); !errors.Is(err, ErrMalformedAmount) {
			t.Fatalf("UpdateAmount(%q): expected ErrMalformedAmount, got %v", raw, err)
		}
	}

	// rejected input leaves the previous state intact
	sel, _ := s.Selection("i1")
	if !sel.Amount.Equal(dec("100.00")) {
		t.Fatalf("rejected input must not change amount, got %s", sel.Amount)
	}
	if sel.InputValue != "100.00" {
		t.Fatalf("rejected input must not change input value, got %q", sel.InputValue)
	}
}

func TestUpdateAmountClampsToRemaining(t *testing.T) {
	s := testSession(inst("i1", "25.00", testNow.AddDate(0, -1, 0), 1))

	if err := s.UpdateAmount("i1", "999"); err != nil {
		t.Fatalf("update: %v", err)
	}
	sel, _ := s.Selection("i1")
	if !sel.Amount.Equal(dec("25.00")) {
		t.Fatalf("expected clamp to 25.00, got %s", sel.Amount)
	}
	// clamped value replaces the raw input so the operator sees the cap
	if sel.InputValue != "25.00" {
		t.Fatalf("expected input value 25.00, got %q", sel.InputValue)
	}
}

func TestUpdateAmountEmptyAndLoneSeparator(t *testing.T) {
	s := testSession(inst("i1", "25.00", testNow.AddDate(0, -1, 0), 1))

	if err := s.UpdateAmount("i1", ""); err != nil {
		t.Fatalf("empty input: %v", err)
	}
	sel, _ := s.Selection("i1")
	if !sel.Amount.IsZero() || sel.InputValue != "" {
		t.Fatalf("expected zero/empty state, got %+v", sel)
	}

	if err := s.UpdateAmount("i1", ","); err != nil {
		t.Fatalf("lone separator: %v", err)
	}
	sel, _ = s.Selection("i1")
	if !sel.Amount.IsZero() {
		t.Fatalf("lone separator must mean zero, got %s", sel.Amount)
	}
}

func TestToggleKeepsAmount(t *testing.T) {
	s := testSession(inst("i1", "80.00", testNow.AddDate(0, -1, 0), 1))

	if err := s.UpdateAmount("i1", "30"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := s.ToggleSelection("i1"); err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	if got := s.TotalToPay(); !got.IsZero() {
		t.Fatalf("deselected installment must not count, total %s", got)
	}
	if err := s.ToggleSelection("i1"); err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	sel, _ := s.Selection("i1")
	if !sel.Amount.Equal(dec("30.00")) {
		t.Fatalf("amount must survive a toggle round-trip, got %s", sel.Amount)
	}
}

func TestSelectAllAndClearAreFilterScoped(t *testing.T) {
	overdue := testNow.AddDate(0, -1, 0)
	future := testNow.AddDate(0, 2, 0)
	s := testSession(
		inst("i1", "100.00", overdue, 1),
		inst("i2", "200.00", future, 2),
	)

	s.SetFilter(FilterOverdue)

	s.ClearSelection()
	if sel, _ := s.Selection("i1"); sel.Selected {
		t.Fatal("clear must deselect the overdue installment")
	}
	// outside the filter: untouched, still selected in full from load
	if sel, _ := s.Selection("i2"); !sel.Selected || !sel.Amount.Equal(dec("200.00")) {
		t.Fatalf("clear must not touch installments outside the filter, got %+v", sel)
	}

	s.SelectAll()
	if got := s.TotalToPay(); !got.Equal(dec("100.00")) {
		t.Fatalf("expected overdue total 100.00 after select-all, got %s", got)
	}

	s.ClearSelection()
	if got := s.TotalToPay(); !got.IsZero() {
		t.Fatalf("expected 0.00 after clear, got %s", got)
	}
}

func TestFilterSwitchDoesNotMutateState(t *testing.T) {
	overdue := testNow.AddDate(0, -1, 0)
	future := testNow.AddDate(0, 2, 0)
	s := testSession(
		inst("i1", "100.00", overdue, 1),
		inst("i2", "200.00", future, 2),
	)

	if err := s.UpdateAmount("i1", "55"); err != nil {
		t.Fatalf("update: %v", err)
	}

	s.SetFilter(FilterOverdue)
	s.SetFilter(FilterAll)
	s.SetFilter(FilterDefault)

	sel, _ := s.Selection("i1")
	if !sel.Amount.Equal(dec("55.00")) || !sel.Selected {
		t.Fatalf("filter switches must not mutate selection state, got %+v", sel)
	}
	sel2, _ := s.Selection("i2")
	if !sel2.Amount.Equal(dec("200.00")) || !sel2.Selected {
		t.Fatalf("filter switches must not mutate hidden state, got %+v", sel2)
	}
}

func TestTotalToPayIgnoresHiddenSelections(t *testing.T) {
	overdue := testNow.AddDate(0, -1, 0)
	future := testNow.AddDate(0, 2, 0)
	s := testSession(
		inst("i1", "100.00", overdue, 1),
		inst("i2", "200.00", future, 2),
	)

	s.SetFilter(FilterOverdue)
	if got := s.TotalToPay(); !got.Equal(dec("100.00")) {
		t.Fatalf("hidden selections must not count, got %s", got)
	}

	batch, err := s.buildBatch(domain.PaymentMethodPix, "")
	if err != nil {
		t.Fatalf("buildBatch: %v", err)
	}
	if len(batch.Installments) != 1 || batch.Installments[0].InstallmentID != "i1" {
		t.Fatalf("batch must be filter-scoped, got %+v", batch.Installments)
	}
}

func TestBuildBatchRejectsEmptyPayload(t *testing.T) {
	s := testSession(inst("i1", "100.00", testNow.AddDate(0, -1, 0), 1))

	s.ClearSelection()
	if _, err := s.buildBatch(domain.PaymentMethodCash, ""); !errors.Is(err, ErrNothingSelected) {
		t.Fatalf("expected ErrNothingSelected, got %v", err)
	}

	// selected but zero amount is just as empty
	s.SelectAll()
	if err := s.UpdateAmount("i1", "0"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := s.buildBatch(domain.PaymentMethodCash, ""); !errors.Is(err, ErrNothingSelected) {
		t.Fatalf("expected ErrNothingSelected for zero amounts, got %v", err)
	}
}

func TestBeginSubmitGuards(t *testing.T) {
	s := testSession(inst("i1", "100.00", testNow.AddDate(0, -1, 0), 1))

	if err := s.beginSubmit(); err != nil {
		t.Fatalf("first begin: %v", err)
	}
	if err := s.beginSubmit(); !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("expected ErrSubmitInFlight, got %v", err)
	}
	s.endSubmit()
	if err := s.beginSubmit(); err != nil {
		t.Fatalf("begin after end: %v", err)
	}
	s.endSubmit()

	s.Close()
	if err := s.beginSubmit(); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}

func TestTotalRoundsEveryStep(t *testing.T) {
	overdue := testNow.AddDate(0, -1, 0)
	s := testSession(
		inst("i1", "0.10", overdue, 1),
		inst("i2", "0.20", overdue, 2),
		inst("i3", "0.30", overdue, 3),
	)
	if got := s.TotalToPay(); !got.Equal(dec("0.60")) {
		t.Fatalf("expected 0.60, got %s", got)
	}
	if got := s.TotalRemaining(); !got.Equal(dec("0.60")) {
		t.Fatalf("expected remaining 0.60, got %s", got)
	}
}
