package settlement

import (
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"montshop-terminal/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	ErrNothingSelected      = errors.New("Selecione ao menos uma parcela com valor maior que zero")
	ErrNoDebt               = errors.New("Não há dívidas pendentes")
	ErrSubmitInFlight       = errors.New("já existe um pagamento em andamento")
	ErrSessionClosed        = errors.New("sessão de pagamento encerrada")
	ErrUnknownInstallment   = errors.New("parcela desconhecida")
	ErrMalformedAmount      = errors.New("valor inválido")
	ErrDuplicateInstallment = errors.New("parcela repetida na solicitação")
)

// amountShape accepts the digits-and-one-separator form an operator may
// type into an amount field. Comma and dot are both decimal separators.
var amountShape = regexp.MustCompile(`^\d*([.,]\d*)?$`)

// SelectionState is the per-installment ledger entry of what the operator
// intends to pay right now. Amount always stays within [0, Remaining],
// rounded to two decimal places.
type SelectionState struct {
	Selected   bool
	Amount     decimal.Decimal
	Remaining  decimal.Decimal
	InputValue string
}

// Session holds one customer's allocation state between opening the debt
// dialog and settling. Installments with nothing remaining are excluded
// from the selection map entirely; every other installment starts
// selected in full (the pay-everything default).
type Session struct {
	mu sync.Mutex

	customerID   string
	installments []domain.Installment
	selections   map[string]*SelectionState
	filter       DebtFilter

	closed   bool
	inFlight bool
	onPaid   func()

	now func() time.Time
}

// NewSession snapshots a freshly loaded debt summary. The snapshot is
// never refreshed in place; reloading means building a new session.
func NewSession(customerID string, summary domain.CustomerDebtSummary) *Session {
	s := &Session{
		customerID: customerID,
		filter:     FilterDefault,
		selections: make(map[string]*SelectionState),
		now:        time.Now,
	}
	for _, inst := range summary.Installments {
		s.installments = append(s.installments, inst)
		if inst.Settled() {
			continue
		}
		remaining := inst.RemainingAmount.Round(2)
		s.selections[inst.ID] = &SelectionState{
			Selected:   true,
			Amount:     remaining,
			Remaining:  remaining,
			InputValue: remaining.StringFixed(2),
		}
	}
	return s
}

func (s *Session) CustomerID() string { return s.customerID }

// SetOnPaid registers the host callback invoked exactly once after each
// completed settlement.
func (s *Session) SetOnPaid(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPaid = fn
}

// Close discards the session. Results of requests still in flight are
// dropped once they resolve.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ToggleSelection flips the selected flag of one installment without
// touching its amount, so toggling back on restores what was there.
func (s *Session) ToggleSelection(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, ok := s.selections[id]
	if !ok {
		return ErrUnknownInstallment
	}
	sel.Selected = !sel.Selected
	return nil
}

// UpdateAmount applies raw operator input to one installment. Input that
// does not match the digits[.,digits] shape is rejected and the state is
// left unchanged. An empty string is a valid transient state (amount 0)
// so the operator can clear and retype. Valid values are clamped to
// [0, remaining] and rounded to cents.
func (s *Session) UpdateAmount(id, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, ok := s.selections[id]
	if !ok {
		return ErrUnknownInstallment
	}
	if !amountShape.MatchString(raw) {
		return ErrMalformedAmount
	}
	if raw == "" {
		sel.Amount = decimal.Zero
		sel.InputValue = ""
		return nil
	}

	normalized := strings.ReplaceAll(raw, ",", ".")
	if normalized == "." {
		sel.Amount = decimal.Zero
		sel.InputValue = raw
		return nil
	}
	parsed, err := decimal.NewFromString(normalized)
	if err != nil {
		return ErrMalformedAmount
	}

	amount := parsed.Round(2)
	if amount.GreaterThan(sel.Remaining) {
		amount = sel.Remaining
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}

	sel.Amount = amount
	if amount.Equal(parsed) {
		sel.InputValue = raw
	} else {
		sel.InputValue = amount.StringFixed(2)
	}
	return nil
}

// SetFilter switches the active view filter. Per-installment state is
// never mutated by a filter change.
func (s *Session) SetFilter(f DebtFilter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = f
}

func (s *Session) Filter() DebtFilter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// SelectAll marks every installment visible under the active filter as
// selected in full. Installments outside the filter are left untouched.
func (s *Session) SelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for _, inst := range s.installments {
		sel, ok := s.selections[inst.ID]
		if !ok || !s.filter.Matches(inst.DueDate, now) {
			continue
		}
		sel.Selected = true
		sel.Amount = sel.Remaining
		sel.InputValue = sel.Remaining.StringFixed(2)
	}
}

// ClearSelection deselects every installment visible under the active
// filter and zeroes its amount.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for _, inst := range s.installments {
		sel, ok := s.selections[inst.ID]
		if !ok || !s.filter.Matches(inst.DueDate, now) {
			continue
		}
		sel.Selected = false
		sel.Amount = decimal.Zero
		sel.InputValue = ""
	}
}

// Selection returns a copy of one installment's selection state.
func (s *Session) Selection(id string) (SelectionState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, ok := s.selections[id]
	if !ok {
		return SelectionState{}, false
	}
	return *sel, true
}

// FilteredInstallments returns the installments passing the active
// filter, in load order.
func (s *Session) FilteredInstallments() []domain.Installment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filteredLocked()
}

func (s *Session) filteredLocked() []domain.Installment {
	now := s.now()
	var out []domain.Installment
	for _, inst := range s.installments {
		if s.filter.Matches(inst.DueDate, now) {
			out = append(out, inst)
		}
	}
	return out
}

// SelectedInstallments returns the filtered installments currently
// marked selected.
func (s *Session) SelectedInstallments() []domain.Installment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Installment
	for _, inst := range s.filteredLocked() {
		if sel, ok := s.selections[inst.ID]; ok && sel.Selected {
			out = append(out, inst)
		}
	}
	return out
}

// TotalToPay sums the amounts of the selected, filtered installments.
// The running sum is rounded to cents after every addition so drift
// cannot accumulate across many terms.
func (s *Session) TotalToPay() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, inst := range s.filteredLocked() {
		sel, ok := s.selections[inst.ID]
		if !ok || !sel.Selected {
			continue
		}
		total = total.Add(sel.Amount).Round(2)
	}
	return total
}

// TotalRemaining sums the outstanding balance of the filtered
// installments.
func (s *Session) TotalRemaining() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, inst := range s.filteredLocked() {
		if sel, ok := s.selections[inst.ID]; ok {
			total = total.Add(sel.Remaining).Round(2)
		}
	}
	return total
}

// HasDebt reports whether the customer had anything outstanding when the
// session was loaded, regardless of the active filter.
func (s *Session) HasDebt() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.selections) > 0
}

// buildBatch assembles the pay-selected payload: one pair per selected
// installment with a positive amount, scoped to the active filter.
func (s *Session) buildBatch(method domain.PaymentMethod, notes string) (domain.PaymentBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pairs []domain.InstallmentPayment
	for _, inst := range s.filteredLocked() {
		sel, ok := s.selections[inst.ID]
		if !ok || !sel.Selected || !sel.Amount.IsPositive() {
			continue
		}
		pairs = append(pairs, domain.InstallmentPayment{
			InstallmentID: inst.ID,
			Amount:        sel.Amount,
		})
	}
	if len(pairs) == 0 {
		return domain.PaymentBatch{}, ErrNothingSelected
	}
	return domain.PaymentBatch{
		PaymentMethod: method,
		Notes:         notes,
		Installments:  pairs,
	}, nil
}

// installment looks up the snapshot record for id.
func (s *Session) installment(id string) (domain.Installment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inst := range s.installments {
		if inst.ID == id {
			return inst, true
		}
	}
	return domain.Installment{}, false
}

// beginSubmit enforces the send-once rule: at most one settlement call in
// flight, and none after close.
func (s *Session) beginSubmit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.inFlight {
		return ErrSubmitInFlight
	}
	s.inFlight = true
	return nil
}

func (s *Session) endSubmit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
}

// firePaid invokes the host callback at most once per call site; the
// workflow calls it on the success path only.
func (s *Session) firePaid() {
	s.mu.Lock()
	fn := s.onPaid
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}
