package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReceiptLine is one settled installment as it appears on a receipt.
type ReceiptLine struct {
	InstallmentID     string          `json:"installment_id"`
	InstallmentNumber int             `json:"installment_number"`
	TotalInstallments int             `json:"total_installments"`
	DueDate           time.Time       `json:"due_date"`
	AmountPaid        decimal.Decimal `json:"amount_paid"`
	RemainingAfter    decimal.Decimal `json:"remaining_after"`
}

// Receipt is the journal record of one completed settlement, kept locally
// for reprint, history and export. RemainingDebtAfter is nil when the
// post-payment reconciliation fetch failed and no cached total existed;
// it is never guessed as zero.
type Receipt struct {
	ID                 string          `json:"id"`
	CustomerID         string          `json:"customer_id"`
	CustomerName       string          `json:"customer_name,omitempty"`
	PaymentMethod      PaymentMethod   `json:"payment_method"`
	Notes              string          `json:"notes,omitempty"`
	TotalPaid          decimal.Decimal `json:"total_paid"`
	RemainingDebtAfter *decimal.Decimal `json:"remaining_debt_after,omitempty"`
	// OtherDebtsAfter is the customer's aggregate debt outside the settled
	// installment. Set only when the receipt covers a single installment;
	// nil when no aggregate source was available.
	OtherDebtsAfter *decimal.Decimal `json:"other_debts_after,omitempty"`
	OperatorName       string          `json:"operator_name,omitempty"`
	PaidAt             time.Time       `json:"paid_at"`
	Lines              []ReceiptLine   `json:"lines"`

	CreatedAt *time.Time `json:"created_at,omitempty"`
}
