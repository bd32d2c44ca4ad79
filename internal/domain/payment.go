package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodCash       PaymentMethod = "cash"
	PaymentMethodPix        PaymentMethod = "pix"
	PaymentMethodCreditCard PaymentMethod = "credit_card"
	PaymentMethodDebitCard  PaymentMethod = "debit_card"
)

// Valid reports whether m is one of the accepted payment methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodPix, PaymentMethodCreditCard, PaymentMethodDebitCard:
		return true
	}
	return false
}

// Label returns the method name as printed on receipts.
func (m PaymentMethod) Label() string {
	switch m {
	case PaymentMethodCash:
		return "Dinheiro"
	case PaymentMethodPix:
		return "PIX"
	case PaymentMethodCreditCard:
		return "Cartão de crédito"
	case PaymentMethodDebitCard:
		return "Cartão de débito"
	}
	return string(m)
}

// InstallmentPayment is one {installment, amount} pair of a batch.
type InstallmentPayment struct {
	InstallmentID string          `json:"installment_id"`
	Amount        decimal.Decimal `json:"amount"`
}

// PaymentBatch is the settlement request submitted to the backend.
// Either Installments is non-empty or PayAll is set, never both.
type PaymentBatch struct {
	PaymentMethod PaymentMethod        `json:"payment_method"`
	Notes         string               `json:"notes,omitempty"`
	Installments  []InstallmentPayment `json:"installments,omitempty"`
	PayAll        bool                 `json:"pay_all,omitempty"`
}

// PaymentRecord is the backend's per-installment settlement outcome.
// NewBilletPDF carries a base64 document when the remaining balance on
// the obligation triggered a fresh billet.
type PaymentRecord struct {
	InstallmentID  string          `json:"installment_id"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	RemainingAfter decimal.Decimal `json:"remaining_after"`
	NewBilletPDF   *string         `json:"new_billet_pdf,omitempty"`
}

// PaymentResult is the backend response to a settled batch.
type PaymentResult struct {
	TotalPaid     decimal.Decimal `json:"total_paid"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Notes         string          `json:"notes,omitempty"`
	Payments      []PaymentRecord `json:"payments"`
	Message       string          `json:"message,omitempty"`
	PaidAt        time.Time       `json:"paid_at"`
}

// HasNewBillets reports whether any payment record carries a freshly
// generated billet document.
func (r PaymentResult) HasNewBillets() bool {
	for _, p := range r.Payments {
		if p.NewBilletPDF != nil && *p.NewBilletPDF != "" {
			return true
		}
	}
	return false
}

// GeneratedBillet joins a payment record that produced a billet with the
// source installment's display metadata. Display/download only.
type GeneratedBillet struct {
	InstallmentID     string          `json:"installment_id"`
	InstallmentNumber int             `json:"installment_number"`
	TotalInstallments int             `json:"total_installments"`
	DueDate           time.Time       `json:"due_date"`
	RemainingAfter    decimal.Decimal `json:"remaining_after"`
	PDF               string          `json:"pdf"`
	FileName          string          `json:"file_name,omitempty"`
	FileURL           string          `json:"file_url,omitempty"`
}
