package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Installment is one scheduled payment obligation tied to a sale. The
// backend owns it; the terminal only ever holds read snapshots.
type Installment struct {
	ID                string          `json:"id"`
	Amount            decimal.Decimal `json:"amount"`
	RemainingAmount   decimal.Decimal `json:"remaining_amount"`
	DueDate           time.Time       `json:"due_date"`
	InstallmentNumber int             `json:"installment_number"`
	TotalInstallments int             `json:"total_installments"`
	SaleID            *string         `json:"sale_id,omitempty"`
}

// Settled reports whether nothing is left to pay on this installment.
func (i Installment) Settled() bool {
	return i.RemainingAmount.LessThanOrEqual(decimal.Zero)
}

// SaleItem is one sold product line attached to an installment's sale,
// returned only by the single-installment drill-down endpoint.
type SaleItem struct {
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

// InstallmentDetail is an installment together with its sale items.
type InstallmentDetail struct {
	Installment Installment `json:"installment"`
	Items       []SaleItem  `json:"items"`
}

// CustomerDebtSummary aggregates a customer's outstanding installments.
type CustomerDebtSummary struct {
	TotalDebt           decimal.Decimal `json:"total_debt"`
	TotalInstallments   int             `json:"total_installments"`
	OverdueInstallments int             `json:"overdue_installments"`
	OverdueAmount       decimal.Decimal `json:"overdue_amount"`
	Installments        []Installment   `json:"installments"`
}
