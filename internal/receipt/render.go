package receipt

import (
	"fmt"
	"strings"

	"montshop-terminal/internal/domain"

	"github.com/shopspring/decimal"
)

const lineWidth = 42

// Render produces the printable text of a settlement receipt. The print
// subsystem itself is an external collaborator; this only formats.
// company may be zero-valued when the company fetch failed.
func Render(r domain.Receipt, company domain.Company) string {
	var b strings.Builder
	rule := strings.Repeat("-", lineWidth)

	center(&b, nonEmpty(company.TradeName, company.Name))
	if company.CNPJ != "" {
		center(&b, "CNPJ: "+company.CNPJ)
	}
	if company.Address != "" {
		center(&b, company.Address)
	}
	if company.City != "" || company.State != "" {
		center(&b, strings.TrimSuffix(company.City+" - "+company.State, " - "))
	}
	if company.Phone != "" {
		center(&b, "Fone: "+company.Phone)
	}
	b.WriteString(rule + "\n")
	center(&b, "RECIBO DE PAGAMENTO")
	b.WriteString(rule + "\n")

	row(&b, "Data", r.PaidAt.Format("02/01/2006 15:04"))
	if r.CustomerName != "" {
		row(&b, "Cliente", r.CustomerName)
	}
	if r.OperatorName != "" {
		row(&b, "Operador", r.OperatorName)
	}
	row(&b, "Forma de pagamento", r.PaymentMethod.Label())
	b.WriteString(rule + "\n")

	for _, line := range r.Lines {
		label := fmt.Sprintf("Parcela %d/%d", line.InstallmentNumber, line.TotalInstallments)
		row(&b, label, FormatBRL(line.AmountPaid))
		row(&b, "  Vencimento", line.DueDate.Format("02/01/2006"))
		if line.RemainingAfter.IsPositive() {
			row(&b, "  Saldo restante", FormatBRL(line.RemainingAfter))
		}
	}
	b.WriteString(rule + "\n")

	row(&b, "TOTAL PAGO", FormatBRL(r.TotalPaid))
	if r.RemainingDebtAfter != nil {
		row(&b, "Saldo devedor", FormatBRL(*r.RemainingDebtAfter))
	} else {
		row(&b, "Saldo devedor", "não disponível")
	}
	if r.OtherDebtsAfter != nil {
		row(&b, "Outras dívidas", FormatBRL(*r.OtherDebtsAfter))
	}
	if r.Notes != "" {
		b.WriteString(rule + "\n")
		b.WriteString("Obs: " + r.Notes + "\n")
	}
	b.WriteString(rule + "\n")
	center(&b, "Obrigado pela preferência!")
	return b.String()
}

// FormatBRL renders a decimal amount in Brazilian currency notation
// (thousands dot, decimal comma).
func FormatBRL(d decimal.Decimal) string {
	fixed := d.StringFixed(2)

	neg := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	parts := strings.SplitN(fixed, ".", 2)
	intPart, fracPart := parts[0], parts[1]

	var groups []string
	for len(intPart) > 3 {
		groups = append([]string{intPart[len(intPart)-3:]}, groups...)
		intPart = intPart[:len(intPart)-3]
	}
	groups = append([]string{intPart}, groups...)

	out := "R$ " + strings.Join(groups, ".") + "," + fracPart
	if neg {
		out = "-" + out
	}
	return out
}

func row(b *strings.Builder, label, value string) {
	pad := lineWidth - len([]rune(label)) - len([]rune(value))
	if pad < 1 {
		pad = 1
	}
	b.WriteString(label + strings.Repeat(" ", pad) + value + "\n")
}

func center(b *strings.Builder, s string) {
	if s == "" {
		return
	}
	pad := (lineWidth - len([]rune(s))) / 2
	if pad < 0 {
		pad = 0
	}
	b.WriteString(strings.Repeat(" ", pad) + s + "\n")
}

func nonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
