package settlement

import (
	"fmt"
	"time"
)

// DebtFilter narrows which installments are visible and eligible for bulk
// selection actions. It never affects the pay-all submission path, which
// always targets every outstanding installment.
type DebtFilter string

const (
	// FilterDefault keeps installments that are overdue or due inside the
	// current calendar month.
	FilterDefault DebtFilter = "default"
	// FilterOverdue keeps only installments due strictly before now.
	FilterOverdue DebtFilter = "overdue"
	// FilterAll keeps everything.
	FilterAll DebtFilter = "all"
)

// ParseFilter maps a request string to a DebtFilter. Empty input selects
// the default filter.
func ParseFilter(s string) (DebtFilter, error) {
	switch DebtFilter(s) {
	case "":
		return FilterDefault, nil
	case FilterDefault, FilterOverdue, FilterAll:
		return DebtFilter(s), nil
	}
	return "", fmt.Errorf("filtro inválido: %q", s)
}

// Matches reports whether an installment due at due passes the filter at
// the moment now. The default window rule (overdue OR current calendar
// month) lives only here so it can become configurable without touching
// callers.
func (f DebtFilter) Matches(due, now time.Time) bool {
	switch f {
	case FilterOverdue:
		return due.Before(now)
	case FilterAll:
		return true
	default:
		if due.Before(now) {
			return true
		}
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		nextMonth := monthStart.AddDate(0, 1, 0)
		return !due.Before(monthStart) && due.Before(nextMonth)
	}
}
