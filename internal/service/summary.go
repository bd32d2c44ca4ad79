package service

import (
	"context"
	"fmt"

	"montshop-terminal/internal/clients"
	"montshop-terminal/internal/domain"
	"montshop-terminal/internal/settlement"

	"github.com/shopspring/decimal"
)

// SummaryBackend is the slice of the gateway the summary service needs.
type SummaryBackend interface {
	CustomerDebtSummary(ctx context.Context, customerID string) (domain.CustomerDebtSummary, error)
	Installment(ctx context.Context, installmentID string) (domain.InstallmentDetail, error)
	MyCompany(ctx context.Context) (domain.Company, error)
}

// SummaryView is a debt summary with the active filter already applied to
// the installment list. The raw aggregates stay untouched; only the list
// and the filtered remaining total reflect the filter.
type SummaryView struct {
	domain.CustomerDebtSummary
	Filter               settlement.DebtFilter `json:"filter"`
	FilteredInstallments []domain.Installment  `json:"filtered_installments"`
	FilteredRemaining    decimal.Decimal       `json:"filtered_remaining"`
}

// SummaryService loads customer debt summaries and company info, feeding
// the debt cache on every successful fetch.
type SummaryService struct {
	backend SummaryBackend
	cache   *clients.DebtCache
}

func NewSummaryService(backend SummaryBackend, cache *clients.DebtCache) *SummaryService {
	return &SummaryService{backend: backend, cache: cache}
}

// Load fetches a customer's summary and applies the view filter. A fetch
// failure is returned as an error so callers can render a state distinct
// from "no pending debt".
func (s *SummaryService) Load(ctx context.Context, customerID string, filter settlement.DebtFilter) (SummaryView, error) {
	summary, err := s.backend.CustomerDebtSummary(ctx, customerID)
	if err != nil {
		return SummaryView{}, fmt.Errorf("falha ao carregar dívidas do cliente: %w", err)
	}

	s.cache.StoreCustomerTotalDebt(ctx, customerID, summary.TotalDebt)

	sess := settlement.NewSession(customerID, summary)
	sess.SetFilter(filter)

	return SummaryView{
		CustomerDebtSummary:  summary,
		Filter:               filter,
		FilteredInstallments: sess.FilteredInstallments(),
		FilteredRemaining:    sess.TotalRemaining(),
	}, nil
}

// Installment proxies the single-installment drill-down.
func (s *SummaryService) Installment(ctx context.Context, installmentID string) (domain.InstallmentDetail, error) {
	return s.backend.Installment(ctx, installmentID)
}

// Company returns the issuer info for receipt headers, cached with TTL.
// When the backend is unreachable a stale-free cache miss is an error;
// receipt rendering treats that as a blank header, not a failure.
func (s *SummaryService) Company(ctx context.Context) (domain.Company, error) {
	if company, ok := s.cache.Company(ctx); ok {
		return company, nil
	}
	company, err := s.backend.MyCompany(ctx)
	if err != nil {
		return domain.Company{}, err
	}
	s.cache.StoreCompany(ctx, company)
	return company, nil
}
