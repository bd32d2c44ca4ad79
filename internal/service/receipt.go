package service

import (
	"context"
	"log"

	"montshop-terminal/internal/domain"
	"montshop-terminal/internal/receipt"
	"montshop-terminal/internal/repository"
)

// ReceiptService serves the local settlement journal: lookups and
// reprint rendering.
type ReceiptService struct {
	repo      *repository.ReceiptRepository
	summaries *SummaryService
}

func NewReceiptService(repo *repository.ReceiptRepository, summaries *SummaryService) *ReceiptService {
	return &ReceiptService{repo: repo, summaries: summaries}
}

func (s *ReceiptService) Get(ctx context.Context, id string) (domain.Receipt, error) {
	return s.repo.GetByID(ctx, id)
}

// RenderText produces the printable receipt text. A failed company fetch
// degrades to a blank header; reprinting is never blocked by it.
func (s *ReceiptService) RenderText(ctx context.Context, id string) (string, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	company, err := s.summaries.Company(ctx)
	if err != nil {
		log.Printf("[RECEIPT] company info unavailable for reprint: %v", err)
		company = domain.Company{}
	}

	return receipt.Render(rec, company), nil
}
