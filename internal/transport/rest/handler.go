package rest

import (
	"context"
	"net/http"
	"time"

	"montshop-terminal/internal/domain"
	"montshop-terminal/internal/repository"
	"montshop-terminal/internal/service"
	"montshop-terminal/internal/settlement"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type SummaryProvider interface {
	Load(ctx context.Context, customerID string, filter settlement.DebtFilter) (service.SummaryView, error)
	Installment(ctx context.Context, installmentID string) (domain.InstallmentDetail, error)
	Company(ctx context.Context) (domain.Company, error)
}

type SettlementRunner interface {
	Pay(ctx context.Context, customerID string, req service.PayRequest) (*settlement.Settlement, error)
}

type ReceiptProvider interface {
	Get(ctx context.Context, id string) (domain.Receipt, error)
	RenderText(ctx context.Context, id string) (string, error)
}

type ReceiptExporter interface {
	StartReceiptsExport(ctx context.Context, selected []string, filter repository.ReceiptsFilter, terminalID int64) (string, error)
}

type ExportListService interface {
	GetExports(ctx context.Context, terminalID int64) ([]interface{}, error)
	GetExport(ctx context.Context, exportID string, terminalID int64) (interface{}, error)
}

type Handler struct {
	summaries   SummaryProvider
	settlements SettlementRunner
	receipts    ReceiptProvider
	exporter    ReceiptExporter
	exportList  ExportListService
}

func NewHandler(summaries SummaryProvider, settlements SettlementRunner, receipts ReceiptProvider, exporter ReceiptExporter, exportList ExportListService) *Handler {
	return &Handler{
		summaries:   summaries,
		settlements: settlements,
		receipts:    receipts,
		exporter:    exporter,
		exportList:  exportList,
	}
}

func (h *Handler) InitRouter() *chi.Mux {
	return h.InitRouterWithAuth(nil)
}

func (h *Handler) InitRouterWithAuth(authMiddleware func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)

	if authMiddleware != nil {
		r.Use(authMiddleware)
	}

	r.Route("/installment", func(r chi.Router) {
		r.Get("/customer/{customerID}/summary", h.customerSummary)
		r.Post("/customer/{customerID}/pay/bulk", h.payBulk)
		r.Get("/{installmentID}", h.installmentDetail)
	})

	r.Get("/company/my-company", h.myCompany)

	r.Route("/receipt", func(r chi.Router) {
		r.Get("/{receiptID}", h.getReceipt)
		r.Get("/{receiptID}/print", h.printReceipt)
	})

	r.Route("/export", func(r chi.Router) {
		r.Get("/", h.listExports)
		r.Get("/{export_id}", h.getExport)
		r.Post("/receipts", h.exportReceipts)
	})

	return r
}
