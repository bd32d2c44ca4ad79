package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"time"

	"montshop-terminal/internal/clients"
	"montshop-terminal/internal/domain"
	"montshop-terminal/internal/repository"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// ReceiptLister is the journal slice the export pipeline reads.
type ReceiptLister interface {
	List(ctx context.Context, f repository.ReceiptsFilter) ([]domain.Receipt, error)
	ListLines(ctx context.Context, receiptIDs []string) (map[string][]domain.ReceiptLine, error)
	HasMoreThan(ctx context.Context, limit int64, f repository.ReceiptsFilter) (bool, error)
}

// ExportStorage is where finished spreadsheets land (local dir or S3).
type ExportStorage interface {
	Save(ctx context.Context, fileName string, data []byte) (string, error)
	GetURL(fileName string) string
}

// receiptRow is one export line: a receipt flattened with one of its
// installment lines.
type receiptRow struct {
	Receipt domain.Receipt
	Line    domain.ReceiptLine
}

type ReceiptColumn struct {
	Header string
	Value  func(r receiptRow) any
}

var receiptColumns = map[string]ReceiptColumn{
	"receipt_id":    {Header: "Recibo", Value: func(r receiptRow) any { return r.Receipt.ID }},
	"customer_id":   {Header: "ID do cliente", Value: func(r receiptRow) any { return r.Receipt.CustomerID }},
	"customer_name": {Header: "Cliente", Value: func(r receiptRow) any { return r.Receipt.CustomerName }},
	"payment_method": {Header: "Forma de pagamento", Value: func(r receiptRow) any {
		return r.Receipt.PaymentMethod.Label()
	}},
	"notes":      {Header: "Observações", Value: func(r receiptRow) any { return r.Receipt.Notes }},
	"total_paid": {Header: "Total pago", Value: func(r receiptRow) any { return r.Receipt.TotalPaid.InexactFloat64() }},
	"remaining_debt_after": {Header: "Saldo devedor", Value: func(r receiptRow) any {
		if r.Receipt.RemainingDebtAfter == nil {
			return ""
		}
		return r.Receipt.RemainingDebtAfter.InexactFloat64()
	}},
	"operator_name": {Header: "Operador", Value: func(r receiptRow) any { return r.Receipt.OperatorName }},
	"paid_at":       {Header: "Data do pagamento", Value: func(r receiptRow) any { return r.Receipt.PaidAt.Format("2006-01-02 15:04:05") }},
	"installment": {Header: "Parcela", Value: func(r receiptRow) any {
		return fmt.Sprintf("%d/%d", r.Line.InstallmentNumber, r.Line.TotalInstallments)
	}},
	"due_date":        {Header: "Vencimento", Value: func(r receiptRow) any { return r.Line.DueDate.Format("2006-01-02") }},
	"amount_paid":     {Header: "Valor pago", Value: func(r receiptRow) any { return r.Line.AmountPaid.InexactFloat64() }},
	"remaining_after": {Header: "Saldo da parcela", Value: func(r receiptRow) any { return r.Line.RemainingAfter.InexactFloat64() }},
}

const maxReceiptsForExport = 100_000

// ReceiptExportService generates receipt-history spreadsheets in the
// background, tracking progress in Redis and over the websocket hub.
type ReceiptExportService struct {
	repo    ReceiptLister
	redis   *clients.RedisClient
	storage ExportStorage
	ws      *clients.WebSocketClient
}

func NewReceiptExportService(repo ReceiptLister, redis *clients.RedisClient, storage ExportStorage, ws *clients.WebSocketClient) *ReceiptExportService {
	return &ReceiptExportService{repo: repo, redis: redis, storage: storage, ws: ws}
}

func (s *ReceiptExportService) saveExportStatus(ctx context.Context, st *ExportStatus) error {
	if s.redis == nil {
		return nil
	}
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, exportKey(st.Key), string(data), exportTTL); err != nil {
		return err
	}
	return s.redis.SAdd(ctx, exportSetKey, st.Key)
}

// StartReceiptsExport validates the request size, registers the export
// status and runs the generation in the background.
func (s *ReceiptExportService) StartReceiptsExport(ctx context.Context, selected []string, filter repository.ReceiptsFilter, terminalID int64) (string, error) {
	if len(selected) == 0 {
		selected = []string{"paid_at", "receipt_id", "customer_name", "payment_method", "installment", "due_date", "amount_paid", "remaining_after", "total_paid", "remaining_debt_after", "operator_name", "notes"}
	}

	tooMany, err := s.repo.HasMoreThan(ctx, maxReceiptsForExport, filter)
	if err != nil {
		return "", err
	}
	if tooMany {
		return "", fmt.Errorf("recibos demais para exportar (mais de %d registros)", maxReceiptsForExport)
	}

	exportID := uuid.NewString()
	now := time.Now()

	status := &ExportStatus{
		Key:      exportID,
		Type:     "receipts",
		Terminal: terminalID,
		Filters:  buildReceiptsFiltersMap(filter, selected),
		Progress: 0,
		FileURL:  nil,
		Created:  now,
	}

	_ = s.saveExportStatus(ctx, status)

	go s.runReceiptsExport(context.Background(), exportID, selected, filter, terminalID, now)

	return exportID, nil
}

func (s *ReceiptExportService) runReceiptsExport(ctx context.Context, exportID string, selected []string, filter repository.ReceiptsFilter, terminalID int64, createdAt time.Time) {
	status := &ExportStatus{
		Key:      exportID,
		Type:     "receipts",
		Terminal: terminalID,
		Filters:  buildReceiptsFiltersMap(filter, selected),
		Progress: 0,
		FileURL:  nil,
		Created:  createdAt,
	}

	fail := func(errStr string) {
		log.Printf("export %s: %s", exportID, errStr)
		status.Error = &errStr
		status.Progress = 100
		_ = s.saveExportStatus(ctx, status)
		if s.ws != nil {
			_ = s.ws.NotifyExportFailed(ctx, terminalID, exportID, errStr)
		}
	}

	receipts, err := s.repo.List(ctx, filter)
	if err != nil {
		fail(fmt.Sprintf("list receipts failed: %v", err))
		return
	}

	ids := make([]string, 0, len(receipts))
	for _, r := range receipts {
		ids = append(ids, r.ID)
	}
	lines, err := s.repo.ListLines(ctx, ids)
	if err != nil {
		fail(fmt.Sprintf("list receipt lines failed: %v", err))
		return
	}

	var rows []receiptRow
	for _, r := range receipts {
		rls := lines[r.ID]
		if len(rls) == 0 {
			rows = append(rows, receiptRow{Receipt: r})
			continue
		}
		for _, l := range rls {
			rows = append(rows, receiptRow{Receipt: r, Line: l})
		}
	}

	var cols []ReceiptColumn
	for _, key := range selected {
		col, ok := receiptColumns[key]
		if !ok {
			continue
		}
		cols = append(cols, col)
	}
	if len(cols) == 0 {
		fail("no valid columns selected")
		return
	}

	f := excelize.NewFile()
	sheet := "Recibos"
	f.SetSheetName(f.GetSheetName(0), sheet)

	_ = f.SetDocProps(&excelize.DocProperties{Creator: fmt.Sprintf("terminal_%d", terminalID)})

	for i, col := range cols {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, col.Header)
	}

	total := len(rows)
	rowIdx := 2
	chunkSize := 1000
	for i, row := range rows {
		for colIdx, col := range cols {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx)
			_ = f.SetCellValue(sheet, cell, col.Value(row))
		}
		rowIdx++

		if (i+1)%chunkSize == 0 || i == total-1 {
			raw := float64(i+1) / float64(total) * 100.0
			progress := math.Round(raw)
			if progress >= 100 {
				progress = 95
			}
			status.Progress = progress
			_ = s.saveExportStatus(ctx, status)
			if s.ws != nil {
				_ = s.ws.NotifyExportProgress(ctx, terminalID, exportID, progress, "generating")
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		fail(fmt.Sprintf("write workbook failed: %v", err))
		return
	}
	data := buf.Bytes()

	fileName := fmt.Sprintf("recibos_%s.xlsx", time.Now().Format("20060102_150405"))

	if s.storage == nil {
		fail("export storage not configured")
		return
	}

	status.Progress = 95
	_ = s.saveExportStatus(ctx, status)
	if s.ws != nil {
		_ = s.ws.NotifyExportProgress(ctx, terminalID, exportID, 95, "uploading")
	}

	savedName, err := s.storage.Save(ctx, fileName, data)
	if err != nil {
		fail(fmt.Sprintf("save export failed: %v", err))
		return
	}

	url := s.storage.GetURL(savedName)
	status.FileURL = &url
	status.Progress = 100
	_ = s.saveExportStatus(ctx, status)
	if s.ws != nil {
		_ = s.ws.NotifyExportProgress(ctx, terminalID, exportID, 100, "ready")
		_ = s.ws.NotifyExportComplete(ctx, terminalID, exportID, url, fileName)
	}
}

func buildReceiptsFiltersMap(f repository.ReceiptsFilter, fields []string) map[string]interface{} {
	m := map[string]interface{}{}
	if f.CustomerID != nil {
		m["customer_id"] = *f.CustomerID
	} else {
		m["customer_id"] = nil
	}
	if f.PaymentMethod != nil {
		m["payment_method"] = *f.PaymentMethod
	} else {
		m["payment_method"] = nil
	}
	if f.OperatorName != nil {
		m["operator_name"] = *f.OperatorName
	} else {
		m["operator_name"] = nil
	}
	if f.PaidFrom != nil {
		m["paid_from"] = f.PaidFrom.Format("2006-01-02")
	} else {
		m["paid_from"] = nil
	}
	if f.PaidTo != nil {
		m["paid_to"] = f.PaidTo.Format("2006-01-02")
	} else {
		m["paid_to"] = nil
	}
	m["fields"] = fields
	return m
}
