package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"montshop-terminal/internal/domain"

	"github.com/shopspring/decimal"
)

type ReceiptsFilter struct {
	CustomerID    *string
	PaymentMethod *string
	OperatorName  *string
	PaidFrom      *time.Time
	PaidTo        *time.Time
}

// ReceiptRepository persists the local settlement journal: one row per
// receipt plus one per settled installment line.
type ReceiptRepository struct {
	db *sql.DB
}

func NewReceiptRepository(db *sql.DB) *ReceiptRepository {
	return &ReceiptRepository{db: db}
}

// Record inserts a receipt with its lines in one transaction.
func (r *ReceiptRepository) Record(ctx context.Context, rec domain.Receipt) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var remaining, otherDebts decimal.NullDecimal
	if rec.RemainingDebtAfter != nil {
		remaining = decimal.NullDecimal{Decimal: *rec.RemainingDebtAfter, Valid: true}
	}
	if rec.OtherDebtsAfter != nil {
		otherDebts = decimal.NullDecimal{Decimal: *rec.OtherDebtsAfter, Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO receipts (id, customer_id, customer_name, payment_method, notes, total_paid, remaining_debt_after, other_debts_after, operator_name, paid_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())`,
		rec.ID,
		rec.CustomerID,
		rec.CustomerName,
		string(rec.PaymentMethod),
		rec.Notes,
		rec.TotalPaid,
		remaining,
		otherDebts,
		rec.OperatorName,
		rec.PaidAt,
	)
	if err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}

	for _, line := range rec.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO receipt_lines (receipt_id, installment_id, installment_number, total_installments, due_date, amount_paid, remaining_after)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			rec.ID,
			line.InstallmentID,
			line.InstallmentNumber,
			line.TotalInstallments,
			line.DueDate,
			line.AmountPaid,
			line.RemainingAfter,
		)
		if err != nil {
			return fmt.Errorf("insert receipt line: %w", err)
		}
	}

	return tx.Commit()
}

// GetByID loads one receipt with its lines.
func (r *ReceiptRepository) GetByID(ctx context.Context, id string) (domain.Receipt, error) {
	var rec domain.Receipt
	var remaining, otherDebts decimal.NullDecimal
	var createdAt sql.NullTime
	var method string

	err := r.db.QueryRowContext(ctx, `
		SELECT id, customer_id, customer_name, payment_method, notes, total_paid, remaining_debt_after, other_debts_after, operator_name, paid_at, created_at
		FROM receipts WHERE id = $1`, id).Scan(
		&rec.ID,
		&rec.CustomerID,
		&rec.CustomerName,
		&method,
		&rec.Notes,
		&rec.TotalPaid,
		&remaining,
		&otherDebts,
		&rec.OperatorName,
		&rec.PaidAt,
		&createdAt,
	)
	if err != nil {
		return domain.Receipt{}, err
	}
	rec.PaymentMethod = domain.PaymentMethod(method)
	if remaining.Valid {
		v := remaining.Decimal
		rec.RemainingDebtAfter = &v
	}
	if otherDebts.Valid {
		v := otherDebts.Decimal
		rec.OtherDebtsAfter = &v
	}
	if createdAt.Valid {
		t := createdAt.Time
		rec.CreatedAt = &t
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT installment_id, installment_number, total_installments, due_date, amount_paid, remaining_after
		FROM receipt_lines WHERE receipt_id = $1
		ORDER BY installment_number`, id)
	if err != nil {
		return domain.Receipt{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.ReceiptLine
		if err := rows.Scan(
			&line.InstallmentID,
			&line.InstallmentNumber,
			&line.TotalInstallments,
			&line.DueDate,
			&line.AmountPaid,
			&line.RemainingAfter,
		); err != nil {
			return domain.Receipt{}, err
		}
		rec.Lines = append(rec.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return domain.Receipt{}, err
	}

	return rec, nil
}

// List returns receipts matching the filter, newest first, without lines.
func (r *ReceiptRepository) List(ctx context.Context, f ReceiptsFilter) ([]domain.Receipt, error) {
	base := `SELECT id, customer_id, customer_name, payment_method, notes, total_paid, remaining_debt_after, other_debts_after, operator_name, paid_at, created_at FROM receipts`

	where, args := buildReceiptsWhere(f, 1)
	query := base + " WHERE " + strings.Join(where, " AND ") + " ORDER BY paid_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Receipt
	for rows.Next() {
		var rec domain.Receipt
		var remaining, otherDebts decimal.NullDecimal
		var createdAt sql.NullTime
		var method string
		if err := rows.Scan(
			&rec.ID,
			&rec.CustomerID,
			&rec.CustomerName,
			&method,
			&rec.Notes,
			&rec.TotalPaid,
			&remaining,
			&otherDebts,
			&rec.OperatorName,
			&rec.PaidAt,
			&createdAt,
		); err != nil {
			return nil, err
		}
		rec.PaymentMethod = domain.PaymentMethod(method)
		if remaining.Valid {
			v := remaining.Decimal
			rec.RemainingDebtAfter = &v
		}
		if otherDebts.Valid {
			v := otherDebts.Decimal
			rec.OtherDebtsAfter = &v
		}
		if createdAt.Valid {
			t := createdAt.Time
			rec.CreatedAt = &t
		}
		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListLines returns the lines of many receipts keyed by receipt id, for
// the export flattening.
func (r *ReceiptRepository) ListLines(ctx context.Context, receiptIDs []string) (map[string][]domain.ReceiptLine, error) {
	out := make(map[string][]domain.ReceiptLine)
	if len(receiptIDs) == 0 {
		return out, nil
	}

	placeholders := make([]string, len(receiptIDs))
	args := make([]any, len(receiptIDs))
	for i, id := range receiptIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := `SELECT receipt_id, installment_id, installment_number, total_installments, due_date, amount_paid, remaining_after
		FROM receipt_lines WHERE receipt_id IN (` + strings.Join(placeholders, ", ") + `) ORDER BY receipt_id, installment_number`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var receiptID string
		var line domain.ReceiptLine
		if err := rows.Scan(
			&receiptID,
			&line.InstallmentID,
			&line.InstallmentNumber,
			&line.TotalInstallments,
			&line.DueDate,
			&line.AmountPaid,
			&line.RemainingAfter,
		); err != nil {
			return nil, err
		}
		out[receiptID] = append(out[receiptID], line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// HasMoreThan reports whether the filter matches more than limit receipts.
func (r *ReceiptRepository) HasMoreThan(ctx context.Context, limit int64, f ReceiptsFilter) (bool, error) {
	base := `SELECT COUNT(*) > $1 FROM receipts`

	where, args := buildReceiptsWhere(f, 2)
	args = append([]any{limit}, args...)
	query := base + " WHERE " + strings.Join(where, " AND ")

	var tooMany bool
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&tooMany); err != nil {
		return false, err
	}
	return tooMany, nil
}

func buildReceiptsWhere(f ReceiptsFilter, firstArg int) ([]string, []any) {
	where := []string{"1=1"}
	args := []any{}
	i := firstArg

	if f.CustomerID != nil && *f.CustomerID != "" {
		where = append(where, fmt.Sprintf("customer_id = $%d", i))
		args = append(args, *f.CustomerID)
		i++
	}
	if f.PaymentMethod != nil && *f.PaymentMethod != "" {
		where = append(where, fmt.Sprintf("payment_method = $%d", i))
		args = append(args, *f.PaymentMethod)
		i++
	}
	if f.OperatorName != nil && *f.OperatorName != "" {
		where = append(where, fmt.Sprintf("operator_name = $%d", i))
		args = append(args, *f.OperatorName)
		i++
	}
	if f.PaidFrom != nil {
		where = append(where, fmt.Sprintf("paid_at >= $%d", i))
		args = append(args, *f.PaidFrom)
		i++
	}
	if f.PaidTo != nil {
		where = append(where, fmt.Sprintf("paid_at <= $%d", i))
		args = append(args, *f.PaidTo)
		i++
	}

	return where, args
}
