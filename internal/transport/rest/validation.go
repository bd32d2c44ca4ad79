package rest

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"montshop-terminal/internal/domain"
	"montshop-terminal/internal/repository"

	"github.com/shopspring/decimal"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type PayBulkRequest struct {
	PaymentMethod domain.PaymentMethod
	Notes         string
	CustomerName  string
	PayAll        bool
	Installments  []domain.InstallmentPayment
}

type rawPayBulkRequest struct {
	PaymentMethod interface{}             `json:"payment_method"`
	Notes         interface{}             `json:"notes"`
	CustomerName  interface{}             `json:"customer_name"`
	PayAll        interface{}             `json:"pay_all"`
	Installments  []rawInstallmentPayment `json:"installments"`
}

type rawInstallmentPayment struct {
	InstallmentID interface{} `json:"installment_id"`
	Amount        interface{} `json:"amount"`
}

// ValidatePayBulkRequest parses and validates the settlement submission.
// The two submission modes are mutually exclusive: an explicit list of
// pairs or the pay-all flag.
func ValidatePayBulkRequest(r *http.Request) (*PayBulkRequest, error) {
	var raw rawPayBulkRequest
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil && err != io.EOF {
		return nil, err
	}

	methodStr, err := toStringValue(raw.PaymentMethod)
	if err != nil || methodStr == "" {
		return nil, &ValidationError{Field: "payment_method", Message: "payment_method is required"}
	}
	method := domain.PaymentMethod(methodStr)
	if !method.Valid() {
		return nil, &ValidationError{Field: "payment_method", Message: "payment_method must be one of cash, pix, credit_card, debit_card"}
	}

	notes, err := toStringValue(raw.Notes)
	if err != nil {
		return nil, &ValidationError{Field: "notes", Message: "notes must be string or empty"}
	}

	customerName, err := toStringValue(raw.CustomerName)
	if err != nil {
		return nil, &ValidationError{Field: "customer_name", Message: "customer_name must be string or empty"}
	}

	payAll, err := toBoolValue(raw.PayAll)
	if err != nil {
		return nil, &ValidationError{Field: "pay_all", Message: "pay_all must be boolean or empty"}
	}

	var pairs []domain.InstallmentPayment
	seen := make(map[string]bool, len(raw.Installments))
	for _, p := range raw.Installments {
		id, err := toStringValue(p.InstallmentID)
		if err != nil || id == "" {
			return nil, &ValidationError{Field: "installments", Message: "installment_id is required on every pair"}
		}
		if seen[id] {
			return nil, &ValidationError{Field: "installments", Message: "installment_id must not repeat in the list"}
		}
		seen[id] = true
		amount, err := toDecimal(p.Amount)
		if err != nil {
			return nil, &ValidationError{Field: "installments", Message: "amount must be a positive number"}
		}
		if !amount.IsPositive() {
			return nil, &ValidationError{Field: "installments", Message: "amount must be greater than zero"}
		}
		pairs = append(pairs, domain.InstallmentPayment{InstallmentID: id, Amount: amount.Round(2)})
	}

	if payAll && len(pairs) > 0 {
		return nil, &ValidationError{Field: "pay_all", Message: "pay_all and installments are mutually exclusive"}
	}
	if !payAll && len(pairs) == 0 {
		return nil, &ValidationError{Field: "installments", Message: "Selecione ao menos uma parcela com valor maior que zero"}
	}

	return &PayBulkRequest{
		PaymentMethod: method,
		Notes:         notes,
		CustomerName:  customerName,
		PayAll:        payAll,
		Installments:  pairs,
	}, nil
}

type ReceiptsExportRequest struct {
	Fields        []string
	CustomerID    *string
	PaymentMethod *string
	OperatorName  *string
	PaidFrom      *time.Time
	PaidTo        *time.Time
}

type rawReceiptsExportRequest struct {
	Fields        []string    `json:"fields"`
	CustomerID    interface{} `json:"customer_id"`
	PaymentMethod interface{} `json:"payment_method"`
	OperatorName  interface{} `json:"operator_name"`
	PaidFrom      interface{} `json:"paid_from"`
	PaidTo        interface{} `json:"paid_to"`
}

// ValidateReceiptsExportRequest parses and validates JSON input for the
// receipts export.
func ValidateReceiptsExportRequest(r *http.Request) (*ReceiptsExportRequest, error) {
	var raw rawReceiptsExportRequest
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil && err != io.EOF {
		return nil, err
	}
	if len(raw.Fields) == 0 {
		return nil, &ValidationError{Field: "fields", Message: "fields is required and must be an array"}
	}

	customerID, err := toStringPtr(raw.CustomerID)
	if err != nil {
		return nil, &ValidationError{Field: "customer_id", Message: "customer_id must be string or empty"}
	}

	paymentMethod, err := toStringPtr(raw.PaymentMethod)
	if err != nil {
		return nil, &ValidationError{Field: "payment_method", Message: "payment_method must be string or empty"}
	}
	if paymentMethod != nil && !domain.PaymentMethod(*paymentMethod).Valid() {
		return nil, &ValidationError{Field: "payment_method", Message: "payment_method must be one of cash, pix, credit_card, debit_card"}
	}

	operatorName, err := toStringPtr(raw.OperatorName)
	if err != nil {
		return nil, &ValidationError{Field: "operator_name", Message: "operator_name must be string or empty"}
	}

	paidFrom, err := toDatePtr(raw.PaidFrom)
	if err != nil {
		return nil, &ValidationError{Field: "paid_from", Message: "paid_from must be YYYY-MM-DD or empty"}
	}
	paidTo, err := toDatePtr(raw.PaidTo)
	if err != nil {
		return nil, &ValidationError{Field: "paid_to", Message: "paid_to must be YYYY-MM-DD or empty"}
	}

	return &ReceiptsExportRequest{
		Fields:        raw.Fields,
		CustomerID:    customerID,
		PaymentMethod: paymentMethod,
		OperatorName:  operatorName,
		PaidFrom:      paidFrom,
		PaidTo:        paidTo,
	}, nil
}

func (r *ReceiptsExportRequest) ToRepositoryFilter() repository.ReceiptsFilter {
	return repository.ReceiptsFilter{
		CustomerID:    r.CustomerID,
		PaymentMethod: r.PaymentMethod,
		OperatorName:  r.OperatorName,
		PaidFrom:      r.PaidFrom,
		PaidTo:        r.PaidTo,
	}
}

func toStringValue(v interface{}) (string, error) {
	s, err := toStringPtr(v)
	if err != nil {
		return "", err
	}
	if s == nil {
		return "", nil
	}
	return *s, nil
}

func toStringPtr(v interface{}) (*string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		if t == "" {
			return nil, nil
		}
		return &t, nil
	case float64:
		i := int64(t)
		s := strconv.FormatInt(i, 10)
		return &s, nil
	default:
		return nil, &ValidationError{Message: "invalid type for string field"}
	}
}

func toBoolValue(v interface{}) (bool, error) {
	switch t := v.(type) {
	case nil:
		return false, nil
	case bool:
		return t, nil
	case string:
		if t == "" {
			return false, nil
		}
		parsed, err := strconv.ParseBool(t)
		if err != nil {
			return false, err
		}
		return parsed, nil
	default:
		return false, &ValidationError{Message: "invalid type for bool field"}
	}
}

// toDecimal accepts JSON numbers and "12,50"-style strings, the same
// shapes the amount fields accept in the UI.
func toDecimal(v interface{}) (decimal.Decimal, error) {
	switch t := v.(type) {
	case float64:
		return decimal.NewFromFloat(t), nil
	case string:
		normalized := strings.ReplaceAll(strings.TrimSpace(t), ",", ".")
		return decimal.NewFromString(normalized)
	default:
		return decimal.Zero, &ValidationError{Message: "invalid type for amount field"}
	}
}

func toDatePtr(v interface{}) (*time.Time, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		if t == "" {
			return nil, nil
		}
		parsed, err := time.Parse("2006-01-02", t)
		if err != nil {
			return nil, err
		}
		return &parsed, nil
	default:
		return nil, &ValidationError{Message: "invalid type for date field"}
	}
}
