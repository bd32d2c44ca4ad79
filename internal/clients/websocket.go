package clients

import (
	"context"
	"fmt"

	ws "montshop-terminal/internal/transport/websocket"

	"github.com/shopspring/decimal"
)

type WebSocketClient struct {
	hub *ws.Hub
}

func NewWebSocketClient(hub *ws.Hub) *WebSocketClient {
	return &WebSocketClient{
		hub: hub,
	}
}

// NotifyDebtSettled tells every connected terminal that a settlement
// completed, so open installment list views refresh. This is the
// out-of-process complement of the in-process onPaid callback.
func (c *WebSocketClient) NotifyDebtSettled(ctx context.Context, customerID, receiptID string, totalPaid decimal.Decimal) {
	if c == nil || c.hub == nil {
		return
	}

	message := &ws.Message{
		Type:    "debt_settled",
		Channel: "installments_refresh",
		Data: map[string]interface{}{
			"customer_id": customerID,
			"receipt_id":  receiptID,
			"total_paid":  totalPaid.StringFixed(2),
		},
	}

	c.hub.BroadcastAll(message)
}

func (c *WebSocketClient) NotifyExportProgress(
	ctx context.Context,
	terminalID int64,
	exportID string,
	progress float64,
	stage string,
) error {
	if c == nil || c.hub == nil {
		return nil
	}

	channel := fmt.Sprintf("notify_terminal_of_export_progress#%d", terminalID)
	data := map[string]interface{}{
		"id":       exportID,
		"progress": progress,
	}
	if stage != "" {
		data["stage"] = stage
	}

	message := &ws.Message{
		Type:    "export_progress",
		Channel: channel,
		Data:    data,
	}

	c.hub.Broadcast(terminalID, message)
	return nil
}

func (c *WebSocketClient) NotifyExportComplete(
	ctx context.Context,
	terminalID int64,
	exportID string,
	url string,
	filename string,
) error {
	if c == nil || c.hub == nil {
		return nil
	}

	channel := fmt.Sprintf("notify_terminal_when_export_complete#%d", terminalID)
	message := &ws.Message{
		Type:    "export_complete",
		Channel: channel,
		Data: map[string]interface{}{
			"id":          exportID,
			"url":         url,
			"filename":    filename,
			"terminal_id": terminalID,
		},
	}

	c.hub.Broadcast(terminalID, message)
	return nil
}

// NotifyExportFailed notifies a terminal that an export failed with the provided error message.
func (c *WebSocketClient) NotifyExportFailed(ctx context.Context, terminalID int64, exportID string, errMsg string) error {
	if c == nil || c.hub == nil {
		return nil
	}

	channel := fmt.Sprintf("notify_terminal_when_export_failed#%d", terminalID)
	message := &ws.Message{
		Type:    "export_failed",
		Channel: channel,
		Data: map[string]interface{}{
			"id":          exportID,
			"message":     errMsg,
			"terminal_id": terminalID,
		},
	}

	c.hub.Broadcast(terminalID, message)
	return nil
}
