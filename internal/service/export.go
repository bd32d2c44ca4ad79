package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"montshop-terminal/internal/clients"
)

// ExportStatus is the Redis-tracked state of one async export. Key is
// the caller-facing export id, not the Redis key.
type ExportStatus struct {
	Key      string    `json:"key"`
	Type     string    `json:"type"`
	Terminal int64     `json:"terminal_id"`
	Filters  any       `json:"filters"`
	Progress float64   `json:"progress"`
	FileURL  *string   `json:"file_url"`
	Error    *string   `json:"error,omitempty"`
	Created  time.Time `json:"created_at"`
}

const (
	exportKeyPrefix = "exports:"
	exportSetKey    = "export_ids"
	exportTTL       = 20 * time.Minute
)

// exportKey resolves a caller-facing export id to its Redis key. Key
// shapes never leave this package; handlers and clients see bare ids.
func exportKey(id string) string {
	return exportKeyPrefix + id
}

// ExportService lists and resolves export statuses for a terminal.
type ExportService struct {
	redis *clients.RedisClient
}

func NewExportService(redis *clients.RedisClient) *ExportService {
	return &ExportService{redis: redis}
}

func (s *ExportService) GetExports(ctx context.Context, terminalID int64) ([]interface{}, error) {
	if s.redis == nil {
		return nil, errors.New("redis client not configured")
	}

	ids, err := s.redis.SMembers(ctx, exportSetKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get export ids: %w", err)
	}

	var statuses []ExportStatus
	for _, id := range ids {
		data, err := s.redis.Get(ctx, exportKey(id))
		if err != nil {
			continue
		}

		var status ExportStatus
		if err := json.Unmarshal([]byte(data), &status); err != nil {
			continue
		}

		if status.Terminal == terminalID {
			statuses = append(statuses, status)
		}
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Created.After(statuses[j].Created)
	})

	var exports []interface{}
	for _, status := range statuses {
		exports = append(exports, exportMap(status))
	}

	return exports, nil
}

func (s *ExportService) GetExport(ctx context.Context, exportID string, terminalID int64) (interface{}, error) {
	if s.redis == nil {
		return nil, errors.New("redis client not configured")
	}

	data, err := s.redis.Get(ctx, exportKey(exportID))
	if err != nil {
		return nil, errors.New("export not found")
	}

	var status ExportStatus
	if err := json.Unmarshal([]byte(data), &status); err != nil {
		return nil, fmt.Errorf("failed to parse export status: %w", err)
	}

	if status.Terminal != terminalID {
		return nil, errors.New("export not found")
	}

	return exportMap(status), nil
}

func exportMap(status ExportStatus) map[string]interface{} {
	return map[string]interface{}{
		"key":         status.Key,
		"type":        status.Type,
		"terminal_id": status.Terminal,
		"progress":    status.Progress,
		"file_url":    status.FileURL,
		"filters":     status.Filters,
		"created_at":  humanizePtAgo(status.Created),
	}
}

// humanizePtAgo renders how long ago t was, in the operators' language.
func humanizePtAgo(t time.Time) string {
	now := time.Now()
	if t.After(now) {
		return "agora mesmo"
	}

	diff := now.Sub(t)
	minutes := int(diff.Minutes())
	if minutes < 1 {
		return "agora mesmo"
	}
	if minutes < 60 {
		return fmt.Sprintf("há %d %s", minutes, ptPlural(minutes, "minuto", "minutos"))
	}
	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("há %d %s", hours, ptPlural(hours, "hora", "horas"))
	}
	days := hours / 24
	if days < 30 {
		return fmt.Sprintf("há %d %s", days, ptPlural(days, "dia", "dias"))
	}
	return t.Format("02/01/2006 15:04")
}

func ptPlural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
