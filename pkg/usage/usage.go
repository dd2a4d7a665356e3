// Package usage records per-exchange consumption for billing and
// quota accounting.
package usage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record captures one completed upstream exchange.
type Record struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	CompanyID     string    `json:"company_id,omitempty"`
	BotID         string    `json:"bot_id"`
	SessionHandle string    `json:"session_handle"`
	CallID        string    `json:"call_id"`
	InputTokens   int       `json:"input_tokens"`
	OutputTokens  int       `json:"output_tokens"`
	LatencyMS     int64     `json:"latency_ms"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewRecord creates a usage record with a fresh ID and timestamp.
func NewRecord(userID, botID string) Record {
	return Record{
		ID:         uuid.NewString(),
		UserID:     userID,
		BotID:      botID,
		OccurredAt: time.Now(),
	}
}

// TotalTokens is the combined token consumption of the exchange.
func (r Record) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}

// QueryFilter defines criteria for querying usage records.
type QueryFilter struct {
	StartTime *time.Time
	EndTime   *time.Time
	UserID    string
	CompanyID string
	BotID     string
	Limit     int
	Offset    int
}

// Summary aggregates usage over a filter.
type Summary struct {
	Exchanges    int   `json:"exchanges"`
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Store persists usage records.
type Store interface {
	// Insert writes a single record.
	Insert(ctx context.Context, rec Record) error

	// Query retrieves records matching the filter, newest first.
	Query(ctx context.Context, filter QueryFilter) ([]Record, error)

	// Summarize aggregates records matching the filter.
	Summarize(ctx context.Context, filter QueryFilter) (Summary, error)

	// Close releases resources.
	Close() error
}
