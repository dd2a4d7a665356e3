// Package postgres provides PostgreSQL storage for usage records.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/botwire/conversation-gateway/pkg/usage"
)

const (
	defaultRetentionDays = 365
	defaultQueryCapacity = 100
	maxQueryCapacity     = 10000
)

// psq is the PostgreSQL statement builder with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// usageColumns lists columns returned by usage SELECT queries.
var usageColumns = []string{
	"id", "user_id", "company_id", "bot_id", "session_handle",
	"call_id", "input_tokens", "output_tokens", "latency_ms", "occurred_at",
}

// Store implements usage.Store using PostgreSQL.
type Store struct {
	db            *sql.DB
	retentionDays int
	cancel        context.CancelFunc
	done          chan struct{}
}

// Config configures the PostgreSQL usage store.
type Config struct {
	RetentionDays int
}

// New creates a new PostgreSQL usage store.
func New(db *sql.DB, cfg Config) *Store {
	if cfg.RetentionDays == 0 {
		cfg.RetentionDays = defaultRetentionDays
	}
	return &Store{
		db:            db,
		retentionDays: cfg.RetentionDays,
	}
}

// Insert writes a single record.
func (s *Store) Insert(ctx context.Context, rec usage.Record) error {
	query := `
		INSERT INTO usage_records
		(id, user_id, company_id, bot_id, session_handle, call_id, input_tokens, output_tokens, latency_ms, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.UserID,
		rec.CompanyID,
		rec.BotID,
		rec.SessionHandle,
		rec.CallID,
		rec.InputTokens,
		rec.OutputTokens,
		rec.LatencyMS,
		rec.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("inserting usage record: %w", err)
	}
	return nil
}

// applyUsageFilter adds filter conditions to a SELECT builder.
func applyUsageFilter(qb sq.SelectBuilder, filter usage.QueryFilter) sq.SelectBuilder {
	if filter.StartTime != nil {
		qb = qb.Where(sq.GtOrEq{"occurred_at": *filter.StartTime})
	}
	if filter.EndTime != nil {
		qb = qb.Where(sq.LtOrEq{"occurred_at": *filter.EndTime})
	}
	if filter.UserID != "" {
		qb = qb.Where(sq.Eq{"user_id": filter.UserID})
	}
	if filter.CompanyID != "" {
		qb = qb.Where(sq.Eq{"company_id": filter.CompanyID})
	}
	if filter.BotID != "" {
		qb = qb.Where(sq.Eq{"bot_id": filter.BotID})
	}
	return qb
}

// Query retrieves records matching the filter, newest first.
func (s *Store) Query(ctx context.Context, filter usage.QueryFilter) ([]usage.Record, error) {
	qb := applyUsageFilter(psq.Select(usageColumns...).From("usage_records"), filter)
	qb = qb.OrderBy("occurred_at DESC")
	if filter.Limit > 0 {
		qb = qb.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		qb = qb.Offset(uint64(filter.Offset))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building usage query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying usage records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	allocCap := defaultQueryCapacity
	if filter.Limit > 0 && filter.Limit <= maxQueryCapacity {
		allocCap = filter.Limit
	}
	records := make([]usage.Record, 0, allocCap)

	for rows.Next() {
		var rec usage.Record
		err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.CompanyID,
			&rec.BotID,
			&rec.SessionHandle,
			&rec.CallID,
			&rec.InputTokens,
			&rec.OutputTokens,
			&rec.LatencyMS,
			&rec.OccurredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning usage record row: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating usage record rows: %w", err)
	}
	return records, nil
}

// Summarize aggregates records matching the filter.
func (s *Store) Summarize(ctx context.Context, filter usage.QueryFilter) (usage.Summary, error) {
	qb := applyUsageFilter(psq.Select(
		"COUNT(*)",
		"COALESCE(SUM(input_tokens), 0)",
		"COALESCE(SUM(output_tokens), 0)",
	).From("usage_records"), filter)

	query, args, err := qb.ToSql()
	if err != nil {
		return usage.Summary{}, fmt.Errorf("building usage summary query: %w", err)
	}

	var sum usage.Summary
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&sum.Exchanges, &sum.InputTokens, &sum.OutputTokens)
	if err != nil {
		return usage.Summary{}, fmt.Errorf("summarizing usage records: %w", err)
	}
	return sum, nil
}

// Cleanup removes usage records older than the retention period.
func (s *Store) Cleanup(ctx context.Context) error {
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
	query := `DELETE FROM usage_records WHERE occurred_at < $1`
	if _, err := s.db.ExecContext(ctx, query, cutoff); err != nil {
		return fmt.Errorf("cleaning up usage records: %w", err)
	}
	return nil
}

// StartCleanupRoutine starts a background goroutine that periodically
// deletes old usage records. The goroutine is stopped when Close is called.
func (s *Store) StartCleanupRoutine(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = s.Cleanup(ctx)
			}
		}
	}()
}

// Close cancels the cleanup goroutine and waits for it to exit.
// It is safe to call Close even if StartCleanupRoutine was never called.
func (s *Store) Close() error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	return nil
}

// Verify interface compliance.
var _ usage.Store = (*Store)(nil)
