// Package postgres provides PostgreSQL storage for session mappings.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/botwire/conversation-gateway/pkg/session"
)

// Store implements session.Store using PostgreSQL.
type Store struct {
	db     *sql.DB
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a new PostgreSQL session store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Get retrieves the mapping for a (user, bot) pair.
// Returns nil, nil if no mapping exists.
func (s *Store) Get(ctx context.Context, userID, botID string) (*session.Session, error) {
	query := `
		SELECT user_id, bot_id, handle, created_at, last_used_at
		FROM sessions
		WHERE user_id = $1 AND bot_id = $2
	`
	var sess session.Session
	err := s.db.QueryRowContext(ctx, query, userID, botID).Scan(
		&sess.UserID, &sess.BotID, &sess.Handle, &sess.CreatedAt, &sess.LastUsedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil // Store interface specifies nil,nil for not-found
	}
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	return &sess, nil
}

// Put persists a mapping, overwriting any previous one for the pair.
// Last write wins when concurrent creations race.
func (s *Store) Put(ctx context.Context, sess *session.Session) error {
	query := `
		INSERT INTO sessions (user_id, bot_id, handle, created_at, last_used_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, bot_id) DO UPDATE
		SET handle = EXCLUDED.handle,
		    created_at = EXCLUDED.created_at,
		    last_used_at = EXCLUDED.last_used_at
	`
	_, err := s.db.ExecContext(ctx, query,
		sess.UserID, sess.BotID, sess.Handle, sess.CreatedAt, sess.LastUsedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting session: %w", err)
	}
	return nil
}

// Touch updates LastUsedAt for an existing mapping.
func (s *Store) Touch(ctx context.Context, userID, botID string, usedAt time.Time) error {
	query := `
		UPDATE sessions SET last_used_at = $3
		WHERE user_id = $1 AND bot_id = $2 AND last_used_at < $3
	`
	_, err := s.db.ExecContext(ctx, query, userID, botID, usedAt)
	if err != nil {
		return fmt.Errorf("touching session: %w", err)
	}
	return nil
}

// Cleanup removes mappings not used since the cutoff.
func (s *Store) Cleanup(ctx context.Context, cutoff time.Time) error {
	query := `DELETE FROM sessions WHERE last_used_at < $1`
	_, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return fmt.Errorf("cleaning up sessions: %w", err)
	}
	return nil
}

// StartCleanupRoutine starts a background goroutine that periodically
// removes mappings idle for longer than maxIdle. Stale mappings are
// superseded in place on the hot path; this only trims long-dead rows.
// The goroutine is stopped when Close is called.
func (s *Store) StartCleanupRoutine(interval, maxIdle time.Duration) {
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
				if err := s.Cleanup(ctx, time.Now().Add(-maxIdle)); err != nil {
					slog.Warn("session cleanup failed", "error", err)
				}
			}
		}
	}()
}

// Close stops the cleanup goroutine and waits for it to exit.
// It is safe to call Close even if StartCleanupRoutine was never called.
func (s *Store) Close() error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	return nil
}

// Verify interface compliance.
var _ session.Store = (*Store)(nil)
