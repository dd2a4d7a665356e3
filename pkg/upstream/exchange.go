package upstream

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	// DefaultMaxWait bounds the completion poll.
	DefaultMaxWait = 60 * time.Second

	// DefaultPollInterval is the delay between completion checks.
	DefaultPollInterval = 500 * time.Millisecond
)

// ExchangeOptions tune the completion poll.
type ExchangeOptions struct {
	MaxWait      time.Duration
	PollInterval time.Duration
}

func (o ExchangeOptions) withDefaults() ExchangeOptions {
	if o.MaxWait <= 0 {
		o.MaxWait = DefaultMaxWait
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	return o
}

// Exchange sends text on a session and polls until the call reaches a
// terminal state. Past MaxWait the call is treated as a timeout.
//
// If the caller's context is abandoned mid-poll, the upstream call is
// allowed to finish in the background so the spent tokens are not
// wasted, but the result is discarded: Exchange returns the context
// error and the caller must not cache anything.
func Exchange(ctx context.Context, svc Service, sessionHandle, text string, opts ExchangeOptions) (*Result, error) {
	opts = opts.withDefaults()
	start := time.Now()

	callID, err := svc.SendMessage(ctx, sessionHandle, text)
	if err != nil {
		return nil, fmt.Errorf("sending message: %w", err)
	}

	deadline := start.Add(opts.MaxWait)
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		completion, err := svc.AwaitCompletion(ctx, sessionHandle, callID)
		if err != nil {
			if ctx.Err() != nil {
				drainInBackground(svc, sessionHandle, callID, deadline, opts.PollInterval)
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("awaiting completion: %w", err)
		}

		switch completion.Status {
		case StatusCompleted:
			return &Result{
				CallID:       callID,
				Answer:       completion.Answer,
				InputTokens:  completion.InputTokens,
				OutputTokens: completion.OutputTokens,
				Latency:      time.Since(start),
			}, nil
		case StatusFailed:
			return nil, fmt.Errorf("call %s: %w", callID, ErrFailed)
		case StatusQueued, StatusRunning:
			// keep polling
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("call %s after %s: %w", callID, opts.MaxWait, ErrTimeout)
		}

		select {
		case <-ctx.Done():
			drainInBackground(svc, sessionHandle, callID, deadline, opts.PollInterval)
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// drainInBackground continues polling an abandoned call on a detached
// context until it terminates or the original deadline passes. The
// outcome is only logged.
func drainInBackground(svc Service, sessionHandle, callID string, deadline time.Time, interval time.Duration) {
	go func() {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), remaining)
		defer cancel()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			completion, err := svc.AwaitCompletion(ctx, sessionHandle, callID)
			if err != nil {
				slog.Debug("abandoned call drain stopped", "call_id", callID, "error", err)
				return
			}
			if completion.Status.Terminal() {
				slog.Debug("abandoned call completed in background",
					"call_id", callID, "status", completion.Status)
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}
