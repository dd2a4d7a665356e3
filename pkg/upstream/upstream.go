// Package upstream defines the interface to the conversational-AI
// service, an HTTP client speaking its JSON API, and a bounded helper
// for completing a message exchange.
package upstream

import (
	"context"
	"errors"
	"time"
)

// Status is the state of an in-flight upstream call.
type Status string

const (
	// StatusQueued means the call is waiting to be scheduled.
	StatusQueued Status = "queued"

	// StatusRunning means the call is being processed.
	StatusRunning Status = "running"

	// StatusCompleted means the call finished with an answer.
	StatusCompleted Status = "completed"

	// StatusFailed means the call finished without an answer.
	StatusFailed Status = "failed"
)

// Terminal returns true when the status will not change again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Completion is one observation of an upstream call's state.
type Completion struct {
	Status       Status
	Answer       string
	InputTokens  int
	OutputTokens int
}

// SessionInfo describes an upstream session. Used for configuration
// diagnostics only, never in the request hot path.
type SessionInfo struct {
	DisplayName  string
	Capabilities []string
}

// Service is the upstream conversational-AI service.
type Service interface {
	// CreateSession opens a new conversation session for the given agent
	// and returns its opaque handle.
	CreateSession(ctx context.Context, agentRef string) (string, error)

	// SendMessage submits text on a session and returns a call ID.
	SendMessage(ctx context.Context, sessionHandle, text string) (string, error)

	// AwaitCompletion reports the current state of a call. Callers poll
	// it until the status is terminal.
	AwaitCompletion(ctx context.Context, sessionHandle, callID string) (*Completion, error)

	// DescribeSession returns diagnostic information about a session.
	DescribeSession(ctx context.Context, sessionHandle string) (*SessionInfo, error)
}

// Sentinel errors surfaced by Exchange. Both are retryable for callers.
var (
	// ErrTimeout means the call did not reach a terminal state within
	// the maximum wait.
	ErrTimeout = errors.New("upstream call timed out")

	// ErrFailed means the upstream reported a terminal failure.
	ErrFailed = errors.New("upstream call failed")
)

// Result is a completed exchange.
type Result struct {
	CallID       string
	Answer       string
	InputTokens  int
	OutputTokens int
	Latency      time.Duration
}
