package upstream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testHandle   = "sess-abc"
	testPoll     = 5 * time.Millisecond
	testMaxWait  = 100 * time.Millisecond
	testQuestion = "what is a widget"
)

// scriptedService returns a fixed sequence of completions, then repeats
// the last one.
type scriptedService struct {
	mu          sync.Mutex
	completions []Completion
	idx         int
	sendErr     error
	awaitErr    error
	sendCalls   int
}

func (s *scriptedService) CreateSession(context.Context, string) (string, error) {
	return testHandle, nil
}

func (s *scriptedService) SendMessage(context.Context, string, string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendCalls++
	if s.sendErr != nil {
		return "", s.sendErr
	}
	return "call-1", nil
}

func (s *scriptedService) AwaitCompletion(context.Context, string, string) (*Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.awaitErr != nil {
		return nil, s.awaitErr
	}
	c := s.completions[s.idx]
	if s.idx < len(s.completions)-1 {
		s.idx++
	}
	return &c, nil
}

func (s *scriptedService) DescribeSession(context.Context, string) (*SessionInfo, error) {
	return &SessionInfo{DisplayName: "test"}, nil
}

func TestExchange_CompletesAfterPolling(t *testing.T) {
	svc := &scriptedService{completions: []Completion{
		{Status: StatusQueued},
		{Status: StatusRunning},
		{Status: StatusCompleted, Answer: "42", InputTokens: 10, OutputTokens: 20},
	}}

	res, err := Exchange(context.Background(), svc, testHandle, testQuestion,
		ExchangeOptions{MaxWait: testMaxWait, PollInterval: testPoll})
	require.NoError(t, err)
	assert.Equal(t, "42", res.Answer)
	assert.Equal(t, 10, res.InputTokens)
	assert.Equal(t, 20, res.OutputTokens)
	assert.Equal(t, "call-1", res.CallID)
	assert.Positive(t, res.Latency)
}

func TestExchange_Failed(t *testing.T) {
	svc := &scriptedService{completions: []Completion{{Status: StatusFailed}}}

	_, err := Exchange(context.Background(), svc, testHandle, testQuestion,
		ExchangeOptions{MaxWait: testMaxWait, PollInterval: testPoll})
	assert.ErrorIs(t, err, ErrFailed)
}

func TestExchange_Timeout(t *testing.T) {
	svc := &scriptedService{completions: []Completion{{Status: StatusRunning}}}

	_, err := Exchange(context.Background(), svc, testHandle, testQuestion,
		ExchangeOptions{MaxWait: 20 * time.Millisecond, PollInterval: testPoll})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestExchange_SendError(t *testing.T) {
	sendErr := errors.New("connection refused")
	svc := &scriptedService{sendErr: sendErr}

	_, err := Exchange(context.Background(), svc, testHandle, testQuestion,
		ExchangeOptions{MaxWait: testMaxWait, PollInterval: testPoll})
	assert.ErrorIs(t, err, sendErr)
}

func TestExchange_CallerAbandoned(t *testing.T) {
	svc := &scriptedService{completions: []Completion{{Status: StatusRunning}}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Exchange(ctx, svc, testHandle, testQuestion,
		ExchangeOptions{MaxWait: testMaxWait, PollInterval: testPoll})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStatus_Terminal(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusQueued.Terminal())
	assert.False(t, StatusRunning.Terminal())
}
