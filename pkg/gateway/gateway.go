// Package gateway orchestrates a caller's question through the
// response cache, authorization, session affinity, and the upstream
// conversational-AI service.
package gateway

import (
	"context"
	"errors"
	"log/slog"

	"github.com/botwire/conversation-gateway/pkg/bots"
	"github.com/botwire/conversation-gateway/pkg/prefs"
	"github.com/botwire/conversation-gateway/pkg/quota"
	"github.com/botwire/conversation-gateway/pkg/respcache"
	"github.com/botwire/conversation-gateway/pkg/session"
	"github.com/botwire/conversation-gateway/pkg/upstream"
	"github.com/botwire/conversation-gateway/pkg/usage"
)

// Request is one caller question.
type Request struct {
	UserID   string
	Role     quota.Role
	BotID    string
	Question string

	// Preferences carries explicit per-request overrides. Non-zero
	// fields win over the caller's stored preferences.
	Preferences *prefs.Preferences
}

// Answer is a successful response.
type Answer struct {
	Text       string `json:"text"`
	TokensUsed int    `json:"tokens_used"`
	Cached     bool   `json:"cached"`
	CallID     string `json:"call_id,omitempty"`
}

// Gateway wires the components of the request path together. One
// instance serves all requests; every collaborator is injected.
type Gateway struct {
	bots     *bots.Catalog
	resolver *prefs.Resolver
	cache    *respcache.Cache
	guard    *quota.Guard
	sessions *session.Cache
	upstream upstream.Service
	recorder *usage.Recorder
	exchange upstream.ExchangeOptions
	logger   *slog.Logger
}

// Config holds the gateway's tunables.
type Config struct {
	Exchange upstream.ExchangeOptions
	Logger   *slog.Logger
}

// New creates a gateway.
func New(
	catalog *bots.Catalog,
	resolver *prefs.Resolver,
	cache *respcache.Cache,
	guard *quota.Guard,
	sessions *session.Cache,
	svc upstream.Service,
	recorder *usage.Recorder,
	cfg Config,
) *Gateway {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		bots:     catalog,
		resolver: resolver,
		cache:    cache,
		guard:    guard,
		sessions: sessions,
		upstream: svc,
		recorder: recorder,
		exchange: cfg.Exchange,
		logger:   logger,
	}
}

// Ask answers a caller's question. A cached answer is returned with
// zero tokens used and skips authorization entirely; a cache miss is
// authorized, sent upstream on the caller's session, cached, and
// recorded. Failures are *Error values carrying a Kind.
func (g *Gateway) Ask(ctx context.Context, req Request) (*Answer, error) {
	bot, ok := g.bots.Lookup(req.BotID)
	if !ok {
		return nil, &Error{
			Kind:    KindBotNotConfigured,
			Message: "no upstream mapping for bot " + req.BotID,
		}
	}

	resolved := g.resolver.Resolve(ctx, req.UserID, req.BotID)
	if req.Preferences != nil {
		resolved = resolved.Merge(*req.Preferences)
	}

	key, class := respcache.BuildKey(req.BotID, req.Question,
		string(resolved.Style), string(resolved.DetailLevel))

	if answer, hit := g.cache.Get(ctx, key); hit {
		g.logger.Debug("answer served from cache",
			"bot_id", req.BotID, "class", string(class))
		return &Answer{Text: answer, TokensUsed: 0, Cached: true}, nil
	}

	authz, err := g.guard.Authorize(ctx, quota.Caller{UserID: req.UserID, Role: req.Role}, req.BotID)
	if err != nil {
		return nil, g.mapAuthorizeError(err)
	}

	handle, err := g.sessions.Acquire(ctx, req.UserID, req.BotID, bot.AgentRef)
	if err != nil {
		return nil, &Error{
			Kind:    KindSessionUnavailable,
			Message: "could not obtain a session: " + err.Error(),
		}
	}

	text := prefs.BuildInstructions(bot.Preamble, resolved) + "\n\n" + req.Question
	result, err := upstream.Exchange(ctx, g.upstream, handle, text, g.exchange)
	if err != nil {
		return nil, g.mapExchangeError(err)
	}

	g.cache.Set(ctx, key, result.Answer, class, 0)
	g.recordUsage(req, authz, handle, result)

	return &Answer{
		Text:       result.Answer,
		TokensUsed: result.InputTokens + result.OutputTokens,
		CallID:     result.CallID,
	}, nil
}

func (g *Gateway) mapAuthorizeError(err error) *Error {
	var denied *quota.DeniedError
	if errors.As(err, &denied) {
		return &Error{Kind: Kind(denied.Reason), Message: denied.Message}
	}
	return &Error{
		Kind:    KindStoreUnavailable,
		Message: "authorization could not be evaluated: " + err.Error(),
	}
}

func (g *Gateway) mapExchangeError(err error) *Error {
	if errors.Is(err, upstream.ErrTimeout) {
		return &Error{Kind: KindUpstreamTimeout, Message: err.Error()}
	}
	return &Error{Kind: KindUpstreamFailed, Message: err.Error()}
}

// recordUsage dispatches the fire-and-forget usage write. Exchanges
// that consumed no tokens are not recorded.
func (g *Gateway) recordUsage(req Request, authz *quota.Context, handle string, result *upstream.Result) {
	if result.InputTokens+result.OutputTokens == 0 {
		return
	}

	rec := usage.NewRecord(req.UserID, req.BotID)
	rec.CompanyID = authz.CompanyID
	rec.SessionHandle = handle
	rec.CallID = result.CallID
	rec.InputTokens = result.InputTokens
	rec.OutputTokens = result.OutputTokens
	rec.LatencyMS = result.Latency.Milliseconds()

	// Operators carry no license, so their usage is recorded without
	// touching any quota counter.
	g.recorder.Record(rec, authz.LicenseID)
}
