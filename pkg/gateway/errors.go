package gateway

import "fmt"

// Kind is a machine-readable request-failure code.
type Kind string

const (
	// KindNoCompany means the caller belongs to no company.
	KindNoCompany Kind = "NO_COMPANY"

	// KindNoCompanyLicense means the caller's company holds no active
	// license for the bot.
	KindNoCompanyLicense Kind = "NO_COMPANY_LICENSE"

	// KindAccessDenied means the caller has no grant on the license.
	KindAccessDenied Kind = "ACCESS_DENIED"

	// KindQuotaExceeded means the license's monthly quota is spent.
	KindQuotaExceeded Kind = "QUOTA_EXCEEDED"

	// KindBotNotConfigured means no upstream mapping exists for the bot.
	KindBotNotConfigured Kind = "BOT_NOT_CONFIGURED"

	// KindUpstreamTimeout means the upstream call did not finish within
	// the maximum wait. Retryable.
	KindUpstreamTimeout Kind = "UPSTREAM_TIMEOUT"

	// KindUpstreamFailed means the upstream reported a terminal failure.
	// Retryable.
	KindUpstreamFailed Kind = "UPSTREAM_FAILED"

	// KindSessionUnavailable means session creation failed even on the
	// fresh-creation fallback.
	KindSessionUnavailable Kind = "SESSION_UNAVAILABLE"

	// KindStoreUnavailable means a datastore the request cannot proceed
	// without is unreachable.
	KindStoreUnavailable Kind = "STORE_UNAVAILABLE"
)

// Error is a typed request failure reported to the caller.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Retryable reports whether the caller may retry the same request.
func (e *Error) Retryable() bool {
	return e.Kind == KindUpstreamTimeout || e.Kind == KindUpstreamFailed
}
