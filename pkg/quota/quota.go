// Package quota enforces the layered authorization policy: operator
// bypass, company license validity, user grant, and monthly quota. The
// check sequence is idempotent and side-effect free; accounting happens
// only after a successful upstream call, via the usage recorder.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/botwire/conversation-gateway/pkg/license"
)

// Role is the caller's privilege level.
type Role string

const (
	// RoleUser is an ordinary end user subject to all checks.
	RoleUser Role = "user"

	// RoleOperator bypasses every license and quota check.
	RoleOperator Role = "operator"
)

// Caller identifies the requester. Identity verification happens
// before the gateway; the role arrives already established.
type Caller struct {
	UserID string
	Role   Role
}

// Reason is a machine-readable denial code.
type Reason string

const (
	ReasonNoCompany        Reason = "NO_COMPANY"
	ReasonNoCompanyLicense Reason = "NO_COMPANY_LICENSE"
	ReasonAccessDenied     Reason = "ACCESS_DENIED"
	ReasonQuotaExceeded    Reason = "QUOTA_EXCEEDED"
)

// DeniedError is a terminal authorization rejection. No upstream call
// is attempted after one.
type DeniedError struct {
	Reason  Reason
	Message string

	// Usage figures, populated for quota rejections.
	Used      int
	Max       int
	Remaining int
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

// ErrStoreUnavailable means the license store could not answer.
// Authorization cannot be skipped, so this is fatal for the request.
var ErrStoreUnavailable = errors.New("license store unavailable")

// Context is the authorization outcome consumed by accounting. It is
// immutable once produced and never persisted here.
type Context struct {
	UserID      string
	Role        Role
	CompanyID   string
	LicenseID   string
	BotID       string
	MonthlyUsed int
	MonthlyMax  int

	// Unlimited marks an operator bypass: no quota applies and no
	// counter is ever incremented for the call.
	Unlimited bool
}

// Guard evaluates the authorization chain.
type Guard struct {
	store license.Store
	now   func() time.Time
}

// NewGuard creates a guard over the license store.
func NewGuard(store license.Store) *Guard {
	return &Guard{store: store, now: time.Now}
}

// Authorize runs the checks in strict order, short-circuiting on the
// first decision:
//
//  1. operator bypass
//  2. company membership
//  3. active company license for the bot
//  4. active user grant on that license
//  5. monthly quota headroom
//
// A *DeniedError rejection is terminal; an ErrStoreUnavailable wrap
// means the chain could not be evaluated at all.
func (g *Guard) Authorize(ctx context.Context, caller Caller, botID string) (*Context, error) {
	if caller.Role == RoleOperator {
		return &Context{
			UserID:    caller.UserID,
			Role:      caller.Role,
			BotID:     botID,
			Unlimited: true,
		}, nil
	}

	company, err := g.store.CompanyForUser(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving company: %v", ErrStoreUnavailable, err)
	}
	if company == nil {
		return nil, &DeniedError{
			Reason:  ReasonNoCompany,
			Message: fmt.Sprintf("user %s belongs to no company", caller.UserID),
		}
	}

	lic, err := g.store.ActiveLicense(ctx, company.ID, botID)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving license: %v", ErrStoreUnavailable, err)
	}
	if lic == nil {
		return nil, &DeniedError{
			Reason:  ReasonNoCompanyLicense,
			Message: fmt.Sprintf("company %s holds no active license for bot %s", company.ID, botID),
		}
	}

	grant, err := g.store.GrantFor(ctx, caller.UserID, lic.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving grant: %v", ErrStoreUnavailable, err)
	}
	if grant == nil {
		return nil, &DeniedError{
			Reason:  ReasonAccessDenied,
			Message: fmt.Sprintf("user %s has no active grant for bot %s", caller.UserID, botID),
		}
	}

	used, err := g.store.MonthlyUsage(ctx, lic.ID, g.now())
	if err != nil {
		return nil, fmt.Errorf("%w: resolving monthly usage: %v", ErrStoreUnavailable, err)
	}
	if used >= lic.MonthlyMax {
		return nil, &DeniedError{
			Reason:    ReasonQuotaExceeded,
			Message:   fmt.Sprintf("license %s monthly quota exhausted", lic.ID),
			Used:      used,
			Max:       lic.MonthlyMax,
			Remaining: 0,
		}
	}

	return &Context{
		UserID:      caller.UserID,
		Role:        caller.Role,
		CompanyID:   company.ID,
		LicenseID:   lic.ID,
		BotID:       botID,
		MonthlyUsed: used,
		MonthlyMax:  lic.MonthlyMax,
	}, nil
}
