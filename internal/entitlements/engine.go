package entitlements

import (
	"time"

	"clubdesk/internal/plans"
)

// Engine answers feature, quota and lifecycle questions for one
// organization. It is built per request or render pass from values the
// caller already loaded, holds private copies of them, and is safe to share
// between goroutines. Every method is total: a nil Engine behaves like a
// Free organization without a subscription.
type Engine struct {
	sub   *Subscription
	plan  plans.Plan
	usage Usage
	now   func() time.Time
	audit AuditHook
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the time source used by lifecycle checks.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithAudit routes decisions to hook.
func WithAudit(hook AuditHook) Option {
	return func(e *Engine) {
		if hook != nil {
			e.audit = hook
		}
	}
}

// New builds an Engine. A nil plan means the Free catalog entry, a nil
// usage means zero consumption and a nil subscription means the
// organization has no commercial relationship.
func New(sub *Subscription, plan *plans.Plan, usage *Usage, opts ...Option) *Engine {
	e := &Engine{
		plan:  plans.Lookup(plans.Free),
		now:   time.Now,
		audit: NoopAudit{},
	}
	if sub != nil {
		c := sub.clone()
		e.sub = &c
	}
	if plan != nil {
		e.plan = *plan
	}
	if usage != nil {
		e.usage = *usage
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ForSubscription resolves the plan from the catalog using sub.Tier. A nil
// sub yields the Free plan.
func ForSubscription(sub *Subscription, usage *Usage, opts ...Option) *Engine {
	var plan *plans.Plan
	if sub != nil {
		p := plans.Lookup(sub.Tier)
		plan = &p
	}
	return New(sub, plan, usage, opts...)
}

func (e *Engine) resolved() (plans.Plan, Usage) {
	if e == nil {
		return plans.Lookup(plans.Free), Usage{}
	}
	return e.plan, e.usage
}

func (e *Engine) orgID() string {
	if e == nil || e.sub == nil {
		return ""
	}
	return e.sub.OrgID
}

func (e *Engine) auditHook() AuditHook {
	if e == nil || e.audit == nil {
		return NoopAudit{}
	}
	return e.audit
}

func (e *Engine) clock() time.Time {
	if e == nil || e.now == nil {
		return time.Now()
	}
	return e.now()
}

// HasFeature reports whether the resolved plan includes f.
func (e *Engine) HasFeature(f plans.Feature) bool {
	plan, _ := e.resolved()
	allowed := plan.Features.Has(f)
	e.auditHook().FeatureChecked(e.orgID(), plan.Tier, f, allowed)
	return allowed
}

// CanAddMembers reports whether an organization that currently has
// currentCount members may add one more. It compares against the argument,
// not the usage snapshot, so callers can probe a hypothetical count.
func (e *Engine) CanAddMembers(currentCount int) bool {
	return e.CanAdd(plans.Members, int64(currentCount))
}

// RemainingMembers returns how many members can still be added according to
// the usage snapshot. ok is false when the plan has no member ceiling.
func (e *Engine) RemainingMembers() (remaining int, ok bool) {
	n, ok := e.Remaining(plans.Members)
	return int(n), ok
}

// CanAdd reports whether one more unit of r fits when current units are in
// use.
func (e *Engine) CanAdd(r plans.Resource, current int64) bool {
	plan, _ := e.resolved()
	if current < 0 {
		current = 0
	}
	limit, limited := plan.Limit(r)
	allowed := !limited || current < limit
	e.auditHook().QuotaChecked(e.orgID(), plan.Tier, r, current, limit, allowed)
	return allowed
}

// Remaining returns the headroom for r against the usage snapshot, floored
// at zero for organizations already over their ceiling.
func (e *Engine) Remaining(r plans.Resource) (int64, bool) {
	plan, usage := e.resolved()
	limit, limited := plan.Limit(r)
	if !limited {
		return 0, false
	}
	return max(0, limit-usage.Count(r)), true
}

// Utilization returns usage/limit for r, or 0 for unlimited resources.
func (e *Engine) Utilization(r plans.Resource) float64 {
	plan, usage := e.resolved()
	limit, limited := plan.Limit(r)
	if !limited {
		return 0
	}
	return float64(usage.Count(r)) / float64(limit)
}

// CurrentPlan returns the resolved tier.
func (e *Engine) CurrentPlan() plans.Tier {
	plan, _ := e.resolved()
	return plan.Tier
}

// Plan returns a copy of the resolved catalog entry.
func (e *Engine) Plan() plans.Plan {
	plan, _ := e.resolved()
	return plan
}

// Usage returns a copy of the usage snapshot.
func (e *Engine) Usage() Usage {
	_, usage := e.resolved()
	return usage
}

// SubscriptionStatus returns the stored status, or StatusInactive without a
// subscription record.
func (e *Engine) SubscriptionStatus() Status {
	if e == nil || e.sub == nil {
		return StatusInactive
	}
	return e.sub.Status
}

// IsTrialing reports whether a trial end date is set and still ahead. The
// status field is not consulted.
func (e *Engine) IsTrialing() bool {
	if e == nil || e.sub == nil || e.sub.TrialEndsAt == nil {
		return false
	}
	return e.sub.TrialEndsAt.After(e.clock())
}

// TrialEndsAt returns the trial end date when present.
func (e *Engine) TrialEndsAt() (time.Time, bool) {
	if e == nil || e.sub == nil || e.sub.TrialEndsAt == nil {
		return time.Time{}, false
	}
	return *e.sub.TrialEndsAt, true
}

// IsExpired is true when there is no subscription, when the status says
// expired, or when the current period has ended. Any one is enough.
func (e *Engine) IsExpired() bool {
	if e == nil || e.sub == nil {
		return true
	}
	if e.sub.Status == StatusExpired {
		return true
	}
	return e.sub.CurrentPeriodEndsAt != nil && e.clock().After(*e.sub.CurrentPeriodEndsAt)
}

func (e *Engine) CanUpgrade() bool {
	return plans.Rank(e.CurrentPlan()) < plans.Rank(plans.Highest())
}

func (e *Engine) CanDowngrade() bool {
	return plans.Rank(e.CurrentPlan()) > plans.Rank(plans.Lowest())
}
