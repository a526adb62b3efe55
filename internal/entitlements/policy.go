package entitlements

import (
	"errors"
	"fmt"

	"clubdesk/internal/plans"
)

var ErrSubscriptionInactive = errors.New("subscription inactive")

// UpgradeRequiredError is returned to request handlers when a feature is
// not part of the organization's plan.
type UpgradeRequiredError struct {
	Feature  plans.Feature
	Current  plans.Tier
	Required plans.Tier
}

func (e *UpgradeRequiredError) Error() string {
	return fmt.Sprintf("feature %s requires the %s plan (current: %s)", e.Feature, e.Required, e.Current)
}

// QuotaExceededError is returned when adding one more unit of a resource
// would go over the plan ceiling.
type QuotaExceededError struct {
	Resource plans.Resource
	Current  int64
	Limit    int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s: %d of %d", e.Resource, e.Current, e.Limit)
}

func IsUpgradeRequired(err error) bool {
	var target *UpgradeRequiredError
	return errors.As(err, &target)
}

func IsQuotaExceeded(err error) bool {
	var target *QuotaExceededError
	return errors.As(err, &target)
}

// RequireFeature is the error-returning form of HasFeature for request
// handlers.
func RequireFeature(e *Engine, f plans.Feature) error {
	if e.HasFeature(f) {
		return nil
	}
	required, _ := plans.MinimumTier(f)
	return &UpgradeRequiredError{Feature: f, Current: e.CurrentPlan(), Required: required}
}

// RequireCapacity is the error-returning form of CanAdd.
func RequireCapacity(e *Engine, r plans.Resource, current int64) error {
	if e.CanAdd(r, current) {
		return nil
	}
	limit, _ := e.Plan().Limit(r)
	return &QuotaExceededError{Resource: r, Current: current, Limit: limit}
}

// RequireActive rejects organizations whose subscription has lapsed. A
// running trial keeps access even when the period end has passed.
func RequireActive(e *Engine) error {
	if e.IsTrialing() || !e.IsExpired() {
		return nil
	}
	return ErrSubscriptionInactive
}
