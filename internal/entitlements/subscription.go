package entitlements

import (
	"strings"
	"time"

	"clubdesk/internal/plans"
)

// Status is the billing lifecycle state recorded on a subscription.
type Status string

const (
	StatusActive   Status = "active"
	StatusTrialing Status = "trialing"
	StatusPastDue  Status = "past_due"
	StatusExpired  Status = "expired"
	StatusCanceled Status = "canceled"

	// StatusInactive is reported when there is no subscription record. It is
	// never stored.
	StatusInactive Status = "inactive"
)

// NormalizeStatus lowercases and trims a stored status. Unrecognized values
// are kept verbatim so the engine can report them as-is.
func NormalizeStatus(raw string) Status {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case "pastdue", "past-due":
		return StatusPastDue
	case "cancelled":
		return StatusCanceled
	}
	return s
}

// Subscription is an organization's commercial relationship as loaded from
// storage. The engine reads it and never validates the fields against each
// other.
type Subscription struct {
	OrgID               string     `json:"org_id,omitempty"`
	Tier                plans.Tier `json:"plan"`
	Status              Status     `json:"status"`
	TrialEndsAt         *time.Time `json:"trial_ends_at,omitempty"`
	CurrentPeriodEndsAt *time.Time `json:"current_period_ends_at,omitempty"`
}

func (s Subscription) clone() Subscription {
	out := s
	out.TrialEndsAt = cloneTime(s.TrialEndsAt)
	out.CurrentPeriodEndsAt = cloneTime(s.CurrentPeriodEndsAt)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// Usage is a point-in-time consumption snapshot for one organization.
type Usage struct {
	Members      int   `json:"members"`
	Teams        int   `json:"teams"`
	Facilities   int   `json:"facilities"`
	StorageBytes int64 `json:"storage_bytes"`
}

// Count returns the consumption of r. Negative counts read as zero.
func (u Usage) Count(r plans.Resource) int64 {
	var n int64
	switch r {
	case plans.Members:
		n = int64(u.Members)
	case plans.Teams:
		n = int64(u.Teams)
	case plans.Facilities:
		n = int64(u.Facilities)
	case plans.Storage:
		n = u.StorageBytes
	}
	if n < 0 {
		return 0
	}
	return n
}
