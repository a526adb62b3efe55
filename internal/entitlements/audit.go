package entitlements

import "clubdesk/internal/plans"

// AuditHook receives every feature and quota decision an Engine makes.
// Implementations must be safe for concurrent use and must not block.
type AuditHook interface {
	FeatureChecked(orgID string, tier plans.Tier, feature plans.Feature, allowed bool)
	QuotaChecked(orgID string, tier plans.Tier, resource plans.Resource, current, limit int64, allowed bool)
}

// NoopAudit discards all decisions.
type NoopAudit struct{}

func (NoopAudit) FeatureChecked(string, plans.Tier, plans.Feature, bool) {}

func (NoopAudit) QuotaChecked(string, plans.Tier, plans.Resource, int64, int64, bool) {}
