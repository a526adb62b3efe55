package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"clubdesk/internal/plans"
)

// warnUtilization is the quota share at which an organization is warned
// once that it is close to its plan ceiling.
const warnUtilization = 0.8

// EntitlementObserver logs and counts entitlement decisions. It satisfies
// the engine's audit hook and is safe for concurrent use.
type EntitlementObserver struct {
	logger zerolog.Logger

	featureChecks *prometheus.CounterVec
	quotaChecks   *prometheus.CounterVec
	denials       *prometheus.CounterVec

	mu         sync.Mutex
	denyCounts map[string]int64
	warned80   map[string]bool
}

func NewEntitlementObserver(logger zerolog.Logger, registerer prometheus.Registerer) *EntitlementObserver {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	o := &EntitlementObserver{
		logger: logger.With().Str("component", "entitlements").Logger(),
		featureChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "clubdesk",
				Subsystem: "entitlements",
				Name:      "feature_checks_total",
				Help:      "Feature checks by feature, plan tier and result",
			},
			[]string{"feature", "tier", "result"},
		),
		quotaChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "clubdesk",
				Subsystem: "entitlements",
				Name:      "quota_checks_total",
				Help:      "Quota checks by resource, plan tier and result",
			},
			[]string{"resource", "tier", "result"},
		),
		denials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "clubdesk",
				Subsystem: "entitlements",
				Name:      "request_denials_total",
				Help:      "Requests rejected by entitlement middleware by reason",
			},
			[]string{"reason"},
		),
		denyCounts: make(map[string]int64),
		warned80:   make(map[string]bool),
	}
	o.featureChecks = registerCounterVec(registerer, o.featureChecks)
	o.quotaChecks = registerCounterVec(registerer, o.quotaChecks)
	o.denials = registerCounterVec(registerer, o.denials)
	return o
}

func registerCounterVec(registerer prometheus.Registerer, counter *prometheus.CounterVec) *prometheus.CounterVec {
	if err := registerer.Register(counter); err != nil {
		if alreadyRegisteredErr, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := alreadyRegisteredErr.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
		panic(err)
	}
	return counter
}

func result(allowed bool) string {
	if allowed {
		return "allow"
	}
	return "deny"
}

func (o *EntitlementObserver) FeatureChecked(orgID string, tier plans.Tier, feature plans.Feature, allowed bool) {
	if o == nil {
		return
	}
	o.featureChecks.WithLabelValues(feature.String(), tier.String(), result(allowed)).Inc()
	o.logger.Debug().
		Str("org_id", orgID).
		Str("tier", tier.String()).
		Str("feature", feature.String()).
		Bool("allowed", allowed).
		Msg("feature check")
}

func (o *EntitlementObserver) QuotaChecked(orgID string, tier plans.Tier, resource plans.Resource, current, limit int64, allowed bool) {
	if o == nil {
		return
	}
	o.quotaChecks.WithLabelValues(resource.String(), tier.String(), result(allowed)).Inc()

	utilization := 0.0
	if limit > 0 {
		utilization = float64(current) / float64(limit)
	}
	o.logger.Debug().
		Str("org_id", orgID).
		Str("resource", resource.String()).
		Int64("used", current).
		Int64("limit", limit).
		Float64("utilization", utilization).
		Bool("allowed", allowed).
		Msg("quota check")

	if limit <= 0 || utilization < warnUtilization || orgID == "" {
		return
	}
	key := orgID + "/" + resource.String()
	o.mu.Lock()
	alreadyWarned := o.warned80[key]
	if !alreadyWarned {
		o.warned80[key] = true
	}
	o.mu.Unlock()
	if !alreadyWarned {
		o.logger.Warn().
			Str("org_id", orgID).
			Str("resource", resource.String()).
			Float64("threshold", warnUtilization).
			Int64("used", current).
			Int64("limit", limit).
			Msg("quota nearly exhausted")
	}
}

// RecordDeny counts a request rejected by middleware. Every tenth denial for
// the same organization is logged as an alert.
func (o *EntitlementObserver) RecordDeny(orgID, reason string) {
	if o == nil {
		return
	}
	o.denials.WithLabelValues(reason).Inc()

	o.mu.Lock()
	o.denyCounts[orgID]++
	count := o.denyCounts[orgID]
	o.mu.Unlock()

	o.logger.Info().Str("org_id", orgID).Str("reason", reason).Int64("count", count).Msg("entitlements deny")
	if count%10 == 0 {
		o.logger.Warn().Str("org_id", orgID).Str("reason", reason).Int64("repeated_deny_count", count).Msg("entitlements alert")
	}
}
