package entitlements

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"clubdesk/internal/plans"
	"clubdesk/internal/store"
)

// Source reads the stored subscription and usage counters.
type Source interface {
	GetSubscription(ctx context.Context, orgID string) (store.Subscription, error)
	GetUsage(ctx context.Context, orgID string) (store.Usage, error)
}

// SubscriptionCache holds encoded subscription lookups keyed by organization.
type SubscriptionCache interface {
	Get(ctx context.Context, orgID string) ([]byte, bool, error)
	Set(ctx context.Context, orgID string, payload []byte) error
	Invalidate(ctx context.Context, orgID string) error
}

// Service builds engines from storage. It is the only place that performs
// I/O on behalf of the engine.
type Service struct {
	Store  Source
	Cache  SubscriptionCache
	Audit  AuditHook
	Logger zerolog.Logger
	Now    func() time.Time
}

func NewService(src Source, cache SubscriptionCache, audit AuditHook, logger zerolog.Logger) *Service {
	return &Service{
		Store:  src,
		Cache:  cache,
		Audit:  audit,
		Logger: logger,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// cachedSubscription distinguishes a cached "no row" from a cache miss.
type cachedSubscription struct {
	Found        bool          `json:"found"`
	Subscription *Subscription `json:"subscription,omitempty"`
}

// Engine loads orgID's subscription and usage and returns a fresh engine.
// An organization without a subscription row gets a nil subscription.
func (s *Service) Engine(ctx context.Context, orgID string) (*Engine, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("entitlements service not configured")
	}
	sub, err := s.Subscription(ctx, orgID)
	if err != nil {
		return nil, err
	}
	row, err := s.Store.GetUsage(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("load usage for %s: %w", orgID, err)
	}
	usage := Usage{
		Members:      int(row.Members),
		Teams:        int(row.Teams),
		Facilities:   int(row.Facilities),
		StorageBytes: row.StorageBytes,
	}

	opts := []Option{WithAudit(s.Audit)}
	if s.Now != nil {
		opts = append(opts, WithClock(s.Now))
	}
	return ForSubscription(sub, &usage, opts...), nil
}

// Subscription returns the stored subscription for orgID, or nil when the
// organization has none. Cache failures fall back to storage.
func (s *Service) Subscription(ctx context.Context, orgID string) (*Subscription, error) {
	if cached, ok := s.fromCache(ctx, orgID); ok {
		return cached, nil
	}

	var sub *Subscription
	row, err := s.Store.GetSubscription(ctx, orgID)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("load subscription for %s: %w", orgID, err)
	default:
		converted := s.fromRow(row)
		sub = &converted
	}

	s.toCache(ctx, orgID, sub)
	return sub, nil
}

// Invalidate drops the cached subscription after a write.
func (s *Service) Invalidate(ctx context.Context, orgID string) {
	if s == nil || s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx, orgID); err != nil {
		s.Logger.Warn().Err(err).Str("org_id", orgID).Msg("subscription cache invalidate failed")
	}
}

func (s *Service) fromRow(row store.Subscription) Subscription {
	tier, err := plans.ParseTier(row.Plan)
	if err != nil {
		s.Logger.Warn().Str("org_id", row.OrgID).Str("plan", row.Plan).Msg("unknown plan code, treating as free")
	}
	sub := Subscription{
		OrgID:  row.OrgID,
		Tier:   tier,
		Status: NormalizeStatus(row.Status),
	}
	if row.TrialEndsAt.Valid {
		t := row.TrialEndsAt.Time
		sub.TrialEndsAt = &t
	}
	if row.CurrentPeriodEndsAt.Valid {
		t := row.CurrentPeriodEndsAt.Time
		sub.CurrentPeriodEndsAt = &t
	}
	return sub
}

func (s *Service) fromCache(ctx context.Context, orgID string) (*Subscription, bool) {
	if s.Cache == nil {
		return nil, false
	}
	payload, ok, err := s.Cache.Get(ctx, orgID)
	if err != nil {
		s.Logger.Warn().Err(err).Str("org_id", orgID).Msg("subscription cache read failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var cached cachedSubscription
	if err := json.Unmarshal(payload, &cached); err != nil {
		s.Logger.Warn().Err(err).Str("org_id", orgID).Msg("discarding undecodable cache entry")
		return nil, false
	}
	if !cached.Found {
		return nil, true
	}
	return cached.Subscription, cached.Subscription != nil
}

func (s *Service) toCache(ctx context.Context, orgID string, sub *Subscription) {
	if s.Cache == nil {
		return
	}
	payload, err := json.Marshal(cachedSubscription{Found: sub != nil, Subscription: sub})
	if err != nil {
		s.Logger.Warn().Err(err).Str("org_id", orgID).Msg("encode subscription for cache")
		return
	}
	if err := s.Cache.Set(ctx, orgID, payload); err != nil {
		s.Logger.Warn().Err(err).Str("org_id", orgID).Msg("subscription cache write failed")
	}
}
