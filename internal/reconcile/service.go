package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"clubdesk/internal/store"
)

const statusExpired = "expired"

// Store is the slice of storage the reconciler reads and repairs.
type Store interface {
	ListUsageCounters(ctx context.Context) ([]store.UsageCounter, error)
	ReplayUsageEvents(ctx context.Context, orgID, resource string) (int64, error)
	SetUsageCounter(ctx context.Context, orgID, resource string, used int64) error
	ListLapsedSubscriptions(ctx context.Context, now time.Time) ([]store.Subscription, error)
	ListStaleTrials(ctx context.Context, now time.Time) ([]store.Subscription, error)
	SetSubscriptionStatus(ctx context.Context, orgID, status string) error
}

// Invalidator drops cached subscription state after a status change.
type Invalidator interface {
	Invalidate(ctx context.Context, orgID string)
}

type Service struct {
	Store       Store
	Invalidator Invalidator
	Logger      zerolog.Logger
	Now         func() time.Time
	// Apply marks stale subscriptions expired. Without it they are only
	// reported.
	Apply bool
}

type Report struct {
	CountersRepaired int      `json:"counters_repaired"`
	Lapsed           []string `json:"lapsed"`
	StaleTrials      []string `json:"stale_trials"`
	Expired          int      `json:"expired"`
}

func NewService(st Store, logger zerolog.Logger) *Service {
	return &Service{
		Store:  st,
		Logger: logger,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Run(ctx context.Context) (Report, error) {
	report := Report{Lapsed: []string{}, StaleTrials: []string{}}
	if s == nil || s.Store == nil {
		return report, nil
	}

	repaired, err := s.repairCounters(ctx)
	report.CountersRepaired = repaired
	if err != nil {
		return report, err
	}

	now := s.Now()
	expire := make(map[string]struct{})

	lapsed, err := s.Store.ListLapsedSubscriptions(ctx, now)
	if err != nil {
		return report, fmt.Errorf("list lapsed subscriptions: %w", err)
	}
	for _, sub := range lapsed {
		// A running trial outlives its billing period.
		if sub.Status == "trialing" && sub.TrialEndsAt.Valid && sub.TrialEndsAt.Time.After(now) {
			continue
		}
		report.Lapsed = append(report.Lapsed, sub.OrgID)
		expire[sub.OrgID] = struct{}{}
	}

	trials, err := s.Store.ListStaleTrials(ctx, now)
	if err != nil {
		return report, fmt.Errorf("list stale trials: %w", err)
	}
	for _, sub := range trials {
		report.StaleTrials = append(report.StaleTrials, sub.OrgID)
		expire[sub.OrgID] = struct{}{}
	}

	if !s.Apply {
		s.Logger.Info().
			Int("lapsed", len(report.Lapsed)).
			Int("stale_trials", len(report.StaleTrials)).
			Msg("reconcile dry run, statuses left unchanged")
		return report, nil
	}

	for orgID := range expire {
		if err := s.Store.SetSubscriptionStatus(ctx, orgID, statusExpired); err != nil {
			return report, fmt.Errorf("expire subscription %s: %w", orgID, err)
		}
		if s.Invalidator != nil {
			s.Invalidator.Invalidate(ctx, orgID)
		}
		s.Logger.Info().Str("org_id", orgID).Msg("subscription marked expired")
		report.Expired++
	}
	return report, nil
}

func (s *Service) repairCounters(ctx context.Context) (int, error) {
	counters, err := s.Store.ListUsageCounters(ctx)
	if err != nil {
		return 0, fmt.Errorf("list usage counters: %w", err)
	}
	repaired := 0
	for _, counter := range counters {
		expected, err := s.Store.ReplayUsageEvents(ctx, counter.OrgID, counter.Resource)
		if err != nil {
			return repaired, fmt.Errorf("replay usage events: %w", err)
		}
		if expected == counter.Used {
			continue
		}
		if err := s.Store.SetUsageCounter(ctx, counter.OrgID, counter.Resource, expected); err != nil {
			return repaired, fmt.Errorf("set usage counter: %w", err)
		}
		s.Logger.Warn().
			Str("org_id", counter.OrgID).
			Str("resource", counter.Resource).
			Int64("was", counter.Used).
			Int64("now", expected).
			Msg("usage counter drift repaired")
		repaired++
	}
	return repaired, nil
}

// Loop runs the reconciler every interval until ctx is cancelled.
func (s *Service) Loop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := s.Run(ctx)
			if err != nil {
				s.Logger.Error().Err(err).Msg("reconcile run failed")
				continue
			}
			s.Logger.Info().
				Int("counters_repaired", report.CountersRepaired).
				Int("expired", report.Expired).
				Msg("reconcile run complete")
		}
	}
}
