package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Subscription is the stored form of an organization's plan and billing
// state. Plan and Status hold the raw column values.
type Subscription struct {
	OrgID               string
	Plan                string
	Status              string
	TrialEndsAt         sql.NullTime
	CurrentPeriodEndsAt sql.NullTime
	UpdatedAt           time.Time
}

const subscriptionColumns = `org_id::text, plan, status, trial_ends_at, current_period_ends_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner, sub *Subscription) error {
	return row.Scan(&sub.OrgID, &sub.Plan, &sub.Status, &sub.TrialEndsAt, &sub.CurrentPeriodEndsAt, &sub.UpdatedAt)
}

// GetSubscription returns ErrNotFound when the organization has never had a
// subscription row.
func (s *Store) GetSubscription(ctx context.Context, orgID string) (Subscription, error) {
	var sub Subscription
	row := s.db.QueryRowContext(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE org_id = $1`, orgID)
	if err := scanSubscription(row, &sub); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sub, ErrNotFound
		}
		return sub, err
	}
	return sub, nil
}

func (s *Store) UpsertSubscription(ctx context.Context, sub Subscription) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (org_id, plan, status, trial_ends_at, current_period_ends_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (org_id) DO UPDATE SET
			plan = EXCLUDED.plan,
			status = EXCLUDED.status,
			trial_ends_at = EXCLUDED.trial_ends_at,
			current_period_ends_at = EXCLUDED.current_period_ends_at,
			updated_at = now()
	`, sub.OrgID, sub.Plan, sub.Status, sub.TrialEndsAt, sub.CurrentPeriodEndsAt)
	return err
}

// ListLapsedSubscriptions returns rows whose current period ended before now
// but whose status was never moved to expired.
func (s *Store) ListLapsedSubscriptions(ctx context.Context, now time.Time) ([]Subscription, error) {
	return s.listSubscriptions(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE status <> 'expired'
		  AND current_period_ends_at IS NOT NULL
		  AND current_period_ends_at < $1
		ORDER BY current_period_ends_at, org_id
	`, now)
}

// ListStaleTrials returns rows still marked trialing after their trial
// ended.
func (s *Store) ListStaleTrials(ctx context.Context, now time.Time) ([]Subscription, error) {
	return s.listSubscriptions(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE status = 'trialing'
		  AND (trial_ends_at IS NULL OR trial_ends_at <= $1)
		ORDER BY trial_ends_at NULLS FIRST, org_id
	`, now)
}

func (s *Store) listSubscriptions(ctx context.Context, query string, args ...any) ([]Subscription, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Subscription
	for rows.Next() {
		var sub Subscription
		if err := scanSubscription(rows, &sub); err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// SetSubscriptionStatus overwrites the status column. ErrNotFound is
// returned when no row matched.
func (s *Store) SetSubscriptionStatus(ctx context.Context, orgID, status string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE subscriptions SET status = $2, updated_at = now() WHERE org_id = $1`, orgID, status)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
