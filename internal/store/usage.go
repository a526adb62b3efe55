package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Resource names stored in org_usage_counters and usage_events.
const (
	ResourceMembers      = "members"
	ResourceTeams        = "teams"
	ResourceFacilities   = "facilities"
	ResourceStorageBytes = "storage_bytes"
)

// Usage is the current counter value per resource. Missing counters read as
// zero.
type Usage struct {
	Members      int64
	Teams        int64
	Facilities   int64
	StorageBytes int64
}

type UsageCounter struct {
	OrgID    string
	Resource string
	Used     int64
}

func (s *Store) GetUsage(ctx context.Context, orgID string) (Usage, error) {
	var usage Usage
	rows, err := s.db.QueryContext(ctx, `SELECT resource, used FROM org_usage_counters WHERE org_id = $1`, orgID)
	if err != nil {
		return usage, err
	}
	defer rows.Close()

	for rows.Next() {
		var resource string
		var used int64
		if err := rows.Scan(&resource, &used); err != nil {
			return usage, err
		}
		switch resource {
		case ResourceMembers:
			usage.Members = used
		case ResourceTeams:
			usage.Teams = used
		case ResourceFacilities:
			usage.Facilities = used
		case ResourceStorageBytes:
			usage.StorageBytes = used
		}
	}
	return usage, rows.Err()
}

// RecordUsageEvent appends a delta to the event log and applies it to the
// running counter in one transaction. The counter never drops below zero.
func (s *Store) RecordUsageEvent(ctx context.Context, orgID, resource string, delta int64) (int64, error) {
	if !validResource(resource) {
		return 0, fmt.Errorf("unknown usage resource %q", resource)
	}
	var used int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO usage_events (org_id, resource, delta) VALUES ($1, $2, $3)`, orgID, resource, delta); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `
			INSERT INTO org_usage_counters (org_id, resource, used, updated_at)
			VALUES ($1, $2, GREATEST($3, 0), now())
			ON CONFLICT (org_id, resource) DO UPDATE SET
				used = GREATEST(org_usage_counters.used + $3, 0),
				updated_at = now()
			RETURNING used
		`, orgID, resource, delta).Scan(&used)
	})
	return used, err
}

func (s *Store) ListUsageCounters(ctx context.Context) ([]UsageCounter, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT org_id::text, resource, used FROM org_usage_counters ORDER BY org_id, resource`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UsageCounter
	for rows.Next() {
		var c UsageCounter
		if err := rows.Scan(&c.OrgID, &c.Resource, &c.Used); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ReplayUsageEvents rebuilds one counter from its event log in insertion
// order, flooring at zero after every event the way RecordUsageEvent does.
func (s *Store) ReplayUsageEvents(ctx context.Context, orgID, resource string) (int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT delta FROM usage_events
		WHERE org_id = $1 AND resource = $2
		ORDER BY id
	`, orgID, resource)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var deltas []int64
	for rows.Next() {
		var delta int64
		if err := rows.Scan(&delta); err != nil {
			return 0, err
		}
		deltas = append(deltas, delta)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	return replayFloored(deltas), nil
}

func replayFloored(deltas []int64) int64 {
	var used int64
	for _, delta := range deltas {
		used += delta
		if used < 0 {
			used = 0
		}
	}
	return used
}

func (s *Store) SetUsageCounter(ctx context.Context, orgID, resource string, used int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE org_usage_counters SET used = $3, updated_at = now()
		WHERE org_id = $1 AND resource = $2
	`, orgID, resource, used)
	return err
}

func validResource(resource string) bool {
	switch resource {
	case ResourceMembers, ResourceTeams, ResourceFacilities, ResourceStorageBytes:
		return true
	default:
		return false
	}
}
