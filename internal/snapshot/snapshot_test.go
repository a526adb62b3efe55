package snapshot

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubdesk/internal/entitlements"
	"clubdesk/internal/plans"
)

func TestReadSubscription(t *testing.T) {
	doc := `{
		"org_id": "org-1",
		"plan": "starter",
		"status": "trialing",
		"trial_ends_at": "2026-04-01T00:00:00Z",
		"current_period_ends_at": null
	}`
	sub, err := ReadSubscription(strings.NewReader(doc))
	require.NoError(t, err)
	require.NotNil(t, sub)

	assert.Equal(t, plans.Starter, sub.Tier)
	assert.Equal(t, entitlements.StatusTrialing, sub.Status)
	require.NotNil(t, sub.TrialEndsAt)
	assert.True(t, sub.TrialEndsAt.Equal(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))
	assert.Nil(t, sub.CurrentPeriodEndsAt)
}

func TestReadSubscriptionNormalizesStatusAlias(t *testing.T) {
	sub, err := ReadSubscription(strings.NewReader(`{"plan": "professional", "status": "cancelled"}`))
	require.NoError(t, err)
	assert.Equal(t, entitlements.StatusCanceled, sub.Status)
}

func TestReadSubscriptionNull(t *testing.T) {
	sub, err := ReadSubscription(strings.NewReader("null\n"))
	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestReadSubscriptionRejectsInvalidDocuments(t *testing.T) {
	tests := map[string]string{
		"unknown plan":     `{"plan": "platinum", "status": "active"}`,
		"unknown status":   `{"plan": "free", "status": "paused"}`,
		"missing status":   `{"plan": "free"}`,
		"bad timestamp":    `{"plan": "free", "status": "active", "trial_ends_at": "tomorrow"}`,
		"unexpected field": `{"plan": "free", "status": "active", "seats": 3}`,
		"not json":         `{plan:`,
		"array":            `[]`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadSubscription(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestReadUsage(t *testing.T) {
	usage, err := ReadUsage(strings.NewReader(`{"members": 50, "storage_bytes": 1048576}`))
	require.NoError(t, err)
	assert.Equal(t, entitlements.Usage{Members: 50, StorageBytes: 1048576}, usage)

	usage, err = ReadUsage(strings.NewReader(`null`))
	require.NoError(t, err)
	assert.Equal(t, entitlements.Usage{}, usage)
}

func TestReadUsageRejectsNegativeAndFractional(t *testing.T) {
	_, err := ReadUsage(strings.NewReader(`{"members": -1}`))
	assert.Error(t, err)
	_, err = ReadUsage(strings.NewReader(`{"teams": 1.5}`))
	assert.Error(t, err)
}
