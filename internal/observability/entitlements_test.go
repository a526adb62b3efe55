package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"clubdesk/internal/plans"
)

func newTestObserver(t *testing.T) (*EntitlementObserver, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return NewEntitlementObserver(zerolog.New(&buf), prometheus.NewRegistry()), &buf
}

func TestFeatureCheckedCountsByResult(t *testing.T) {
	o, _ := newTestObserver(t)

	o.FeatureChecked("org-1", plans.Free, plans.FinancialReports, false)
	o.FeatureChecked("org-1", plans.Free, plans.FinancialReports, false)
	o.FeatureChecked("org-2", plans.Professional, plans.FinancialReports, true)

	if got := testutil.ToFloat64(o.featureChecks.WithLabelValues("financialReports", "free", "deny")); got != 2 {
		t.Fatalf("expected 2 denies, got %v", got)
	}
	if got := testutil.ToFloat64(o.featureChecks.WithLabelValues("financialReports", "professional", "allow")); got != 1 {
		t.Fatalf("expected 1 allow, got %v", got)
	}
}

func TestQuotaWarningFiresOncePerResource(t *testing.T) {
	o, buf := newTestObserver(t)

	o.QuotaChecked("org-1", plans.Free, plans.Members, 40, 50, true)
	o.QuotaChecked("org-1", plans.Free, plans.Members, 45, 50, true)
	o.QuotaChecked("org-1", plans.Free, plans.Teams, 1, 2, true)

	if n := strings.Count(buf.String(), "quota nearly exhausted"); n != 1 {
		t.Fatalf("expected one warning below 80%% teams and repeated members, got %d", n)
	}
	o.QuotaChecked("org-1", plans.Free, plans.Teams, 2, 2, false)
	if n := strings.Count(buf.String(), "quota nearly exhausted"); n != 2 {
		t.Fatalf("expected a second warning for teams, got %d", n)
	}
}

func TestQuotaWarningSkipsUnlimited(t *testing.T) {
	o, buf := newTestObserver(t)
	o.QuotaChecked("org-1", plans.Enterprise, plans.Members, 100000, 0, true)
	if strings.Contains(buf.String(), "quota nearly exhausted") {
		t.Fatalf("unlimited resources never warn")
	}
}

func TestRecordDenyAlertsEveryTenth(t *testing.T) {
	o, buf := newTestObserver(t)
	for i := 0; i < 20; i++ {
		o.RecordDeny("org-1", "rate_limited")
	}
	if got := testutil.ToFloat64(o.denials.WithLabelValues("rate_limited")); got != 20 {
		t.Fatalf("expected 20 denials, got %v", got)
	}
	if n := strings.Count(buf.String(), "entitlements alert"); n != 2 {
		t.Fatalf("expected 2 alerts, got %d", n)
	}
}

func TestRegisterReusesExistingCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := NewEntitlementObserver(zerolog.Nop(), reg)
	b := NewEntitlementObserver(zerolog.Nop(), reg)
	if a.denials != b.denials {
		t.Fatalf("second observer should share the registered counter")
	}
}

func TestNilObserverIsSafe(t *testing.T) {
	var o *EntitlementObserver
	o.FeatureChecked("org", plans.Free, plans.Messaging, false)
	o.QuotaChecked("org", plans.Free, plans.Members, 1, 50, true)
	o.RecordDeny("org", "x")
}
