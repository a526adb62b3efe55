package plans

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Resource is a countable quantity a plan puts a ceiling on.
type Resource uint8

const (
	Members Resource = iota
	Teams
	Facilities
	Storage
)

var resourceNames = [...]string{
	Members:    "members",
	Teams:      "teams",
	Facilities: "facilities",
	Storage:    "storage_bytes",
}

// Resources returns every quota resource in display order.
func Resources() []Resource {
	return []Resource{Members, Teams, Facilities, Storage}
}

func (r Resource) String() string {
	if int(r) >= len(resourceNames) {
		return fmt.Sprintf("resource(%d)", uint8(r))
	}
	return resourceNames[r]
}

// ParseResource maps a stored or wire resource name back to a Resource.
func ParseResource(name string) (Resource, bool) {
	for i, n := range resourceNames {
		if n == name {
			return Resource(i), true
		}
	}
	return 0, false
}

func (r Resource) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Resource) UnmarshalText(text []byte) error {
	parsed, ok := ParseResource(string(text))
	if !ok {
		return fmt.Errorf("unknown resource %q", string(text))
	}
	*r = parsed
	return nil
}

// Pricing holds list prices in EUR.
type Pricing struct {
	Monthly decimal.Decimal
	Yearly  decimal.Decimal
}

// Plan is one catalog entry. A zero limit means unlimited.
type Plan struct {
	Tier                 Tier
	Features             FeatureSet
	MemberLimit          int
	TeamLimit            int
	FacilityLimit        int
	StorageLimitBytes    int64
	APIRequestsPerMinute int
	Pricing              Pricing
}

func (p Plan) HasFeature(f Feature) bool {
	return p.Features.Has(f)
}

// Limit returns the ceiling for r and whether one exists.
func (p Plan) Limit(r Resource) (int64, bool) {
	var limit int64
	switch r {
	case Members:
		limit = int64(p.MemberLimit)
	case Teams:
		limit = int64(p.TeamLimit)
	case Facilities:
		limit = int64(p.FacilityLimit)
	case Storage:
		limit = p.StorageLimitBytes
	default:
		return 0, false
	}
	if limit <= 0 {
		return 0, false
	}
	return limit, true
}

const gib = int64(1) << 30

var freeFeatures = NewFeatureSet(
	MemberManagement,
	BookingCalendar,
	MemberPortal,
	EmailNotifications,
)

var starterFeatures = freeFeatures.With(
	TeamManagement,
	FacilityManagement,
	EventManagement,
	AttendanceTracking,
	Messaging,
)

var professionalFeatures = starterFeatures.With(
	FinancialReports,
	PaymentCollection,
	AdvancedAnalytics,
	CustomBranding,
)

var enterpriseFeatures = professionalFeatures.With(
	APIAccess,
	PrioritySupport,
)

// catalog is read-only after init. Lookup hands out copies.
var catalog = [...]Plan{
	Free: {
		Tier:              Free,
		Features:          freeFeatures,
		MemberLimit:       50,
		TeamLimit:         2,
		FacilityLimit:     1,
		StorageLimitBytes: 1 * gib,
		Pricing:           Pricing{Monthly: decimal.Zero, Yearly: decimal.Zero},
	},
	Starter: {
		Tier:              Starter,
		Features:          starterFeatures,
		MemberLimit:       150,
		TeamLimit:         10,
		FacilityLimit:     3,
		StorageLimitBytes: 10 * gib,
		Pricing:           Pricing{Monthly: decimal.NewFromInt(29), Yearly: decimal.NewFromInt(290)},
	},
	Professional: {
		Tier:              Professional,
		Features:          professionalFeatures,
		MemberLimit:       500,
		TeamLimit:         50,
		FacilityLimit:     10,
		StorageLimitBytes: 100 * gib,
		Pricing:           Pricing{Monthly: decimal.NewFromInt(79), Yearly: decimal.NewFromInt(790)},
	},
	Enterprise: {
		Tier:                 Enterprise,
		Features:             enterpriseFeatures,
		APIRequestsPerMinute: 600,
		Pricing:              Pricing{Monthly: decimal.NewFromInt(199), Yearly: decimal.NewFromInt(1990)},
	},
}

// Lookup returns the catalog entry for t. Values outside the enum resolve
// to Free.
func Lookup(t Tier) Plan {
	if !t.Valid() {
		return catalog[Free]
	}
	return catalog[t]
}

// MinimumTier returns the least capable tier whose matrix includes f, and
// false if no tier offers it.
func MinimumTier(f Feature) (Tier, bool) {
	for _, t := range orderedTiers {
		if catalog[t].Features.Has(f) {
			return t, true
		}
	}
	return Highest(), false
}

// DisplayName returns the customer-facing name of t.
func DisplayName(t Tier) string {
	switch t {
	case Free:
		return "Free"
	case Starter:
		return "Starter"
	case Professional:
		return "Professional"
	case Enterprise:
		return "Enterprise"
	default:
		return "Unknown"
	}
}
