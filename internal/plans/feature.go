package plans

import (
	"fmt"
	"math/bits"
)

// Feature is a gated product capability. The set is closed; wire names are
// only turned into Features through ParseFeature.
type Feature uint8

// Declaration order is the canonical display order.
const (
	MemberManagement Feature = iota
	BookingCalendar
	MemberPortal
	EmailNotifications
	TeamManagement
	FacilityManagement
	EventManagement
	AttendanceTracking
	Messaging
	FinancialReports
	PaymentCollection
	AdvancedAnalytics
	CustomBranding
	APIAccess
	PrioritySupport

	featureCount
)

type featureInfo struct {
	key         string
	name        string
	description string
}

var featureTable = [featureCount]featureInfo{
	MemberManagement:   {"memberManagement", "Member Management", "Keep a register of members with contact details and membership types."},
	BookingCalendar:    {"bookingCalendar", "Booking Calendar", "Let members book courts, rooms and other slots online."},
	MemberPortal:       {"memberPortal", "Member Portal", "Self-service portal where members update their own profile."},
	EmailNotifications: {"emailNotifications", "Email Notifications", "Automatic confirmation and reminder emails."},
	TeamManagement:     {"teamManagement", "Team Management", "Organize members into teams with coaches and rosters."},
	FacilityManagement: {"facilityManagement", "Facility Management", "Manage several facilities with their own opening hours."},
	EventManagement:    {"eventManagement", "Event Management", "Plan tournaments, trainings and social events with sign-ups."},
	AttendanceTracking: {"attendanceTracking", "Attendance Tracking", "Record who showed up for trainings and events."},
	Messaging:          {"messaging", "Messaging", "Team chat and announcements inside the club."},
	FinancialReports:   {"financialReports", "Financial Reports", "Revenue, outstanding fees and export for bookkeeping."},
	PaymentCollection:  {"paymentCollection", "Payment Collection", "Collect membership fees and booking payments online."},
	AdvancedAnalytics:  {"advancedAnalytics", "Advanced Analytics", "Occupancy, retention and growth dashboards."},
	CustomBranding:     {"customBranding", "Custom Branding", "Use the club's own logo, colors and domain."},
	APIAccess:          {"apiAccess", "API Access", "Programmatic access to club data through the public API."},
	PrioritySupport:    {"prioritySupport", "Priority Support", "Dedicated contact with guaranteed response times."},
}

// Features returns every feature in canonical display order.
func Features() []Feature {
	out := make([]Feature, featureCount)
	for i := range out {
		out[i] = Feature(i)
	}
	return out
}

// ParseFeature resolves a wire name such as "financialReports".
func ParseFeature(key string) (Feature, bool) {
	for i, info := range featureTable {
		if info.key == key {
			return Feature(i), true
		}
	}
	return 0, false
}

func (f Feature) Valid() bool {
	return f < featureCount
}

// String returns the wire name.
func (f Feature) String() string {
	if !f.Valid() {
		return fmt.Sprintf("feature(%d)", uint8(f))
	}
	return featureTable[f].key
}

func (f Feature) DisplayName() string {
	if !f.Valid() {
		return f.String()
	}
	return featureTable[f].name
}

func (f Feature) Description() string {
	if !f.Valid() {
		return ""
	}
	return featureTable[f].description
}

func (f Feature) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("invalid feature %d", uint8(f))
	}
	return []byte(featureTable[f].key), nil
}

func (f *Feature) UnmarshalText(text []byte) error {
	parsed, ok := ParseFeature(string(text))
	if !ok {
		return fmt.Errorf("unknown feature %q", string(text))
	}
	*f = parsed
	return nil
}

// FeatureSet is an immutable set of features. Anything not in the set is
// denied.
type FeatureSet uint32

// NewFeatureSet builds a set from the given features. Invalid values are
// ignored.
func NewFeatureSet(features ...Feature) FeatureSet {
	return FeatureSet(0).With(features...)
}

// With returns a copy of s that also contains features.
func (s FeatureSet) With(features ...Feature) FeatureSet {
	for _, f := range features {
		if f.Valid() {
			s |= 1 << f
		}
	}
	return s
}

func (s FeatureSet) Has(f Feature) bool {
	if !f.Valid() {
		return false
	}
	return s&(1<<f) != 0
}

func (s FeatureSet) Len() int {
	return bits.OnesCount32(uint32(s & allFeatures))
}

// List returns the members of s in canonical order.
func (s FeatureSet) List() []Feature {
	out := make([]Feature, 0, s.Len())
	for _, f := range Features() {
		if s.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

const allFeatures = FeatureSet(1<<featureCount - 1)
