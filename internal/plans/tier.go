package plans

import (
	"fmt"
	"strings"
)

// Tier is a commercial plan level. Tiers are totally ordered by capability
// and the zero value is Free, so an organization without a paid
// relationship resolves to Free without any special casing.
type Tier uint8

const (
	Free Tier = iota
	Starter
	Professional
	Enterprise
)

var orderedTiers = [...]Tier{Free, Starter, Professional, Enterprise}

var tierNames = [...]string{
	Free:         "free",
	Starter:      "starter",
	Professional: "professional",
	Enterprise:   "enterprise",
}

// Tiers returns every tier in ascending capability order.
func Tiers() []Tier {
	out := make([]Tier, len(orderedTiers))
	copy(out, orderedTiers[:])
	return out
}

// Lowest returns the least capable tier.
func Lowest() Tier { return orderedTiers[0] }

// Highest returns the most capable tier.
func Highest() Tier { return orderedTiers[len(orderedTiers)-1] }

// Rank returns the position of t in the capability order. Out-of-range
// values rank as Free.
func Rank(t Tier) int {
	if !t.Valid() {
		return 0
	}
	return int(t)
}

func (t Tier) Valid() bool {
	return int(t) < len(orderedTiers)
}

func (t Tier) String() string {
	if !t.Valid() {
		return fmt.Sprintf("tier(%d)", uint8(t))
	}
	return tierNames[t]
}

func (t Tier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid tier %d", uint8(t))
	}
	return []byte(tierNames[t]), nil
}

func (t *Tier) UnmarshalText(text []byte) error {
	parsed, err := ParseTier(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTier converts a stored or wire tier name. An empty string is Free,
// matching a missing plan on the subscription row.
func ParseTier(s string) (Tier, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return Free, nil
	}
	for _, t := range orderedTiers {
		if tierNames[t] == name {
			return t, nil
		}
	}
	return Free, fmt.Errorf("unknown plan tier %q", s)
}
