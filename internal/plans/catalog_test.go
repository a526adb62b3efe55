package plans

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRankStrictlyIncreasing(t *testing.T) {
	tiers := Tiers()
	require.Equal(t, []Tier{Free, Starter, Professional, Enterprise}, tiers)
	for i := 1; i < len(tiers); i++ {
		assert.Less(t, Rank(tiers[i-1]), Rank(tiers[i]), "%s should rank below %s", tiers[i-1], tiers[i])
	}
	assert.Equal(t, Free, Lowest())
	assert.Equal(t, Enterprise, Highest())
}

func TestTiersReturnsCopy(t *testing.T) {
	tiers := Tiers()
	tiers[0] = Enterprise
	assert.Equal(t, Free, Tiers()[0])
}

func TestLookupCoversEveryTier(t *testing.T) {
	for _, tier := range Tiers() {
		plan := Lookup(tier)
		assert.Equal(t, tier, plan.Tier)
	}
	assert.Equal(t, Free, Lookup(Tier(42)).Tier, "out-of-range tier falls back to free")
}

func TestFeatureMatrixIsCumulative(t *testing.T) {
	tiers := Tiers()
	for i := 1; i < len(tiers); i++ {
		lower := Lookup(tiers[i-1]).Features
		higher := Lookup(tiers[i]).Features
		for _, f := range lower.List() {
			assert.True(t, higher.Has(f), "%s lost %s", tiers[i], f)
		}
		assert.Greater(t, higher.Len(), lower.Len())
	}
}

func TestFinancialReportsByTier(t *testing.T) {
	assert.False(t, Lookup(Free).HasFeature(FinancialReports))
	assert.False(t, Lookup(Starter).HasFeature(FinancialReports))
	assert.True(t, Lookup(Professional).HasFeature(FinancialReports))
	assert.True(t, Lookup(Enterprise).HasFeature(FinancialReports))
}

func TestMemberLimits(t *testing.T) {
	limit, ok := Lookup(Free).Limit(Members)
	require.True(t, ok)
	assert.EqualValues(t, 50, limit)

	_, ok = Lookup(Enterprise).Limit(Members)
	assert.False(t, ok, "enterprise members are unlimited")

	_, ok = Lookup(Free).Limit(Resource(99))
	assert.False(t, ok)
}

func TestLookupIsNotAliased(t *testing.T) {
	plan := Lookup(Starter)
	plan.MemberLimit = 1
	plan.Features = plan.Features.With(APIAccess)

	again := Lookup(Starter)
	assert.Equal(t, 150, again.MemberLimit)
	assert.False(t, again.HasFeature(APIAccess))
}

func TestMinimumTier(t *testing.T) {
	cases := map[Feature]Tier{
		MemberManagement: Free,
		TeamManagement:   Starter,
		FinancialReports: Professional,
		APIAccess:        Enterprise,
	}
	for feature, want := range cases {
		got, ok := MinimumTier(feature)
		require.True(t, ok, feature.String())
		assert.Equal(t, want, got, feature.String())
	}
	_, ok := MinimumTier(Feature(200))
	assert.False(t, ok)
}

func TestEveryFeatureOfferedSomewhere(t *testing.T) {
	for _, f := range Features() {
		_, ok := MinimumTier(f)
		assert.True(t, ok, "%s is not sold on any tier", f)
	}
}

func TestFeaturesCanonicalOrder(t *testing.T) {
	features := Features()
	require.Len(t, features, 15)
	assert.Equal(t, MemberManagement, features[0])
	assert.Equal(t, PrioritySupport, features[len(features)-1])
	assert.Equal(t, "financialReports", FinancialReports.String())
}

func TestParseFeature(t *testing.T) {
	f, ok := ParseFeature("teamManagement")
	require.True(t, ok)
	assert.Equal(t, TeamManagement, f)

	_, ok = ParseFeature("TeamManagement")
	assert.False(t, ok, "wire names are case sensitive")
	_, ok = ParseFeature("teleportation")
	assert.False(t, ok)
}

func TestParseTier(t *testing.T) {
	tests := []struct {
		in      string
		want    Tier
		wantErr bool
	}{
		{in: "", want: Free},
		{in: "free", want: Free},
		{in: " Starter ", want: Starter},
		{in: "PROFESSIONAL", want: Professional},
		{in: "enterprise", want: Enterprise},
		{in: "platinum", want: Free, wantErr: true},
	}
	for _, tc := range tests {
		got, err := ParseTier(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
		} else {
			assert.NoError(t, err, tc.in)
		}
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestTierTextRoundTrip(t *testing.T) {
	for _, tier := range Tiers() {
		text, err := tier.MarshalText()
		require.NoError(t, err)
		var back Tier
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, tier, back)
	}
	_, err := Tier(9).MarshalText()
	assert.Error(t, err)
}

func TestFeatureSetIgnoresInvalidFeatures(t *testing.T) {
	set := NewFeatureSet(Messaging, Feature(63))
	assert.Equal(t, 1, set.Len())
	assert.False(t, set.Has(Feature(63)))
	assert.Equal(t, []Feature{Messaging}, set.List())
}

func TestFeatureSetProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.SliceOf(rapid.Uint8Range(0, uint8(featureCount)-1)).Draw(t, "features")
		features := make([]Feature, len(raw))
		for i, v := range raw {
			features[i] = Feature(v)
		}
		set := NewFeatureSet(features...)
		for _, f := range features {
			if !set.Has(f) {
				t.Fatalf("set missing %s", f)
			}
		}
		for _, f := range set.List() {
			found := false
			for _, g := range features {
				if f == g {
					found = true
					break
				}
			}
			if !found {
				t.Fatalf("set contains unrequested %s", f)
			}
		}
	})
}

func TestParseResource(t *testing.T) {
	for _, r := range Resources() {
		got, ok := ParseResource(r.String())
		require.True(t, ok, r.String())
		assert.Equal(t, r, got)
	}
	_, ok := ParseResource("courts")
	assert.False(t, ok)

	var r Resource
	require.NoError(t, r.UnmarshalText([]byte("storage_bytes")))
	assert.Equal(t, Storage, r)
	assert.Error(t, r.UnmarshalText([]byte("courts")))
}
