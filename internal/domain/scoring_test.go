package domain

import "testing"

func TestPointsPerTier(t *testing.T) {
	cases := map[Tier]int{
		TierEasy:   5,
		TierMedium: 10,
		TierHard:   15,
		TierBonus:  20,
	}
	for tier, want := range cases {
		if got := PointsFor(tier); got != want {
			t.Fatalf("PointsFor(%s) = %d, want %d", tier, got, want)
		}
	}
	if PointsFor("unknown") != 0 {
		t.Fatalf("unknown tiers score nothing")
	}
}

func TestRequiredTiersSumToDailyMax(t *testing.T) {
	sum := 0
	for _, tier := range RequiredTiers {
		sum += PointsFor(tier)
	}
	if sum != MaxDailyPoints {
		t.Fatalf("required tiers sum to %d, want %d", sum, MaxDailyPoints)
	}
}

func TestInsufficientQuestionsErrorMessage(t *testing.T) {
	err := &InsufficientQuestionsError{Shortages: []TierShortage{
		{Tier: TierEasy, Found: 0},
		{Tier: TierHard, Found: 0},
	}}
	msg := err.Error()
	if msg == "" {
		t.Fatalf("expected a message")
	}
}
