package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTitleFor(t *testing.T) {
	tests := []struct {
		donations int
		title     string
		next      string
		progress  float64
	}{
		{0, TitleNewHero, TitleRisingHero, 0},
		{4, TitleNewHero, TitleRisingHero, 80},
		{5, TitleRisingHero, TitleExperiencedHero, 0},
		{7, TitleRisingHero, TitleExperiencedHero, 40},
		{10, TitleExperiencedHero, TitleLegendary, 0},
		{15, TitleExperiencedHero, TitleLegendary, 50},
		{19, TitleExperiencedHero, TitleLegendary, 90},
	}

	for _, tt := range tests {
		got := TitleFor(tt.donations)
		assert.Equal(t, tt.title, got.Title, "donations=%d", tt.donations)
		require.NotNil(t, got.NextTitle, "donations=%d", tt.donations)
		assert.Equal(t, tt.next, *got.NextTitle, "donations=%d", tt.donations)
		assert.InDelta(t, tt.progress, got.ProgressPercent, 1e-9, "donations=%d", tt.donations)
	}
}

func TestTitleFor_TopTier(t *testing.T) {
	for _, n := range []int{20, 21, 150} {
		got := TitleFor(n)
		assert.Equal(t, TitleLegendary, got.Title)
		assert.Nil(t, got.NextTitle)
		assert.Equal(t, float64(100), got.ProgressPercent)
	}
}

func TestMilestonePredicates(t *testing.T) {
	tests := []struct {
		name string
		pred func(int) bool
		at   int
	}{
		{"first", FirstDonationUnlocked, 1},
		{"five", FiveDonationsUnlocked, 5},
		{"ten", TenDonationsUnlocked, 10},
		{"twenty", TwentyDonationsUnlocked, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, tt.pred(tt.at-1))
			assert.True(t, tt.pred(tt.at))
			assert.True(t, tt.pred(tt.at+1))
		})
	}
}

func TestAchievementsAndRewardsFor(t *testing.T) {
	achievements := AchievementsFor(5)
	require.Len(t, achievements, 4)
	unlocked := map[string]bool{}
	for _, a := range achievements {
		unlocked[a.ID] = a.Unlocked
	}
	assert.Equal(t, map[string]bool{
		"first_donation":   true,
		"five_donations":   true,
		"ten_donations":    false,
		"twenty_donations": false,
	}, unlocked)

	rewards := RewardsFor(10)
	require.Len(t, rewards, 4)
	for _, r := range rewards {
		switch r.ID {
		case "certificate_1", "tshirt_1", "certificate_2":
			assert.True(t, r.Unlocked, r.ID)
		case "tshirt_2":
			assert.False(t, r.Unlocked)
			assert.True(t, r.ComingSoon)
		default:
			t.Fatalf("unexpected reward %s", r.ID)
		}
	}

	// catalog is not mutated between calls
	assert.False(t, AchievementsFor(0)[0].Unlocked)
}
