package domain

const (
	TitleNewHero         = "New Hero"
	TitleRisingHero      = "Rising Hero"
	TitleExperiencedHero = "Experienced Hero"
	TitleLegendary       = "Legendary Life Saver"
)

// TitleProgress is a donor's rank and how far they are towards the next one.
// NextTitle is nil once the top title is reached.
type TitleProgress struct {
	Title           string  `json:"title"`
	NextTitle       *string `json:"nextTitle"`
	ProgressPercent float64 `json:"progress"`
}

// TitleFor derives the title from a cumulative donation count.
func TitleFor(donations int) TitleProgress {
	if donations < 0 {
		donations = 0
	}
	switch {
	case donations < 5:
		return progress(TitleNewHero, TitleRisingHero, donations, 5)
	case donations < 10:
		return progress(TitleRisingHero, TitleExperiencedHero, donations-5, 5)
	case donations < 20:
		return progress(TitleExperiencedHero, TitleLegendary, donations-10, 10)
	default:
		return TitleProgress{Title: TitleLegendary, ProgressPercent: 100}
	}
}

func progress(title, next string, done, span int) TitleProgress {
	return TitleProgress{
		Title:           title,
		NextTitle:       &next,
		ProgressPercent: float64(done) / float64(span) * 100,
	}
}

// Achievement is a milestone badge unlocked by donation count.
type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Threshold   int    `json:"-"`
	Unlocked    bool   `json:"unlocked"`
}

// Reward is a physical or printable item from the reward catalog.
type Reward struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Threshold   int    `json:"-"`
	ComingSoon  bool   `json:"comingSoon,omitempty"`
	Unlocked    bool   `json:"unlocked"`
}

func FirstDonationUnlocked(donations int) bool   { return donations >= 1 }
func FiveDonationsUnlocked(donations int) bool   { return donations >= 5 }
func TenDonationsUnlocked(donations int) bool    { return donations >= 10 }
func TwentyDonationsUnlocked(donations int) bool { return donations >= 20 }

var achievementCatalog = []Achievement{
	{ID: "first_donation", Name: "First Drop", Description: "Complete your first donation", Threshold: 1},
	{ID: "five_donations", Name: "Regular Hero", Description: "Complete 5 donations", Threshold: 5},
	{ID: "ten_donations", Name: "Dedicated Hero", Description: "Complete 10 donations", Threshold: 10},
	{ID: "twenty_donations", Name: "Legendary Status", Description: "Complete 20 donations", Threshold: 20},
}

var rewardCatalog = []Reward{
	{ID: "certificate_1", Name: "Rookie Donor Certificate", Type: "certificate", Description: "For completing your first donation", Threshold: 1},
	{ID: "tshirt_1", Name: "Hero T-Shirt", Type: "tshirt", Description: "Unlock after 5 donations", Threshold: 5, ComingSoon: true},
	{ID: "certificate_2", Name: "Experienced Donor Certificate", Type: "certificate", Description: "For completing 10 donations", Threshold: 10},
	{ID: "tshirt_2", Name: "Legendary Hero T-Shirt", Type: "tshirt", Description: "Unlock after 20 donations", Threshold: 20, ComingSoon: true},
}

// unlockedAt evaluates the milestone predicate for a threshold.
func unlockedAt(threshold, donations int) bool {
	switch threshold {
	case 1:
		return FirstDonationUnlocked(donations)
	case 5:
		return FiveDonationsUnlocked(donations)
	case 10:
		return TenDonationsUnlocked(donations)
	case 20:
		return TwentyDonationsUnlocked(donations)
	}
	return donations >= threshold
}

// AchievementsFor returns the achievement list with unlock flags set.
func AchievementsFor(donations int) []Achievement {
	out := make([]Achievement, len(achievementCatalog))
	for i, a := range achievementCatalog {
		a.Unlocked = unlockedAt(a.Threshold, donations)
		out[i] = a
	}
	return out
}

// RewardsFor returns the reward catalog with unlock flags set.
func RewardsFor(donations int) []Reward {
	out := make([]Reward, len(rewardCatalog))
	for i, r := range rewardCatalog {
		r.Unlocked = unlockedAt(r.Threshold, donations)
		out[i] = r
	}
	return out
}
