package domain

import "time"

const (
	baseTokens  = 10
	nightBonus  = 10
	quickBonus  = 15
	promptBonus = 10

	quickArrivalMinutes  = 30
	promptArrivalMinutes = 60
)

var urgencyBonus = map[Urgency]int{
	UrgencyCritical: 20,
	UrgencyHigh:     15,
	UrgencyMedium:   10,
	UrgencyLow:      5,
}

// TokenAward is the itemised token grant for one completed donation.
type TokenAward struct {
	Base           int `json:"base"`
	Urgency        int `json:"urgency"`
	Night          int `json:"night"`
	Responsiveness int `json:"responsiveness"`
}

func (a TokenAward) Total() int {
	return a.Base + a.Urgency + a.Night + a.Responsiveness
}

// ComputeTokens prices a completed donation. completedAt must already be in
// the service's local zone; the night window is hour < 6 or hour > 22, so
// 22:xx does not qualify. arrivalMinutes is nil when the donor did not report
// an arrival time.
func ComputeTokens(urgency Urgency, completedAt time.Time, arrivalMinutes *int) TokenAward {
	award := TokenAward{
		Base:    baseTokens,
		Urgency: urgencyBonus[urgency],
	}

	if hour := completedAt.Hour(); hour < 6 || hour > 22 {
		award.Night = nightBonus
	}

	if arrivalMinutes != nil {
		switch m := *arrivalMinutes; {
		case m <= quickArrivalMinutes:
			award.Responsiveness = quickBonus
		case m <= promptArrivalMinutes:
			award.Responsiveness = promptBonus
		}
	}
	return award
}

// DonationEvent records one donor's completed donation for one request.
// At most one exists per (RequestID, DonorID).
type DonationEvent struct {
	RequestID             string    `json:"requestId"`
	DonorID               string    `json:"donorId"`
	ArrivalLatencyMinutes *int      `json:"arrivalLatencyMinutes,omitempty"`
	TokensAwarded         int       `json:"tokensAwarded"`
	CompletedAt           time.Time `json:"completedAt"`
}

// CompletionResult is what a donor sees after completing a donation.
type CompletionResult struct {
	TokensAwarded int        `json:"tokensAwarded"`
	TotalTokens   int        `json:"totalTokens"`
	Title         string     `json:"title"`
	Breakdown     TokenAward `json:"breakdown"`
	RequestStatus Status     `json:"requestStatus"`
}

// RewardSummary is the donor's reward dashboard.
type RewardSummary struct {
	Donations    int           `json:"donations"`
	Tokens       int           `json:"tokens"`
	Title        string        `json:"title"`
	NextTitle    *string       `json:"nextTitle"`
	Progress     float64       `json:"progress"`
	Achievements []Achievement `json:"achievements"`
	Rewards      []Reward      `json:"rewards"`
}

// SummarizeRewards builds the dashboard from a donor's counters.
func SummarizeRewards(u *User) RewardSummary {
	p := TitleFor(u.Donations)
	return RewardSummary{
		Donations:    u.Donations,
		Tokens:       u.Tokens,
		Title:        u.Title,
		NextTitle:    p.NextTitle,
		Progress:     p.ProgressPercent,
		Achievements: AchievementsFor(u.Donations),
		Rewards:      RewardsFor(u.Donations),
	}
}
