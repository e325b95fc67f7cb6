package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleDonor  Role = "donor"
	RoleClient Role = "client"
)

func (r Role) Valid() bool {
	return r == RoleDonor || r == RoleClient
}

const (
	MinDonorAge    = 18
	MaxDonorAge    = 65
	MinDonorWeight = 45.0
)

// User is either a client posting requests or a donor answering them.
//
// Donations, Tokens and Title form the donor's reward aggregate. They are
// changed only by ApplyDonation; Title is always TitleFor(Donations).Title.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	PhoneNumber  string    `json:"phoneNumber"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Age          *int      `json:"age,omitempty"`
	Weight       *float64  `json:"weight,omitempty"`
	BloodGroup   BloodType `json:"bloodGroup,omitempty"`
	HealthInfo   []string  `json:"healthInfo,omitempty"`
	// DetailsSubmitted is set once the donor has filed a complete profile.
	DetailsSubmitted bool      `json:"detailsSubmitted"`
	Donations        int       `json:"donations"`
	Tokens           int       `json:"tokens"`
	Title            string    `json:"title"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// NewUser builds a freshly signed-up user with zeroed reward counters.
func NewUser(id, name, phone, passwordHash string, role Role, now time.Time) *User {
	return &User{
		ID:           id,
		Name:         name,
		PhoneNumber:  phone,
		PasswordHash: passwordHash,
		Role:         role,
		Title:        TitleFor(0).Title,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (u *User) IsDonor() bool {
	return u.Role == RoleDonor
}

// HasBloodGroup reports whether the donor can be matched against requests.
func (u *User) HasBloodGroup() bool {
	return u.BloodGroup != ""
}

// ApplyDonation credits one completed donation worth tokens.
func (u *User) ApplyDonation(tokens int, now time.Time) {
	u.Donations++
	u.Tokens += tokens
	u.Title = TitleFor(u.Donations).Title
	u.UpdatedAt = now
}

// ApplyProfile stores validated donor details.
func (u *User) ApplyProfile(p DonorProfile, now time.Time) {
	age, weight := p.Age, p.Weight
	u.Age = &age
	u.Weight = &weight
	u.BloodGroup = p.BloodGroup
	u.HealthInfo = append([]string(nil), p.HealthInfo...)
	u.DetailsSubmitted = true
	u.UpdatedAt = now
}

// Profile returns the donor details currently on file.
func (u *User) Profile() DonorDetails {
	return DonorDetails{
		Age:              u.Age,
		Weight:           u.Weight,
		BloodGroup:       u.BloodGroup,
		HealthInfo:       u.HealthInfo,
		DetailsSubmitted: u.DetailsSubmitted,
	}
}

// DonorProfile is the input for filing donor details.
type DonorProfile struct {
	Age        int
	Weight     float64
	BloodGroup BloodType
	HealthInfo []string
}

// Validate checks the eligibility bounds for blood donors.
func (p DonorProfile) Validate() error {
	if p.Age < MinDonorAge || p.Age > MaxDonorAge {
		return NewError(CodeValidation, "age must be between 18 and 65")
	}
	if p.Weight < MinDonorWeight {
		return NewError(CodeValidation, "weight must be at least 45 kg")
	}
	if !p.BloodGroup.Valid() {
		return NewError(CodeValidation, "invalid blood group")
	}
	if len(p.HealthInfo) == 0 {
		return NewError(CodeValidation, "health info must be a non-empty list")
	}
	for _, h := range p.HealthInfo {
		if strings.TrimSpace(h) == "" {
			return NewError(CodeValidation, "health info entries must not be blank")
		}
	}
	return nil
}

// DonorDetails is the donor-facing view of the profile.
type DonorDetails struct {
	Age              *int      `json:"age,omitempty"`
	Weight           *float64  `json:"weight,omitempty"`
	BloodGroup       BloodType `json:"bloodGroup,omitempty"`
	HealthInfo       []string  `json:"healthInfo,omitempty"`
	DetailsSubmitted bool      `json:"detailsSubmitted"`
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID string
	Role   Role
}
