package domain

import (
	"slices"
	"strings"
	"time"
)

type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

var urgencyRank = map[Urgency]int{
	UrgencyLow:      1,
	UrgencyMedium:   2,
	UrgencyHigh:     3,
	UrgencyCritical: 4,
}

func (u Urgency) Valid() bool {
	_, ok := urgencyRank[u]
	return ok
}

// Rank orders urgencies; higher is more urgent.
func (u Urgency) Rank() int {
	return urgencyRank[u]
}

type Status string

const (
	StatusPending            Status = "pending"
	StatusActive             Status = "active"
	StatusPartiallyFulfilled Status = "partially_fulfilled"
	StatusFulfilled          Status = "fulfilled"
	StatusCancelled          Status = "cancelled"
)

// FulfilmentThreshold is the confirmed-donor count at which a completion
// marks the request fulfilled.
const FulfilmentThreshold = 3

var transitions = map[Status][]Status{
	StatusPending:            {StatusActive, StatusCancelled},
	StatusActive:             {StatusPartiallyFulfilled, StatusFulfilled, StatusCancelled},
	StatusPartiallyFulfilled: {StatusFulfilled, StatusCancelled},
}

func (s Status) Terminal() bool {
	return s == StatusFulfilled || s == StatusCancelled
}

// CanTransition reports whether the lifecycle allows from -> to.
func CanTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// BloodRequest is a client's call for donors.
type BloodRequest struct {
	ID              string    `json:"id"`
	ClientID        string    `json:"clientId"`
	BloodType       BloodType `json:"bloodType"`
	HospitalName    string    `json:"hospitalName"`
	LocationDetails string    `json:"locationDetails"`
	TimeLimit       time.Time `json:"timeLimit"`
	Urgency         Urgency   `json:"urgency"`
	AdditionalInfo  string    `json:"additionalInfo,omitempty"`
	Status          Status    `json:"status"`
	// AssignedDonors have been notified but have not committed.
	AssignedDonors  []string  `json:"assignedDonors"`
	ConfirmedDonors []string  `json:"confirmedDonors"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// NewRequestInput carries the client-supplied fields of a new request.
type NewRequestInput struct {
	BloodType       BloodType
	HospitalName    string
	LocationDetails string
	TimeLimit       time.Time
	Urgency         Urgency
	AdditionalInfo  string
}

// NewBloodRequest validates in and returns an active request with no donors.
func NewBloodRequest(id, clientID string, in NewRequestInput, now time.Time) (*BloodRequest, error) {
	var missing []string
	if in.BloodType == "" {
		missing = append(missing, "bloodType")
	}
	if strings.TrimSpace(in.HospitalName) == "" {
		missing = append(missing, "hospitalName")
	}
	if strings.TrimSpace(in.LocationDetails) == "" {
		missing = append(missing, "locationDetails")
	}
	if in.TimeLimit.IsZero() {
		missing = append(missing, "timeLimit")
	}
	if in.Urgency == "" {
		missing = append(missing, "urgency")
	}
	if len(missing) > 0 {
		return nil, NewError(CodeValidation, "missing required fields: "+strings.Join(missing, ", "))
	}
	if !in.BloodType.Valid() {
		return nil, NewError(CodeValidation, "invalid blood type: "+string(in.BloodType))
	}
	if !in.Urgency.Valid() {
		return nil, NewError(CodeValidation, "invalid urgency: "+string(in.Urgency))
	}
	if !in.TimeLimit.After(now) {
		return nil, NewError(CodeValidation, "timeLimit must be in the future")
	}

	return &BloodRequest{
		ID:              id,
		ClientID:        clientID,
		BloodType:       in.BloodType,
		HospitalName:    strings.TrimSpace(in.HospitalName),
		LocationDetails: strings.TrimSpace(in.LocationDetails),
		TimeLimit:       in.TimeLimit,
		Urgency:         in.Urgency,
		AdditionalInfo:  strings.TrimSpace(in.AdditionalInfo),
		Status:          StatusActive,
		AssignedDonors:  []string{},
		ConfirmedDonors: []string{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Expired reports whether the time limit has passed at now.
func (r *BloodRequest) Expired(now time.Time) bool {
	return !now.Before(r.TimeLimit)
}

// OpenAt reports whether donors may still see and accept the request.
func (r *BloodRequest) OpenAt(now time.Time) bool {
	return r.Status == StatusActive && !r.Expired(now)
}

func (r *BloodRequest) HasConfirmed(donorID string) bool {
	return slices.Contains(r.ConfirmedDonors, donorID)
}

func (r *BloodRequest) transition(to Status, now time.Time) error {
	if !CanTransition(r.Status, to) {
		return NewError(CodeInvalidState, "cannot move request from "+string(r.Status)+" to "+string(to))
	}
	r.Status = to
	r.UpdatedAt = now
	return nil
}

// Accept confirms donorID for this request. Callers must hold the request's
// update lock so the duplicate check and the append are one step.
func (r *BloodRequest) Accept(donorID string, donorType BloodType, now time.Time) error {
	if r.Status != StatusActive {
		return NewError(CodeInvalidState, "this request is no longer active")
	}
	if r.Expired(now) {
		return NewError(CodeInvalidState, "this request has passed its time limit")
	}
	if r.HasConfirmed(donorID) {
		return NewError(CodeAlreadyAccepted, "you have already accepted this request")
	}
	if !IsCompatible(donorType, r.BloodType) {
		return NewError(CodeIncompatible, "blood group "+string(donorType)+" cannot donate to "+string(r.BloodType))
	}
	r.ConfirmedDonors = append(r.ConfirmedDonors, donorID)
	r.AssignedDonors = slices.DeleteFunc(r.AssignedDonors, func(id string) bool { return id == donorID })
	r.UpdatedAt = now
	return nil
}

// CheckArrival validates that donorID may announce arrival.
func (r *BloodRequest) CheckArrival(donorID string) error {
	if !r.HasConfirmed(donorID) {
		return NewError(CodeNotAssigned, "you are not assigned to this request")
	}
	if r.Status == StatusCancelled {
		return NewError(CodeInvalidState, "this request has been cancelled")
	}
	return nil
}

// Cancel withdraws the request on behalf of its owner.
func (r *BloodRequest) Cancel(clientID string, now time.Time) error {
	if r.ClientID != clientID {
		return NewError(CodeForbidden, "only the requester can cancel this request")
	}
	if r.Status.Terminal() {
		return NewError(CodeInvalidState, "request is already "+string(r.Status))
	}
	if r.Expired(now) {
		return NewError(CodeInvalidState, "request has passed its time limit")
	}
	return r.transition(StatusCancelled, now)
}

// ApplyCompletion records that donorID has donated and promotes the status.
// This is the only place fulfilment is decided: fulfilled once at least
// FulfilmentThreshold donors are confirmed, partially fulfilled otherwise.
func (r *BloodRequest) ApplyCompletion(donorID string, now time.Time) error {
	if !r.HasConfirmed(donorID) {
		return NewError(CodeNotAssigned, "you are not assigned to this request")
	}
	if r.Status == StatusCancelled {
		return NewError(CodeInvalidState, "this request has been cancelled")
	}

	target := StatusPartiallyFulfilled
	if len(r.ConfirmedDonors) >= FulfilmentThreshold {
		target = StatusFulfilled
	}
	if r.Status == target || r.Status == StatusFulfilled {
		r.UpdatedAt = now
		return nil
	}
	return r.transition(target, now)
}

// DonorRequestView is a request as listed to a donor, flagged with whether
// the donor's blood group can serve it.
type DonorRequestView struct {
	*BloodRequest
	Compatible bool `json:"compatible"`
}

// RankForDonor keeps the requests a donor may act on and orders them by
// urgency, then compatibility with donorType, then newest first.
func RankForDonor(requests []*BloodRequest, donorType BloodType, now time.Time) []DonorRequestView {
	views := make([]DonorRequestView, 0, len(requests))
	for _, r := range requests {
		if !r.OpenAt(now) {
			continue
		}
		views = append(views, DonorRequestView{BloodRequest: r, Compatible: IsCompatible(donorType, r.BloodType)})
	}
	slices.SortStableFunc(views, func(a, b DonorRequestView) int {
		if d := b.Urgency.Rank() - a.Urgency.Rank(); d != 0 {
			return d
		}
		if a.Compatible != b.Compatible {
			if a.Compatible {
				return -1
			}
			return 1
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return views
}

// NewestFirst orders a client's own requests by creation time, newest first.
func NewestFirst(requests []*BloodRequest) {
	slices.SortStableFunc(requests, func(a, b *BloodRequest) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}
