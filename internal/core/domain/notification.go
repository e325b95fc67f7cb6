package domain

import "time"

type NotificationType string

const (
	NotificationRequestAccepted   NotificationType = "request.accepted"
	NotificationDonorArrived      NotificationType = "donor.arrived"
	NotificationRequestCancelled  NotificationType = "request.cancelled"
	NotificationDonationCompleted NotificationType = "donation.completed"
)

// Notification is an outbound message to a user about a request.
type Notification struct {
	ID          string           `json:"id"`
	Type        NotificationType `json:"type"`
	RequestID   string           `json:"requestId"`
	RecipientID string           `json:"recipientId"`
	ActorID     string           `json:"actorId,omitempty"`
	Message     string           `json:"message"`
	OccurredAt  time.Time        `json:"occurredAt"`
}
