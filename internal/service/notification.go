package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"negotiation/internal/domain"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationOfferBroadcast  NotificationType = "OFFER_BROADCAST"
	NotificationOfferAccepted   NotificationType = "OFFER_ACCEPTED"
	NotificationOfferRejected   NotificationType = "OFFER_REJECTED"
	NotificationOfferCountered  NotificationType = "OFFER_COUNTERED"
	NotificationOfferExpired    NotificationType = "OFFER_EXPIRED"
	NotificationCounterAccepted NotificationType = "COUNTER_ACCEPTED"
	NotificationCounterDeclined NotificationType = "COUNTER_DECLINED"
)

// Notification represents a notification to be sent.
type Notification struct {
	ID          string
	Type        NotificationType
	RecipientID string // Rider or driver ID
	Title       string
	Message     string
	Data        map[string]interface{}
	CreatedAt   time.Time
}

// NotificationService handles notification delivery.
type NotificationService struct {
	// In a real system, this would have:
	// - Push notification client (FCM, APNS)
	// - SMS client (Twilio)
	// - WebSocket connections for real-time
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// BroadcastOffer notifies candidate responders about a new rider offer.
func (s *NotificationService) BroadcastOffer(ctx context.Context, n *domain.Negotiation, candidateIDs []string) error {
	for _, driverID := range candidateIDs {
		notification := Notification{
			Type:        NotificationOfferBroadcast,
			RecipientID: driverID,
			Title:       "New Fare Offer",
			Message:     fmt.Sprintf("Rider offered %.2f (reference fare %.2f)", n.ProposedAmount, n.ReferenceFare),
			Data: map[string]interface{}{
				"negotiation_id": n.ID,
				"trip_id":        n.TripID,
				"proposed":       n.ProposedAmount,
				"expires_at":     n.ExpiresAt,
			},
			CreatedAt: time.Now(),
		}
		s.send(ctx, notification)
	}
	return nil
}

// NotifyResolved notifies the initiator about how a negotiation resolved.
func (s *NotificationService) NotifyResolved(ctx context.Context, n *domain.Negotiation) error {
	var notifType NotificationType
	var message string

	switch n.Status {
	case domain.NegotiationStatusAccepted:
		if n.Round == domain.RoundCounterAccept {
			notifType = NotificationCounterAccepted
			message = fmt.Sprintf("You accepted the counter-offer of %.2f", n.ProposedAmount)
		} else {
			notifType = NotificationOfferAccepted
			message = fmt.Sprintf("Your offer of %.2f was accepted", n.ProposedAmount)
		}
	case domain.NegotiationStatusRejected:
		if n.Round == domain.RoundCounterAccept {
			notifType = NotificationCounterDeclined
			message = "You declined the counter-offer"
		} else {
			notifType = NotificationOfferRejected
			message = fmt.Sprintf("Your offer of %.2f was rejected", n.ProposedAmount)
		}
	case domain.NegotiationStatusCountered:
		notifType = NotificationOfferCountered
		message = fmt.Sprintf("Driver countered with %.2f", n.CounterAmount)
	case domain.NegotiationStatusExpired:
		notifType = NotificationOfferExpired
		message = "Your offer expired without a response"
	default:
		return nil // Nothing to report while pending.
	}

	notification := Notification{
		Type:        notifType,
		RecipientID: n.InitiatorID,
		Title:       "Fare Negotiation Update",
		Message:     message,
		Data: map[string]interface{}{
			"negotiation_id": n.ID,
			"trip_id":        n.TripID,
			"status":         string(n.Status),
			"round":          n.Round,
		},
		CreatedAt: time.Now(),
	}
	return s.send(ctx, notification)
}

// send delivers a notification (mock implementation).
func (s *NotificationService) send(ctx context.Context, notification Notification) error {
	// In a real implementation, this would:
	// 1. Store notification in database
	// 2. Send push notification via FCM/APNS
	// 3. Broadcast via WebSocket for real-time updates

	log.Printf("[NOTIFICATION] Type=%s, Recipient=%s, Title=%s, Message=%s",
		notification.Type, notification.RecipientID, notification.Title, notification.Message)

	return nil
}
