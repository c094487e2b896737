package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/asclep-health/asclep/internal/domain"
	"github.com/asclep-health/asclep/internal/domain/medication"
)

var (
	ErrPermissionDenied   = errors.New("notification permission denied")
	ErrChannelUnavailable = errors.New("no notification channel available")
)

// Payload is what the push gateway forwards to the client worker. Tag is
// a stable per-medication identifier: platforms that deduplicate renders
// by tag naturally suppress a second render of the same occurrence.
type Payload struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Tag   string         `json:"tag"`
	Data  map[string]any `json:"data,omitempty"`
}

// Gateway is the opaque push transport: it accepts a subscription
// descriptor plus a payload and delivers it to the client-installed
// worker.
type Gateway interface {
	Deliver(ctx context.Context, sub domain.PushSubscription, payload Payload) error
}

// UserStore resolves the user owning a medication so delivery can find
// their subscription descriptor.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// PushNotifier delivers due-dose reminders through the push gateway.
type PushNotifier struct {
	gateway Gateway
	users   UserStore
	log     *zap.Logger
}

func NewPushNotifier(gateway Gateway, users UserStore, log *zap.Logger) *PushNotifier {
	return &PushNotifier{gateway: gateway, users: users, log: log}
}

// Notify pushes a reminder for the medication to its owner. Returns
// ErrChannelUnavailable when the user has no usable subscription; the
// scheduler treats any error as a retryable delivery failure.
func (n *PushNotifier) Notify(ctx context.Context, med *medication.Medication) error {
	user, err := n.users.GetByID(ctx, med.UserID)
	if err != nil {
		return fmt.Errorf("loading user %s: %w", med.UserID, err)
	}
	if !user.PushEnabled() {
		return ErrChannelUnavailable
	}

	payload := Payload{
		Title: "Time to take " + med.Name,
		Body:  "Dosage: " + med.Dosage,
		Tag:   med.ID.String(),
		Data: map[string]any{
			"medicationId": med.ID.String(),
			"url":          "/medications",
			"actions":      []string{"take", "skip", "snooze"},
		},
	}

	if err := n.gateway.Deliver(ctx, *user.PushSubscription, payload); err != nil {
		return fmt.Errorf("delivering push for medication %s: %w", med.ID, err)
	}

	n.log.Debug("push reminder delivered",
		zap.String("medication_id", med.ID.String()),
		zap.String("user_id", user.ID.String()),
	)
	return nil
}

// NotifyTest sends a fixed payload so the user can verify their channel
// works end to end.
func (n *PushNotifier) NotifyTest(ctx context.Context, userID uuid.UUID) error {
	user, err := n.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("loading user %s: %w", userID, err)
	}
	if !user.PushEnabled() {
		return ErrChannelUnavailable
	}

	payload := Payload{
		Title: "Notifications are working",
		Body:  "You will be reminded here when a dose is due.",
		Tag:   "test-" + userID.String(),
	}
	if err := n.gateway.Deliver(ctx, *user.PushSubscription, payload); err != nil {
		return fmt.Errorf("delivering test push: %w", err)
	}
	return nil
}
