package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/asclep-health/asclep/internal/domain"
	"github.com/asclep-health/asclep/internal/notify"
)

type NotificationHandler struct {
	subs     *notify.SubscriptionManager
	notifier *notify.PushNotifier
}

func NewNotificationHandler(subs *notify.SubscriptionManager, notifier *notify.PushNotifier) *NotificationHandler {
	return &NotificationHandler{subs: subs, notifier: notifier}
}

// Subscribe persists the push descriptor the browser created.
func (h *NotificationHandler) Subscribe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var sub domain.PushSubscription
	if !bindJSON(c, &sub) {
		return
	}

	if err := h.subs.Register(c.Request.Context(), userID, &sub); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"enabled": true})
}

func (h *NotificationHandler) Unsubscribe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.subs.Disable(c.Request.Context(), userID); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"enabled": false})
}

func (h *NotificationHandler) Status(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	enabled, err := h.subs.Status(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"enabled": enabled})
}

// Test fires a one-off push so the user can confirm delivery works.
func (h *NotificationHandler) Test(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.notifier.NotifyTest(c.Request.Context(), userID); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"message": "test notification sent"})
}
