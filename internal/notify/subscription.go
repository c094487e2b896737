package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/asclep-health/asclep/internal/config"
	"github.com/asclep-health/asclep/internal/domain"
)

// Platform abstracts the client-side permission and worker registration
// surface. In production the browser performs these steps and the HTTP
// handler feeds us the resulting descriptor; the full Enable flow drives
// a connected platform end to end.
type Platform interface {
	RequestPermission(ctx context.Context) (granted bool, err error)
	RegisterWorker(ctx context.Context, path string) (handle string, err error)
	UnregisterWorker(ctx context.Context, handle string) error
	Subscribe(ctx context.Context, vapidPublicKey string) (*domain.PushSubscription, error)
	Unsubscribe(ctx context.Context, sub *domain.PushSubscription) error
}

// SubscriptionStore persists the descriptor on the user record. A nil
// subscription clears it.
type SubscriptionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	SavePushSubscription(ctx context.Context, userID uuid.UUID, sub *domain.PushSubscription) error
}

// SubscriptionManager owns the push-registration lifecycle. Enable
// unwinds partial registrations on failure so a dangling platform
// subscription can never outlive its server-side record.
type SubscriptionManager struct {
	platform Platform
	store    SubscriptionStore
	cfg      config.PushConfig
	log      *zap.Logger
}

func NewSubscriptionManager(platform Platform, store SubscriptionStore, cfg config.PushConfig, log *zap.Logger) *SubscriptionManager {
	return &SubscriptionManager{platform: platform, store: store, cfg: cfg, log: log}
}

// Enable walks the full registration: permission, worker, subscription,
// persistence. Every step that can fail after the permission grant
// cleans up what came before it.
func (m *SubscriptionManager) Enable(ctx context.Context, userID uuid.UUID) (*domain.PushSubscription, error) {
	granted, err := m.platform.RequestPermission(ctx)
	if err != nil {
		return nil, fmt.Errorf("requesting notification permission: %w", err)
	}
	if !granted {
		return nil, ErrPermissionDenied
	}

	handle, err := m.platform.RegisterWorker(ctx, m.cfg.WorkerPath)
	if err != nil {
		return nil, fmt.Errorf("registering delivery worker: %w", err)
	}

	sub, err := m.platform.Subscribe(ctx, m.cfg.VAPIDPublicKey)
	if err != nil {
		m.unwind(ctx, nil, handle)
		return nil, fmt.Errorf("creating push subscription: %w", err)
	}

	if err := m.store.SavePushSubscription(ctx, userID, sub); err != nil {
		m.unwind(ctx, sub, handle)
		return nil, fmt.Errorf("persisting push subscription: %w", err)
	}

	m.log.Info("push notifications enabled", zap.String("user_id", userID.String()))
	return sub, nil
}

// unwind tears down a partially completed registration, best effort.
func (m *SubscriptionManager) unwind(ctx context.Context, sub *domain.PushSubscription, handle string) {
	if sub != nil {
		if err := m.platform.Unsubscribe(ctx, sub); err != nil {
			m.log.Warn("cleanup: unsubscribe failed", zap.Error(err))
		}
	}
	if handle != "" {
		if err := m.platform.UnregisterWorker(ctx, handle); err != nil {
			m.log.Warn("cleanup: unregister worker failed", zap.Error(err))
		}
	}
}

// Register persists a descriptor the client created itself (the normal
// browser flow: the page subscribes and POSTs us the result).
func (m *SubscriptionManager) Register(ctx context.Context, userID uuid.UUID, sub *domain.PushSubscription) error {
	if !sub.IsValid() {
		return fmt.Errorf("subscription descriptor is missing endpoint or keys")
	}
	if err := m.store.SavePushSubscription(ctx, userID, sub); err != nil {
		return fmt.Errorf("persisting push subscription: %w", err)
	}
	m.log.Info("push subscription registered", zap.String("user_id", userID.String()))
	return nil
}

// Disable removes the subscription. Idempotent: disabling a user with no
// subscription is a no-op.
func (m *SubscriptionManager) Disable(ctx context.Context, userID uuid.UUID) error {
	user, err := m.store.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("loading user: %w", err)
	}
	if !user.PushEnabled() {
		return nil
	}

	if err := m.platform.Unsubscribe(ctx, user.PushSubscription); err != nil {
		// The platform registration may already be gone; the persisted
		// record is authoritative, so still clear it.
		m.log.Warn("unsubscribe failed, clearing stored descriptor anyway",
			zap.String("user_id", userID.String()), zap.Error(err))
	}

	if err := m.store.SavePushSubscription(ctx, userID, nil); err != nil {
		return fmt.Errorf("clearing push subscription: %w", err)
	}

	m.log.Info("push notifications disabled", zap.String("user_id", userID.String()))
	return nil
}

// Status reports whether the user currently has a usable subscription.
func (m *SubscriptionManager) Status(ctx context.Context, userID uuid.UUID) (bool, error) {
	user, err := m.store.GetByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("loading user: %w", err)
	}
	return user.PushEnabled(), nil
}
