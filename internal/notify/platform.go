package notify

import (
	"context"
	"errors"

	"github.com/asclep-health/asclep/internal/domain"
)

// ClientPlatform is the production Platform: permission prompts, worker
// registration and subscription creation all happen in the user's
// browser, which then POSTs the resulting descriptor to the API. From
// the server's point of view those steps are externally satisfied.
type ClientPlatform struct{}

func (ClientPlatform) RequestPermission(context.Context) (bool, error) {
	return true, nil
}

func (ClientPlatform) RegisterWorker(_ context.Context, path string) (string, error) {
	return path, nil
}

func (ClientPlatform) UnregisterWorker(context.Context, string) error {
	return nil
}

// Subscribe always fails: only the browser holds the push-service
// credentials needed to mint a descriptor. Clients use the Register flow.
func (ClientPlatform) Subscribe(context.Context, string) (*domain.PushSubscription, error) {
	return nil, errors.New("push subscriptions are created client-side")
}

// Unsubscribe is a no-op; the page revokes its own subscription and the
// stored descriptor is cleared server-side.
func (ClientPlatform) Unsubscribe(context.Context, *domain.PushSubscription) error {
	return nil
}
