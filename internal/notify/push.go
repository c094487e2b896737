package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/asclep-health/asclep/internal/config"
	"github.com/asclep-health/asclep/internal/domain"
)

// HTTPGateway posts deliveries to an external push gateway which handles
// the Web Push encryption and fan-out to the platform endpoints.
type HTTPGateway struct {
	cfg    config.PushConfig
	client *http.Client
}

func NewHTTPGateway(cfg config.PushConfig) *HTTPGateway {
	return &HTTPGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.RequestTimeout},
	}
}

type deliverRequest struct {
	Subscription domain.PushSubscription `json:"subscription"`
	Payload      Payload                 `json:"payload"`
	VAPIDSubject string                  `json:"vapid_subject"`
}

func (g *HTTPGateway) Deliver(ctx context.Context, sub domain.PushSubscription, payload Payload) error {
	if g.cfg.GatewayURL == "" {
		return ErrChannelUnavailable
	}

	body, err := json.Marshal(deliverRequest{
		Subscription: sub,
		Payload:      payload,
		VAPIDSubject: g.cfg.VAPIDSubject,
	})
	if err != nil {
		return fmt.Errorf("encoding push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.GatewayURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to push gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// 404/410 mean the subscription is dead at the platform; callers
		// surface this and the subscription manager cleans up.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push gateway returned %d: %s", resp.StatusCode, snippet)
	}

	return nil
}
