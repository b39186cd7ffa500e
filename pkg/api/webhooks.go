package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Sternrassler/explorium-cli/pkg/client"
)

// Webhooks wraps the /webhooks endpoints. None of them are cached.
type Webhooks struct {
	doer Doer
}

// NewWebhooks creates the webhooks catalog.
func NewWebhooks(d Doer) *Webhooks {
	return &Webhooks{doer: d}
}

// Create registers webhookURL for partnerID.
func (w *Webhooks) Create(ctx context.Context, partnerID, webhookURL string) (client.Response, error) {
	return post(ctx, w.doer, "/webhooks", map[string]any{
		"partner_id":  partnerID,
		"webhook_url": webhookURL,
	}, false)
}

// Get returns the webhook of partnerID.
func (w *Webhooks) Get(ctx context.Context, partnerID string) (client.Response, error) {
	return get(ctx, w.doer, webhookPath(partnerID), nil, false)
}

// Update replaces the webhook URL of partnerID.
func (w *Webhooks) Update(ctx context.Context, partnerID, webhookURL string) (client.Response, error) {
	return w.doer.Do(ctx, client.Request{
		Method: http.MethodPut,
		Path:   webhookPath(partnerID),
		Body:   map[string]any{"webhook_url": webhookURL},
	})
}

// Delete removes the webhook of partnerID.
func (w *Webhooks) Delete(ctx context.Context, partnerID string) (client.Response, error) {
	return w.doer.Do(ctx, client.Request{
		Method: http.MethodDelete,
		Path:   webhookPath(partnerID),
	})
}

func webhookPath(partnerID string) string {
	return "/webhooks/" + url.PathEscape(partnerID)
}
