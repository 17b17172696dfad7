// Package notify delivers outbound messages to a caller-supplied webhook,
// so channel integrations receive turns as they are produced.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/SINHASantos/csml-engine/pkg/domain"
)

// Notifier posts message batches as JSON to one webhook URL.
type Notifier struct {
	client *resty.Client
	url    string
}

// NotifierOption configures a Notifier.
type NotifierOption func(*Notifier)

// WithTimeout bounds each delivery attempt.
func WithTimeout(d time.Duration) NotifierOption {
	return func(n *Notifier) { n.client.SetTimeout(d) }
}

// WithRetries sets the number of delivery retries.
func WithRetries(count int) NotifierOption {
	return func(n *Notifier) { n.client.SetRetryCount(count) }
}

// New creates a Notifier for a webhook URL.
func New(url string, opts ...NotifierOption) *Notifier {
	n := &Notifier{
		client: resty.New().SetTimeout(10 * time.Second).SetRetryCount(2),
		url:    url,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// payloadEnvelope is the webhook body shape.
type payloadEnvelope struct {
	Client         domain.Client          `json:"client"`
	ConversationID string                 `json:"conversation_id"`
	Messages       []domain.MessageRecord `json:"messages"`
}

// Send delivers one batch of outbound messages. A non-2xx response is an
// error; delivery failures never affect the already-persisted run.
func (n *Notifier) Send(ctx context.Context, client domain.Client, conversationID string, msgs []domain.MessageRecord) error {
	if len(msgs) == 0 {
		return nil
	}
	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payloadEnvelope{Client: client, ConversationID: conversationID, Messages: msgs}).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("delivering messages: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook returned %s", resp.Status())
	}
	return nil
}
