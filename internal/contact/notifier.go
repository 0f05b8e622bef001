package contact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
)

// Notifier fans accepted submissions out to other systems.
type Notifier interface {
	Notify(ctx context.Context, receipt Receipt, s Submission) error
}

type notification struct {
	ID         string `json:"id"`
	Lang       string `json:"lang"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Message    string `json:"message"`
	ReceivedAt string `json:"receivedAt"`
}

// PubSubNotifier publishes submissions to a Pub/Sub topic.
type PubSubNotifier struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubNotifier constructs a notifier for topic.
func NewPubSubNotifier(topic *pubsub.Topic) (*PubSubNotifier, error) {
	if topic == nil {
		return nil, errors.New("contact: pubsub topic is required")
	}
	return &PubSubNotifier{topic: topic, marshal: json.Marshal}, nil
}

func (n *PubSubNotifier) Notify(ctx context.Context, receipt Receipt, s Submission) error {
	data, err := n.marshal(notification{
		ID:         receipt.ID,
		Lang:       string(s.Lang),
		Name:       s.Name,
		Email:      s.Email,
		Message:    s.Message,
		ReceivedAt: receipt.ReceivedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("contact: marshal notification: %w", err)
	}
	attrs := map[string]string{"submissionId": receipt.ID}
	if lang := strings.TrimSpace(string(s.Lang)); lang != "" {
		attrs["lang"] = lang
	}
	result := n.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("contact: publish notification: %w", err)
	}
	return nil
}
