package notify

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Notification is a push payload shown on the recipient's device
type Notification struct {
	Title string
	Body  string
	Data  map[string]string
}

// Result is the delivery outcome for one device token
type Result struct {
	Token     string
	MessageID string
	Err       error
}

// Sender delivers one notification to many device tokens in a single call.
// A non-nil error means the whole call failed; per-token failures are in the results.
type Sender interface {
	SendMulticast(ctx context.Context, tokens []string, n Notification) ([]Result, error)
}

// FCMSender delivers notifications through Firebase Cloud Messaging
type FCMSender struct {
	client         *messaging.Client
	androidChannel string
}

// NewFCMSender initializes the Firebase app from a service account file
func NewFCMSender(ctx context.Context, credentialsFile, androidChannel string) (*FCMSender, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create messaging client: %w", err)
	}

	return &FCMSender{client: client, androidChannel: androidChannel}, nil
}

// SendMulticast sends n to every token with high Android priority
func (s *FCMSender) SendMulticast(ctx context.Context, tokens []string, n Notification) ([]Result, error) {
	msg := &messaging.MulticastMessage{
		Tokens: tokens,
		Data:   n.Data,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID:    s.androidChannel,
				DefaultSound: true,
				Priority:     messaging.PriorityHigh,
			},
		},
	}

	resp, err := s.client.SendEachForMulticast(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("failed to send multicast: %w", err)
	}

	results := make([]Result, len(resp.Responses))
	for i, r := range resp.Responses {
		results[i] = Result{Token: tokens[i], MessageID: r.MessageID, Err: r.Error}
	}
	return results, nil
}

// NoopSender drops every notification. Used when Firebase is not configured.
type NoopSender struct{}

// SendMulticast logs and discards the notification
func (NoopSender) SendMulticast(_ context.Context, tokens []string, n Notification) ([]Result, error) {
	log.Printf("Push disabled, skipping %q to %d device(s)", n.Title, len(tokens))
	return nil, nil
}
