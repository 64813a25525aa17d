package notify

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
)

// Swapped in tests; the SDK's error type cannot be built outside it.
var (
	isUnregistered     = messaging.IsUnregistered
	isInvalidArgument  = messaging.IsInvalidArgument
	isSenderIDMismatch = messaging.IsSenderIDMismatch
)

type messagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCM delivers through Firebase Cloud Messaging.
type FCM struct {
	client messagingClient
}

func NewFCM(ctx context.Context, app *firebase.App) (*FCM, error) {
	c, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("messaging client: %w", err)
	}
	return &FCM{client: c}, nil
}

func (f *FCM) Send(ctx context.Context, m Message) (string, error) {
	id, err := f.client.Send(ctx, &messaging.Message{
		Notification: &messaging.Notification{
			Title: m.Title,
			Body:  m.Body,
		},
		Token: m.Token,
	})
	if err != nil {
		return "", classify(err)
	}
	return id, nil
}

// classify separates per-token rejections from provider failures. The
// message itself is fixed, so an invalid argument can only be the token.
func classify(err error) error {
	switch {
	case isUnregistered(err):
		return fmt.Errorf("fcm send: %w: %v", ErrStaleToken, err)
	case isInvalidArgument(err), isSenderIDMismatch(err):
		return fmt.Errorf("fcm send: %w: %v", ErrRejectedToken, err)
	default:
		return fmt.Errorf("fcm send: %w", err)
	}
}
