package notify

import (
	"context"
	"errors"
)

// Message is one push notification addressed to a single device token.
type Message struct {
	Title string
	Body  string
	Token string
}

// Sender submits a message for delivery and returns the provider's
// acknowledgment id.
type Sender interface {
	Send(ctx context.Context, m Message) (string, error)
}

// ErrStaleToken marks a send rejected because the destination token is no
// longer registered.
var ErrStaleToken = errors.New("destination token not registered")

// ErrRejectedToken marks a send the provider refused for this token alone:
// malformed, or registered to a different sender.
var ErrRejectedToken = errors.New("destination token rejected")

// IsTokenError reports whether err concerns only the addressed token, not
// the provider.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrStaleToken) || errors.Is(err, ErrRejectedToken)
}
