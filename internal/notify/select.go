package notify

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"

	"github.com/hamed0406/moisturealert/internal/config"
)

// New builds the sink named by cfg.Sender, wrapped in a circuit breaker
// unless cfg.BreakerFailures is zero. app is only needed for the fcm sink.
func New(ctx context.Context, cfg config.Config, app *firebase.App, logger *zap.Logger) (Sender, error) {
	var s Sender
	switch cfg.Sender {
	case config.SenderFCM:
		if app == nil {
			return nil, errors.New("fcm sender needs an initialised firebase app")
		}
		f, err := NewFCM(ctx, app)
		if err != nil {
			return nil, err
		}
		s = f
	case config.SenderWebhook:
		w := NewWebhook(cfg.WebhookURL, logger)
		if w == nil {
			return nil, errors.New("webhook sender needs PUSH_WEBHOOK_URL")
		}
		s = w
	case config.SenderLog:
		s = &LogSender{Logger: logger}
	default:
		return nil, fmt.Errorf("unknown NOTIFY_SENDER %q", cfg.Sender)
	}

	if cfg.BreakerFailures > 0 {
		s = NewBreaker("push-"+cfg.Sender, s, cfg.BreakerFailures, cfg.BreakerOpen)
	}
	logger.Info("sender_ready",
		zap.String("sender", cfg.Sender),
		zap.Int("breaker_failures", cfg.BreakerFailures),
	)
	return s, nil
}
