package alert

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/moisturealert/internal/domain"
	"github.com/hamed0406/moisturealert/internal/notify"
)

type Outcome int

const (
	OutcomeNoop Outcome = iota
	OutcomeInvalid
	OutcomeMissingToken
	OutcomeSent
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInvalid:
		return "invalid"
	case OutcomeMissingToken:
		return "missing_token"
	case OutcomeSent:
		return "sent"
	case OutcomeFailed:
		return "failed"
	default:
		return "noop"
	}
}

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// Result is what one invocation produced. MessageID is set when the push was
// accepted, Err when the provider rejected it.
type Result struct {
	Outcome   Outcome `json:"outcome"`
	MessageID string  `json:"message_id,omitempty"`
	Err       error   `json:"-"`
}

// Recorder receives per-invocation measurements. Optional.
type Recorder interface {
	RecordOutcome(outcome string)
	ObserveSend(d time.Duration, err error)
}

type Notifier struct {
	logger  *zap.Logger
	sender  notify.Sender
	metrics Recorder
}

func NewNotifier(logger *zap.Logger, sender notify.Sender, metrics Recorder) *Notifier {
	return &Notifier{logger: logger, sender: sender, metrics: metrics}
}

// Handle processes one record update. It never returns an error: failures
// are logged and reported through Result so the platform does not retry.
func (n *Notifier) Handle(ctx context.Context, ch domain.Change) Result {
	res := n.handle(ctx, ch)
	if n.metrics != nil {
		n.metrics.RecordOutcome(res.Outcome.String())
	}
	return res
}

func (n *Notifier) handle(ctx context.Context, ch domain.Change) Result {
	log := n.logger.With(
		zap.String("plant_id", string(ch.PlantID)),
		zap.String("event_id", ch.EventID),
	)

	if ch.Before == nil || ch.After == nil {
		log.Error("moisture_event_invalid",
			zap.Bool("has_before", ch.Before != nil),
			zap.Bool("has_after", ch.After != nil),
		)
		return Result{Outcome: OutcomeInvalid}
	}

	if !CrossedBelow(ch.Before.MoistureValue, ch.After.MoistureValue) {
		return Result{Outcome: OutcomeNoop}
	}

	if ch.After.FCMToken == "" {
		log.Error("low_moisture_missing_token",
			zap.Float64("moisture_value", ch.After.MoistureValue.Value),
		)
		return Result{Outcome: OutcomeMissingToken}
	}

	msg := notify.Message{
		Title: AlertTitle,
		Body:  AlertBody(ch.After.PlantLabel()),
		Token: string(ch.After.FCMToken),
	}

	start := time.Now()
	id, err := n.sender.Send(ctx, msg)
	if n.metrics != nil {
		n.metrics.ObserveSend(time.Since(start), err)
	}
	if err != nil {
		log.Error("notification_send_error",
			zap.Bool("stale_token", errors.Is(err, notify.ErrStaleToken)),
			zap.Bool("token_rejected", errors.Is(err, notify.ErrRejectedToken)),
			zap.Error(err),
		)
		return Result{Outcome: OutcomeFailed, Err: err}
	}

	log.Info("notification_sent",
		zap.String("message_id", id),
		zap.Float64("moisture_before", ch.Before.MoistureValue.Value),
		zap.Float64("moisture_after", ch.After.MoistureValue.Value),
	)
	return Result{Outcome: OutcomeSent, MessageID: id}
}
