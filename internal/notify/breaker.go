package notify

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
)

// Breaker stops calling a failing provider for a while. An open breaker
// fails the send immediately; nothing is queued or retried.
type Breaker struct {
	inner Sender
	cb    *gobreaker.CircuitBreaker
}

func NewBreaker(name string, inner Sender, failures int, openFor time.Duration) *Breaker {
	return &Breaker{
		inner: inner,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			// half-open lets as many trial sends through as it took to trip
			Name:        name,
			Timeout:     openFor,
			MaxRequests: uint32(failures),
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= uint32(failures)
			},
			// a bad token is the caller's problem, not the provider's
			IsSuccessful: func(err error) bool {
				return err == nil || IsTokenError(err)
			},
		}),
	}
}

func (b *Breaker) Send(ctx context.Context, m Message) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Send(ctx, m)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func (b *Breaker) State() gobreaker.State { return b.cb.State() }
