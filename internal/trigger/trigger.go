// Package trigger adapts platform change events into domain.Change values
// for the alert notifier.
package trigger

import (
	"context"

	"github.com/hamed0406/moisturealert/internal/alert"
	"github.com/hamed0406/moisturealert/internal/domain"
)

// Handler is satisfied by *alert.Notifier.
type Handler interface {
	Handle(ctx context.Context, ch domain.Change) alert.Result
}
