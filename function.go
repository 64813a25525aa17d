// Package moisturealert is the Cloud Functions entry point: it watches
// /Moisture_Monitoring/{plantId} in the Realtime Database and pushes a
// low-moisture alert when a reading drops to the threshold.
package moisturealert

import (
	"context"
	"log"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/cloudevents/sdk-go/v2/event"
	"go.uber.org/zap"

	"github.com/hamed0406/moisturealert/internal/app"
	"github.com/hamed0406/moisturealert/internal/config"
	"github.com/hamed0406/moisturealert/internal/logging"
)

// Built once per instance, before the function is registered.
var (
	instance *app.App
	logger   *zap.Logger
	setupErr error
)

func init() {
	instance, logger, setupErr = setup(context.Background(), config.FromEnv())
	if setupErr != nil {
		log.Printf("function_init_error: %v", setupErr)
	}
	functions.CloudEvent("NotifyLowSoilMoisture", NotifyLowSoilMoisture)
}

func setup(ctx context.Context, cfg config.Config) (*app.App, *zap.Logger, error) {
	l, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	a, err := app.New(ctx, cfg, l)
	if err != nil {
		return nil, l, err
	}
	return a, l, nil
}

// NotifyLowSoilMoisture handles one Realtime Database update. It always
// returns nil: a failed push is logged, never retried.
func NotifyLowSoilMoisture(ctx context.Context, e event.Event) error {
	if setupErr != nil {
		if logger != nil {
			logger.Error("function_init_error", zap.String("event_id", e.ID()), zap.Error(setupErr))
		}
		return nil
	}
	return instance.RTDB.Handle(ctx, e)
}
