// Package platform holds the once-per-process Firebase initialization.
package platform

import (
	"context"
	"fmt"
	"sync"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

type Options struct {
	ProjectID       string
	CredentialsFile string // empty means Application Default Credentials
	DatabaseURL     string
}

var (
	once    sync.Once
	app     *firebase.App
	initErr error

	newApp = firebase.NewApp
)

// Init establishes the Firebase app for this process. Only the first call
// does any work; later calls return the same app (or the same error)
// whatever options they pass.
func Init(ctx context.Context, opts Options) (*firebase.App, error) {
	once.Do(func() {
		var clientOpts []option.ClientOption
		if opts.CredentialsFile != "" {
			clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
		}
		app, initErr = newApp(ctx, &firebase.Config{
			ProjectID:   opts.ProjectID,
			DatabaseURL: opts.DatabaseURL,
		}, clientOpts...)
		if initErr != nil {
			initErr = fmt.Errorf("firebase init: %w", initErr)
		}
	})
	return app, initErr
}
