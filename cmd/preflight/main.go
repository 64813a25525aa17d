// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/hamed0406/moisturealert/internal/config"
	"github.com/hamed0406/moisturealert/internal/repo/postgres"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg := config.FromEnv()

	switch cfg.Sender {
	case config.SenderFCM:
		if cfg.FirebaseProjectID == "" {
			warn("FIREBASE_PROJECT_ID / GOOGLE_CLOUD_PROJECT empty; relying on credentials to name the project.")
		}
		if cfg.FirebaseCredentialsFile == "" {
			warn("FIREBASE_CREDENTIALS_FILE empty; Application Default Credentials will be used.")
		} else if _, err := os.Stat(cfg.FirebaseCredentialsFile); err != nil {
			fail("FIREBASE_CREDENTIALS_FILE unreadable: " + err.Error())
		}
		ok("NOTIFY_SENDER=fcm")
	case config.SenderWebhook:
		if cfg.WebhookURL == "" {
			fail("NOTIFY_SENDER=webhook but PUSH_WEBHOOK_URL is empty.")
		}
		ok("NOTIFY_SENDER=webhook -> " + cfg.WebhookURL)
	case config.SenderLog:
		warn("NOTIFY_SENDER=log; pushes are only logged (dry run).")
	default:
		fail("NOTIFY_SENDER must be fcm, webhook or log; got " + cfg.Sender)
	}

	if cfg.BreakerFailures == 0 {
		ok("send circuit breaker off")
	} else {
		warn(fmt.Sprintf("breaker opens after %d provider failures for %s; crossings in that window are not sent.", cfg.BreakerFailures, cfg.BreakerOpen))
	}

	if len(cfg.AdminAPIKeys) == 0 {
		warn("ADMIN_API_KEYS is empty; /api/events is open to anyone.")
	}
	if len(cfg.PublicAPIKeys) == 0 && len(cfg.AdminAPIKeys) > 0 {
		warn("PUBLIC_API_KEYS is empty; record reads need an admin key.")
	}
	for name, v := range map[string]string{
		"ADMIN_API_KEYS":  os.Getenv("ADMIN_API_KEYS"),
		"PUBLIC_API_KEYS": os.Getenv("PUBLIC_API_KEYS"),
	} {
		if strings.Contains(v, " ") {
			warn(name + " contains spaces; use comma-separated with no spaces, e.g. key1,key2")
		}
	}

	ok("API_ADDR=" + cfg.Addr)
	ok("MONITORING_PATH=/" + cfg.MonitoringPath)

	switch {
	case cfg.Emulator:
		warn("EMULATOR=true; records live in memory and vanish on restart.")
	case cfg.DatabaseURL != "":
		if _, err := postgres.TriggerSQL(cfg.ListenChannel); err != nil {
			fail("LISTEN_CHANNEL: " + err.Error())
		}
		ok("DATABASE_URL present; listening on " + cfg.ListenChannel)
	case cfg.FirebaseDatabaseURL != "":
		ok("FIREBASE_DATABASE_URL=" + cfg.FirebaseDatabaseURL)
	default:
		warn("no record store configured; only /api/events and the Cloud Function trigger will work.")
	}

	if len(cfg.AllowedOrigins) == 0 {
		warn("ALLOWED_ORIGINS empty; CORS allows every origin.")
	} else {
		ok("ALLOWED_ORIGINS=" + strings.Join(cfg.AllowedOrigins, ","))
	}

	ok("preflight passed")
}
