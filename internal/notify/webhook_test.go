package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWebhook_OK(t *testing.T) {
	var got webhookPayload
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"relay/messages/42"}`))
	}))
	defer ts.Close()

	wh := NewWebhook(ts.URL, nil)
	if wh == nil {
		t.Fatal("expected webhook sender")
	}
	id, err := wh.Send(context.Background(), Message{Title: "Title", Body: "Hello", Token: "T1"})
	if err != nil {
		t.Fatalf("send err: %v", err)
	}
	if id != "relay/messages/42" {
		t.Fatalf("ack id not returned: %q", id)
	}
	if got.Message.Token != "T1" || got.Message.Notification.Title != "Title" || got.Message.Notification.Body != "Hello" {
		t.Fatalf("payload not as expected: %+v", got)
	}
}

func TestWebhook_Non2xx(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer ts.Close()

	_, err := NewWebhook(ts.URL, nil).Send(context.Background(), Message{Token: "X"})
	if err == nil {
		t.Fatalf("expected error on non-2xx")
	}
}

func TestWebhook_NotFoundIsStaleToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := NewWebhook(ts.URL, nil).Send(context.Background(), Message{Token: "gone"})
	if !errors.Is(err, ErrStaleToken) {
		t.Fatalf("want ErrStaleToken, got %v", err)
	}
}

func TestWebhook_Disabled(t *testing.T) {
	if NewWebhook("", nil) != nil {
		t.Fatalf("empty URL should disable the sender")
	}
	var wh *Webhook
	if _, err := wh.Send(context.Background(), Message{}); err == nil {
		t.Fatalf("nil webhook must fail")
	}
}

func TestWebhook_BadRequestIsRejectedToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"INVALID_ARGUMENT"}`))
	}))
	defer ts.Close()

	_, err := NewWebhook(ts.URL, nil).Send(context.Background(), Message{Token: "???"})
	if !errors.Is(err, ErrRejectedToken) || errors.Is(err, ErrStaleToken) {
		t.Fatalf("want ErrRejectedToken, got %v", err)
	}
}

func TestWebhook_UnreadableAckIsLogged(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("queued"))
	}))
	defer ts.Close()

	core, logs := observer.New(zap.InfoLevel)
	id, err := NewWebhook(ts.URL, zap.New(core)).Send(context.Background(), Message{Token: "T1"})
	if err != nil || id != "" {
		t.Fatalf("accepted push should not fail: id=%q err=%v", id, err)
	}
	entries := logs.FilterMessage("webhook_ack_unreadable").All()
	if len(entries) != 1 {
		t.Fatalf("want one ack warning, got %d", len(entries))
	}
	if body := entries[0].ContextMap()["body"]; body != "queued" {
		t.Fatalf("body not logged: %v", body)
	}
}
