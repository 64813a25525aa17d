package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hamed0406/moisturealert/internal/domain"
	"github.com/hamed0406/moisturealert/internal/repo"
)

// apiClient talks to cmd/notifier and satisfies repo.RecordStore, so the
// api backend behaves like the direct ones.
type apiClient struct {
	base   string
	key    string
	client *http.Client
}

func newAPIClient(base, key string) *apiClient {
	return &apiClient{
		base:   strings.TrimRight(base, "/"),
		key:    key,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *apiClient) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.key != "" {
		req.Header.Set("X-API-Key", c.key)
	}
	return c.client.Do(req)
}

func statusError(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return fmt.Errorf("api returned %s: %s", resp.Status, bytes.TrimSpace(msg))
}

func recordPath(id domain.PlantID) string {
	return "/api/records/" + url.PathEscape(string(id))
}

func (c *apiClient) Get(ctx context.Context, id domain.PlantID) (*domain.MonitoringRecord, error) {
	resp, err := c.do(ctx, http.MethodGet, recordPath(id), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, repo.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}
	var rec domain.MonitoringRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *apiClient) Put(ctx context.Context, id domain.PlantID, rec domain.MonitoringRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPut, recordPath(id), body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return statusError(resp)
	}
	return nil
}

// PostEvent returns the notifier's JSON result verbatim.
func (c *apiClient) PostEvent(ctx context.Context, id domain.PlantID, before, after []byte) ([]byte, error) {
	if !json.Valid(before) || !json.Valid(after) {
		return nil, fmt.Errorf("--before and --after must be JSON")
	}
	body, err := json.Marshal(map[string]json.RawMessage{"before": before, "after": after})
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/events/"+url.PathEscape(string(id)), body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}
	out, err := io.ReadAll(resp.Body)
	return bytes.TrimSpace(out), err
}
