// Package brightdata provides a client for the Bright Data datasets API,
// used to collect public profile data for stakeholders named on calls.
package brightdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the Bright Data dataset collection operations.
type Client interface {
	// TriggerCollection starts a dataset collection for the given URLs and
	// returns a snapshot ID to poll.
	TriggerCollection(ctx context.Context, datasetID string, urls []string) (*TriggerResponse, error)
	// GetProgress returns the current status of a snapshot.
	GetProgress(ctx context.Context, snapshotID string) (*ProgressResponse, error)
	// DownloadSnapshot downloads the records of a ready snapshot.
	DownloadSnapshot(ctx context.Context, snapshotID string) ([]map[string]any, error)
}

// TriggerResponse is the parsed trigger API response.
type TriggerResponse struct {
	SnapshotID string `json:"snapshot_id"`
}

// ProgressResponse is the parsed progress API response. Status is one of
// "running", "ready", or "failed".
type ProgressResponse struct {
	SnapshotID string `json:"snapshot_id"`
	Status     string `json:"status"`
}

// Option configures the Bright Data client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a new Bright Data client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://api.brightdata.com",
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// retryDo executes an HTTP request with exponential backoff retries on
// transient failures (429, 500, 502, 503). The payload is re-attached on each
// attempt so POST bodies survive retries. Returns the response body and status
// code on success, or the last error after exhausting retries.
func (c *httpClient) retryDo(ctx context.Context, method, reqURL string, payload []byte) ([]byte, int, error) {
	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
		if err != nil {
			return nil, 0, eris.Wrap(err, "brightdata: create request")
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return nil, 0, ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				continue
			}
			return nil, 0, lastErr
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, eris.Wrap(readErr, "brightdata: read response body")
		}

		if retryableStatusCode(resp.StatusCode) && attempt < maxAttempts {
			lastErr = eris.Errorf("brightdata: status %d: %s", resp.StatusCode, string(body))
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		return body, resp.StatusCode, nil
	}

	return nil, 0, lastErr
}

func (c *httpClient) TriggerCollection(ctx context.Context, datasetID string, urls []string) (*TriggerResponse, error) {
	if len(urls) == 0 {
		return nil, eris.New("brightdata: no urls to collect")
	}

	payload := make([]map[string]string, len(urls))
	for i, u := range urls {
		payload[i] = map[string]string{"url": u}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "brightdata: marshal trigger payload")
	}

	reqURL := fmt.Sprintf("%s/datasets/v3/trigger?dataset_id=%s&include_errors=true",
		c.baseURL, url.QueryEscape(datasetID))

	respBody, statusCode, err := c.retryDo(ctx, http.MethodPost, reqURL, body)
	if err != nil {
		return nil, eris.Wrap(err, "brightdata: trigger request failed")
	}

	if statusCode != http.StatusOK {
		return nil, eris.Errorf("brightdata: trigger unexpected status %d: %s", statusCode, string(respBody))
	}

	var result TriggerResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "brightdata: unmarshal trigger response")
	}
	if result.SnapshotID == "" {
		return nil, eris.Errorf("brightdata: trigger returned no snapshot id: %s", string(respBody))
	}

	return &result, nil
}

func (c *httpClient) GetProgress(ctx context.Context, snapshotID string) (*ProgressResponse, error) {
	reqURL := fmt.Sprintf("%s/datasets/v3/progress/%s", c.baseURL, url.PathEscape(snapshotID))

	body, statusCode, err := c.retryDo(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "brightdata: progress request failed")
	}

	if statusCode != http.StatusOK {
		return nil, eris.Errorf("brightdata: progress unexpected status %d: %s", statusCode, string(body))
	}

	var result ProgressResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "brightdata: unmarshal progress response")
	}
	if result.SnapshotID == "" {
		result.SnapshotID = snapshotID
	}

	return &result, nil
}

func (c *httpClient) DownloadSnapshot(ctx context.Context, snapshotID string) ([]map[string]any, error) {
	reqURL := fmt.Sprintf("%s/datasets/v3/snapshot/%s/download?format=json",
		c.baseURL, url.PathEscape(snapshotID))

	body, statusCode, err := c.retryDo(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "brightdata: download request failed")
	}

	if statusCode != http.StatusOK {
		return nil, eris.Errorf("brightdata: download unexpected status %d: %s", statusCode, string(body))
	}

	var records []map[string]any
	if err := json.Unmarshal(body, &records); err != nil {
		// Some datasets deliver newline-delimited JSON records.
		records, err = decodeNDJSON(body)
		if err != nil {
			return nil, eris.Wrap(err, "brightdata: unmarshal snapshot records")
		}
	}

	return records, nil
}

func decodeNDJSON(body []byte) ([]map[string]any, error) {
	var records []map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	for dec.More() {
		var rec map[string]any
		if err := dec.Decode(&rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
