// Package anthropic is a minimal REST client for the judgment service's
// Messages and Message Batches endpoints. Only the calls the dispatcher
// needs are implemented.
package anthropic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	apiVersion     = "2023-06-01"
	defaultBaseURL = "https://api.anthropic.com"

	// StatusEnded is the terminal processing status of a batch.
	StatusEnded = "ended"
)

// Client talks to the judgment service.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// NewClient builds a Client. baseURL is overridable for tests.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: 120 * time.Second},
	}
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MessageRequest is the params payload for one classification call.
type MessageRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

// ContentBlock is one block of a message response.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// MessageResponse is the response to a Messages call.
type MessageResponse struct {
	Content []ContentBlock `json:"content"`
}

// Text returns the concatenated text blocks of the response.
func (m MessageResponse) Text() string {
	var buf bytes.Buffer
	for _, b := range m.Content {
		if b.Type == "text" {
			buf.WriteString(b.Text)
		}
	}
	return buf.String()
}

// CreateMessage issues one synchronous classification call.
func (c *Client) CreateMessage(ctx context.Context, req MessageRequest) (MessageResponse, error) {
	var resp MessageResponse
	if err := c.do(ctx, http.MethodPost, "/v1/messages", req, &resp); err != nil {
		return MessageResponse{}, err
	}
	return resp, nil
}

// BatchRequestItem pairs a caller-chosen custom ID with call params.
type BatchRequestItem struct {
	CustomID string         `json:"custom_id"`
	Params   MessageRequest `json:"params"`
}

// RequestCounts summarizes batch progress.
type RequestCounts struct {
	Processing int `json:"processing"`
	Succeeded  int `json:"succeeded"`
	Errored    int `json:"errored"`
	Canceled   int `json:"canceled"`
	Expired    int `json:"expired"`
}

// Batch is the service-side state of a submitted batch job.
type Batch struct {
	ID               string        `json:"id"`
	ProcessingStatus string        `json:"processing_status"`
	RequestCounts    RequestCounts `json:"request_counts"`
	CreatedAt        time.Time     `json:"created_at"`
}

// Ended reports whether the batch reached its terminal status.
func (b Batch) Ended() bool {
	return b.ProcessingStatus == StatusEnded
}

// CreateBatch submits a batch job covering many documents at once.
func (c *Client) CreateBatch(ctx context.Context, items []BatchRequestItem) (Batch, error) {
	payload := struct {
		Requests []BatchRequestItem `json:"requests"`
	}{Requests: items}

	var batch Batch
	if err := c.do(ctx, http.MethodPost, "/v1/messages/batches", payload, &batch); err != nil {
		return Batch{}, err
	}
	return batch, nil
}

// GetBatch polls one batch's status.
func (c *Client) GetBatch(ctx context.Context, id string) (Batch, error) {
	var batch Batch
	if err := c.do(ctx, http.MethodGet, "/v1/messages/batches/"+id, nil, &batch); err != nil {
		return Batch{}, err
	}
	return batch, nil
}

// ListBatches returns recent batches, newest first.
func (c *Client) ListBatches(ctx context.Context, limit int) ([]Batch, error) {
	if limit <= 0 {
		limit = 20
	}
	var out struct {
		Data []Batch `json:"data"`
	}
	path := fmt.Sprintf("/v1/messages/batches?limit=%d", limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// BatchResult correlates one batch item's outcome back to its custom ID.
type BatchResult struct {
	CustomID string `json:"custom_id"`
	Result   struct {
		Type    string          `json:"type"`
		Message MessageResponse `json:"message"`
	} `json:"result"`
}

// Succeeded reports whether this item produced a message.
func (r BatchResult) Succeeded() bool {
	return r.Result.Type == "succeeded"
}

// BatchResults streams the JSONL results of an ended batch.
func (c *Client) BatchResults(ctx context.Context, id string) ([]BatchResult, error) {
	body, err := c.raw(ctx, http.MethodGet, "/v1/messages/batches/"+id+"/results")
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()

	var results []BatchResult
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var res BatchResult
		if err := json.Unmarshal(line, &res); err != nil {
			return nil, fmt.Errorf("decode result line: %w", err)
		}
		results = append(results, res)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	return results, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	body, err := c.rawWithPayload(ctx, method, path, payload)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) raw(ctx context.Context, method, path string) (io.ReadCloser, error) {
	return c.rawWithPayload(ctx, method, path, nil)
}

func (c *Client) rawWithPayload(ctx context.Context, method, path string, payload any) (io.ReadCloser, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return resp.Body, nil
}
