package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/messages", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("x-api-key"))
		require.Equal(t, apiVersion, r.Header.Get("anthropic-version"))

		var req MessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "claude-3-5-sonnet-20241022", req.Model)

		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"label\":\"confirmed\"}"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")
	resp, err := c.CreateMessage(context.Background(), MessageRequest{
		Model:     "claude-3-5-sonnet-20241022",
		MaxTokens: 1024,
		Messages:  []Message{{Role: "user", Content: "判定してください"}},
	})
	require.NoError(t, err)
	require.Equal(t, `{"label":"confirmed"}`, resp.Text())
}

func TestCreateMessageSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"type":"overloaded_error"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")
	_, err := c.CreateMessage(context.Background(), MessageRequest{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "503")
}

func TestBatchLifecycle(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/messages/batches", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Requests []BatchRequestItem `json:"requests"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Len(t, payload.Requests, 2)
		_, _ = w.Write([]byte(`{"id":"batch_1","processing_status":"in_progress","request_counts":{"processing":2}}`))
	})
	mux.HandleFunc("GET /v1/messages/batches/batch_1", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"batch_1","processing_status":"ended","request_counts":{"succeeded":2}}`))
	})
	mux.HandleFunc("GET /v1/messages/batches/batch_1/results", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(
			`{"custom_id":"doc-a","result":{"type":"succeeded","message":{"content":[{"type":"text","text":"A"}]}}}` + "\n" +
				`{"custom_id":"doc-b","result":{"type":"errored"}}` + "\n"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")
	ctx := context.Background()

	batch, err := c.CreateBatch(ctx, []BatchRequestItem{
		{CustomID: "doc-a", Params: MessageRequest{}},
		{CustomID: "doc-b", Params: MessageRequest{}},
	})
	require.NoError(t, err)
	require.False(t, batch.Ended())
	require.Equal(t, 2, batch.RequestCounts.Processing)

	batch, err = c.GetBatch(ctx, "batch_1")
	require.NoError(t, err)
	require.True(t, batch.Ended())

	results, err := c.BatchResults(ctx, "batch_1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.True(t, results[0].Succeeded())
	require.Equal(t, "A", results[0].Result.Message.Text())
	require.False(t, results[1].Succeeded())
}

func TestListBatches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages/batches", r.URL.Path)
		require.Equal(t, "5", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"data":[{"id":"batch_2","processing_status":"in_progress"},{"id":"batch_1","processing_status":"ended"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")
	batches, err := c.ListBatches(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	require.Equal(t, "batch_2", batches[0].ID)
}
