package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPost(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	wh := NewWebhook(server.URL, discardLogger())
	if err := wh.Post(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["text"] != "hello" {
		t.Errorf("unexpected payload: %v", got)
	}
}

func TestPost_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such channel", http.StatusNotFound)
	}))
	defer server.Close()

	wh := NewWebhook(server.URL, discardLogger())
	err := wh.Post(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error should carry the status code: %v", err)
	}
}

func TestAnalysisFailed_NamesAgent(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer server.Close()

	wh := NewWebhook(server.URL, discardLogger())
	wh.AnalysisFailed(context.Background(), "abc", "demand", "retries exhausted")

	if !strings.Contains(got["text"], "demand") {
		t.Errorf("failure notice should name the agent: %v", got)
	}
}
