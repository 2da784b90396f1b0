package history

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchDecodesSnapshot(t *testing.T) {
	var gotAuth, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "session-1",
			"title": "Weather chat",
			"messages": [
				{"role": "user", "content": [{"type": "text", "text": "hi"}]},
				{"role": "assistant", "content": [{"type": "text", "text": "hello"}]}
			],
			"usage": {"input_tokens": 3, "output_tokens": 2, "context_tokens": 5}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-token")
	snapshot, err := client.Fetch(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}

	if gotAuth != "Bearer secret-token" {
		t.Errorf("expected bearer credential, got %q", gotAuth)
	}
	if gotPath != "/sessions/session-1" {
		t.Errorf("expected /sessions/session-1, got %q", gotPath)
	}
	if snapshot.ID != "session-1" {
		t.Errorf("expected session-1, got %q", snapshot.ID)
	}
	if len(snapshot.Messages) != 2 {
		t.Errorf("expected 2 messages, got %d", len(snapshot.Messages))
	}
	if snapshot.Usage.ContextTokens != 5 {
		t.Errorf("expected 5 context tokens, got %d", snapshot.Usage.ContextTokens)
	}
}

func TestFetchSurfacesStatusErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-token")
	_, err := client.Fetch(context.Background(), "missing")

	var status *StatusError
	if !errors.As(err, &status) {
		t.Fatalf("expected status error, got %v", err)
	}
	if status.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", status.StatusCode)
	}
}
