package qstash

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewClientRequiresToken(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{URL: "https://qstash.example"}); err == nil {
		t.Fatal("expected error for missing token")
	}
}

func TestPublishPostsToDestination(t *testing.T) {
	t.Parallel()

	var (
		gotPath    string
		gotAuth    string
		gotForward string
		gotBody    map[string]string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotForward = r.Header.Get("Upstash-Forward-X-Conversation-Id")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		fmt.Fprint(w, `{"messageId":"msg_1"}`)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Config{URL: server.URL, Token: "tok"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	client.WithHTTPClient(server.Client())

	resp, err := client.Publish(context.Background(),
		"https://bot.example/replies",
		map[string]string{"text": "hello"},
		map[string]string{"X-Conversation-Id": "conv-1"},
	)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if resp.MessageID != "msg_1" {
		t.Fatalf("MessageID = %q", resp.MessageID)
	}
	if !strings.HasPrefix(gotPath, "/v2/publish/https:/") {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gotForward != "conv-1" {
		t.Fatalf("unexpected forward header: %q", gotForward)
	}
	if gotBody["text"] != "hello" {
		t.Fatalf("unexpected body: %#v", gotBody)
	}
}

func TestPublishSurfacesHTTPErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"invalid token"}`)
	}))
	t.Cleanup(server.Close)

	client := MustNew(Config{URL: server.URL, Token: "bad"}).WithHTTPClient(server.Client())
	_, err := client.Publish(context.Background(), "https://bot.example/replies", map[string]string{}, nil)
	if err == nil || !strings.Contains(err.Error(), "status=401") {
		t.Fatalf("expected 401 error, got %v", err)
	}
}
