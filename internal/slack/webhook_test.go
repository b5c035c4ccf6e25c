package slack

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSend_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}

		if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
			t.Errorf("expected a JSON body, got %s", ct)
		}

		var msg Message
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			t.Errorf("failed to decode message: %v", err)
		}

		if msg.Text != "test message" {
			t.Errorf("expected text 'test message', got %s", msg.Text)
		}

		if msg.Username != defaultUsername {
			t.Errorf("expected default username, got %s", msg.Username)
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := New(server.URL, WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}

	if err := client.Send(context.Background(), Message{Text: "test message"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSend_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("invalid_token"))
	}))
	defer server.Close()

	client, err := New(server.URL, WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}

	err = client.Send(context.Background(), Message{Text: "test"})
	if err == nil {
		t.Fatal("expected error for server error response")
	}

	if errors.Is(err, ErrUnexpectedStatus) && !strings.Contains(err.Error(), "invalid_token") {
		t.Errorf("expected the response body in the error, got %v", err)
	}
}

func TestSend_RequestError(t *testing.T) {
	client, err := New("http://localhost:1/invalid", WithHTTPClient(&http.Client{}))
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}

	err = client.Send(context.Background(), Message{Text: "test"})
	if !errors.Is(err, ErrNotificationFailed) {
		t.Fatalf("expected ErrNotificationFailed, got %v", err)
	}
}

func TestFieldsBlock(t *testing.T) {
	b := fields("Target", "x", "Verdict", "malicious", "dangling")

	if b.Type != "section" || len(b.Fields) != 2 {
		t.Fatalf("expected a section with 2 fields, got %+v", b)
	}

	if b.Fields[1].Text != "*Verdict*\nmalicious" {
		t.Errorf("unexpected field text %q", b.Fields[1].Text)
	}
}
