package push

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSend(t *testing.T) {
	var got Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).Send(context.Background(), Message{UserID: 5, JournalID: 9, Type: "JOURNAL_PUBLISH", Body: "hello"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.UserID != 5 || got.JournalID != 9 || got.Body != "hello" {
		t.Errorf("gateway received %+v", got)
	}
}

func TestSend_Errors(t *testing.T) {
	if err := NewClient("").Send(context.Background(), Message{}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("empty URL: got %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if err := NewClient(srv.URL).Send(context.Background(), Message{UserID: 1}); err == nil {
		t.Error("expected error for 503")
	}
}
