package mail

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSendWithoutKeyFailsFast(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{Endpoint: srv.URL})
	if _, err := c.Send(context.Background(), "a@b.c", "technology", 3, "<p>x</p>"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if called {
		t.Fatalf("unconfigured client must not reach the network")
	}
}

func TestSendSubmitsBrandedEmail(t *testing.T) {
	var captured sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer rk" {
			t.Errorf("missing bearer token, got %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(Receipt{ID: "email-123"})
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{APIKey: "rk", Endpoint: srv.URL, From: "Sendlr <test@example.com>"})
	c.now = func() time.Time { return time.Date(2025, time.June, 8, 9, 0, 0, 0, time.UTC) }

	receipt, err := c.Send(context.Background(), "reader@example.com", "technology, sports", 7, "<h3>technology</h3>")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if receipt.ID != "email-123" {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	if len(captured.To) != 1 || captured.To[0] != "reader@example.com" {
		t.Fatalf("unexpected recipients: %v", captured.To)
	}
	if captured.From != "Sendlr <test@example.com>" {
		t.Fatalf("unexpected sender: %q", captured.From)
	}
	if captured.Subject != "📰 Your technology, sports Newsletter - 6/8/2025" {
		t.Fatalf("unexpected subject: %q", captured.Subject)
	}
	if !strings.Contains(captured.HTML, "TECHNOLOGY, SPORTS") {
		t.Fatalf("header strip missing upper-cased categories: %q", captured.HTML)
	}
	if !strings.Contains(captured.HTML, "7 STORIES") {
		t.Fatalf("header strip missing article count")
	}
	if !strings.Contains(captured.HTML, "<h3>technology</h3>") {
		t.Fatalf("content region missing newsletter body")
	}
}

func TestSendSurfacesProviderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid to address"}`))
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{APIKey: "rk", Endpoint: srv.URL})
	_, err := c.Send(context.Background(), "bad", "technology", 1, "<p>x</p>")
	if err == nil {
		t.Fatalf("expected error for provider rejection")
	}
	if !strings.Contains(err.Error(), "422") || !strings.Contains(err.Error(), "invalid to address") {
		t.Fatalf("error should carry status and body: %v", err)
	}
}

func TestSendNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(ClientOptions{APIKey: "rk", Endpoint: srv.URL})
	if _, err := c.Send(context.Background(), "a@b.c", "technology", 1, "x"); err == nil {
		t.Fatalf("expected transport error")
	}
}
