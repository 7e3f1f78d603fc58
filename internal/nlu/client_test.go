package nlu

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSendEnvelopeAndFragments(t *testing.T) {
	var got envelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/webhooks/rest/webhook" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"text": "hi there", "intent": "greet", "confidence": 0.93},
			{"image": "https://example.com/cat.png"},
			{"text": "anything else?"}
		]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	fragments, err := client.Send(context.Background(), "u1", "hello", "store1")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if got.Sender != "u1" || got.Message != "hello" || got.Metadata.TenantID != "store1" {
		t.Errorf("envelope = %+v", got)
	}

	if len(fragments) != 3 {
		t.Fatalf("got %d fragments, want 3", len(fragments))
	}
	if fragments[0].Text != "hi there" || fragments[0].Intent == nil || *fragments[0].Intent != "greet" {
		t.Errorf("fragment[0] = %+v", fragments[0])
	}
	if fragments[1].Text != "" {
		t.Errorf("textless fragment decoded text %q", fragments[1].Text)
	}
	if fragments[2].Intent != nil || fragments[2].Confidence != nil {
		t.Errorf("fragment[2] carried metadata it was not given: %+v", fragments[2])
	}
}

func TestSendNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	_, err := client.Send(context.Background(), "u1", "hello", "store1")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestSendTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	client := NewClient(srv.URL, time.Second)
	_, err := client.Send(context.Background(), "u1", "hello", "store1")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestSendTimeout(t *testing.T) {
	blocked := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer srv.Close()
	defer close(blocked)

	client := NewClient(srv.URL, 50*time.Millisecond)
	start := time.Now()
	_, err := client.Send(context.Background(), "u1", "hello", "store1")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("call blocked %v; timeout not enforced", elapsed)
	}
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"status": "ok"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	if !client.Status(context.Background()) {
		t.Error("Status = false for healthy backend")
	}

	down := NewClient("http://127.0.0.1:1", time.Second)
	if down.Status(context.Background()) {
		t.Error("Status = true for unreachable backend")
	}
}
