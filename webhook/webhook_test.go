package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

type testEvent struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func TestDeliver_Signed(t *testing.T) {
	var gotSig, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(SignatureHeader)
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewNotifier(time.Second, 0)
	if err := n.Deliver(context.Background(), srv.URL, "s3cret", testEvent{Type: EventBatchCompleted, ID: "b1"}); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	if gotType != "application/json" {
		t.Errorf("Content-Type = %q", gotType)
	}
	if want := Sign("s3cret", gotBody); gotSig != want {
		t.Errorf("signature = %q, want %q", gotSig, want)
	}
	var ev testEvent
	if err := json.Unmarshal(gotBody, &ev); err != nil || ev.ID != "b1" {
		t.Errorf("body = %s (%v)", gotBody, err)
	}
}

func TestDeliver_Unsigned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(SignatureHeader) != "" {
			t.Error("signature sent without a secret")
		}
	}))
	defer srv.Close()

	if err := NewNotifier(time.Second, 0).Deliver(context.Background(), srv.URL, "", testEvent{}); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
}

func TestDeliver_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if err := NewNotifier(time.Second, 0).Deliver(context.Background(), srv.URL, "", testEvent{}); err == nil {
		t.Error("expected error for 502")
	}
}

func TestDeliverAsync_Retries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(time.Second, 3)
	n.delays = []time.Duration{0, time.Millisecond, time.Millisecond, time.Millisecond}
	n.DeliverAsync(srv.URL, "", EventBatchCompleted, "b1", testEvent{})
	n.Wait()

	if got := calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2 (stop after first success)", got)
	}
}

func TestDrain(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	n := NewNotifier(time.Second, 1)
	n.delays = []time.Duration{0, 300 * time.Millisecond}
	n.DeliverAsync(srv.URL, "", EventBatchCompleted, "b1", testEvent{})

	// The delivery is sleeping before its retry.
	short, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if left := n.Drain(short); left != 1 {
		t.Errorf("Drain during retry wait left %d, want 1", left)
	}

	long, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if left := n.Drain(long); left != 0 {
		t.Errorf("Drain after retries left %d, want 0", left)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
	if n.Pending() != 0 {
		t.Errorf("Pending = %d after drain", n.Pending())
	}
}

func TestNewNotifier_Delays(t *testing.T) {
	tests := []struct {
		retries int
		want    []time.Duration
	}{
		{0, []time.Duration{0}},
		{3, []time.Duration{0, time.Second, 5 * time.Second, 30 * time.Second}},
		{4, []time.Duration{0, time.Second, 5 * time.Second, 30 * time.Second, 30 * time.Second}},
	}
	for _, tt := range tests {
		n := NewNotifier(time.Second, tt.retries)
		if len(n.delays) != len(tt.want) {
			t.Fatalf("retries %d: delays = %v", tt.retries, n.delays)
		}
		for i := range tt.want {
			if n.delays[i] != tt.want[i] {
				t.Errorf("retries %d: delays = %v, want %v", tt.retries, n.delays, tt.want)
				break
			}
		}
	}
}
