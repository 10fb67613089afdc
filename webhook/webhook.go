// Package webhook delivers signed event notifications to client endpoints.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// SignatureHeader carries "sha256=<hex HMAC of the body>" when a secret is set.
const SignatureHeader = "X-Mirror-Signature"

// EventBatchCompleted is sent once every URL of a batch has resolved.
const EventBatchCompleted = "batch.completed"

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Notifier posts JSON events with retries. It is safe for concurrent use.
type Notifier struct {
	client *http.Client
	delays []time.Duration
	wg     sync.WaitGroup

	pending atomic.Int32
}

// NewNotifier creates a Notifier with the given per-attempt timeout and
// number of retries after the first attempt. Retry intervals grow 1s, 5s,
// 30s and stay at 30s afterwards.
func NewNotifier(timeout time.Duration, retries int) *Notifier {
	delays := []time.Duration{0}
	steps := []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}
	for i := 0; i < retries; i++ {
		delays = append(delays, steps[min(i, len(steps)-1)])
	}
	return &Notifier{
		client: &http.Client{Timeout: timeout},
		delays: delays,
	}
}

// Deliver sends event synchronously, signing the body when secret is set.
func (n *Notifier) Deliver(ctx context.Context, url, secret string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mirror-Webhook/1.0")
	if secret != "" {
		req.Header.Set(SignatureHeader, Sign(secret, body))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// DeliverAsync sends event in the background, retrying on failure.
// eventType and id only label log lines.
func (n *Notifier) DeliverAsync(url, secret, eventType, id string, event any) {
	n.wg.Add(1)
	n.pending.Add(1)
	go func() {
		defer n.wg.Done()
		defer n.pending.Add(-1)
		for attempt, delay := range n.delays {
			if delay > 0 {
				time.Sleep(delay)
			}
			err := n.Deliver(context.Background(), url, secret, event)
			if err == nil {
				slog.Info("webhook delivered",
					"url", url,
					"event", eventType,
					"id", id,
					"attempt", attempt+1,
				)
				return
			}
			slog.Warn("webhook delivery failed",
				"url", url,
				"event", eventType,
				"id", id,
				"attempt", attempt+1,
				"error", err,
			)
		}
		slog.Error("webhook delivery exhausted all retries",
			"url", url,
			"event", eventType,
			"id", id,
		)
	}()
}

// Wait blocks until every pending asynchronous delivery has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// Pending returns the number of asynchronous deliveries still running,
// including those sleeping before a retry.
func (n *Notifier) Pending() int {
	return int(n.pending.Load())
}

// Drain waits for pending deliveries until ctx is done and returns how
// many were still unfinished at that point.
func (n *Notifier) Drain(ctx context.Context) int {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return 0
	case <-ctx.Done():
		return n.Pending()
	}
}
