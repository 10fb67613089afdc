package models

import "time"

// APIResponse is the envelope of every HTTP response.
type APIResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// HealthResponse is the data of GET /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    float64   `json:"uptime_seconds"`
	Version   string    `json:"version"`
	Browser   string    `json:"browser"`
}

// BatchCompletedEvent is the webhook payload sent after a batch resolves.
type BatchCompletedEvent struct {
	Type        string         `json:"type"`
	BatchID     string         `json:"batch_id"`
	Total       int            `json:"total"`
	Succeeded   int            `json:"succeeded"`
	Failed      int            `json:"failed"`
	Results     []*CrawlResult `json:"results"`
	CompletedAt time.Time      `json:"completed_at"`
}
