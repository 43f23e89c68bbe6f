package model

import (
	"time"
)

// RequestLog is one relayed chat completion.
type RequestLog struct {
	ID             string    `db:"id" json:"id"`
	Backend        string    `db:"backend" json:"backend"`
	Endpoint       string    `db:"endpoint" json:"endpoint"`
	RequestedModel string    `db:"requested_model" json:"requested_model"`
	ExposedModel   string    `db:"exposed_model" json:"exposed_model"`
	UpstreamModel  string    `db:"upstream_model" json:"upstream_model"`
	SelectReason   string    `db:"select_reason" json:"select_reason"`
	ResponseMode   string    `db:"response_mode" json:"response_mode"`
	IsStreamed     bool      `db:"is_streamed" json:"is_streamed"`
	StatusCode     int       `db:"status_code" json:"status_code"`
	LatencyMS      int64     `db:"latency_ms" json:"latency_ms"`
	ErrorMessage   string    `db:"error_message" json:"error_message,omitempty"`
	IPAddress      string    `db:"ip_address" json:"ip_address"`
	UserAgent      string    `db:"user_agent" json:"user_agent"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// DailyStats is usage for one exposed model on one day.
type DailyStats struct {
	Date             string  `db:"date" json:"date"`
	Model            string  `db:"model" json:"model"`
	TotalRequests    int     `db:"total_requests" json:"total_requests"`
	StreamedRequests int     `db:"streamed_requests" json:"streamed_requests"`
	ErrorCount       int     `db:"error_count" json:"error_count"`
	AverageLatency   float64 `db:"avg_latency" json:"avg_latency"`
}
