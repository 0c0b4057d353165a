package model

import "time"

// Frame represents one journaled pipeline result.
type Frame struct {
	ID            int64     `json:"id"`
	SessionID     string    `json:"session_id"`
	Seq           uint64    `json:"seq"`
	Timestamp     time.Time `json:"timestamp"`
	SensorWidth   int       `json:"sensor_width"`
	SensorHeight  int       `json:"sensor_height"`
	DisplayWidth  int       `json:"display_width"`
	DisplayHeight int       `json:"display_height"`
	Candidates    int       `json:"candidates"`
	LatencyMs     float64   `json:"latency_ms"`
	ErrorKind     string    `json:"error_kind,omitempty"`
}
