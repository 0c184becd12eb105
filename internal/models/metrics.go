package models

import "time"

// SystemMetrics is a point-in-time aggregate exposed on the status endpoint.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	RegistrationsTotal       uint64    `json:"registrations_total"`
	CheckInsTotal            uint64    `json:"check_ins_total"`
	CredentialsRendered      uint64    `json:"credentials_rendered"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
