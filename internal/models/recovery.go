package models

import (
	"time"
)

// Recovery item statuses.
const (
	RecoveryStatusHeld     = "held"
	RecoveryStatusRequeued = "requeued"
)

// RecoveryItem is a durable copy of a payload whose delivery either
// exhausted its retries or was rejected outright. The table is append-only
// from the pipeline's point of view; items are only ever marked requeued,
// never deleted, so at-least-once handoff is preserved.
type RecoveryItem struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	JobID        uint      `gorm:"not null;index" json:"job_id"`
	TopicID      uint      `gorm:"not null;index" json:"topic_id"`
	SiteID       uint      `gorm:"not null;index" json:"site_id"`
	Payload      string    `gorm:"type:jsonb" json:"payload"`
	Reason       string    `gorm:"type:text" json:"reason"`
	ErrorKind    string    `gorm:"size:50" json:"error_kind"`
	AttemptCount int       `gorm:"default:0" json:"attempt_count"`
	Status       string    `gorm:"size:50;default:'held';index" json:"status"`
	RequeuedAt   *time.Time `json:"requeued_at"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
