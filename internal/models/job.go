package models

import (
	"time"

	"gorm.io/gorm"
)

// Publish job statuses. A job reaches at most one of succeeded/queued and is
// never retried after either; failed means the request itself was rejected
// and retrying could not help.
const (
	JobStatusPending   = "pending"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
	JobStatusQueued    = "queued"
)

// PublishJob records the delivery attempts for one assembled post against
// one target site. It is mutated in place by the publish executor and its
// terminal form is what lands in the recovery queue.
type PublishJob struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	TopicID      uint           `gorm:"not null;index" json:"topic_id"`
	SiteID       uint           `gorm:"not null;index" json:"site_id"`
	Title        string         `gorm:"size:500" json:"title"`
	DedupKey     string         `gorm:"size:64;index" json:"dedup_key"`
	Status       string         `gorm:"size:50;default:'pending';index" json:"status"`
	AttemptCount int            `gorm:"default:0" json:"attempt_count"`
	LastError    string         `gorm:"type:text" json:"last_error"`
	ErrorKind    string         `gorm:"size:50" json:"error_kind"`
	ResourceID   string         `gorm:"size:255" json:"resource_id"`
	ResultURL    string         `gorm:"size:1000" json:"result_url"`
	PublishedAt  *time.Time     `json:"published_at"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at"`

	Topic Topic `gorm:"foreignKey:TopicID" json:"topic"`
	Site  Site  `gorm:"foreignKey:SiteID" json:"site"`
}
