package models

import (
	"time"
)

// SystemStats is a daily rollup of pipeline activity.
type SystemStats struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Date           time.Time `gorm:"uniqueIndex;not null" json:"date"`
	TotalTopics    int       `gorm:"default:0" json:"total_topics"`
	TotalJobs      int       `gorm:"default:0" json:"total_jobs"`
	SucceededJobs  int       `gorm:"default:0" json:"succeeded_jobs"`
	FailedJobs     int       `gorm:"default:0" json:"failed_jobs"`
	QueuedJobs     int       `gorm:"default:0" json:"queued_jobs"`
	RecoveryItems  int       `gorm:"default:0" json:"recovery_items"`
	TotalSites     int       `gorm:"default:0" json:"total_sites"`
	ActiveSites    int       `gorm:"default:0" json:"active_sites"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ErrorLog keeps operational errors queryable from the dashboard instead of
// buried in log files.
type ErrorLog struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Level      string     `gorm:"size:20;not null;index" json:"level"`
	Source     string     `gorm:"size:100;not null;index" json:"source"`
	SiteName   string     `gorm:"size:100;index" json:"site_name"`
	TopicID    *uint      `gorm:"index" json:"topic_id"`
	JobID      *uint      `gorm:"index" json:"job_id"`
	Title      string     `gorm:"size:500;not null" json:"title"`
	Message    string     `gorm:"type:text;not null" json:"message"`
	Context    string     `gorm:"type:jsonb" json:"context"`
	Resolved   bool       `gorm:"default:false;index" json:"resolved"`
	ResolvedAt *time.Time `json:"resolved_at"`
	CreatedAt  time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Topic *Topic      `gorm:"foreignKey:TopicID" json:"topic,omitempty"`
	Job   *PublishJob `gorm:"foreignKey:JobID" json:"job,omitempty"`
}

// MetricsSample is a single counter/gauge observation.
type MetricsSample struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	MetricName string    `gorm:"size:100;not null;index" json:"metric_name"`
	MetricType string    `gorm:"size:50;not null" json:"metric_type"`
	Value      float64   `gorm:"not null" json:"value"`
	Tags       string    `gorm:"type:jsonb" json:"tags"`
	Timestamp  time.Time `gorm:"not null;index" json:"timestamp"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}
