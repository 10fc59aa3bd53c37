package service

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sirliboyev-uz/ai-blog-agent/internal/models"
)

type MonitoringService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewMonitoringService(db *gorm.DB, logger *zap.Logger) *MonitoringService {
	return &MonitoringService{
		db:     db,
		logger: logger,
	}
}

// RecordError persists an operational error for the dashboard.
func (m *MonitoringService) RecordError(level, source, title, message string, options ...ErrorLogOption) error {
	errorLog := &models.ErrorLog{
		Level:   level,
		Source:  source,
		Title:   title,
		Message: message,
	}

	for _, option := range options {
		option(errorLog)
	}

	return m.db.Create(errorLog).Error
}

type ErrorLogOption func(*models.ErrorLog)

func WithSite(siteName string) ErrorLogOption {
	return func(e *models.ErrorLog) {
		e.SiteName = siteName
	}
}

func WithTopic(topicID uint) ErrorLogOption {
	return func(e *models.ErrorLog) {
		e.TopicID = &topicID
	}
}

func WithJob(jobID uint) ErrorLogOption {
	return func(e *models.ErrorLog) {
		e.JobID = &jobID
	}
}

func WithContext(context map[string]interface{}) ErrorLogOption {
	return func(e *models.ErrorLog) {
		if contextBytes, err := json.Marshal(context); err == nil {
			e.Context = string(contextBytes)
		}
	}
}

// RecordMetric stores a single metric sample.
func (m *MonitoringService) RecordMetric(name, metricType string, value float64, tags map[string]interface{}) error {
	sample := &models.MetricsSample{
		MetricName: name,
		MetricType: metricType,
		Value:      value,
		Timestamp:  time.Now(),
	}

	if tags != nil {
		if tagBytes, err := json.Marshal(tags); err == nil {
			sample.Tags = string(tagBytes)
		}
	}

	return m.db.Create(sample).Error
}

// UpdateSystemStats refreshes today's rollup row.
func (m *MonitoringService) UpdateSystemStats() error {
	today := time.Now().Truncate(24 * time.Hour)

	var stats models.SystemStats
	result := m.db.Where("date = ?", today).First(&stats)

	var totalTopics int64
	m.db.Model(&models.Topic{}).Count(&totalTopics)

	var totalJobs, succeededJobs, failedJobs, queuedJobs int64
	m.db.Model(&models.PublishJob{}).Count(&totalJobs)
	m.db.Model(&models.PublishJob{}).Where("status = ?", models.JobStatusSucceeded).Count(&succeededJobs)
	m.db.Model(&models.PublishJob{}).Where("status = ?", models.JobStatusFailed).Count(&failedJobs)
	m.db.Model(&models.PublishJob{}).Where("status = ?", models.JobStatusQueued).Count(&queuedJobs)

	var recoveryItems int64
	m.db.Model(&models.RecoveryItem{}).Where("status = ?", models.RecoveryStatusHeld).Count(&recoveryItems)

	var totalSites, activeSites int64
	m.db.Model(&models.Site{}).Count(&totalSites)
	m.db.Model(&models.Site{}).Where("enabled = ?", true).Count(&activeSites)

	if result.Error == gorm.ErrRecordNotFound {
		stats = models.SystemStats{
			Date:          today,
			TotalTopics:   int(totalTopics),
			TotalJobs:     int(totalJobs),
			SucceededJobs: int(succeededJobs),
			FailedJobs:    int(failedJobs),
			QueuedJobs:    int(queuedJobs),
			RecoveryItems: int(recoveryItems),
			TotalSites:    int(totalSites),
			ActiveSites:   int(activeSites),
		}
		return m.db.Create(&stats).Error
	}

	return m.db.Model(&stats).Updates(map[string]interface{}{
		"total_topics":   totalTopics,
		"total_jobs":     totalJobs,
		"succeeded_jobs": succeededJobs,
		"failed_jobs":    failedJobs,
		"queued_jobs":    queuedJobs,
		"recovery_items": recoveryItems,
		"total_sites":    totalSites,
		"active_sites":   activeSites,
	}).Error
}

// RecentErrors returns the latest unresolved errors.
func (m *MonitoringService) RecentErrors(limit int) ([]models.ErrorLog, error) {
	var logs []models.ErrorLog
	err := m.db.Where("resolved = ?", false).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
