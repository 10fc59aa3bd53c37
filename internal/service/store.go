package service

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/sirliboyev-uz/ai-blog-agent/internal/models"
)

// PipelineStore persists publish jobs and site records for the pipeline.
// Split out as an interface so pipeline tests run without a database.
type PipelineStore interface {
	CreateJob(job *models.PublishJob) error
	SaveJob(job *models.PublishJob) error
	EnsureSite(siteID, displayName, baseURL string) (*models.Site, error)
}

type gormPipelineStore struct {
	db *gorm.DB
}

func NewPipelineStore(db *gorm.DB) PipelineStore {
	return &gormPipelineStore{db: db}
}

func (s *gormPipelineStore) CreateJob(job *models.PublishJob) error {
	return s.db.Create(job).Error
}

func (s *gormPipelineStore) SaveJob(job *models.PublishJob) error {
	return s.db.Save(job).Error
}

func (s *gormPipelineStore) EnsureSite(siteID, displayName, baseURL string) (*models.Site, error) {
	var site models.Site
	err := s.db.Where("name = ?", siteID).First(&site).Error
	if err == nil {
		return &site, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	site = models.Site{
		Name:        siteID,
		DisplayName: displayName,
		BaseURL:     baseURL,
		Enabled:     true,
	}
	if err := s.db.Create(&site).Error; err != nil {
		return nil, fmt.Errorf("failed to create site record: %w", err)
	}
	return &site, nil
}
