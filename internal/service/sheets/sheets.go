// Package sheets syncs the topic spreadsheet into the local database and
// mirrors job outcomes back to it. Columns: subject, business, location,
// target site ID, internal link URLs, status, result URL.
package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sirliboyev-uz/ai-blog-agent/internal/config"
	"github.com/sirliboyev-uz/ai-blog-agent/internal/models"
	"github.com/sirliboyev-uz/ai-blog-agent/pkg/util"
)

type Service struct {
	config *config.SheetsConfig
	db     *gorm.DB
	logger *zap.Logger
	api    *apiClient
}

func NewService(cfg *config.SheetsConfig, db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{
		config: cfg,
		db:     db,
		logger: logger,
		api:    newAPIClient(cfg),
	}
}

// SyncTopics pulls the sheet and upserts every row as a Topic keyed by its
// row number. Rows already completed locally are not reverted by a stale
// sheet status.
func (s *Service) SyncTopics(ctx context.Context) error {
	s.logger.Info("Starting topic sheet sync")

	rows, firstRow, err := s.api.getValues(ctx, s.config.SheetRange)
	if err != nil {
		return fmt.Errorf("failed to read sheet: %w", err)
	}

	synced := 0
	for i, row := range rows {
		topic, ok := topicFromRow(firstRow+i, row)
		if !ok {
			continue
		}
		if err := s.upsertTopic(topic); err != nil {
			s.logger.Error("Failed to upsert topic",
				zap.Int("sheet_row", topic.SheetRow),
				zap.Error(err))
			continue
		}
		synced++
	}

	s.logger.Info("Topic sheet sync completed", zap.Int("rows", len(rows)), zap.Int("synced", synced))
	return nil
}

// MarkTopicStatus writes a topic's status and result URL back to its sheet
// row and persists the same state locally.
func (s *Service) MarkTopicStatus(ctx context.Context, topic *models.Topic) error {
	if err := s.db.Save(topic).Error; err != nil {
		return fmt.Errorf("failed to save topic: %w", err)
	}

	sheetName := sheetNameFromRange(s.config.SheetRange)
	writeRange := fmt.Sprintf("%s!F%d:G%d", sheetName, topic.SheetRow, topic.SheetRow)

	if err := s.api.updateValues(ctx, writeRange, [][]string{{topic.Status, topic.ResultURL}}); err != nil {
		// The local record is authoritative; a failed write-back is logged
		// and retried on the next batch.
		s.logger.Warn("Failed to write topic status back to sheet",
			zap.Int("sheet_row", topic.SheetRow),
			zap.String("status", topic.Status),
			zap.Error(err))
		return fmt.Errorf("failed to update sheet: %w", err)
	}

	return nil
}

// PendingTopics returns up to limit topics awaiting processing, in sheet
// order.
func (s *Service) PendingTopics(limit int) ([]models.Topic, error) {
	var topics []models.Topic
	if err := s.db.Where("status = ?", models.TopicStatusPending).
		Order("sheet_row ASC").
		Limit(limit).
		Find(&topics).Error; err != nil {
		return nil, fmt.Errorf("failed to get pending topics: %w", err)
	}
	return topics, nil
}

func (s *Service) GetAllTopics() ([]models.Topic, error) {
	var topics []models.Topic
	if err := s.db.Order("sheet_row ASC").Find(&topics).Error; err != nil {
		return nil, fmt.Errorf("failed to get topics: %w", err)
	}
	return topics, nil
}

func (s *Service) upsertTopic(topic *models.Topic) error {
	var existing models.Topic
	err := s.db.Where("sheet_row = ?", topic.SheetRow).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return s.db.Create(topic).Error
	}
	if err != nil {
		return err
	}

	existing.Subject = topic.Subject
	existing.Business = topic.Business
	existing.Location = topic.Location
	existing.TargetSiteID = topic.TargetSiteID
	existing.InternalLinks = topic.InternalLinks

	// Only the sheet can re-open a locally terminal topic by explicitly
	// resetting its status cell.
	if existing.Status == models.TopicStatusCompleted || existing.Status == models.TopicStatusError {
		if topic.Status == models.TopicStatusPending {
			existing.Status = models.TopicStatusPending
			existing.LastError = ""
		}
	}

	existing.UpdatedAt = time.Now()
	return s.db.Save(&existing).Error
}

func topicFromRow(rowIndex int, row []string) (*models.Topic, bool) {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	subject := cell(0)
	siteID := cell(3)
	if subject == "" || siteID == "" {
		return nil, false
	}

	status := strings.ToLower(cell(5))
	switch status {
	case models.TopicStatusCompleted, models.TopicStatusError:
	default:
		status = models.TopicStatusPending
	}

	return &models.Topic{
		SheetRow:      rowIndex,
		Subject:       subject,
		Business:      cell(1),
		Location:      cell(2),
		TargetSiteID:  siteID,
		InternalLinks: util.SplitList(cell(4)),
		Status:        status,
		ResultURL:     cell(6),
	}, true
}

// Ping reads the configured range to verify spreadsheet access.
func Ping(ctx context.Context, cfg *config.SheetsConfig) error {
	_, _, err := newAPIClient(cfg).getValues(ctx, cfg.SheetRange)
	return err
}

func sheetNameFromRange(sheetRange string) string {
	if i := strings.Index(sheetRange, "!"); i > 0 {
		return sheetRange[:i]
	}
	return "Topics"
}
