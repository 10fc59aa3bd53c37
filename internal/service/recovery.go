package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sirliboyev-uz/ai-blog-agent/internal/models"
)

// RecoveryService is the durable holding area for payloads whose delivery
// exhausted its retries or was rejected. It implements
// publisher.RecoveryQueue; gorm serializes the inserts, so concurrent
// enqueue from many jobs is safe and nothing is dropped.
type RecoveryService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewRecoveryService(db *gorm.DB, logger *zap.Logger) *RecoveryService {
	return &RecoveryService{
		db:     db,
		logger: logger,
	}
}

// Enqueue appends a terminal record. Items are never deleted here;
// ownership of held items passes to whoever re-attempts them later.
func (r *RecoveryService) Enqueue(ctx context.Context, item *models.RecoveryItem) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("failed to enqueue recovery item: %w", err)
	}

	r.logger.Info("Recovery item enqueued",
		zap.Uint("item_id", item.ID),
		zap.Uint("job_id", item.JobID),
		zap.String("error_kind", item.ErrorKind))
	return nil
}

// HeldItems lists items awaiting a re-attempt, oldest first.
func (r *RecoveryService) HeldItems() ([]models.RecoveryItem, error) {
	var items []models.RecoveryItem
	if err := r.db.Where("status = ?", models.RecoveryStatusHeld).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to get recovery items: %w", err)
	}
	return items, nil
}

// Requeue resets the item's topic to pending so the next batch picks it up
// again, and marks the item requeued. The item row itself is kept.
func (r *RecoveryService) Requeue(ctx context.Context, itemID uint) error {
	var item models.RecoveryItem
	if err := r.db.First(&item, itemID).Error; err != nil {
		return fmt.Errorf("recovery item not found: %w", err)
	}
	if item.Status == models.RecoveryStatusRequeued {
		return fmt.Errorf("recovery item %d already requeued", itemID)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Topic{}).
			Where("id = ?", item.TopicID).
			Updates(map[string]interface{}{
				"status":     models.TopicStatusPending,
				"last_error": "",
			}).Error; err != nil {
			return fmt.Errorf("failed to reset topic: %w", err)
		}

		now := time.Now()
		item.Status = models.RecoveryStatusRequeued
		item.RequeuedAt = &now
		if err := tx.Save(&item).Error; err != nil {
			return fmt.Errorf("failed to mark item requeued: %w", err)
		}
		return nil
	})
}
