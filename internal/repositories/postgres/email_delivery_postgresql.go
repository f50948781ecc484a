package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/studyroom-service/internal/models"
	"github.com/SAP-F-2025/studyroom-service/internal/repositories"
)

type EmailDeliveryPostgreSQL struct {
	db *gorm.DB
}

func NewEmailDeliveryPostgreSQL(db *gorm.DB) repositories.EmailDeliveryRepository {
	return &EmailDeliveryPostgreSQL{db: db}
}

func (e *EmailDeliveryPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return e.db
}

func (e *EmailDeliveryPostgreSQL) Create(ctx context.Context, tx *gorm.DB, delivery *models.EmailDelivery) error {
	if delivery.Status == "" {
		delivery.Status = models.DeliveryQueued
	}
	if err := e.getDB(tx).WithContext(ctx).Create(delivery).Error; err != nil {
		return handleDBError(err, "create email delivery")
	}
	return nil
}

func (e *EmailDeliveryPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.EmailDelivery, error) {
	var delivery models.EmailDelivery
	if err := e.getDB(tx).WithContext(ctx).First(&delivery, id).Error; err != nil {
		return nil, handleDBError(err, fmt.Sprintf("get email delivery %d", id))
	}
	return &delivery, nil
}

// RecordAttempt bumps the attempt counter atomically and stores the outcome
func (e *EmailDeliveryPostgreSQL) RecordAttempt(ctx context.Context, tx *gorm.DB, id uint, status models.DeliveryStatus, lastErr error) error {
	updates := map[string]interface{}{
		"attempts": gorm.Expr("attempts + 1"),
		"status":   status,
	}
	if lastErr != nil {
		updates["last_error"] = lastErr.Error()
	}

	result := e.getDB(tx).WithContext(ctx).
		Model(&models.EmailDelivery{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return handleDBError(result.Error, "record email attempt")
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("record email attempt %d failed: %w", id, repositories.ErrNotFound)
	}
	return nil
}

func (e *EmailDeliveryPostgreSQL) MarkFailed(ctx context.Context, tx *gorm.DB, id uint, lastErr error) error {
	updates := map[string]interface{}{"status": models.DeliveryFailed}
	if lastErr != nil {
		updates["last_error"] = lastErr.Error()
	}

	result := e.getDB(tx).WithContext(ctx).Model(&models.EmailDelivery{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return handleDBError(result.Error, "mark email failed")
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("mark email %d failed: %w", id, repositories.ErrNotFound)
	}
	return nil
}

func (e *EmailDeliveryPostgreSQL) ListByStatus(ctx context.Context, tx *gorm.DB, status models.DeliveryStatus, limit int) ([]*models.EmailDelivery, error) {
	var deliveries []*models.EmailDelivery
	query := applyPagination(e.getDB(tx).WithContext(ctx).Where("status = ?", status).Order("created_at ASC"), limit, 0)
	if err := query.Find(&deliveries).Error; err != nil {
		return nil, handleDBError(err, "list email deliveries")
	}
	return deliveries, nil
}
