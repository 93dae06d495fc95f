package repository

import (
	"context"
	"errors"

	"homeroom/internal/models"

	"gorm.io/gorm"
)

// ReportRepository defines persistence operations for chat abuse reports.
type ReportRepository interface {
	Create(ctx context.Context, report *models.ChatReport) error
	GetByID(ctx context.Context, id uint) (*models.ChatReport, error)
	ListAll(ctx context.Context, limit, offset int) ([]models.ChatReport, error)
	CreateNotifications(ctx context.Context, notes []models.Notification) error
	ListNotifications(ctx context.Context, userID uint, unreadOnly bool) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, noteID uint) error
}

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository returns a new ReportRepository implementation.
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

// Create inserts the report. A second report of the same message by the
// same reporter hits the unique index and surfaces as a conflict.
func (r *reportRepository) Create(ctx context.Context, report *models.ChatReport) error {
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		if IsUniqueConstraintError(err) {
			return models.NewConflictError("Message already reported")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *reportRepository) GetByID(ctx context.Context, id uint) (*models.ChatReport, error) {
	var report models.ChatReport
	if err := r.db.WithContext(ctx).
		Preload("Reporter").
		Preload("ReportedUser").
		First(&report, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Report", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &report, nil
}

func (r *reportRepository) ListAll(ctx context.Context, limit, offset int) ([]models.ChatReport, error) {
	var reports []models.ChatReport
	q := r.db.WithContext(ctx).
		Preload("Reporter").
		Preload("ReportedUser").
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&reports).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return reports, nil
}

func (r *reportRepository) CreateNotifications(ctx context.Context, notes []models.Notification) error {
	if len(notes) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&notes).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *reportRepository) ListNotifications(ctx context.Context, userID uint, unreadOnly bool) ([]models.Notification, error) {
	var notes []models.Notification
	q := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if unreadOnly {
		q = q.Where("read_at IS NULL")
	}
	if err := q.Find(&notes).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return notes, nil
}

func (r *reportRepository) MarkNotificationRead(ctx context.Context, userID, noteID uint) error {
	res := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", noteID, userID).
		Update("read_at", gorm.Expr("CURRENT_TIMESTAMP"))
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	return nil
}
