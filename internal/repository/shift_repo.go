package repository

import (
	"context"
	"errors"

	"posadmin/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ShiftRepository interface {
	Create(ctx context.Context, s *model.Shift) error
	// Close stamps closing data on the shift only while it is still open.
	// It reports false when the shift was already closed.
	Close(ctx context.Context, s *model.Shift) (bool, error)
	// FindOpenByUser returns nil, nil when the user has no open shift.
	FindOpenByUser(ctx context.Context, userID uuid.UUID) (*model.Shift, error)
	FindLastClosedByUser(ctx context.Context, userID uuid.UUID) (*model.Shift, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Shift, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Shift, int64, error)
}

type shiftRepo struct{ db *gorm.DB }

func NewShiftRepository(db *gorm.DB) ShiftRepository { return &shiftRepo{db: db} }

func (r *shiftRepo) Create(ctx context.Context, s *model.Shift) error {
	return r.db.WithContext(ctx).Omit("User").Create(s).Error
}

func (r *shiftRepo) Close(ctx context.Context, s *model.Shift) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Shift{}).
		Where("id = ? AND closed_at IS NULL", s.ID).
		Updates(map[string]interface{}{
			"closed_at":    s.ClosedAt,
			"closing_cash": s.ClosingCash,
			"notes":        s.Notes,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *shiftRepo) FindOpenByUser(ctx context.Context, userID uuid.UUID) (*model.Shift, error) {
	var s model.Shift
	err := r.db.WithContext(ctx).Where("user_id = ? AND closed_at IS NULL", userID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *shiftRepo) FindLastClosedByUser(ctx context.Context, userID uuid.UUID) (*model.Shift, error) {
	var s model.Shift
	err := r.db.WithContext(ctx).Where("user_id = ? AND closed_at IS NOT NULL", userID).
		Order("closed_at DESC").First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *shiftRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Shift, error) {
	var s model.Shift
	if err := r.db.WithContext(ctx).Preload("User").First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *shiftRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Shift, int64, error) {
	var shifts []model.Shift
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Shift{}).Where("user_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("opened_at DESC").Limit(limit).Offset(offset).Find(&shifts).Error
	return shifts, total, err
}
