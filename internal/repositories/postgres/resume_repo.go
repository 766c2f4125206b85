package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/deepinterview/deepinterview/internal/models"
	"github.com/deepinterview/deepinterview/internal/utils"
)

type ResumeRepository interface {
	Create(ctx context.Context, r *models.Resume) error
	GetByID(ctx context.Context, resumeID string) (*models.Resume, error)
	ListByUser(ctx context.Context, userID string) ([]models.Resume, error)
	UpdateTitle(ctx context.Context, resumeID, title string) error
	SetAnalysis(ctx context.Context, resumeID string, analysis datatypes.JSON, at time.Time) error
	SetDefault(ctx context.Context, userID, resumeID string) error
	Delete(ctx context.Context, resumeID string) error
}

type resumeRepo struct {
	db *gorm.DB
}

func NewResumeRepo(db *gorm.DB) ResumeRepository {
	return &resumeRepo{db: db}
}

func (r *resumeRepo) Create(ctx context.Context, res *models.Resume) error {
	return r.db.WithContext(ctx).Create(res).Error
}

func (r *resumeRepo) GetByID(ctx context.Context, resumeID string) (*models.Resume, error) {
	var res models.Resume
	err := r.db.WithContext(ctx).
		Where("id = ?", resumeID).
		Take(&res).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &res, err
}

func (r *resumeRepo) ListByUser(ctx context.Context, userID string) ([]models.Resume, error) {
	var out []models.Resume
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("uploaded_at DESC").
		Find(&out).Error
	return out, err
}

func (r *resumeRepo) UpdateTitle(ctx context.Context, resumeID, title string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Resume{}).
		Where("id = ?", resumeID).
		Update("title", title)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *resumeRepo) SetAnalysis(ctx context.Context, resumeID string, analysis datatypes.JSON, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.Resume{}).
		Where("id = ?", resumeID).
		Updates(map[string]any{
			"analysis":         analysis,
			"last_analyzed_at": at.UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

// SetDefault flips the flag atomically for the user's resumes.
func (r *resumeRepo) SetDefault(ctx context.Context, userID, resumeID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Resume{}).
			Where("user_id = ?", userID).
			Update("is_default", false).Error; err != nil {
			return err
		}
		res := tx.Model(&models.Resume{}).
			Where("id = ? AND user_id = ?", resumeID, userID).
			Update("is_default", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return utils.ErrNotFound
		}
		return nil
	})
}

func (r *resumeRepo) Delete(ctx context.Context, resumeID string) error {
	res := r.db.WithContext(ctx).
		Where("id = ?", resumeID).
		Delete(&models.Resume{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}
