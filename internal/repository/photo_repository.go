package repository

import (
	"context"

	"github.com/cicotti/reportfy-api/internal/model"
	"gorm.io/gorm"
)

// PhotoRepository is the gorm-backed store for photo metadata.
type PhotoRepository struct {
	db *gorm.DB
}

func NewPhotoRepository(db *gorm.DB) *PhotoRepository {
	return &PhotoRepository{db: db}
}

func (r *PhotoRepository) ListByProject(ctx context.Context, projectID string) ([]model.ProjectPhoto, error) {
	var photos []model.ProjectPhoto
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("display_order ASC").
		Order("created_at DESC").
		Find(&photos).Error
	return photos, err
}

func (r *PhotoRepository) Get(ctx context.Context, id string) (*model.ProjectPhoto, error) {
	var photo model.ProjectPhoto
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&photo).Error; err != nil {
		return nil, err
	}
	return &photo, nil
}

func (r *PhotoRepository) MaxDisplayOrder(ctx context.Context, projectID string) (int, bool, error) {
	var max *int
	err := r.db.WithContext(ctx).Model(&model.ProjectPhoto{}).
		Where("project_id = ?", projectID).
		Select("MAX(display_order)").
		Scan(&max).Error
	if err != nil {
		return 0, false, err
	}
	if max == nil {
		return 0, false, nil
	}
	return *max, true, nil
}

func (r *PhotoRepository) Insert(ctx context.Context, photo *model.ProjectPhoto) error {
	return r.db.WithContext(ctx).Create(photo).Error
}

func (r *PhotoRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.ProjectPhoto{}).Error
}

// ProfileAvatarRepository reads and writes the avatar slot on
// profiles.
type ProfileAvatarRepository struct {
	db *gorm.DB
}

func NewProfileAvatarRepository(db *gorm.DB) *ProfileAvatarRepository {
	return &ProfileAvatarRepository{db: db}
}

func (r *ProfileAvatarRepository) AvatarURL(ctx context.Context, userID string) (string, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).Select("avatar_url").
		Where("id = ?", userID).
		First(&profile).Error
	if err != nil {
		return "", err
	}
	if profile.AvatarURL == nil {
		return "", nil
	}
	return *profile.AvatarURL, nil
}

func (r *ProfileAvatarRepository) SetAvatarURL(ctx context.Context, userID, url string) error {
	return r.db.WithContext(ctx).Model(&model.Profile{}).
		Where("id = ?", userID).
		Update("avatar_url", url).Error
}
