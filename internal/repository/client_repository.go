package repository

import (
	"context"

	"github.com/cicotti/reportfy-api/internal/model"
	"gorm.io/gorm"
)

// ClientRepository is the gorm-backed store for clients.
type ClientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// List returns non-deleted clients ordered by name, optionally
// filtered by companyID.
func (r *ClientRepository) List(ctx context.Context, companyID string) ([]model.Client, error) {
	query := r.db.WithContext(ctx).
		Preload("Company").
		Where("is_soft_deleted = ?", false).
		Order("name ASC")
	if companyID != "" {
		query = query.Where("company_id = ?", companyID)
	}

	var clients []model.Client
	err := query.Find(&clients).Error
	return clients, err
}

func (r *ClientRepository) Insert(ctx context.Context, client *model.Client) error {
	return r.db.WithContext(ctx).Create(client).Error
}

func (r *ClientRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Client{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// SoftDelete flags the client inactive and deleted. Matching zero rows
// (unknown or already-deleted id) is not an error, so the operation is
// idempotent.
func (r *ClientRepository) SoftDelete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&model.Client{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": false, "is_soft_deleted": true}).Error
}
