package repository

import (
	"context"
	"time"

	"github.com/cicotti/reportfy-api/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WeatherRepository is the gorm-backed store for weather records.
type WeatherRepository struct {
	db *gorm.DB
}

func NewWeatherRepository(db *gorm.DB) *WeatherRepository {
	return &WeatherRepository{db: db}
}

func (r *WeatherRepository) ListInWindow(ctx context.Context, projectID string, start, end time.Time) ([]model.ProjectWeather, error) {
	query := r.db.WithContext(ctx).
		Where("weather_date >= ? AND weather_date <= ?", start, end).
		Order("weather_date ASC")
	if projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}

	var records []model.ProjectWeather
	err := query.Find(&records).Error
	return records, err
}

func (r *WeatherRepository) CountFreshInWindow(ctx context.Context, projectID string, start, end, updatedSince time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ProjectWeather{}).
		Where("project_id = ?", projectID).
		Where("weather_date >= ? AND weather_date <= ?", start, end).
		Where("updated_at >= ?", updatedSince).
		Count(&count).Error
	return count, err
}

func (r *WeatherRepository) ProjectLocation(ctx context.Context, projectID string) (string, error) {
	var project model.Project
	err := r.db.WithContext(ctx).Select("location").
		Where("id = ?", projectID).
		First(&project).Error
	return project.Location, err
}

// Upsert writes the record keyed on (project_id, weather_date),
// replacing the forecast fields of a conflicting row.
func (r *WeatherRepository) Upsert(ctx context.Context, record *model.ProjectWeather) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "project_id"}, {Name: "weather_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"min_temperature", "max_temperature", "climate", "is_prediction", "updated_at",
		}),
	}).Create(record).Error
}
