package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectWeather is one calendar day of forecast data for a project.
// The (project_id, weather_date) unique index is the upsert conflict
// target, so re-syncing the same day replaces rather than duplicates.
type ProjectWeather struct {
	ID             string    `json:"id" gorm:"type:uuid;primaryKey"`
	ProjectID      string    `json:"project_id" gorm:"type:uuid;not null;uniqueIndex:idx_weather_project_date"`
	WeatherDate    time.Time `json:"weather_date" gorm:"type:date;not null;uniqueIndex:idx_weather_project_date"`
	MinTemperature int       `json:"min_temperature"`
	MaxTemperature int       `json:"max_temperature"`
	Climate        string    `json:"climate" gorm:"type:varchar(100)"`
	IsPrediction   bool      `json:"is_prediction" gorm:"default:false"`
	CreatedBy      string    `json:"created_by" gorm:"type:uuid"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (w *ProjectWeather) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return nil
}
