package service

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cicotti/reportfy-api/internal/apperr"
	"github.com/cicotti/reportfy-api/internal/model"
	"github.com/cicotti/reportfy-api/pkg/logger"
	"github.com/cicotti/reportfy-api/prometheus"
	"go.uber.org/zap"
)

// weatherDescriptions maps open-meteo weather codes to the fixed
// Portuguese descriptions stored on each record.
var weatherDescriptions = map[int]string{
	0:  "Céu limpo",
	1:  "Principalmente limpo",
	2:  "Parcialmente nublado",
	3:  "Nublado",
	45: "Neblina",
	48: "Neblina com geada",
	51: "Garoa leve",
	53: "Garoa moderada",
	55: "Garoa intensa",
	61: "Chuva leve",
	63: "Chuva moderada",
	65: "Chuva intensa",
	71: "Neve leve",
	73: "Neve moderada",
	75: "Neve intensa",
	80: "Pancadas de chuva leves",
	81: "Pancadas de chuva moderadas",
	82: "Pancadas de chuva violentas",
	95: "Trovoada",
	96: "Trovoada com granizo leve",
	99: "Trovoada com granizo intenso",
}

// WeatherDescription translates a provider weather code. Unknown codes
// fall back to a generic string.
func WeatherDescription(code int) string {
	if desc, ok := weatherDescriptions[code]; ok {
		return desc
	}
	return "Clima não especificado"
}

// CurrentWeekStart returns the Monday of now's week at midnight.
func CurrentWeekStart(now time.Time) time.Time {
	diff := 1 - int(now.Weekday())
	if now.Weekday() == time.Sunday {
		diff = -6
	}
	monday := now.AddDate(0, 0, diff)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, monday.Location())
}

// NextWeekStart returns the Monday after CurrentWeekStart.
func NextWeekStart(now time.Time) time.Time {
	return CurrentWeekStart(now).AddDate(0, 0, 7)
}

// NextWeekEnd returns the Sunday closing the two-week window.
func NextWeekEnd(now time.Time) time.Time {
	return NextWeekStart(now).AddDate(0, 0, 6)
}

// windowDays derives the day count of the inclusive [start, end]
// window. The same-day quota gate compares against this instead of a
// hardcoded 14 so a window change moves the gate with it.
func windowDays(start, end time.Time) int {
	return int(end.Sub(start).Hours()/24) + 1
}

var locationPattern = regexp.MustCompile(`\(?\s*([^,()]+)\s*,\s*([^,()]+)\s*\)?`)

// ParseLocation extracts the latitude/longitude pair from the
// "(lat,long)" textual encoding stored on projects.
func ParseLocation(location string) (lat, long string, ok bool) {
	m := locationPattern.FindStringSubmatch(location)
	if m == nil {
		return "", "", false
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), true
}

// Forecast is the provider's daily series for the requested window.
type Forecast struct {
	Time           []string
	TemperatureMin []float64
	TemperatureMax []float64
	WeatherCode    []int
}

// ForecastProvider fetches daily forecast data for a coordinate pair
// over an inclusive date range.
type ForecastProvider interface {
	Fetch(ctx context.Context, latitude, longitude string, start, end time.Time) (*Forecast, error)
}

// WeatherStore is the persistence surface the sync engine needs.
type WeatherStore interface {
	ListInWindow(ctx context.Context, projectID string, start, end time.Time) ([]model.ProjectWeather, error)
	CountFreshInWindow(ctx context.Context, projectID string, start, end, updatedSince time.Time) (int64, error)
	ProjectLocation(ctx context.Context, projectID string) (string, error)
	Upsert(ctx context.Context, record *model.ProjectWeather) error
}

// WeatherSyncInput is the body of a sync request. Coordinates are
// optional; when absent they are read from the project's location.
type WeatherSyncInput struct {
	ProjectID string   `json:"project_id"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// WeatherService keeps a rolling two-week forecast window fresh per
// project without redundant provider calls.
type WeatherService struct {
	store    WeatherStore
	provider ForecastProvider
	now      func() time.Time
}

func NewWeatherService(store WeatherStore, provider ForecastProvider) *WeatherService {
	return &WeatherService{store: store, provider: provider, now: time.Now}
}

// List returns the records inside the current two-week window ordered
// by date ascending. projectID is optional.
func (s *WeatherService) List(ctx context.Context, projectID string) ([]model.ProjectWeather, error) {
	now := s.now()
	records, err := s.store.ListInWindow(ctx, projectID, CurrentWeekStart(now), NextWeekEnd(now))
	if err != nil {
		return nil, apperr.Wrap(apperr.Query, "Erro ao carregar dados meteorológicos", err)
	}
	return records, nil
}

// Sync refreshes the window from the forecast provider, at most once
// per project per day: when every day of the window was already
// updated today the provider is not called at all. Records are
// upserted on (project_id, weather_date) one by one; the first failure
// aborts without rolling back days already written, which re-sync
// repairs naturally.
func (s *WeatherService) Sync(ctx context.Context, userID string, in WeatherSyncInput) error {
	log := logger.FromContext(ctx)

	if in.ProjectID == "" {
		return apperr.New(apperr.Validation, "project_id é obrigatório")
	}

	now := s.now()
	start := CurrentWeekStart(now)
	nextStart := NextWeekStart(now)
	end := NextWeekEnd(now)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	fresh, err := s.store.CountFreshInWindow(ctx, in.ProjectID, start, end, today)
	if err != nil {
		return apperr.Wrap(apperr.Query, "Erro ao consultar dados meteorológicos", err)
	}
	if fresh == int64(windowDays(start, end)) {
		// Full window already refreshed today.
		log.Debug("Weather window already fresh, skipping provider call",
			zap.String("project_id", in.ProjectID))
		prometheus.WeatherSyncCounter.WithLabelValues("skipped").Inc()
		return nil
	}

	lat, long, err := s.resolveCoordinates(ctx, in)
	if err != nil {
		return err
	}

	prometheus.WeatherProviderCallCounter.Inc()
	forecast, err := s.provider.Fetch(ctx, lat, long, start, end)
	if err != nil {
		prometheus.WeatherSyncCounter.WithLabelValues("failed").Inc()
		return err
	}

	// The daily series must be rectangular before it is indexed.
	if len(forecast.TemperatureMin) != len(forecast.Time) ||
		len(forecast.TemperatureMax) != len(forecast.Time) ||
		len(forecast.WeatherCode) != len(forecast.Time) {
		prometheus.WeatherSyncCounter.WithLabelValues("failed").Inc()
		return apperr.New(apperr.Critical, "Resposta incompleta da API de clima")
	}

	for i, day := range forecast.Time {
		date, err := time.ParseInLocation("2006-01-02", day, now.Location())
		if err != nil {
			prometheus.WeatherSyncCounter.WithLabelValues("failed").Inc()
			return apperr.Wrap(apperr.Critical, "Data inválida retornada pela API de clima", err)
		}

		record := model.ProjectWeather{
			ProjectID:      in.ProjectID,
			WeatherDate:    date,
			MinTemperature: int(math.Round(forecast.TemperatureMin[i])),
			MaxTemperature: int(math.Round(forecast.TemperatureMax[i])),
			Climate:        WeatherDescription(forecast.WeatherCode[i]),
			IsPrediction:   !date.Before(nextStart),
			CreatedBy:      userID,
		}

		if err := s.store.Upsert(ctx, &record); err != nil {
			prometheus.WeatherSyncCounter.WithLabelValues("failed").Inc()
			return apperr.Wrap(apperr.Query, "Erro ao gravar dados meteorológicos", err)
		}
	}

	prometheus.WeatherSyncCounter.WithLabelValues("synced").Inc()
	log.Info("Weather synced",
		zap.String("project_id", in.ProjectID),
		zap.Int("days", len(forecast.Time)))
	return nil
}

func (s *WeatherService) resolveCoordinates(ctx context.Context, in WeatherSyncInput) (string, string, error) {
	if in.Latitude != nil && in.Longitude != nil {
		return strconv.FormatFloat(*in.Latitude, 'f', -1, 64),
			strconv.FormatFloat(*in.Longitude, 'f', -1, 64), nil
	}

	location, err := s.store.ProjectLocation(ctx, in.ProjectID)
	if err != nil {
		return "", "", apperr.Wrap(apperr.Query, "Não foi possível obter latitude e longitude do projeto", err)
	}
	lat, long, ok := ParseLocation(location)
	if !ok {
		return "", "", apperr.New(apperr.Query, "Não foi possível obter latitude e longitude do projeto")
	}
	return lat, long, nil
}
