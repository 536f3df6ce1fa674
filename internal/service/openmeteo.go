package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/cicotti/reportfy-api/internal/apperr"
	"github.com/cicotti/reportfy-api/pkg/config"
)

// OpenMeteoProvider fetches daily forecasts from the open-meteo API.
type OpenMeteoProvider struct {
	cfg    *config.WeatherConfig
	client *http.Client
}

func NewOpenMeteoProvider(cfg *config.WeatherConfig) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		cfg:    cfg,
		client: &http.Client{},
	}
}

type openMeteoResponse struct {
	Daily struct {
		Time             []string  `json:"time"`
		Temperature2mMin []float64 `json:"temperature_2m_min"`
		Temperature2mMax []float64 `json:"temperature_2m_max"`
		WeatherCode      []int     `json:"weather_code"`
	} `json:"daily"`
}

// Fetch requests the daily series for [start, end]. A transport error
// or non-2xx answer is a Critical error carrying the provider's status
// text; this layer never retries.
func (p *OpenMeteoProvider) Fetch(ctx context.Context, latitude, longitude string, start, end time.Time) (*Forecast, error) {
	params := url.Values{}
	params.Set("latitude", latitude)
	params.Set("longitude", longitude)
	params.Set("daily", "weather_code,temperature_2m_max,temperature_2m_min")
	params.Set("timezone", p.cfg.Timezone)
	params.Set("start_date", start.Format("2006-01-02"))
	params.Set("end_date", end.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.Critical, "Erro ao buscar clima da API", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.Critical, "Erro ao buscar clima da API", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.New(apperr.Critical, "API request failed: "+resp.Status)
	}

	var body openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, apperr.Wrap(apperr.Critical, "Erro ao buscar clima da API", err)
	}

	return &Forecast{
		Time:           body.Daily.Time,
		TemperatureMin: body.Daily.Temperature2mMin,
		TemperatureMax: body.Daily.Temperature2mMax,
		WeatherCode:    body.Daily.WeatherCode,
	}, nil
}
