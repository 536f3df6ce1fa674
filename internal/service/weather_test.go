package service

import (
	"context"
	"testing"
	"time"

	"github.com/cicotti/reportfy-api/internal/apperr"
	"github.com/cicotti/reportfy-api/internal/model"
)

func TestWeatherDescription(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{0, "Céu limpo"},
		{3, "Nublado"},
		{61, "Chuva leve"},
		{99, "Trovoada com granizo intenso"},
		{12, "Clima não especificado"},
		{-1, "Clima não especificado"},
		{100, "Clima não especificado"},
	}
	for _, tt := range tests {
		if got := WeatherDescription(tt.code); got != tt.want {
			t.Errorf("WeatherDescription(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestWeekWindow(t *testing.T) {
	// The window must hold for any reference day, so walk a full year.
	day := time.Date(2025, 1, 1, 15, 30, 0, 0, time.UTC)
	for i := 0; i < 365; i++ {
		now := day.AddDate(0, 0, i)
		start := CurrentWeekStart(now)
		end := NextWeekEnd(now)

		if start.Weekday() != time.Monday {
			t.Fatalf("CurrentWeekStart(%v) = %v, not a Monday", now, start)
		}
		if h, m, s := start.Clock(); h != 0 || m != 0 || s != 0 {
			t.Fatalf("CurrentWeekStart(%v) = %v, not midnight", now, start)
		}
		if start.After(now) {
			t.Fatalf("CurrentWeekStart(%v) = %v is in the future", now, start)
		}
		if got := end.Sub(start); got != 13*24*time.Hour {
			t.Fatalf("window for %v spans %v, want 312h", now, got)
		}
		if end.Weekday() != time.Sunday {
			t.Fatalf("NextWeekEnd(%v) = %v, not a Sunday", now, end)
		}
	}
}

func TestWindowDays(t *testing.T) {
	now := time.Date(2025, 6, 11, 9, 0, 0, 0, time.UTC)
	if got := windowDays(CurrentWeekStart(now), NextWeekEnd(now)); got != 14 {
		t.Fatalf("windowDays = %d, want 14", got)
	}
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		in        string
		lat, long string
		ok        bool
	}{
		{"(-23.55,-46.63)", "-23.55", "-46.63", true},
		{"-23.55,-46.63", "-23.55", "-46.63", true},
		{"( -23.55 , -46.63 )", "-23.55", "-46.63", true},
		{"", "", "", false},
		{"(0,0)", "0", "0", true},
		{"no-comma", "", "", false},
	}
	for _, tt := range tests {
		lat, long, ok := ParseLocation(tt.in)
		if ok != tt.ok || lat != tt.lat || long != tt.long {
			t.Errorf("ParseLocation(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.in, lat, long, ok, tt.lat, tt.long, tt.ok)
		}
	}
}

type fakeWeatherStore struct {
	fresh    int64
	location string
	upserts  []model.ProjectWeather
}

func (s *fakeWeatherStore) ListInWindow(_ context.Context, _ string, _, _ time.Time) ([]model.ProjectWeather, error) {
	return nil, nil
}

func (s *fakeWeatherStore) CountFreshInWindow(_ context.Context, _ string, _, _, _ time.Time) (int64, error) {
	return s.fresh, nil
}

func (s *fakeWeatherStore) ProjectLocation(_ context.Context, _ string) (string, error) {
	return s.location, nil
}

func (s *fakeWeatherStore) Upsert(_ context.Context, record *model.ProjectWeather) error {
	s.upserts = append(s.upserts, *record)
	return nil
}

type countingProvider struct {
	calls    int
	forecast *Forecast
}

func (p *countingProvider) Fetch(_ context.Context, _, _ string, start, end time.Time) (*Forecast, error) {
	p.calls++
	if p.forecast != nil {
		return p.forecast, nil
	}
	f := &Forecast{}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		f.Time = append(f.Time, d.Format("2006-01-02"))
		f.TemperatureMin = append(f.TemperatureMin, 18)
		f.TemperatureMax = append(f.TemperatureMax, 27)
		f.WeatherCode = append(f.WeatherCode, 0)
	}
	return f, nil
}

func newTestWeatherService(store *fakeWeatherStore, provider *countingProvider, now time.Time) *WeatherService {
	svc := NewWeatherService(store, provider)
	svc.now = func() time.Time { return now }
	return svc
}

func TestSyncSkipsProviderWhenWindowFresh(t *testing.T) {
	store := &fakeWeatherStore{fresh: 14}
	provider := &countingProvider{}
	svc := newTestWeatherService(store, provider, time.Date(2025, 6, 11, 10, 0, 0, 0, time.UTC))

	err := svc.Sync(context.Background(), "user-1", WeatherSyncInput{ProjectID: "7b9f0c3a-41d2-4a18-9f7e-0d4a8b1c2d3e"})
	if err != nil {
		t.Fatalf("Sync returned %v, want nil", err)
	}
	if provider.calls != 0 {
		t.Fatalf("provider called %d times, want 0", provider.calls)
	}
	if len(store.upserts) != 0 {
		t.Fatalf("%d records written, want 0", len(store.upserts))
	}
}

func TestSyncWritesFullWindow(t *testing.T) {
	now := time.Date(2025, 6, 11, 10, 0, 0, 0, time.UTC)
	store := &fakeWeatherStore{location: "(-23.55,-46.63)"}
	provider := &countingProvider{}
	svc := newTestWeatherService(store, provider, now)

	err := svc.Sync(context.Background(), "user-1", WeatherSyncInput{ProjectID: "7b9f0c3a-41d2-4a18-9f7e-0d4a8b1c2d3e"})
	if err != nil {
		t.Fatalf("Sync returned %v", err)
	}
	if provider.calls != 1 {
		t.Fatalf("provider called %d times, want 1", provider.calls)
	}
	if len(store.upserts) != 14 {
		t.Fatalf("%d records written, want 14", len(store.upserts))
	}

	nextStart := NextWeekStart(now)
	for _, rec := range store.upserts {
		if rec.Climate != "Céu limpo" {
			t.Errorf("climate = %q, want %q", rec.Climate, "Céu limpo")
		}
		wantPrediction := !rec.WeatherDate.Before(nextStart)
		if rec.IsPrediction != wantPrediction {
			t.Errorf("IsPrediction for %v = %v, want %v", rec.WeatherDate, rec.IsPrediction, wantPrediction)
		}
	}
}

func TestSyncBodyCoordinatesSkipLocationLookup(t *testing.T) {
	lat, long := -23.55, -46.63
	store := &fakeWeatherStore{} // empty location would fail a lookup
	provider := &countingProvider{}
	svc := newTestWeatherService(store, provider, time.Date(2025, 6, 11, 10, 0, 0, 0, time.UTC))

	err := svc.Sync(context.Background(), "user-1", WeatherSyncInput{
		ProjectID: "7b9f0c3a-41d2-4a18-9f7e-0d4a8b1c2d3e",
		Latitude:  &lat,
		Longitude: &long,
	})
	if err != nil {
		t.Fatalf("Sync returned %v", err)
	}
	if provider.calls != 1 {
		t.Fatalf("provider called %d times, want 1", provider.calls)
	}
}

func TestSyncRequiresProjectID(t *testing.T) {
	svc := newTestWeatherService(&fakeWeatherStore{}, &countingProvider{}, time.Now())

	err := svc.Sync(context.Background(), "user-1", WeatherSyncInput{})
	if apperr.KindOf(err) != apperr.Validation {
		t.Fatalf("Sync kind = %v, want Validation", apperr.KindOf(err))
	}
}

func TestSyncRejectsRaggedForecast(t *testing.T) {
	// A provider answer whose temperature/code series are shorter than
	// the day list must come back as a critical error, never a panic.
	store := &fakeWeatherStore{location: "(-23.55,-46.63)"}
	provider := &countingProvider{forecast: &Forecast{
		Time: []string{
			"2025-06-09", "2025-06-10", "2025-06-11", "2025-06-12",
			"2025-06-13", "2025-06-14", "2025-06-15", "2025-06-16",
			"2025-06-17", "2025-06-18", "2025-06-19", "2025-06-20",
			"2025-06-21", "2025-06-22",
		},
		TemperatureMin: []float64{18},
		TemperatureMax: []float64{27},
		WeatherCode:    []int{0},
	}}
	svc := newTestWeatherService(store, provider, time.Date(2025, 6, 11, 10, 0, 0, 0, time.UTC))

	err := svc.Sync(context.Background(), "user-1", WeatherSyncInput{ProjectID: "7b9f0c3a-41d2-4a18-9f7e-0d4a8b1c2d3e"})
	if apperr.KindOf(err) != apperr.Critical {
		t.Fatalf("Sync kind = %v, want Critical", apperr.KindOf(err))
	}
	if len(store.upserts) != 0 {
		t.Fatalf("%d records written from a ragged payload, want 0", len(store.upserts))
	}
}

func TestSyncUnparsableLocation(t *testing.T) {
	store := &fakeWeatherStore{location: "somewhere"}
	provider := &countingProvider{}
	svc := newTestWeatherService(store, provider, time.Date(2025, 6, 11, 10, 0, 0, 0, time.UTC))

	err := svc.Sync(context.Background(), "user-1", WeatherSyncInput{ProjectID: "7b9f0c3a-41d2-4a18-9f7e-0d4a8b1c2d3e"})
	if apperr.KindOf(err) != apperr.Query {
		t.Fatalf("Sync kind = %v, want Query", apperr.KindOf(err))
	}
	if provider.calls != 0 {
		t.Fatalf("provider called %d times, want 0", provider.calls)
	}
}
