package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cicotti/reportfy-api/internal/apperr"
	"github.com/cicotti/reportfy-api/internal/middleware"
	"github.com/cicotti/reportfy-api/internal/model"
	"github.com/cicotti/reportfy-api/internal/realtime"
	"github.com/cicotti/reportfy-api/internal/service"
	"github.com/labstack/echo/v4"
)

const testProjectID = "6f1e2d3c-4b5a-4968-8776-5f4e3d2c1b0a"

type memTaskStore struct {
	tasks []model.ProjectTask
}

func (s *memTaskStore) ListByProject(_ context.Context, projectID, taskID string) ([]model.ProjectTask, error) {
	var out []model.ProjectTask
	for _, t := range s.tasks {
		if t.ProjectID != projectID {
			continue
		}
		if taskID != "" && t.ID != taskID {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *memTaskStore) MaxSiblingOrder(_ context.Context, projectID string, parentID *string) (int, bool, error) {
	max, found := 0, false
	for _, t := range s.tasks {
		if t.ProjectID != projectID {
			continue
		}
		sameParent := (t.ParentTaskID == nil && parentID == nil) ||
			(t.ParentTaskID != nil && parentID != nil && *t.ParentTaskID == *parentID)
		if !sameParent {
			continue
		}
		if !found || t.DisplayOrder > max {
			max = t.DisplayOrder
		}
		found = true
	}
	return max, found, nil
}

func (s *memTaskStore) Insert(_ context.Context, task *model.ProjectTask) error {
	task.ID = "11111111-2222-4333-8444-555555555555"
	s.tasks = append(s.tasks, *task)
	return nil
}

func (s *memTaskStore) Update(_ context.Context, _ string, _ map[string]interface{}) error {
	return nil
}

func (s *memTaskStore) Delete(_ context.Context, _ string) error { return nil }

type memWeatherStore struct{ fresh int64 }

func (s *memWeatherStore) ListInWindow(_ context.Context, _ string, _, _ time.Time) ([]model.ProjectWeather, error) {
	return nil, nil
}

func (s *memWeatherStore) CountFreshInWindow(_ context.Context, _ string, _, _, _ time.Time) (int64, error) {
	return s.fresh, nil
}

func (s *memWeatherStore) ProjectLocation(_ context.Context, _ string) (string, error) {
	return "(-23.55,-46.63)", nil
}

func (s *memWeatherStore) Upsert(_ context.Context, _ *model.ProjectWeather) error { return nil }

type memProvider struct{}

func (memProvider) Fetch(_ context.Context, _, _ string, start, end time.Time) (*service.Forecast, error) {
	f := &service.Forecast{}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		f.Time = append(f.Time, d.Format("2006-01-02"))
		f.TemperatureMin = append(f.TemperatureMin, 17)
		f.TemperatureMax = append(f.TemperatureMax, 26)
		f.WeatherCode = append(f.WeatherCode, 2)
	}
	return f, nil
}

func jsonRequest(method, target, body string) (*httptest.ResponseRecorder, echo.Context) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(middleware.CtxUserID, "user-1")
	return rec, c
}

func TestTaskCreateResponds201WithMessage(t *testing.T) {
	h := NewTaskHandler(service.NewTaskService(&memTaskStore{}), realtime.NewHub())

	rec, c := jsonRequest(http.MethodPost, "/project-tasks",
		`{"project_id":"`+testProjectID+`","level":1,"name":"Fundação"}`)

	if err := h.Create(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}

	var resp struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ID == "" {
		t.Fatal("response carries no id")
	}
	if resp.Message != "Tarefa criada com sucesso" {
		t.Fatalf("message = %q", resp.Message)
	}
}

func TestTaskCreateValidationEnvelope(t *testing.T) {
	h := NewTaskHandler(service.NewTaskService(&memTaskStore{}), realtime.NewHub())

	rec, c := jsonRequest(http.MethodPost, "/project-tasks",
		`{"project_id":"`+testProjectID+`","level":9,"name":"x"}`)

	if err := h.Create(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var env apperr.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if env.Type != "validation" {
		t.Fatalf("type = %q, want validation", env.Type)
	}
}

func TestTaskCreatePublishesEvent(t *testing.T) {
	hub := realtime.NewHub()
	events, cancel := hub.Subscribe("project_tasks")
	defer cancel()

	h := NewTaskHandler(service.NewTaskService(&memTaskStore{}), hub)
	_, c := jsonRequest(http.MethodPost, "/project-tasks",
		`{"project_id":"`+testProjectID+`","level":1,"name":"Estrutura"}`)

	if err := h.Create(c); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-events:
		if ev.Type != realtime.EventInsert {
			t.Fatalf("event type = %q, want INSERT", ev.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("no realtime event published")
	}
}

func TestWeatherSyncRespondsWithMessage(t *testing.T) {
	weather := service.NewWeatherService(&memWeatherStore{}, memProvider{})
	h := NewWeatherHandler(weather, realtime.NewHub())

	rec, c := jsonRequest(http.MethodPost, "/project-weather/sync",
		`{"project_id":"`+testProjectID+`"}`)

	if err := h.Sync(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ID != testProjectID {
		t.Fatalf("id = %q, want the project id", resp.ID)
	}
	if resp.Message != "Clima sincronizado com sucesso" {
		t.Fatalf("message = %q", resp.Message)
	}
}

func TestWeatherSyncMissingProjectID(t *testing.T) {
	weather := service.NewWeatherService(&memWeatherStore{}, memProvider{})
	h := NewWeatherHandler(weather, realtime.NewHub())

	rec, c := jsonRequest(http.MethodPost, "/project-weather/sync", `{}`)

	if err := h.Sync(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

type memClientStore struct {
	clients map[string]model.Client
}

func (s *memClientStore) List(_ context.Context, companyID string) ([]model.Client, error) {
	out := []model.Client{}
	for _, cl := range s.clients {
		if cl.IsSoftDeleted {
			continue
		}
		if companyID != "" && cl.CompanyID != companyID {
			continue
		}
		out = append(out, cl)
	}
	return out, nil
}

func (s *memClientStore) Insert(_ context.Context, client *model.Client) error {
	if s.clients == nil {
		s.clients = map[string]model.Client{}
	}
	client.ID = "aaaaaaaa-bbbb-4ccc-8ddd-eeeeeeeeeeee"
	s.clients[client.ID] = *client
	return nil
}

func (s *memClientStore) Update(_ context.Context, id string, fields map[string]interface{}) error {
	return nil
}

func (s *memClientStore) SoftDelete(_ context.Context, id string) error {
	cl, ok := s.clients[id]
	if !ok {
		// Zero rows matched, same as the real store.
		return nil
	}
	cl.IsActive = false
	cl.IsSoftDeleted = true
	s.clients[id] = cl
	return nil
}

func TestClientDeleteIsIdempotent(t *testing.T) {
	store := &memClientStore{}
	h := NewClientHandler(store)

	rec, c := jsonRequest(http.MethodPost, "/clients",
		`{"company_id":"`+testProjectID+`","name":"Construtora Alfa"}`)
	if err := h.Create(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}

	// Deleting the same client twice must succeed both times.
	for i := 0; i < 2; i++ {
		rec, c := jsonRequest(http.MethodDelete, "/clients", `{"id":"`+created.ID+`"}`)
		if err := h.Delete(c); err != nil {
			t.Fatal(err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("delete #%d status = %d, want 200: %s", i+1, rec.Code, rec.Body.String())
		}
		var resp struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Message != "Cliente excluído com sucesso" {
			t.Fatalf("delete #%d message = %q", i+1, resp.Message)
		}
	}

	rec, c = jsonRequest(http.MethodGet, "/clients", "")
	if err := h.List(c); err != nil {
		t.Fatal(err)
	}
	var listed []model.Client
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatal(err)
	}
	if len(listed) != 0 {
		t.Fatalf("deleted client still listed: %+v", listed)
	}
}

func TestRealtimeAuthStateStreams(t *testing.T) {
	h := NewRealtimeHandler(realtime.NewHub())

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/realtime/auth-state", nil)
	ctx, cancel := context.WithCancel(req.Context())
	cancel() // stream should emit the connected event and exit
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(middleware.CtxUserID, "user-1")
	c.Set(middleware.CtxEmail, "user@empresa.com")
	c.Set(middleware.CtxRole, "admin")

	if err := h.AuthState(c); err != nil {
		t.Fatal(err)
	}
	if got := rec.Header().Get(echo.HeaderContentType); got != "text/event-stream" {
		t.Fatalf("content-type = %q, want text/event-stream", got)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "event: connected") {
		t.Fatalf("stream missing connected event: %q", body)
	}
	if !strings.Contains(body, "Conectado ao monitor de autenticação") {
		t.Fatalf("stream missing greeting: %q", body)
	}
	if !strings.Contains(body, `"user_id":"user-1"`) {
		t.Fatalf("stream missing identity: %q", body)
	}
}

func TestRealtimeSubscribeRejectsUnknownTable(t *testing.T) {
	h := NewRealtimeHandler(realtime.NewHub())

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/realtime/subscribe/profiles", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("table")
	c.SetParamValues("profiles")

	if err := h.Subscribe(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var env apperr.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if env.Type != "validation" {
		t.Fatalf("type = %q, want validation", env.Type)
	}
}
