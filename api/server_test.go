package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/roaddodge/game/config"
	"github.com/wricardo/mcp-training/roaddodge/game/engine"
	"github.com/wricardo/mcp-training/roaddodge/game/service"
	"github.com/wricardo/mcp-training/roaddodge/game/session"
	"github.com/wricardo/mcp-training/roaddodge/transport/websocket"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	// Session Management
	CreateSessionFunc func(ctx context.Context, configName string) (*service.SessionInfo, error)
	GetSessionFunc    func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc  func(ctx context.Context) ([]*service.SessionInfo, error)
	DeleteSessionFunc func(ctx context.Context, sessionID string) error

	// Game Operations
	DriveFunc func(ctx context.Context, sessionID string, req service.DriveRequest, reset bool) (*service.DriveResult, error)
	ResetFunc func(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Game State
	GetGameStateFunc    func(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetEventHistoryFunc func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error)

	// Configuration
	ListConfigsFunc func(ctx context.Context) ([]*service.ConfigInfo, error)
	LoadConfigFunc  func(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfigFunc  func(ctx context.Context, configName string, config *engine.GameConfig) error
}

func testState() *engine.GameState {
	return engine.InitGameStateFromConfig(engine.DefaultConfig(), 7)
}

// Session Management
func (m *MockGameService) CreateSession(ctx context.Context, configName string) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, configName)
	}
	return &service.SessionInfo{
		ID:         "test-session",
		ConfigName: configName,
		CreatedAt:  time.Now(),
	}, nil
}

func (m *MockGameService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{
		ID:         sessionID,
		ConfigName: "test-config",
		CreatedAt:  time.Now(),
		GameState:  testState(),
	}, nil
}

func (m *MockGameService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockGameService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

// Game Operations
func (m *MockGameService) Drive(ctx context.Context, sessionID string, req service.DriveRequest, reset bool) (*service.DriveResult, error) {
	if m.DriveFunc != nil {
		return m.DriveFunc(ctx, sessionID, req, reset)
	}
	return &service.DriveResult{
		Success:        true,
		FramesExecuted: req.Frames,
		StopReasonCode: service.StopCompleted,
		GameState:      testState(),
	}, nil
}

func (m *MockGameService) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, sessionID)
	}
	return testState(), nil
}

// Game State
func (m *MockGameService) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	if m.GetGameStateFunc != nil {
		return m.GetGameStateFunc(ctx, sessionID)
	}
	return testState(), nil
}

func (m *MockGameService) GetEventHistory(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
	if m.GetEventHistoryFunc != nil {
		return m.GetEventHistoryFunc(ctx, sessionID, opts)
	}
	return &service.HistoryResponse{
		Events:     []engine.EventEntry{},
		Page:       opts.Page,
		PageSize:   opts.Limit,
		TotalPages: 1,
	}, nil
}

// Configuration
func (m *MockGameService) ListConfigs(ctx context.Context) ([]*service.ConfigInfo, error) {
	if m.ListConfigsFunc != nil {
		return m.ListConfigsFunc(ctx)
	}
	return []*service.ConfigInfo{}, nil
}

func (m *MockGameService) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	if m.LoadConfigFunc != nil {
		return m.LoadConfigFunc(ctx, configName)
	}
	cfg := engine.DefaultConfig()
	cfg.Name = configName
	return cfg, nil
}

func (m *MockGameService) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	if m.SaveConfigFunc != nil {
		return m.SaveConfigFunc(ctx, configName, config)
	}
	return nil
}

// Test helpers
func setupTestServer(t *testing.T, mockService *MockGameService) (*Server, *websocket.Hub) {
	t.Helper()
	hub := websocket.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)
	return NewServer(mockService, hub), hub
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v (body %s)", err, w.Body.String())
	}
}

func TestHealth(t *testing.T) {
	mock := &MockGameService{
		ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
			return []*service.SessionInfo{{ID: "a"}, {ID: "b"}}, nil
		},
	}
	server, _ := setupTestServer(t, mock)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp map[string]interface{}
	parseResponse(t, w, &resp)
	if resp["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", resp["status"])
	}
	if resp["sessions"] != float64(2) {
		t.Errorf("sessions = %v, want 2", resp["sessions"])
	}
}

// Session Management Tests

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    map[string]string
		setupMock      func(*MockGameService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:        "Create session with default config",
			requestBody: nil,
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return &service.SessionInfo{ID: "sess-123", ConfigName: "classic", CreatedAt: time.Now()}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ID != "sess-123" {
					t.Errorf("Expected session ID sess-123, got %s", resp.ID)
				}
			},
		},
		{
			name:        "Create session with config_id",
			requestBody: map[string]string{"config_id": "rush"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					if configName != "rush" {
						t.Errorf("Expected config 'rush', got %s", configName)
					}
					return &service.SessionInfo{ID: "sess-456", ConfigName: configName}, nil
				}
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:        "Deprecated config_name still works",
			requestBody: map[string]string{"config_name": "easy"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					if configName != "easy" {
						t.Errorf("Expected config 'easy', got %s", configName)
					}
					return &service.SessionInfo{ID: "sess-789", ConfigName: configName}, nil
				}
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:        "Unknown config",
			requestBody: map[string]string{"config_id": "nope"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("config 'nope' not found: %w", config.ErrConfigNotFound)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "Handle service error",
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("service error")
				}
			},
			expectedStatus: http.StatusInternalServerError,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp map[string]string
				parseResponse(t, w, &resp)
				if resp["error"] != "service error" {
					t.Errorf("Expected error message 'service error', got %s", resp["error"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server, _ := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/sessions", tt.requestBody))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestListSessions(t *testing.T) {
	now := time.Now()
	mock := &MockGameService{
		ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
			return []*service.SessionInfo{
				{ID: "old", CreatedAt: now.Add(-2 * time.Hour), LastAccessedAt: now},
				{ID: "mid", CreatedAt: now.Add(-time.Hour), LastAccessedAt: now.Add(-2 * time.Hour)},
				{ID: "new", CreatedAt: now, LastAccessedAt: now.Add(-time.Hour)},
			}, nil
		},
	}
	server, _ := setupTestServer(t, mock)

	tests := []struct {
		name      string
		query     string
		wantOrder []string
	}{
		{"Default sorts by accessed desc", "", []string{"old", "new", "mid"}},
		{"Created ascending", "?sort=created&order=asc", []string{"old", "mid", "new"}},
		{"Created descending with limit", "?sort=created&limit=2", []string{"new", "mid"}},
		{"Invalid limit ignored", "?sort=created&limit=abc", []string{"new", "mid", "old"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/sessions"+tt.query, nil))

			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			var resp struct {
				Count    int                    `json:"count"`
				Total    int                    `json:"total"`
				Sessions []*service.SessionInfo `json:"sessions"`
			}
			parseResponse(t, w, &resp)

			if resp.Total != 3 {
				t.Errorf("total = %d, want 3", resp.Total)
			}
			if resp.Count != len(tt.wantOrder) {
				t.Fatalf("count = %d, want %d", resp.Count, len(tt.wantOrder))
			}
			for i, id := range tt.wantOrder {
				if resp.Sessions[i].ID != id {
					t.Errorf("sessions[%d] = %s, want %s", i, resp.Sessions[i].ID, id)
				}
			}
		})
	}
}

func TestGetSession(t *testing.T) {
	mock := &MockGameService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			if sessionID == "missing" {
				return nil, fmt.Errorf("session not found: %w", session.ErrSessionNotFound)
			}
			return &service.SessionInfo{ID: sessionID, ConfigName: "classic", GameState: testState()}, nil
		},
	}
	server, _ := setupTestServer(t, mock)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/sessions/ab12", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp service.SessionInfo
	parseResponse(t, w, &resp)
	if resp.ID != "ab12" || resp.GameState == nil || resp.GameState.Player() == nil {
		t.Errorf("unexpected session: %+v", resp)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/sessions/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestDeleteSession(t *testing.T) {
	deleted := ""
	mock := &MockGameService{
		DeleteSessionFunc: func(ctx context.Context, sessionID string) error {
			if sessionID == "missing" {
				return session.ErrSessionNotFound
			}
			deleted = sessionID
			return nil
		},
	}
	server, _ := setupTestServer(t, mock)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("DELETE", "/api/sessions/ab12", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if deleted != "ab12" {
		t.Errorf("deleted = %q, want ab12", deleted)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("DELETE", "/api/sessions/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

// Game Operation Tests

func TestDrive(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		setupMock      func(*MockGameService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name: "Drive up for ten frames",
			body: map[string]interface{}{"up": true, "frames": 10},
			setupMock: func(m *MockGameService) {
				m.DriveFunc = func(ctx context.Context, sessionID string, req service.DriveRequest, reset bool) (*service.DriveResult, error) {
					if !req.Up || req.Down || req.Frames != 10 || reset {
						t.Errorf("unexpected request: %+v reset=%v", req, reset)
					}
					return &service.DriveResult{
						Success:         true,
						FramesExecuted:  10,
						FramesRequested: 10,
						StopReasonCode:  service.StopCompleted,
						StartY:          0,
						EndY:            41.6,
						HealthBefore:    5,
						HealthAfter:     5,
						GameState:       testState(),
						Hint:            "none",
					}, nil
				}
			},
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.DriveResult
				parseResponse(t, w, &resp)
				if resp.FramesExecuted != 10 || resp.StopReasonCode != service.StopCompleted {
					t.Errorf("unexpected result: %+v", resp)
				}
				if resp.Hint != "none" {
					t.Errorf("hint = %q, want none", resp.Hint)
				}
			},
		},
		{
			name: "Reset flag and autopilot are passed through",
			body: map[string]interface{}{"auto": true, "frames": 60, "dt": 0.05, "reset": true},
			setupMock: func(m *MockGameService) {
				m.DriveFunc = func(ctx context.Context, sessionID string, req service.DriveRequest, reset bool) (*service.DriveResult, error) {
					if !req.Auto || req.Frames != 60 || req.DT != 0.05 || !reset {
						t.Errorf("unexpected request: %+v reset=%v", req, reset)
					}
					return &service.DriveResult{GameState: testState()}, nil
				}
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Invalid body",
			body:           "not json",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Invalid request from service",
			body: map[string]interface{}{"frames": -1},
			setupMock: func(m *MockGameService) {
				m.DriveFunc = func(ctx context.Context, sessionID string, req service.DriveRequest, reset bool) (*service.DriveResult, error) {
					return nil, fmt.Errorf("%w: frames must not be negative", service.ErrInvalidRequest)
				}
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Unknown session",
			body: map[string]interface{}{"frames": 1},
			setupMock: func(m *MockGameService) {
				m.DriveFunc = func(ctx context.Context, sessionID string, req service.DriveRequest, reset bool) (*service.DriveResult, error) {
					return nil, fmt.Errorf("session not found: %w", session.ErrSessionNotFound)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server, _ := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			var req *http.Request
			if s, ok := tt.body.(string); ok {
				req = httptest.NewRequest("POST", "/api/sessions/ab12/drive", bytes.NewBufferString(s))
			} else {
				req = makeRequest("POST", "/api/sessions/ab12/drive", tt.body)
			}
			server.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d (%s)", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestKeysLabel(t *testing.T) {
	tests := []struct {
		req  service.DriveRequest
		want string
	}{
		{service.DriveRequest{}, "none"},
		{service.DriveRequest{Up: true}, "up"},
		{service.DriveRequest{Down: true}, "down"},
		{service.DriveRequest{Up: true, Down: true}, "up+down"},
		{service.DriveRequest{Up: true, Auto: true}, "auto"},
	}
	for _, tt := range tests {
		if got := keysLabel(tt.req); got != tt.want {
			t.Errorf("keysLabel(%+v) = %q, want %q", tt.req, got, tt.want)
		}
	}
}

func TestReset(t *testing.T) {
	mock := &MockGameService{
		ResetFunc: func(ctx context.Context, sessionID string) (*engine.GameState, error) {
			if sessionID == "missing" {
				return nil, session.ErrSessionNotFound
			}
			return testState(), nil
		},
	}
	server, _ := setupTestServer(t, mock)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/sessions/ab12/reset", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	parseResponse(t, w, &resp)
	if resp.State == nil || resp.State.Health != engine.DefaultConfig().StartingHealth {
		t.Errorf("unexpected reset state: %+v", resp.State)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/sessions/missing/reset", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestGetEvents(t *testing.T) {
	var got service.HistoryOptions
	mock := &MockGameService{
		GetEventHistoryFunc: func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
			got = opts
			return &service.HistoryResponse{Events: []engine.EventEntry{{Type: engine.EventCollision}}, TotalEvents: 1, Page: opts.Page, PageSize: opts.Limit, TotalPages: 1}, nil
		},
	}
	server, _ := setupTestServer(t, mock)

	tests := []struct {
		name  string
		query string
		want  service.HistoryOptions
	}{
		{"Defaults", "", service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
		{"Explicit", "?page=2&limit=5&order=asc&type=collision", service.HistoryOptions{Page: 2, Limit: 5, Order: "asc", Type: "collision"}},
		{"Invalid values fall back", "?page=-1&limit=x&order=sideways", service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/sessions/ab12/events"+tt.query, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			if got != tt.want {
				t.Errorf("options = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestGetGameState(t *testing.T) {
	server, _ := setupTestServer(t, &MockGameService{})

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/sessions/ab12/state", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var state engine.GameState
	parseResponse(t, w, &state)
	if state.Player() == nil {
		t.Error("state should contain the player sprite")
	}
	if _, ok := state.Texts[engine.HealthTextLabel]; !ok {
		t.Error("state should contain the health text")
	}
}

// Configuration Tests

func TestListConfigs(t *testing.T) {
	mock := &MockGameService{
		ListConfigsFunc: func(ctx context.Context) ([]*service.ConfigInfo, error) {
			return []*service.ConfigInfo{{ConfigID: "classic", Name: "Classic", StartingHealth: 5}}, nil
		},
	}
	server, _ := setupTestServer(t, mock)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/configs", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var configs []*service.ConfigInfo
	parseResponse(t, w, &configs)
	if len(configs) != 1 || configs[0].ConfigID != "classic" {
		t.Errorf("unexpected configs: %+v", configs)
	}
}

func TestGetConfig(t *testing.T) {
	mock := &MockGameService{
		LoadConfigFunc: func(ctx context.Context, configName string) (*engine.GameConfig, error) {
			if configName == "missing" {
				return nil, config.ErrConfigNotFound
			}
			return engine.DefaultConfig(), nil
		},
	}
	server, _ := setupTestServer(t, mock)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/configs/classic", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var cfg engine.GameConfig
	parseResponse(t, w, &cfg)
	if cfg.StartingHealth != engine.DefaultConfig().StartingHealth {
		t.Errorf("StartingHealth = %d", cfg.StartingHealth)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/configs/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestCreateConfig(t *testing.T) {
	var savedID string
	mock := &MockGameService{
		SaveConfigFunc: func(ctx context.Context, configName string, cfg *engine.GameConfig) error {
			savedID = configName
			return nil
		},
	}
	server, _ := setupTestServer(t, mock)

	valid := engine.DefaultConfig()
	valid.Name = "Night Drive"

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/configs", valid))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d (%s)", w.Code, w.Body.String())
	}
	if savedID != "night_drive" {
		t.Errorf("saved as %q, want night_drive", savedID)
	}

	invalid := engine.DefaultConfig()
	invalid.StartingHealth = 0
	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/configs", invalid))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for invalid config, got %d", w.Code)
	}

	nameless := engine.DefaultConfig()
	nameless.Name = ""
	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/configs", nameless))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for missing name, got %d", w.Code)
	}
}

func TestUnifiedSessions(t *testing.T) {
	lost := testState()
	lost.Lost = true
	all := []*service.SessionInfo{
		{ID: "a1", ConfigName: "classic", GameState: testState(), GameConfig: engine.DefaultConfig()},
		{ID: "b2", ConfigName: "classic", GameState: lost, GameConfig: engine.DefaultConfig()},
		{ID: "c3", ConfigName: "rush", GameState: testState()},
	}
	mock := &MockGameService{
		ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) { return all, nil },
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			for _, info := range all {
				if info.ID == sessionID {
					return info, nil
				}
			}
			return nil, session.ErrSessionNotFound
		},
	}
	server, _ := setupTestServer(t, mock)

	tests := []struct {
		name      string
		query     string
		wantCount int
		wantAlive int
	}{
		{"All sessions", "", 3, 2},
		{"By config", "?configName=classic", 2, 1},
		{"By ids skips unknown", "?sessionIds=a1,zz,c3", 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/sessions/unified"+tt.query, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			var resp struct {
				ConfigName     string                   `json:"config_name"`
				StartingHealth int                      `json:"starting_health"`
				Alive          int                      `json:"alive"`
				Sessions       []map[string]interface{} `json:"sessions"`
			}
			parseResponse(t, w, &resp)
			if len(resp.Sessions) != tt.wantCount {
				t.Errorf("sessions = %d, want %d", len(resp.Sessions), tt.wantCount)
			}
			if resp.Alive != tt.wantAlive {
				t.Errorf("alive = %d, want %d", resp.Alive, tt.wantAlive)
			}
		})
	}
}

func TestWebSocket(t *testing.T) {
	tests := []struct {
		name           string
		queryParams    string
		setupMock      func(*MockGameService)
		expectedStatus int
	}{
		{
			name:           "Missing session parameter",
			queryParams:    "",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "Invalid session",
			queryParams: "?session=invalid",
			setupMock: func(m *MockGameService) {
				m.GetGameStateFunc = func(ctx context.Context, sessionID string) (*engine.GameState, error) {
					return nil, session.ErrSessionNotFound
				}
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server, _ := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, httptest.NewRequest("GET", "/ws"+tt.queryParams, nil))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestWebSocketReceivesDriveBroadcast(t *testing.T) {
	driven := testState()
	driven.Health = 3
	mock := &MockGameService{
		DriveFunc: func(ctx context.Context, sessionID string, req service.DriveRequest, reset bool) (*service.DriveResult, error) {
			return &service.DriveResult{
				GameState: driven,
				Audio:     []engine.AudioCue{{Kind: engine.AudioSfx, Preset: engine.SfxImpact1, Volume: 0.5}},
			}, nil
		},
	}
	server, hub := setupTestServer(t, mock)
	httpServer := httptest.NewServer(server)
	defer httpServer.Close()

	wsURL, err := websocket.WatchURL(httpServer.URL, "ab12")
	if err != nil {
		t.Fatalf("WatchURL failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	received := make(chan *websocket.Message, 8)
	go websocket.Watch(ctx, wsURL, func(msg *websocket.Message) { received <- msg })

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for initial state")
	}

	deadline := time.Now().Add(time.Second)
	for hub.ClientCount("ab12") != 1 {
		if time.Now().After(deadline) {
			t.Fatal("watcher never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/sessions/ab12/drive", map[string]interface{}{"frames": 5}))
	if w.Code != http.StatusOK {
		t.Fatalf("drive failed: %d", w.Code)
	}

	select {
	case msg := <-received:
		if msg.GameState == nil || msg.GameState.Health != 3 {
			t.Errorf("unexpected broadcast state: %+v", msg.GameState)
		}
		if len(msg.Audio) != 1 || msg.Audio[0].Preset != engine.SfxImpact1 {
			t.Errorf("Audio = %+v", msg.Audio)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for drive broadcast")
	}
}

func TestWebSocketSessionIDIgnoresCase(t *testing.T) {
	driven := testState()
	driven.Health = 2
	mock := &MockGameService{
		DriveFunc: func(ctx context.Context, sessionID string, req service.DriveRequest, reset bool) (*service.DriveResult, error) {
			return &service.DriveResult{GameState: driven}, nil
		},
		DeleteSessionFunc: func(ctx context.Context, sessionID string) error {
			return nil
		},
	}
	server, hub := setupTestServer(t, mock)
	httpServer := httptest.NewServer(server)
	defer httpServer.Close()

	wsURL, err := websocket.WatchURL(httpServer.URL, "AB12")
	if err != nil {
		t.Fatalf("WatchURL failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	received := make(chan *websocket.Message, 8)
	go websocket.Watch(ctx, wsURL, func(msg *websocket.Message) { received <- msg })

	select {
	case msg := <-received:
		if msg.SessionID != "ab12" {
			t.Errorf("initial SessionID = %q, want ab12", msg.SessionID)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for initial state")
	}

	deadline := time.Now().Add(time.Second)
	for hub.ClientCount("ab12") != 1 {
		if time.Now().After(deadline) {
			t.Fatal("watcher never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if hub.ClientCount("AB12") != 1 {
		t.Errorf("ClientCount(AB12) = %d, want 1", hub.ClientCount("AB12"))
	}

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/sessions/ab12/drive", map[string]interface{}{"frames": 5}))
	if w.Code != http.StatusOK {
		t.Fatalf("drive failed: %d", w.Code)
	}

	select {
	case msg := <-received:
		if msg.GameState == nil || msg.GameState.Health != 2 {
			t.Errorf("unexpected broadcast state: %+v", msg.GameState)
		}
	case <-time.After(time.Second):
		t.Fatal("watcher on AB12 missed the drive on ab12")
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("DELETE", "/api/sessions/Ab12", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("delete failed: %d", w.Code)
	}

	select {
	case msg := <-received:
		if msg.Event != websocket.EventSessionGone {
			t.Errorf("Event = %q, want %q", msg.Event, websocket.EventSessionGone)
		}
	case <-time.After(time.Second):
		t.Fatal("watcher missed the session deletion")
	}
}
