package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sgtbyhqi/genz-planner-app/internal/config"
	"github.com/sgtbyhqi/genz-planner-app/internal/identity"
	"github.com/sgtbyhqi/genz-planner-app/internal/repository"
	"github.com/sgtbyhqi/genz-planner-app/internal/testutil"
	"github.com/sgtbyhqi/genz-planner-app/internal/workspace"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Config{
		Port:          "0",
		SessionSecret: "test-session-secret-0123456789ab",
		TokenSecret:   "token-secret",
		AppID:         testutil.TestAppID,
	}

	database := testutil.NewTestDatabase(t)
	authenticator, err := identity.NewAuthenticator(context.Background(), cfg, repository.NewIdentityRepository(database))
	if err != nil {
		t.Fatalf("creating authenticator: %v", err)
	}
	registry := workspace.NewRegistry(workspace.Dependencies{
		Store:                  testutil.NewTestStore(t),
		AppID:                  testutil.TestAppID,
		ReflectionStatusWindow: time.Second,
	})
	t.Cleanup(registry.Close)

	return New(cfg, registry, authenticator)
}

type client struct {
	t       *testing.T
	handler http.Handler
	cookies []*http.Cookie
}

func (client *client) do(method, path string, body any) *httptest.ResponseRecorder {
	client.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			client.t.Fatalf("encoding body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	for _, cookie := range client.cookies {
		request.AddCookie(cookie)
	}
	recorder := httptest.NewRecorder()
	client.handler.ServeHTTP(recorder, request)

	if cookies := recorder.Result().Cookies(); len(cookies) > 0 {
		client.cookies = cookies
	}
	return recorder
}

func (client *client) dashboard() workspace.Dashboard {
	client.t.Helper()
	recorder := client.do(http.MethodGet, "/api/dashboard", nil)
	if recorder.Code != http.StatusOK {
		client.t.Fatalf("dashboard returned %d: %s", recorder.Code, recorder.Body.String())
	}
	var dashboard workspace.Dashboard
	if err := json.NewDecoder(recorder.Body).Decode(&dashboard); err != nil {
		client.t.Fatalf("decoding dashboard: %v", err)
	}
	return dashboard
}

func (client *client) waitFor(message string, condition func(workspace.Dashboard) bool) workspace.Dashboard {
	client.t.Helper()
	testutil.Eventually(client.t, func() bool { return condition(client.dashboard()) }, message)
	return client.dashboard()
}

func TestServer_Health(t *testing.T) {
	server := newTestServer(t)

	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))

	if recorder.Code != http.StatusOK || recorder.Body.String() != "ok" {
		t.Errorf("unexpected health response %d %q", recorder.Code, recorder.Body.String())
	}
}

func TestServer_APIRequiresSession(t *testing.T) {
	server := newTestServer(t)
	anonymous := &client{t: t, handler: server.Handler()}

	recorder := anonymous.do(http.MethodGet, "/api/dashboard", nil)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), `"action":"reload"`) {
		t.Errorf("expected reload action, got %s", recorder.Body.String())
	}
}

func TestServer_AnonymousTaskFlow(t *testing.T) {
	server := newTestServer(t)
	browser := &client{t: t, handler: server.Handler()}

	if recorder := browser.do(http.MethodPost, "/auth/anonymous", nil); recorder.Code != http.StatusOK {
		t.Fatalf("anonymous sign-in returned %d: %s", recorder.Code, recorder.Body.String())
	}

	dashboard := browser.waitFor("seeded task", func(dashboard workspace.Dashboard) bool {
		return !dashboard.Loading && dashboard.Summary.TotalTasks == 1
	})
	if !dashboard.Session.Ready {
		t.Fatal("expected ready session")
	}

	recorder := browser.do(http.MethodPost, "/api/tasks", workspace.TaskInput{
		Name:     "Buy milk",
		Category: "Pribadi",
		Deadline: "2025-06-16",
		Priority: "Penting - Tidak Mendesak",
	})
	if recorder.Code != http.StatusAccepted {
		t.Fatalf("create returned %d: %s", recorder.Code, recorder.Body.String())
	}

	dashboard = browser.waitFor("two pending tasks", func(dashboard workspace.Dashboard) bool {
		return len(dashboard.PendingTasks) == 2
	})
	var milkID string
	for _, task := range dashboard.PendingTasks {
		if task.Name == "Buy milk" {
			milkID = task.ID
		}
	}
	if milkID == "" {
		t.Fatalf("Buy milk missing from %+v", dashboard.PendingTasks)
	}

	if recorder := browser.do(http.MethodPost, "/api/tasks/"+milkID+"/toggle", nil); recorder.Code != http.StatusAccepted {
		t.Fatalf("toggle returned %d: %s", recorder.Code, recorder.Body.String())
	}
	dashboard = browser.waitFor("one completed", func(dashboard workspace.Dashboard) bool {
		return len(dashboard.CompletedTasks) == 1
	})
	if len(dashboard.PendingTasks) != 1 {
		t.Errorf("expected 1 pending task, got %d", len(dashboard.PendingTasks))
	}
}

func TestServer_ValidationAndNotFound(t *testing.T) {
	server := newTestServer(t)
	browser := &client{t: t, handler: server.Handler()}
	browser.do(http.MethodPost, "/auth/anonymous", nil)

	recorder := browser.do(http.MethodPost, "/api/habits", workspace.HabitInput{Name: "Lari", Category: "Kesehatan", Target: 0})
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid target, got %d", recorder.Code)
	}

	recorder = browser.do(http.MethodPost, "/api/tasks/missing/toggle", nil)
	if recorder.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown task, got %d", recorder.Code)
	}

	recorder = browser.do(http.MethodPost, "/api/routine/0/wake/toggle", nil)
	if recorder.Code != http.StatusOK || !strings.Contains(recorder.Body.String(), `"checked":true`) {
		t.Errorf("unexpected routine response %d %s", recorder.Code, recorder.Body.String())
	}

	recorder = browser.do(http.MethodPost, "/api/pomodoro/rewind", nil)
	if recorder.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown pomodoro action, got %d", recorder.Code)
	}
}

func TestServer_TokenSignIn(t *testing.T) {
	server := newTestServer(t)
	browser := &client{t: t, handler: server.Handler()}

	recorder := browser.do(http.MethodPost, "/auth/token", map[string]string{"token": "forged"})
	if recorder.Code != http.StatusUnauthorized || !strings.Contains(recorder.Body.String(), `"action":"reload"`) {
		t.Fatalf("expected 401 with reload, got %d %s", recorder.Code, recorder.Body.String())
	}

	authenticator, _ := identity.NewAuthenticator(context.Background(), config.Config{TokenSecret: "token-secret"}, nil)
	token, err := authenticator.IssueToken("user-77", time.Hour)
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}

	recorder = browser.do(http.MethodPost, "/auth/token", map[string]string{"token": token})
	if recorder.Code != http.StatusOK {
		t.Fatalf("token sign-in returned %d: %s", recorder.Code, recorder.Body.String())
	}
	if dashboard := browser.dashboard(); dashboard.Session.UserID != "user-77" {
		t.Errorf("expected user-77, got %+v", dashboard.Session)
	}
}

func TestServer_ReflectionSave(t *testing.T) {
	server := newTestServer(t)
	browser := &client{t: t, handler: server.Handler()}
	browser.do(http.MethodPost, "/auth/anonymous", nil)

	recorder := browser.do(http.MethodPut, "/api/reflection", map[string]string{"content": "Belajar banyak hari ini"})
	if recorder.Code != http.StatusOK {
		t.Fatalf("saving reflection returned %d: %s", recorder.Code, recorder.Body.String())
	}

	browser.waitFor("reflection mirrored", func(dashboard workspace.Dashboard) bool {
		return dashboard.Reflection.Today.Content == "Belajar banyak hari ini"
	})
}

func TestServer_ReflectionByDate(t *testing.T) {
	server := newTestServer(t)
	browser := &client{t: t, handler: server.Handler()}
	browser.do(http.MethodPost, "/auth/anonymous", nil)

	if recorder := browser.do(http.MethodPut, "/api/reflection", map[string]string{"content": "Tenang"}); recorder.Code != http.StatusOK {
		t.Fatalf("saving reflection returned %d", recorder.Code)
	}
	today := browser.dashboard().Today

	recorder := browser.do(http.MethodGet, "/api/reflections/"+today, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("reading reflection returned %d: %s", recorder.Code, recorder.Body.String())
	}
	var saved struct {
		ID      string `json:"id"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(recorder.Body).Decode(&saved); err != nil {
		t.Fatalf("decoding reflection: %v", err)
	}
	if saved.ID != today || saved.Content != "Tenang" {
		t.Errorf("unexpected reflection %+v", saved)
	}

	if recorder := browser.do(http.MethodGet, "/api/reflections/2020-01-01", nil); recorder.Code != http.StatusOK {
		t.Errorf("expected empty reflection for an unsaved day, got %d", recorder.Code)
	}
	if recorder := browser.do(http.MethodGet, "/api/reflections/yesterday", nil); recorder.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a malformed date, got %d", recorder.Code)
	}
}

func TestServer_ProfileOfAnonymousUser(t *testing.T) {
	server := newTestServer(t)
	browser := &client{t: t, handler: server.Handler()}
	browser.do(http.MethodPost, "/auth/anonymous", nil)
	userID := browser.dashboard().Session.UserID

	recorder := browser.do(http.MethodGet, "/api/profile", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("profile returned %d", recorder.Code)
	}
	var profile identity.Profile
	if err := json.NewDecoder(recorder.Body).Decode(&profile); err != nil {
		t.Fatalf("decoding profile: %v", err)
	}
	if profile.UserID != userID || profile.Linked {
		t.Errorf("expected unlinked profile for %s, got %+v", userID, profile)
	}
}

func TestServer_LogoutReleasesWorkspace(t *testing.T) {
	server := newTestServer(t)
	browser := &client{t: t, handler: server.Handler()}
	browser.do(http.MethodPost, "/auth/anonymous", nil)

	if recorder := browser.do(http.MethodPost, "/auth/logout", nil); recorder.Code != http.StatusNoContent {
		t.Fatalf("logout returned %d", recorder.Code)
	}
	if recorder := browser.do(http.MethodGet, "/api/dashboard", nil); recorder.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", recorder.Code)
	}
}

func TestServer_StreamPushesDashboard(t *testing.T) {
	server := newTestServer(t)
	browser := &client{t: t, handler: server.Handler()}
	browser.do(http.MethodPost, "/auth/anonymous", nil)

	httpServer := httptest.NewServer(server.Handler())
	defer httpServer.Close()

	header := http.Header{}
	for _, cookie := range browser.cookies {
		header.Add("Cookie", (&http.Cookie{Name: cookie.Name, Value: cookie.Value}).String())
	}
	url := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/ws"
	connection, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dialing websocket: %v", err)
	}
	defer connection.Close()

	connection.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var dashboard workspace.Dashboard
		if err := connection.ReadJSON(&dashboard); err != nil {
			t.Fatalf("reading dashboard: %v", err)
		}
		if !dashboard.Loading && dashboard.Summary.TotalTasks == 1 {
			return
		}
	}
}

func TestNewUnavailable_AnswersEveryRoute(t *testing.T) {
	server := NewUnavailable("0", "STORE_API_KEY is required")

	for _, path := range []string{"/", "/api/dashboard", "/health"} {
		recorder := httptest.NewRecorder()
		server.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, path, nil))

		if recorder.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: expected 503, got %d", path, recorder.Code)
		}
		if !strings.Contains(recorder.Body.String(), "STORE_API_KEY is required") {
			t.Errorf("%s: expected configuration message, got %s", path, recorder.Body.String())
		}
	}
}
