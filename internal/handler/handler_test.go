package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/alert"
	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/config"
	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/lockout"
	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/model"
	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/security/password"
	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/server/middleware"
	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/service"
)

const (
	testJWTSecret = "test-secret-for-handler-tests-0123456789"
	testEmail     = "admin@example.com"
	testPassword  = "supersecretpassword"
)

// alertLog records every dispatched alert and forwarded contact. When
// failContacts is set, contact forwarding errors after recording.
type alertLog struct {
	mu           sync.Mutex
	events       []alert.Event
	contacts     []alert.Submission
	failContacts bool
}

func (a *alertLog) Dispatch(_ context.Context, ev alert.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
	return nil
}

func (a *alertLog) DispatchContact(_ context.Context, sub alert.Submission) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.contacts = append(a.contacts, sub)
	if a.failContacts {
		return errors.New("smtp relay unreachable")
	}
	return nil
}

func (a *alertLog) forwarded() []alert.Submission {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]alert.Submission(nil), a.contacts...)
}

func (a *alertLog) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.events)
}

// testEnv holds shared state for handler integration tests.
type testEnv struct {
	store    *config.Store
	authSvc  *service.AuthService
	notifier *alert.Notifier
	alerts   *alertLog
	router   chi.Router
}

// newTestEnv creates a fresh test environment with an in-memory store, a
// fast bcrypt cost and the same route layout the server mounts.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := config.NewStore("") // in-memory SQLite
	if err != nil {
		t.Fatalf("config.NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	alerts := &alertLog{}
	notifier := alert.NewNotifier(alerts, time.Second, logger)

	authSvc, err := service.NewAuthService(store, notifier, service.AuthConfig{
		JWTSecret: testJWTSecret,
		Policy:    lockout.Default(),
		Hasher:    password.New(bcrypt.MinCost),
		Logger:    logger,
	})
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}

	authHandler := NewAuthHandler(store, authSvc, logger)
	projectHandler := NewProjectHandler(store, logger)
	contactHandler := NewContactHandler(store, notifier, logger)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", NewSystemHandler("test").Index)
		r.Get("/projects", projectHandler.ListProjects)
		r.Get("/projects/{id}", projectHandler.GetProject)
		r.Post("/contacts", contactHandler.CreateContact)
		r.Post("/admin/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(authSvc))
			r.Get("/admin/me", authHandler.Me)
			r.Post("/admin/data/projects", projectHandler.CreateProject)
			r.Put("/admin/data/projects/{id}", projectHandler.UpdateProject)
			r.Delete("/admin/data/projects/{id}", projectHandler.DeleteProject)
			r.Get("/admin/data/contacts", contactHandler.ListContacts)
		})
	})
	r.Get("/openapi.json", NewOpenAPIHandler("").ServeSpec)

	return &testEnv{
		store:    store,
		authSvc:  authSvc,
		notifier: notifier,
		alerts:   alerts,
		router:   r,
	}
}

// seedAdmin creates the admin account and returns it.
func (e *testEnv) seedAdmin(t *testing.T) *model.Admin {
	t.Helper()
	hash, err := password.New(bcrypt.MinCost).Hash(testPassword)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	admin := &model.Admin{Email: testEmail, PasswordHash: hash}
	if err := e.store.CreateAdmin(context.Background(), admin); err != nil {
		t.Fatalf("seedAdmin: %v", err)
	}
	return admin
}

// login returns a bearer token for the seeded admin.
func (e *testEnv) login(t *testing.T) string {
	t.Helper()
	rr := e.do(t, "POST", "/api/v1/admin/login", toJSON(t, map[string]string{
		"email": testEmail, "password": testPassword,
	}))
	assertStatus(t, rr, 200)
	var resp loginResponse
	decodeJSON(t, rr, &resp)
	return resp.Token
}

// do executes an HTTP request against the test router and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	return e.doAuth(t, method, path, "", body)
}

// doAuth is do with an Authorization: Bearer header when token is set.
func (e *testEnv) doAuth(t *testing.T, method, path, token string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func toJSON(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		t.Fatalf("toJSON: %v", err)
	}
	return buf
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Errorf("status = %d, want %d; body = %s", rr.Code, want, rr.Body.String())
	}
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decodeJSON: %v (body: %s)", err, rr.Body.String())
	}
}

// assertError checks the flat error body.
func assertError(t *testing.T, rr *httptest.ResponseRecorder, want string) {
	t.Helper()
	var resp model.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error body is not JSON: %v (%s)", err, rr.Body.String())
	}
	if resp.Error != want {
		t.Errorf("error = %q, want %q", resp.Error, want)
	}
}
