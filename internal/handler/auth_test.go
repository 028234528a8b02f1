package handler

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

func TestLogin_ValidCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)

	body := toJSON(t, map[string]string{
		"email":    "  Admin@Example.com",
		"password": testPassword,
	})
	rr := env.do(t, "POST", "/api/v1/admin/login", body)
	assertStatus(t, rr, http.StatusOK)

	var resp loginResponse
	decodeJSON(t, rr, &resp)

	if resp.Token == "" {
		t.Error("expected non-empty token")
	}
	if resp.TokenType != "bearer" {
		t.Errorf("token_type = %q, want %q", resp.TokenType, "bearer")
	}
	week := int((7 * 24 * time.Hour).Seconds())
	if resp.ExpiresIn < week-60 || resp.ExpiresIn > week {
		t.Errorf("expires_in = %d, want about %d", resp.ExpiresIn, week)
	}
}

func TestLogin_InvalidPasswordAndUnknownEmailLookAlike(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)

	wrong := env.do(t, "POST", "/api/v1/admin/login", toJSON(t, map[string]string{
		"email": testEmail, "password": "wrongpassword",
	}))
	unknown := env.do(t, "POST", "/api/v1/admin/login", toJSON(t, map[string]string{
		"email": "nobody@example.com", "password": testPassword,
	}))

	assertStatus(t, wrong, http.StatusUnauthorized)
	assertStatus(t, unknown, http.StatusUnauthorized)
	if wrong.Body.String() != unknown.Body.String() {
		t.Errorf("bodies differ: %s vs %s", wrong.Body.String(), unknown.Body.String())
	}
	assertError(t, unknown, "Invalid credentials")
}

func TestLogin_MissingFields(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing email", `{"password":"x"}`},
		{"missing password", `{"email":"admin@example.com"}`},
		{"blank email", `{"email":"   ","password":"x"}`},
		{"empty object", `{}`},
		{"empty body", ``},
		{"invalid json", `{not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, "POST", "/api/v1/admin/login", strings.NewReader(tt.body))
			assertStatus(t, rr, http.StatusBadRequest)
			assertError(t, rr, "Email and password are required")
		})
	}

	// Bad requests never count as failures.
	a, _ := env.store.GetAdminByEmail(t.Context(), testEmail)
	if a.FailedLoginAttempts != 0 {
		t.Errorf("FailedLoginAttempts = %d, want 0", a.FailedLoginAttempts)
	}
}

func TestLogin_LockoutScenario(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)

	wrong := func() string {
		return toJSON(t, map[string]string{"email": testEmail, "password": "wrongpassword"}).String()
	}

	// One prior failure.
	rr := env.do(t, "POST", "/api/v1/admin/login", strings.NewReader(wrong()))
	assertStatus(t, rr, http.StatusUnauthorized)

	// The second failure locks the account but still answers 401.
	rr = env.do(t, "POST", "/api/v1/admin/login", strings.NewReader(wrong()))
	assertStatus(t, rr, http.StatusUnauthorized)
	assertError(t, rr, "Invalid credentials")

	env.notifier.Wait()
	if n := env.alerts.count(); n != 1 {
		t.Fatalf("got %d alerts, want 1", n)
	}

	// The correct password is now refused with 423 and Retry-After.
	rr = env.do(t, "POST", "/api/v1/admin/login", toJSON(t, map[string]string{
		"email": testEmail, "password": testPassword,
	}))
	assertStatus(t, rr, http.StatusLocked)
	assertError(t, rr, "Account temporarily locked. Try again later.")

	retry, err := strconv.Atoi(rr.Header().Get("Retry-After"))
	if err != nil {
		t.Fatalf("Retry-After = %q: %v", rr.Header().Get("Retry-After"), err)
	}
	if retry < 14*60 || retry > 15*60 {
		t.Errorf("Retry-After = %d, want about 900", retry)
	}

	if strings.Contains(rr.Body.String(), "attempt") {
		t.Errorf("body leaks lock details: %s", rr.Body.String())
	}

	env.notifier.Wait()
	if n := env.alerts.count(); n != 1 {
		t.Errorf("got %d alerts after locked attempt, want 1", n)
	}
}

func TestLogin_ConcurrentWrongPasswords(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)

	rr := env.do(t, "POST", "/api/v1/admin/login", toJSON(t, map[string]string{
		"email": testEmail, "password": "wrongpassword",
	}))
	assertStatus(t, rr, http.StatusUnauthorized)

	const workers = 10
	codes := make([]int, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := `{"email":"admin@example.com","password":"wrongpassword"}`
			codes[i] = env.do(t, "POST", "/api/v1/admin/login", strings.NewReader(body)).Code
		}(i)
	}
	wg.Wait()
	env.notifier.Wait()

	counts := map[int]int{}
	for _, c := range codes {
		counts[c]++
	}
	if counts[http.StatusUnauthorized] != 1 || counts[http.StatusLocked] != workers-1 {
		t.Errorf("status counts = %v, want one 401 and %d 423", counts, workers-1)
	}
	if n := env.alerts.count(); n != 1 {
		t.Errorf("got %d alerts, want exactly 1", n)
	}
}

// ---------------------------------------------------------------------------
// Gate and self-view
// ---------------------------------------------------------------------------

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedAdmin(t)
	token := env.login(t)

	rr := env.doAuth(t, "GET", "/api/v1/admin/me", token, nil)
	assertStatus(t, rr, http.StatusOK)

	var resp meResponse
	decodeJSON(t, rr, &resp)
	if resp.ID != admin.ID || resp.Email != testEmail {
		t.Errorf("me = %+v", resp)
	}
	if resp.LastLoginAt == nil {
		t.Error("expected last_login_at after login")
	}
	if strings.Contains(rr.Body.String(), "password") {
		t.Errorf("self-view leaks password data: %s", rr.Body.String())
	}
}

func TestGate_RejectsMissingAndInvalidTokens(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)

	for _, token := range []string{"", "not-a-jwt", "eyJhbGciOiJub25lIn0.eyJzdWIiOiJ4In0."} {
		rr := env.doAuth(t, "GET", "/api/v1/admin/me", token, nil)
		assertStatus(t, rr, http.StatusUnauthorized)
		assertError(t, rr, "Not authorized")
	}
}
