package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/alert"
	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/config"
	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/lockout"
	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/model"
	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/security/password"
)

const (
	testSecret   = "test-secret-key-for-jwt-0123456789abcdef"
	testEmail    = "admin@example.com"
	testPassword = "correct-horse-battery"
)

// recorder collects dispatched alerts.
type recorder struct {
	mu     sync.Mutex
	events []alert.Event
}

func (r *recorder) Dispatch(_ context.Context, ev alert.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type testEnv struct {
	auth     *AuthService
	store    *config.Store
	alerts   *recorder
	notifier *alert.Notifier
	admin    *model.Admin
}

func newTestAuth(t *testing.T) *testEnv {
	t.Helper()
	store, err := config.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := &recorder{}
	notifier := alert.NewNotifier(rec, time.Second, logger)

	hasher := password.New(bcrypt.MinCost)
	auth, err := NewAuthService(store, notifier, AuthConfig{
		JWTSecret: testSecret,
		Policy:    lockout.Default(),
		Hasher:    hasher,
		Logger:    logger,
	})
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}

	hash, err := hasher.Hash(testPassword)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	admin := &model.Admin{Email: testEmail, PasswordHash: hash}
	if err := store.CreateAdmin(context.Background(), admin); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}

	return &testEnv{auth: auth, store: store, alerts: rec, notifier: notifier, admin: admin}
}

// setClock pins the service clock and returns a function that moves it.
func (e *testEnv) setClock(start time.Time) func(time.Duration) {
	var mu sync.Mutex
	now := start
	e.auth.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	return func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}
}

func (e *testEnv) reload(t *testing.T) *model.Admin {
	t.Helper()
	a, err := e.store.GetAdminByEmail(context.Background(), testEmail)
	if err != nil {
		t.Fatalf("GetAdminByEmail: %v", err)
	}
	return a
}

func TestNewAuthServiceRejectsShortSecret(t *testing.T) {
	for _, secret := range []string{"", "short", "0123456789abcdef0123456789abcde"} {
		if _, err := NewAuthService(nil, nil, AuthConfig{JWTSecret: secret}); !errors.Is(err, ErrSigningKey) {
			t.Errorf("secret of %d bytes: expected ErrSigningKey, got %v", len(secret), err)
		}
	}
}

func TestNewAuthServiceRejectsBadPolicy(t *testing.T) {
	_, err := NewAuthService(nil, nil, AuthConfig{
		JWTSecret: testSecret,
		Policy:    lockout.Policy{Threshold: 0, LockDuration: time.Minute},
		Hasher:    password.New(bcrypt.MinCost),
	})
	if err == nil {
		t.Fatal("expected error for zero threshold")
	}
}

func TestLoginSuccess(t *testing.T) {
	env := newTestAuth(t)
	ctx := context.Background()

	res, err := env.auth.Login(ctx, "  ADMIN@example.com", testPassword, ClientInfo{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Token == "" {
		t.Fatal("expected token")
	}
	if got := res.ExpiresAt.Sub(time.Now()); got < DefaultTokenExpiry-time.Minute || got > DefaultTokenExpiry {
		t.Errorf("token expires in %v, want about %v", got, DefaultTokenExpiry)
	}

	a := env.reload(t)
	if a.LastLoginAt == nil {
		t.Error("expected LastLoginAt to be recorded")
	}
	if a.FailedLoginAttempts != 0 {
		t.Errorf("FailedLoginAttempts = %d, want 0", a.FailedLoginAttempts)
	}

	p, err := env.auth.Authenticate(ctx, res.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if p.AdminID != env.admin.ID || p.Email != testEmail {
		t.Errorf("principal = %+v", p)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	env := newTestAuth(t)

	_, err := env.auth.Login(context.Background(), "nobody@example.com", testPassword, ClientInfo{})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if env.alerts.count() != 0 {
		t.Error("unknown email must not raise an alert")
	}
}

func TestLoginLocksAfterThreshold(t *testing.T) {
	env := newTestAuth(t)
	ctx := context.Background()
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	advance := env.setClock(start)
	client := ClientInfo{Address: "203.0.113.9", UserAgent: "curl/8"}

	// First failure: counted, not locked.
	if _, err := env.auth.Login(ctx, testEmail, "wrong-password", client); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("first failure: expected ErrInvalidCredentials, got %v", err)
	}
	if a := env.reload(t); a.FailedLoginAttempts != 1 || a.LockUntil != nil {
		t.Fatalf("after first failure: attempts=%d lockUntil=%v", a.FailedLoginAttempts, a.LockUntil)
	}

	// Second failure locks and still answers invalid credentials.
	if _, err := env.auth.Login(ctx, testEmail, "wrong-password", client); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("locking failure: expected ErrInvalidCredentials, got %v", err)
	}
	a := env.reload(t)
	wantUntil := start.Add(lockout.DefaultLockDuration)
	if a.LockUntil == nil || !a.LockUntil.Equal(wantUntil) {
		t.Fatalf("LockUntil = %v, want %v", a.LockUntil, wantUntil)
	}

	env.notifier.Wait()
	if n := env.alerts.count(); n != 1 {
		t.Fatalf("got %d alerts, want 1", n)
	}
	ev := env.alerts.events[0]
	if ev.ClientAddress != client.Address || ev.ClientAgent != client.UserAgent {
		t.Errorf("alert client = %q/%q", ev.ClientAddress, ev.ClientAgent)
	}
	if !ev.Time.Equal(start) || !ev.LockUntil.Equal(wantUntil) {
		t.Errorf("alert times = %v/%v", ev.Time, ev.LockUntil)
	}

	// Correct password while locked is refused without touching the row.
	_, err := env.auth.Login(ctx, testEmail, testPassword, client)
	var locked *lockout.LockedError
	if !errors.As(err, &locked) {
		t.Fatalf("expected *lockout.LockedError, got %v", err)
	}
	if !locked.Until.Equal(wantUntil) {
		t.Errorf("Until = %v, want %v", locked.Until, wantUntil)
	}

	// Failures while locked never extend the lock or alert again.
	advance(5 * time.Minute)
	if _, err := env.auth.Login(ctx, testEmail, "wrong-password", client); !errors.Is(err, lockout.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if a := env.reload(t); !a.LockUntil.Equal(wantUntil) || a.FailedLoginAttempts != 2 {
		t.Errorf("lock changed while locked: attempts=%d until=%v", a.FailedLoginAttempts, a.LockUntil)
	}
	env.notifier.Wait()
	if n := env.alerts.count(); n != 1 {
		t.Errorf("got %d alerts, want 1", n)
	}

	// After expiry the correct password works and clears the state.
	advance(10 * time.Minute)
	if _, err := env.auth.Login(ctx, testEmail, testPassword, client); err != nil {
		t.Fatalf("login after expiry: %v", err)
	}
	if a := env.reload(t); a.FailedLoginAttempts != 0 || a.LockUntil != nil {
		t.Errorf("state not cleared: attempts=%d until=%v", a.FailedLoginAttempts, a.LockUntil)
	}
}

func TestLoginExpiredLockStartsFreshCount(t *testing.T) {
	env := newTestAuth(t)
	ctx := context.Background()
	advance := env.setClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	for i := 0; i < 2; i++ {
		env.auth.Login(ctx, testEmail, "wrong-password", ClientInfo{})
	}
	advance(lockout.DefaultLockDuration)

	// Exactly at LockUntil the lock is over; one failure is just one failure.
	if _, err := env.auth.Login(ctx, testEmail, "wrong-password", ClientInfo{}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	a := env.reload(t)
	if a.FailedLoginAttempts != 1 || a.LockUntil != nil {
		t.Errorf("attempts=%d lockUntil=%v, want 1/nil", a.FailedLoginAttempts, a.LockUntil)
	}
}

func TestLoginSuccessResetsCounter(t *testing.T) {
	env := newTestAuth(t)
	ctx := context.Background()

	env.auth.Login(ctx, testEmail, "wrong-password", ClientInfo{})
	if _, err := env.auth.Login(ctx, testEmail, testPassword, ClientInfo{}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	env.auth.Login(ctx, testEmail, "wrong-password", ClientInfo{})

	if a := env.reload(t); a.FailedLoginAttempts != 1 || a.LockUntil != nil {
		t.Errorf("attempts=%d lockUntil=%v, want 1/nil", a.FailedLoginAttempts, a.LockUntil)
	}
}

func TestLoginConcurrentFailuresAlertOnce(t *testing.T) {
	env := newTestAuth(t)
	ctx := context.Background()

	if _, err := env.auth.Login(ctx, testEmail, "wrong-password", ClientInfo{}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("priming failure: %v", err)
	}

	const workers = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		invalid int
		locked  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.auth.Login(ctx, testEmail, "wrong-password", ClientInfo{Address: "198.51.100.7"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, ErrInvalidCredentials):
				invalid++
			case errors.Is(err, lockout.ErrLocked):
				locked++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	env.notifier.Wait()

	if invalid != 1 || locked != workers-1 {
		t.Errorf("invalid=%d locked=%d, want 1 and %d", invalid, locked, workers-1)
	}
	if n := env.alerts.count(); n != 1 {
		t.Errorf("got %d alerts, want exactly 1", n)
	}
	if a := env.reload(t); a.FailedLoginAttempts != 2 {
		t.Errorf("FailedLoginAttempts = %d, want 2", a.FailedLoginAttempts)
	}
	if n := env.auth.locks.size(); n != 0 {
		t.Errorf("keyed mutex still tracks %d keys", n)
	}
}

// conflictingStore loses the compare-and-swap a fixed number of times.
type conflictingStore struct {
	*config.Store
	conflicts int
}

func (c *conflictingStore) SaveAdminLockState(ctx context.Context, a *model.Admin) error {
	if c.conflicts > 0 {
		c.conflicts--
		return config.ErrConflict
	}
	return c.Store.SaveAdminLockState(ctx, a)
}

func TestLoginRetriesOnConflict(t *testing.T) {
	env := newTestAuth(t)
	store := &conflictingStore{Store: env.store, conflicts: 2}
	env.auth.store = store

	if _, err := env.auth.Login(context.Background(), testEmail, testPassword, ClientInfo{}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	store.conflicts = maxSaveAttempts
	_, err := env.auth.Login(context.Background(), testEmail, testPassword, ClientInfo{})
	if !errors.Is(err, config.ErrConflict) {
		t.Fatalf("expected ErrConflict after exhausting retries, got %v", err)
	}
}

func TestLoginMalformedHash(t *testing.T) {
	env := newTestAuth(t)
	ctx := context.Background()

	bad := &model.Admin{Email: "broken@example.com", PasswordHash: "not-a-bcrypt-hash"}
	if err := env.store.CreateAdmin(ctx, bad); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}

	_, err := env.auth.Login(ctx, "broken@example.com", testPassword, ClientInfo{})
	if !errors.Is(err, password.ErrHashing) {
		t.Fatalf("expected ErrHashing, got %v", err)
	}
}

func TestJWTExpired(t *testing.T) {
	env := newTestAuth(t)
	advance := env.setClock(time.Now())

	token, _, err := env.auth.IssueJWT(env.admin.ID, testEmail)
	if err != nil {
		t.Fatalf("IssueJWT: %v", err)
	}
	advance(DefaultTokenExpiry + time.Second)

	if _, err := env.auth.Authenticate(context.Background(), token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestAuthenticateRejects(t *testing.T) {
	env := newTestAuth(t)
	now := time.Now()

	sign := func(method jwt.SigningMethod, secret string, claims jwtClaims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}
	valid := func(subject string) jwtClaims {
		return jwtClaims{
			Email: testEmail,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   subject,
				Issuer:    TokenIssuer,
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}
	}

	wrongIssuer := valid(env.admin.ID)
	wrongIssuer.Issuer = "someone-else"
	noExpiry := valid(env.admin.ID)
	noExpiry.ExpiresAt = nil
	wrongEmail := valid(env.admin.ID)
	wrongEmail.Email = "other@example.com"

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "garbage.token.here"},
		{"empty", ""},
		{"wrong secret", sign(jwt.SigningMethodHS256, "another-secret-another-secret-xx", valid(env.admin.ID))},
		{"wrong algorithm", sign(jwt.SigningMethodHS512, testSecret, valid(env.admin.ID))},
		{"wrong issuer", sign(jwt.SigningMethodHS256, testSecret, wrongIssuer)},
		{"no expiry", sign(jwt.SigningMethodHS256, testSecret, noExpiry)},
		{"unknown subject", sign(jwt.SigningMethodHS256, testSecret, valid("no-such-admin"))},
		{"email mismatch", sign(jwt.SigningMethodHS256, testSecret, wrongEmail)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.auth.Authenticate(context.Background(), tt.token); !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("expected ErrTokenInvalid, got %v", err)
			}
		})
	}

	if _, err := env.auth.Authenticate(context.Background(), sign(jwt.SigningMethodHS256, testSecret, valid(env.admin.ID))); err != nil {
		t.Errorf("valid token rejected: %v", err)
	}
}

func TestAuthenticateIgnoresLockState(t *testing.T) {
	env := newTestAuth(t)
	ctx := context.Background()

	res, err := env.auth.Login(ctx, testEmail, testPassword, ClientInfo{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	for i := 0; i < 2; i++ {
		env.auth.Login(ctx, testEmail, "wrong-password", ClientInfo{})
	}
	if a := env.reload(t); !a.IsLocked(time.Now()) {
		t.Fatal("expected account to be locked")
	}

	if _, err := env.auth.Authenticate(ctx, res.Token); err != nil {
		t.Errorf("token issued before the lock should stay valid: %v", err)
	}
}
