package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/alert"
	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/config"
	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/lockout"
	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/model"
	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/security/password"
)

const (
	// TokenIssuer is the iss claim of every admin token.
	TokenIssuer = "portfolio"

	// DefaultTokenExpiry applies when AuthConfig.TokenExpiry is zero.
	DefaultTokenExpiry = 7 * 24 * time.Hour

	// MinSecretLength is the shortest accepted HS256 signing secret.
	MinSecretLength = 32

	// maxSaveAttempts bounds the re-read loop when another process wins the
	// compare-and-swap on the admin row.
	maxSaveAttempts = 5

	dummyPassword = "portfolio-timing-equalizer"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrSigningKey         = errors.New("jwt signing secret must be at least 32 bytes")
)

// CredentialStore is the part of config.Store the login flow needs.
type CredentialStore interface {
	GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error)
	GetAdminByID(ctx context.Context, id string) (*model.Admin, error)
	SaveAdminLockState(ctx context.Context, admin *model.Admin) error
}

// AuthConfig carries the tunables of AuthService.
type AuthConfig struct {
	JWTSecret   string
	TokenExpiry time.Duration
	Policy      lockout.Policy
	Hasher      password.Hasher
	Logger      *slog.Logger
}

// ClientInfo identifies the caller of a login attempt for the alert.
type ClientInfo struct {
	Address   string
	UserAgent string
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Admin     *model.Admin
}

// Principal is the authenticated admin attached to a request.
type Principal struct {
	AdminID string
	Email   string
}

// AuthService verifies admin passwords, enforces the lockout policy and
// issues and validates bearer tokens.
type AuthService struct {
	store     CredentialStore
	notifier  *alert.Notifier
	jwtSecret []byte
	expiry    time.Duration
	policy    lockout.Policy
	hasher    password.Hasher
	logger    *slog.Logger
	dummyHash string
	locks     *keyedMutex
	now       func() time.Time
}

// NewAuthService validates cfg and returns a ready service. A secret shorter
// than MinSecretLength yields ErrSigningKey.
func NewAuthService(store CredentialStore, notifier *alert.Notifier, cfg AuthConfig) (*AuthService, error) {
	if len(cfg.JWTSecret) < MinSecretLength {
		return nil, ErrSigningKey
	}
	if cfg.TokenExpiry <= 0 {
		cfg.TokenExpiry = DefaultTokenExpiry
	}
	if cfg.Policy == (lockout.Policy{}) {
		cfg.Policy = lockout.Default()
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, err
	}
	if cfg.Hasher.Cost == 0 {
		cfg.Hasher = password.New(password.DefaultCost)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	dummy, err := cfg.Hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}

	return &AuthService{
		store:     store,
		notifier:  notifier,
		jwtSecret: []byte(cfg.JWTSecret),
		expiry:    cfg.TokenExpiry,
		policy:    cfg.Policy,
		hasher:    cfg.Hasher,
		logger:    cfg.Logger,
		dummyHash: dummy,
		locks:     newKeyedMutex(),
		now:       time.Now,
	}, nil
}

// TokenExpiry returns the lifetime of issued tokens.
func (s *AuthService) TokenExpiry() time.Duration {
	return s.expiry
}

// Login checks email and password against the stored admin under the
// lockout policy. It returns ErrInvalidCredentials for an unknown email or a
// wrong password, and a *lockout.LockedError while the account is locked.
func (s *AuthService) Login(ctx context.Context, email, plain string, client ClientInfo) (*LoginResult, error) {
	email = model.NormalizeEmail(email)

	unlock := s.locks.Lock(email)
	defer unlock()

	for attempt := 1; ; attempt++ {
		res, err := s.attemptLogin(ctx, email, plain, client)
		if !errors.Is(err, config.ErrConflict) {
			return res, err
		}
		if attempt == maxSaveAttempts {
			return nil, fmt.Errorf("login %s: %w", email, err)
		}
		s.logger.Debug("admin row changed concurrently, retrying", "attempt", attempt)
	}
}

func (s *AuthService) attemptLogin(ctx context.Context, email, plain string, client ClientInfo) (*LoginResult, error) {
	admin, err := s.store.GetAdminByEmail(ctx, email)
	if errors.Is(err, config.ErrNotFound) {
		// Spend the same bcrypt time an existing account would.
		s.hasher.Verify(plain, s.dummyHash)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	state, admitted, err := s.policy.Admit(lockout.State{
		FailedAttempts: admin.FailedLoginAttempts,
		LockUntil:      admin.LockUntil,
	}, now)
	if err != nil {
		return nil, err
	}

	ok, err := s.hasher.Verify(plain, admin.PasswordHash)
	if err != nil {
		return nil, err
	}

	next, action := s.policy.Record(state, now, ok)
	admin.FailedLoginAttempts = next.FailedAttempts
	admin.LockUntil = next.LockUntil
	if ok {
		admin.LastLoginAt = &now
	}
	if err := s.store.SaveAdminLockState(ctx, admin); err != nil {
		return nil, err
	}

	if admitted == lockout.ActionUnlockRetry {
		s.logger.Info("admin lock expired", "email", admin.Email)
	}
	if action == lockout.ActionLockAlert {
		s.logger.Warn("admin account locked",
			"email", admin.Email,
			"until", next.LockUntil.UTC().Format(time.RFC3339),
			"remote_addr", client.Address,
		)
		s.notifier.Notify(alert.Event{
			Email:         admin.Email,
			ClientAddress: client.Address,
			ClientAgent:   client.UserAgent,
			Time:          now.UTC(),
			LockUntil:     next.LockUntil.UTC(),
		})
	}

	if !ok {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.IssueJWT(admin.ID, admin.Email)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, Admin: admin}, nil
}

// IssueJWT creates a new signed JWT token for the given admin.
func (s *AuthService) IssueJWT(adminID, email string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.expiry)
	claims := jwtClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   adminID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    TokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Authenticate verifies a bearer token and that its admin still exists.
// Every failure is reported as ErrTokenInvalid.
func (s *AuthService) Authenticate(ctx context.Context, tokenStr string) (*Principal, error) {
	claims := &jwtClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		s.logger.Debug("token rejected", "reason", err)
		return nil, ErrTokenInvalid
	}

	admin, err := s.store.GetAdminByID(ctx, claims.Subject)
	if err != nil {
		if !errors.Is(err, config.ErrNotFound) {
			s.logger.Error("token subject lookup failed", "error", err)
		}
		return nil, ErrTokenInvalid
	}
	if admin.Email != claims.Email {
		s.logger.Debug("token rejected", "reason", "email claim mismatch")
		return nil, ErrTokenInvalid
	}

	return &Principal{AdminID: admin.ID, Email: admin.Email}, nil
}

type jwtClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}
