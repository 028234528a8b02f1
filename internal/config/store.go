package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/model"
)

// Supported values for Options.Driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Options selects the backing database. With DriverSQLite and an empty DSN
// the database lives in DataDir, or in memory when DataDir is empty too.
type Options struct {
	Driver  string
	DSN     string
	DataDir string
}

// Store persists the admin account, projects and contact submissions.
type Store struct {
	db      *sqlx.DB
	dialect dialect
}

// NewStore opens a SQLite store in dataDir. Pass empty string for in-memory.
func NewStore(dataDir string) (*Store, error) {
	return Open(Options{Driver: DriverSQLite, DataDir: dataDir})
}

// Open connects to the database described by opts and applies migrations.
func Open(opts Options) (*Store, error) {
	if opts.Driver == "" {
		opts.Driver = DriverSQLite
	}
	d, ok := dialects[opts.Driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	dsn, err := resolveDSN(opts)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Connect(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", opts.Driver, err)
	}

	if opts.Driver == DriverSQLite {
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
	}

	s := &Store{db: db, dialect: d}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

func resolveDSN(opts Options) (string, error) {
	switch opts.Driver {
	case DriverSQLite:
		if opts.DSN != "" {
			return opts.DSN, nil
		}
		if opts.DataDir == "" {
			return ":memory:", nil
		}
		if err := os.MkdirAll(opts.DataDir, 0755); err != nil {
			return "", fmt.Errorf("create data dir: %w", err)
		}
		return filepath.Join(opts.DataDir, "portfolio.db") +
			"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", nil
	case DriverMySQL:
		if opts.DSN == "" {
			return "", errors.New("mysql driver requires a dsn")
		}
		// Timestamps must come back as time.Time in UTC.
		cfg, err := mysql.ParseDSN(opts.DSN)
		if err != nil {
			return "", fmt.Errorf("parse mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		return cfg.FormatDSN(), nil
	default:
		if opts.DSN == "" {
			return "", fmt.Errorf("%s driver requires a dsn", opts.Driver)
		}
		return opts.DSN, nil
	}
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Driver returns the configured driver name.
func (s *Store) Driver() string {
	return s.dialect.name
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// ---------------------------------------------------------------------------
// Admin account
// ---------------------------------------------------------------------------

// CreateAdmin inserts the admin account. The email is normalized; ID,
// Version, CreatedAt and UpdatedAt are populated on success.
func (s *Store) CreateAdmin(ctx context.Context, admin *model.Admin) error {
	now := time.Now().UTC()
	if admin.ID == "" {
		admin.ID = newID()
	}
	admin.Email = model.NormalizeEmail(admin.Email)
	admin.Version = 0
	admin.CreatedAt = now
	admin.UpdatedAt = now

	const q = `INSERT INTO admins
		(id, email, password_hash, failed_login_attempts, lock_until, last_login_at, version, created_at, updated_at)
		VALUES
		(:id, :email, :password_hash, :failed_login_attempts, :lock_until, :last_login_at, :version, :created_at, :updated_at)`

	if _, err := s.db.NamedExecContext(ctx, q, admin); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert admin: %w", err)
	}
	return nil
}

// GetAdminByEmail returns the admin with the given email, compared after
// normalization.
func (s *Store) GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error) {
	var admin model.Admin
	q := s.db.Rebind("SELECT * FROM admins WHERE email = ?")
	if err := s.db.GetContext(ctx, &admin, q, model.NormalizeEmail(email)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get admin by email: %w", err)
	}
	return &admin, nil
}

// GetAdminByID returns the admin with the given ID.
func (s *Store) GetAdminByID(ctx context.Context, id string) (*model.Admin, error) {
	var admin model.Admin
	q := s.db.Rebind("SELECT * FROM admins WHERE id = ?")
	if err := s.db.GetContext(ctx, &admin, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get admin by id: %w", err)
	}
	return &admin, nil
}

// ListAdmins returns all admin accounts.
func (s *Store) ListAdmins(ctx context.Context) ([]model.Admin, error) {
	var admins []model.Admin
	if err := s.db.SelectContext(ctx, &admins, "SELECT * FROM admins ORDER BY email"); err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return admins, nil
}

// HasAnyAdmin reports whether the seed step has run.
func (s *Store) HasAnyAdmin(ctx context.Context) (bool, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM admins"); err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	return count > 0, nil
}

// SaveAdminLockState writes the lockout counter, lock expiry and last login
// of admin, provided nobody else has written the row since admin was read.
// On success admin.Version and admin.UpdatedAt are advanced. A lost race
// returns ErrConflict and leaves admin untouched.
func (s *Store) SaveAdminLockState(ctx context.Context, admin *model.Admin) error {
	now := time.Now().UTC()
	q := s.db.Rebind(`UPDATE admins SET
		failed_login_attempts = ?, lock_until = ?, last_login_at = ?,
		version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`)

	result, err := s.db.ExecContext(ctx, q,
		admin.FailedLoginAttempts, utcPtr(admin.LockUntil), utcPtr(admin.LastLoginAt),
		now, admin.ID, admin.Version)
	if err != nil {
		return fmt.Errorf("save admin lock state: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("save admin lock state rows affected: %w", err)
	}
	if n == 0 {
		if _, err := s.GetAdminByID(ctx, admin.ID); err != nil {
			return err
		}
		return ErrConflict
	}

	admin.Version++
	admin.UpdatedAt = now
	return nil
}

// UnlockAdmin clears any lock on the account and resets its failure counter.
func (s *Store) UnlockAdmin(ctx context.Context, email string) error {
	q := s.db.Rebind(`UPDATE admins SET
		failed_login_attempts = 0, lock_until = NULL, version = version + 1, updated_at = ?
		WHERE email = ?`)
	result, err := s.db.ExecContext(ctx, q, time.Now().UTC(), model.NormalizeEmail(email))
	if err != nil {
		return fmt.Errorf("unlock admin: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unlock admin rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
