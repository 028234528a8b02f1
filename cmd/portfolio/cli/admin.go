package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/config"
	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/model"
	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/security/password"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage the admin account",
		Long:  "Seed, list and unlock the back office admin account.",
	}

	cmd.AddCommand(newAdminSeedCmd())
	cmd.AddCommand(newAdminListCmd())
	cmd.AddCommand(newAdminUnlockCmd())

	return cmd
}

// withStore loads the configuration, opens the store and runs fn.
func withStore(fn func(ctx context.Context, cfg *config.YAMLConfig, store *config.Store) error) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(context.Background(), cfg, store)
}

// ---------- admin seed ----------

func newAdminSeedCmd() *cobra.Command {
	var (
		email string
		pass  string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the admin account if it does not exist",
		Example: `  portfolio admin seed --email admin@example.com   # prompts for password
  PORTFOLIO_ADMIN_EMAIL=admin@example.com PORTFOLIO_ADMIN_PASSWORD=... portfolio admin seed`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				email = os.Getenv("PORTFOLIO_ADMIN_EMAIL")
			}
			if pass == "" {
				pass = os.Getenv("PORTFOLIO_ADMIN_PASSWORD")
			}
			return withStore(func(ctx context.Context, cfg *config.YAMLConfig, store *config.Store) error {
				return runAdminSeed(ctx, store, password.New(cfg.Auth.BcryptCost), email, pass, cmd.OutOrStdout())
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email address (or PORTFOLIO_ADMIN_EMAIL)")
	cmd.Flags().StringVar(&pass, "password", "", "Admin password (or PORTFOLIO_ADMIN_PASSWORD; prompted if omitted)")

	return cmd
}

func runAdminSeed(ctx context.Context, store *config.Store, hasher password.Hasher, email, pass string, out io.Writer) error {
	email = model.NormalizeEmail(email)
	if email == "" {
		return errors.New("--email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email address: %q", email)
	}

	if _, err := store.GetAdminByEmail(ctx, email); err == nil {
		fmt.Fprintf(out, "Admin %q already exists, nothing to do\n", email)
		return nil
	} else if !errors.Is(err, config.ErrNotFound) {
		return err
	}

	if pass == "" {
		var err error
		if pass, err = promptPassword(); err != nil {
			return err
		}
	}
	hash, err := hasher.Hash(pass)
	if err != nil {
		return err
	}
	admin := &model.Admin{Email: email, PasswordHash: hash}
	if err := store.CreateAdmin(ctx, admin); err != nil {
		if errors.Is(err, config.ErrDuplicate) {
			fmt.Fprintf(out, "Admin %q already exists, nothing to do\n", email)
			return nil
		}
		return err
	}

	fmt.Fprintf(out, "Created admin %q (id %s)\n", admin.Email, admin.ID)
	return nil
}

func promptPassword() (string, error) {
	fmt.Print("Password: ")
	pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	fmt.Print("Confirm password: ")
	confirmBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}
	fmt.Println()

	if string(pwBytes) != string(confirmBytes) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(pwBytes), nil
}

// ---------- admin list ----------

type adminRow struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	FailedAttempts int        `json:"failed_login_attempts"`
	LockedUntil    *time.Time `json:"locked_until,omitempty"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
}

func newAdminListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List admin accounts and their lock state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, _ *config.YAMLConfig, store *config.Store) error {
				return runAdminList(ctx, store, jsonOutput, time.Now(), cmd.OutOrStdout())
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runAdminList(ctx context.Context, store *config.Store, jsonOutput bool, now time.Time, out io.Writer) error {
	admins, err := store.ListAdmins(ctx)
	if err != nil {
		return err
	}

	rows := make([]adminRow, 0, len(admins))
	for _, a := range admins {
		row := adminRow{
			ID:             a.ID,
			Email:          a.Email,
			FailedAttempts: a.FailedLoginAttempts,
			LastLoginAt:    a.LastLoginAt,
		}
		if a.IsLocked(now) {
			row.LockedUntil = a.LockUntil
		}
		rows = append(rows, row)
	}

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Fprintln(out, "No admin configured. Use 'portfolio admin seed' to create one.")
		return nil
	}

	fmt.Fprintf(out, "%-32s %-8s %-25s\n", "EMAIL", "FAILED", "LOCKED UNTIL")
	fmt.Fprintf(out, "%-32s %-8s %-25s\n", "-----", "------", "------------")
	for _, r := range rows {
		locked := "-"
		if r.LockedUntil != nil {
			locked = r.LockedUntil.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(out, "%-32s %-8d %-25s\n", r.Email, r.FailedAttempts, locked)
	}
	return nil
}

// ---------- admin unlock ----------

func newAdminUnlockCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "unlock",
		Short: "Clear the lock and failure count of an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, _ *config.YAMLConfig, store *config.Store) error {
				return runAdminUnlock(ctx, store, email, cmd.OutOrStdout())
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email address (required)")
	cmd.MarkFlagRequired("email")

	return cmd
}

func runAdminUnlock(ctx context.Context, store *config.Store, email string, out io.Writer) error {
	email = model.NormalizeEmail(email)
	if err := store.UnlockAdmin(ctx, email); err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return fmt.Errorf("no admin with email %q", email)
		}
		return err
	}
	fmt.Fprintf(out, "Unlocked %q\n", email)
	return nil
}
