package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/alert"
	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/config"
	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/lockout"
	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/security/password"
	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/server"
	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/service"
)

func newServeCmd() *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the portfolio API server",
		Long:  "Start the HTTP server that exposes the public showcase, the contact form and the admin back office.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), baseURL)
		},
	}

	cmd.Flags().IntP("port", "p", 8080, "HTTP listen port")
	cmd.Flags().String("host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Public URL advertised in the OpenAPI document")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(ctx context.Context, baseURL string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Logging, os.Stderr)
	if err != nil {
		return err
	}
	if f := viper.ConfigFileUsed(); f != "" {
		logger.Info("config file loaded", "path", f)
	}

	// 1. Store
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("store initialized", "driver", store.Driver())

	// 2. Alert channel
	notifier := alert.NewNotifier(newDispatcher(cfg.Alert, logger), cfg.AlertTimeout(), logger)
	logger.Info("security alerts enabled", "mode", cfg.Alert.Mode)

	// 3. Auth service
	authSvc, err := service.NewAuthService(store, notifier, service.AuthConfig{
		JWTSecret:   cfg.Auth.JWTSecret,
		TokenExpiry: cfg.TokenExpiryDuration(),
		Policy: lockout.Policy{
			Threshold:    cfg.Auth.LockThreshold,
			LockDuration: cfg.LockDurationValue(),
		},
		Hasher: password.New(cfg.Auth.BcryptCost),
		Logger: logger,
	})
	if err != nil {
		if errors.Is(err, service.ErrSigningKey) {
			return fmt.Errorf("%w: set auth.jwt_secret or PORTFOLIO_AUTH_JWT_SECRET to at least %d bytes",
				err, service.MinSecretLength)
		}
		return fmt.Errorf("init auth service: %w", err)
	}

	// 4. First run check
	hasAdmin, err := store.HasAnyAdmin(ctx)
	if err != nil {
		logger.Warn("failed to check for admin", "error", err)
	}
	if !hasAdmin {
		logger.Warn("no admin account found - run: portfolio admin seed")
	}

	// 5. HTTP server
	maxBody, err := config.ParseByteSize(cfg.Server.MaxBodySize)
	if err != nil {
		return fmt.Errorf("server.max_body_size: %w", err)
	}

	srvCfg := server.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ShutdownTimeout: cfg.ShutdownTimeout(),
		CORSOrigins:     cfg.Server.CORS.Origins,
		MaxBodySize:     maxBody,
		Version:         versionString(),
		BaseURL:         baseURL,
		TrustProxy:      cfg.Server.TrustProxy,
	}
	srv := server.New(srvCfg, store, authSvc, notifier, logger)

	fmt.Printf("→ Portfolio %s\n", versionString())
	fmt.Printf("→ Listening on http://%s:%d\n", srvCfg.Host, srvCfg.Port)
	fmt.Printf("→ OpenAPI:    http://%s:%d/openapi.json\n", srvCfg.Host, srvCfg.Port)
	fmt.Printf("→ Health:     http://%s:%d/healthz\n", srvCfg.Host, srvCfg.Port)
	fmt.Println()

	return srv.ListenAndServe()
}
