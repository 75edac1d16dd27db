package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NeonAnubis/afrimail-backend/internal/api"
	"github.com/NeonAnubis/afrimail-backend/internal/config"
	"github.com/NeonAnubis/afrimail-backend/internal/core"
	"github.com/NeonAnubis/afrimail-backend/internal/db"
	"github.com/NeonAnubis/afrimail-backend/internal/logging"
	"github.com/NeonAnubis/afrimail-backend/internal/mailcow"
	"github.com/NeonAnubis/afrimail-backend/internal/mailer"
	"github.com/NeonAnubis/afrimail-backend/internal/metrics"
	"github.com/NeonAnubis/afrimail-backend/internal/model"
)

func main() {
	if len(os.Args) >= 2 && os.Args[1] == "create-admin" {
		createAdmin(os.Args[2:])
		return
	}

	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	migrateDirFlag := flag.String("migrate-dir", "migrations", "Migration files directory")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	if *migrateFlag {
		logger.Info().Str("dir", *migrateDirFlag).Msg("running database migrations")
		if err := db.RunMigrations(cfg.DatabaseURL, *migrateDirFlag); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	metrics.RegisterPgxPoolMetrics(pool)

	mc := mailcow.NewClient(cfg.MailcowAPIURL, cfg.MailcowAPIKey)
	if !mc.IsConfigured() {
		logger.Warn().Msg("mailcow API not configured, running in local-only mode")
	}

	services := core.NewServices(pool, mc, core.ServicesConfig{
		JWTSecret:     cfg.JWTSecret,
		JWTIssuer:     cfg.JWTIssuer,
		EncryptionKey: cfg.EncryptionKey,
	})
	mail := mailer.New(cfg, logger)
	if !mail.Enabled() {
		logger.Warn().Msg("SMTP not configured, notification mail disabled")
	}

	srv := api.NewServer(logger, pool, services, mc, mail)
	defer srv.Close()

	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting API server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
}

func createAdmin(args []string) {
	fs := flag.NewFlagSet("create-admin", flag.ExitOnError)
	email := fs.String("email", "", "Admin email address (required)")
	password := fs.String("password", "", "Admin password (required)")
	role := fs.String("role", string(model.RoleAdmin), "Role: superadmin, admin, or support")
	fs.Parse(args)

	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "error: --email and --password are required")
		fmt.Fprintln(os.Stderr, "usage: afrimail-api create-admin --email <email> --password <password> [--role <role>]")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	svc := core.NewAuthService(pool, cfg.JWTSecret, cfg.JWTIssuer)
	admin, err := svc.CreateAdmin(ctx, core.CreateAdminParams{
		Email:    *email,
		Password: *password,
		Role:     model.AdminRole(*role),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to create admin: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Admin created.\n\n")
	fmt.Printf("  Email:  %s\n", admin.Email)
	fmt.Printf("  ID:     %s\n", admin.ID)
	fmt.Printf("  Role:   %s\n", admin.Role)
}
