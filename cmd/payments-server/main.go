package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dentalpay/dentalpay/internal/config"
	"github.com/dentalpay/dentalpay/internal/domain/billing"
	"github.com/dentalpay/dentalpay/internal/platform/bank"
	"github.com/dentalpay/dentalpay/internal/platform/db"
	"github.com/dentalpay/dentalpay/internal/platform/middleware"
	"github.com/dentalpay/dentalpay/internal/platform/notify"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "payments-server",
		Short: "Dental billing payments API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the payments API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert demo patients and invoices",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			patients := billing.NewPatientRepoPG(pool)
			invoices := billing.NewInvoiceRepoPG(pool)

			email := "carlos.gomez@example.com"
			phone := "3001234567"
			demo := []struct {
				patient billing.Patient
				amounts []float64
			}{
				{billing.Patient{FullName: "Carlos Gómez", Email: &email, Phone: &phone}, []float64{150000, 80000}},
				{billing.Patient{FullName: "María Fernanda López"}, []float64{230000}},
				{billing.Patient{FullName: "Jorge Martínez"}, nil},
			}

			for _, d := range demo {
				p := d.patient
				if err := patients.Create(ctx, &p); err != nil {
					return fmt.Errorf("seed patient %q: %w", p.FullName, err)
				}
				for _, amount := range d.amounts {
					inv := billing.Invoice{
						PatientID: p.ID,
						Amount:    amount,
						Status:    billing.InvoiceStatusPending,
					}
					if err := invoices.Create(ctx, &inv); err != nil {
						return fmt.Errorf("seed invoice for %q: %w", p.FullName, err)
					}
				}
			}

			fmt.Printf("Seeded %d patient(s).\n", len(demo))
			return nil
		},
	}
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", "X-Request-ID"},
	}))
	e.Use(db.SessionMiddleware(pool))

	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// External collaborators
	var bankClient bank.Client
	if cfg.BankURL != "" {
		bankClient = bank.NewHTTPClient(cfg.BankURL, cfg.BankTimeout())
		logger.Info().Str("url", cfg.BankURL).Msg("using HTTP bank client")
	} else {
		bankClient = bank.NewSimulatedClient()
		logger.Info().Msg("using simulated bank client")
	}

	var notifier notify.Notifier
	if cfg.NotifyWebhook != "" {
		notifier = notify.NewWebhookNotifier(cfg.NotifyWebhook, 10*time.Second)
		logger.Info().Str("url", cfg.NotifyWebhook).Msg("using webhook notifier")
	} else {
		notifier = notify.NewLogNotifier(logger)
	}

	// Domain wiring
	patients := billing.NewPatientRepoPG(pool)
	invoices := billing.NewInvoiceRepoPG(pool)
	payments := billing.NewPaymentRepoPG(pool)
	svc := billing.NewService(patients, invoices, payments, bankClient, notifier, db.NewPoolTxRunner(pool), logger)
	billing.NewHandler(svc).RegisterRoutes(e, apiV1)

	// Liveness endpoints
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"message": "Web Service de Gestión de Pagos funcionando correctamente.",
			"status":  "online",
			"version": "1.0.0",
		})
	})
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Start server
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
