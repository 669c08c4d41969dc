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

	"github.com/clinicore/clinicore/internal/config"
	"github.com/clinicore/clinicore/internal/domain/doctor"
	"github.com/clinicore/clinicore/internal/domain/slots"
	"github.com/clinicore/clinicore/internal/platform/db"
	"github.com/clinicore/clinicore/internal/platform/jobs"
	"github.com/clinicore/clinicore/internal/platform/middleware"
	"github.com/clinicore/clinicore/pkg/timex"
)

// retentionDays is how long generated slots and ledger records are kept
// before the purge job removes them.
const retentionDays = 90

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-server",
		Short: "Clinic administration API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(generateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
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

// generateCmd runs slot generation from the command line: either the full
// daily batch, or a single doctor with --doctor and --clinic. The operational
// recovery path when the scheduler misses a day.
func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate appointment slots",
		RunE: func(cmd *cobra.Command, args []string) error {
			doctorID, _ := cmd.Flags().GetString("doctor")
			clinicID, _ := cmd.Flags().GetInt("clinic")
			dateArg, _ := cmd.Flags().GetString("date")

			logger := newLogger()
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

			date := timex.Today()
			if dateArg != "" {
				date, err = timex.ParseDate(dateArg)
				if err != nil {
					return fmt.Errorf("invalid --date: %w", err)
				}
			}

			doctorRepo := doctor.NewRepoPG(pool)
			absenceRepo := doctor.NewAbsenceRepoPG(pool)
			slotSvc := slots.NewService(doctorRepo, absenceRepo,
				slots.NewSlotRepoPG(pool), slots.NewLedgerRepoPG(pool),
				logger, cfg.SlotWorkers, cfg.GenRetryAttempts, cfg.StoreTimeout)

			if doctorID != "" {
				if clinicID <= 0 {
					return fmt.Errorf("--clinic is required with --doctor")
				}
				generated, err := slotSvc.GenerateForDate(ctx, doctorID, clinicID, date)
				if err != nil {
					return err
				}
				fmt.Printf("Generated %d slot(s) for doctor %s on %s.\n", len(generated), doctorID, date)
				return nil
			}

			res, err := slotSvc.RunBatch(ctx, date)
			if err != nil {
				return err
			}
			fmt.Printf("Batch for %s: %d generated, %d skipped, %d failed, %d slots.\n",
				date, res.Generated, res.Skipped, res.Failed, res.SlotCount)
			return nil
		},
	}
	cmd.Flags().String("doctor", "", "Generate for a single doctor id")
	cmd.Flags().Int("clinic", 0, "Clinic id (required with --doctor)")
	cmd.Flags().String("date", "", "Target date (YYYY-MM-DD, defaults to today)")
	return cmd
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Health check with a DB ping.
	e.GET("/health", func(c echo.Context) error {
		pingCtx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"db":     err.Error(),
			})
		}
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})

	apiV1 := e.Group("/api/v1")

	// Doctor master data
	doctorRepo := doctor.NewRepoPG(pool)
	absenceRepo := doctor.NewAbsenceRepoPG(pool)
	doctorSvc := doctor.NewService(doctorRepo, absenceRepo)
	doctor.NewHandler(doctorSvc).RegisterRoutes(apiV1)

	// Slot generation engine
	slotSvc := slots.NewService(doctorRepo, absenceRepo,
		slots.NewSlotRepoPG(pool), slots.NewLedgerRepoPG(pool),
		logger, cfg.SlotWorkers, cfg.GenRetryAttempts, cfg.StoreTimeout)
	slots.NewHandler(slotSvc).RegisterRoutes(apiV1)

	// Background jobs
	jobRepo := jobs.NewRepoPG(pool)
	jobs.NewHandler(jobRepo).RegisterRoutes(apiV1)

	schedCtx, schedCancel := context.WithCancel(ctx)
	defer schedCancel()

	genScheduler := jobs.NewScheduler(jobs.JobSlotGeneration, jobRepo,
		func(ctx context.Context, date timex.Date) error {
			_, err := slotSvc.RunBatch(ctx, date)
			return err
		}, logger, cfg.SchedulerPollTick)
	go genScheduler.Run(schedCtx)

	purgeScheduler := jobs.NewScheduler(jobs.JobRetentionPurge, jobRepo,
		func(ctx context.Context, date timex.Date) error {
			cutoff := timex.DateOf(date.Time().AddDate(0, 0, -retentionDays))
			slotsPurged, recordsPurged, err := slotSvc.PurgeBefore(ctx, cutoff)
			if err != nil {
				return err
			}
			logger.Info().
				Str("cutoff", cutoff.String()).
				Int64("slots", slotsPurged).
				Int64("records", recordsPurged).
				Msg("retention purge finished")
			return nil
		}, logger, cfg.SchedulerPollTick)
	go purgeScheduler.Run(schedCtx)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	schedCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
