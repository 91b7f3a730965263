package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iliyamo/hospital-frontdesk/internal/allocation"
	"github.com/iliyamo/hospital-frontdesk/internal/blob"
	"github.com/iliyamo/hospital-frontdesk/internal/config"
	"github.com/iliyamo/hospital-frontdesk/internal/database"
	"github.com/iliyamo/hospital-frontdesk/internal/document"
	"github.com/iliyamo/hospital-frontdesk/internal/handler"
	"github.com/iliyamo/hospital-frontdesk/internal/metrics"
	"github.com/iliyamo/hospital-frontdesk/internal/middleware"
	"github.com/iliyamo/hospital-frontdesk/internal/queue"
	"github.com/iliyamo/hospital-frontdesk/internal/repository"
	"github.com/iliyamo/hospital-frontdesk/internal/router"
	"github.com/iliyamo/hospital-frontdesk/internal/service"
	"github.com/iliyamo/hospital-frontdesk/internal/utils"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "frontdesk",
		Short: "Hospital front desk: admissions and bed allocation",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(consumeCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg != nil && cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, newLogger(nil), err
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, logger, err
	}
	return cfg, logger, nil
}

func serveCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the front desk API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply the schema before serving")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			db, dialect, err := database.Open(cfg.DB)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.Migrate(cmd.Context(), db, dialect); err != nil {
				return err
			}
			logger.Info().Str("dialect", string(dialect)).Msg("schema applied")
			return nil
		},
	}
}

func consumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "Append admission events to the ward register",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			logger.Info().Str("dir", cfg.AdmissionLogDir).Msg("register consumer starting")
			err = queue.StartAdmissionConsumer(ctx, cfg.RabbitMQURL, cfg.AdmissionLogDir, logger)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func tokenCmd() *cobra.Command {
	var (
		userID uint64
		role   string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print an access token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return fmt.Errorf("JWT_SECRET is required")
			}
			role = strings.ToUpper(role)
			if role != middleware.RoleFrontDesk && role != middleware.RoleAdmin {
				return fmt.Errorf("role must be %s or %s", middleware.RoleFrontDesk, middleware.RoleAdmin)
			}
			tok, err := utils.NewAccessToken(cfg.JWTSecret, userID, role, cfg.AccessTTLMin)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok.Token)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&userID, "user", 1, "subject of the token")
	cmd.Flags().StringVar(&role, "role", middleware.RoleFrontDesk, "FRONTDESK or ADMIN")
	return cmd
}

func runServer(migrate bool) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}
	loc, _ := cfg.Location()
	ctx := context.Background()

	db, dialect, err := database.Open(cfg.DB)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return err
	}
	defer db.Close()
	logger.Info().Str("dialect", string(dialect)).Msg("connected to database")
	if migrate {
		if err := database.Migrate(ctx, db, dialect); err != nil {
			return err
		}
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		logger.Warn().Str("addr", cfg.Redis.Address()).Msg("redis unavailable, rate limit and caches disabled")
	} else {
		defer rdb.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	h, err := buildHandlers(ctx, cfg, loc, db, rdb, reg, logger)
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestID())
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.Logger(logger))

	opts := router.Options{JWTSecret: cfg.JWTSecret, Gatherer: reg}
	if rdb != nil {
		opts.RateLimit = middleware.NewTokenBucket(cfg.RateLimit, rdb, logger)
		opts.Cache = middleware.NewRedisCache(cfg.Cache, rdb)
	}
	router.RegisterRoutes(e, h, opts)
	router.RegisterV1(e, h, opts)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func buildHandlers(ctx context.Context, cfg *config.Config, loc *time.Location, db *sql.DB, rdb *redis.Client, reg prometheus.Registerer, logger zerolog.Logger) (router.Handlers, error) {
	rooms := repository.NewRoomRepo(db)
	admissions := repository.NewAdmissionRepo(db, loc)
	patients := repository.NewPatientRepo(db)
	doctors := repository.NewDoctorRepo(db)
	templates := repository.NewTemplateRepo(db)

	orch := allocation.New(rooms, admissions, patients, doctors, logger)
	orch.SetDefaultStayDays(cfg.DefaultStayDays)
	orch.SetMetrics(metrics.NewAllocation(reg))
	if cfg.RabbitMQURL != "" {
		orch.SetPublisher(service.NewPublisher(cfg.RabbitMQURL, logger))
	}

	resolver := document.NewResolver(templates, logger)
	if rdb != nil {
		resolver = resolver.WithCache(rdb, cfg.Templates.CacheTTL)
	}
	if cfg.Templates.Bucket != "" {
		signer, err := blob.NewPresigner(ctx, cfg.Templates)
		if err != nil {
			return router.Handlers{}, fmt.Errorf("template presigner: %w", err)
		}
		resolver = resolver.WithSigner(signer)
	}
	renderer := document.NewRenderer(admissions, resolver, loc, cfg.HospitalName, logger)

	return router.Handlers{
		Health:    &handler.HealthHandler{DB: db},
		Rooms:     handler.NewRoomHandler(rooms, admissions, orch),
		Admission: handler.NewAdmissionHandler(orch, admissions),
		Documents: handler.NewDocumentHandler(renderer, resolver, templates, cfg.HospitalName),
		Doctors:   &handler.DoctorHandler{Doctors: doctors},
	}, nil
}
