// Command calendar runs the team calendar HTTP server. Configuration comes
// from the environment (optionally via a .env file); state lives in SQLite.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/example/team-calendar/internal/application"
	"github.com/example/team-calendar/internal/config"
	"github.com/example/team-calendar/internal/http"
	"github.com/example/team-calendar/internal/logging"
	"github.com/example/team-calendar/internal/persistence/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env file is fine; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(os.Stdout, logLevel(cfg.LogLevel))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := sqlite.NewConnectionPool(sqlite.DefaultConfig(cfg.SQLiteDSN))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer pool.Close()

	if err := sqlite.Migrate(ctx, pool, logger); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	users := sqlite.NewUserRepository(pool)
	calendars := sqlite.NewCalendarRepository(pool)
	appointments := sqlite.NewAppointmentRepository(pool)
	pauses := sqlite.NewPauseRepository(pool)
	tags := sqlite.NewTagRepository(pool)
	shares := sqlite.NewShareRepository(pool)

	newID := uuid.NewString
	now := time.Now

	authService := application.NewAuthService(users, newID, now, logger)
	calendarService := application.NewCalendarService(calendars, users, newID, now, logger)
	tagService := application.NewTagService(tags, newID, now, logger)
	appointmentService := application.NewAppointmentService(appointments, calendars, newID, now, logger)
	pauseService := application.NewPauseService(pauses, appointments, newID, now, logger)
	shareService := application.NewShareService(shares, calendars, newID, uuid.NewString, now, logger)
	tokenService := application.NewTokenService(cfg.JWTSecret, cfg.TokenTTL, application.NewMemoryRevocationStore(now), now)

	validate := http.NewValidator()

	router := http.NewRouter(http.RouterConfig{
		Auth:         http.NewAuthHandler(authService, tokenService, validate, logger),
		Calendars:    http.NewCalendarHandler(calendarService, validate, logger),
		Tags:         http.NewTagHandler(tagService, validate, logger),
		Appointments: http.NewAppointmentHandler(appointmentService, pauseService, validate, logger),
		Pauses:       http.NewPauseHandler(pauseService, validate, logger),
		Shares:       http.NewShareHandler(shareService, validate, logger),
		ICS:          http.NewICSHandler(calendarService, appointmentService, tagService, logger),
		Authenticate: http.RequireToken(tokenService, logger),
		Middleware:   []func(nethttp.Handler) nethttp.Handler{http.RequestLogger(logger)},
	})

	server := &nethttp.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		shutdownErr <- server.Shutdown(shutdownCtx)
	}()

	logger.Info("server starting", slog.Int("port", cfg.HTTPPort))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	if err := <-shutdownErr; err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
