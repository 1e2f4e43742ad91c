package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yigit/circlehub/internal/app/services"
	"github.com/yigit/circlehub/internal/bootstrap"
	"github.com/yigit/circlehub/internal/config"
	"github.com/yigit/circlehub/internal/pkg/helpers"
	"github.com/yigit/circlehub/internal/pkg/workers"
)

// Server holds the state for the HTTP server.
type Server struct {
	config  *config.Config
	router  *gin.Engine
	infra   *bootstrap.Infrastructure
	workers []*workers.Worker
	logger  zerolog.Logger
	http    *http.Server

	cancelWorkers context.CancelFunc
	workersDone   sync.WaitGroup
}

// NewServer creates and initializes a new server instance by calling bootstrap functions.
func NewServer() (*Server, error) {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to load config or setup logger: %w", err)
	}

	ctx := context.Background()
	infra, err := bootstrap.SetupInfrastructure(ctx, cfg, lgr)
	if err != nil {
		return nil, fmt.Errorf("failed to setup infrastructure: %w", err)
	}

	deps, err := bootstrap.BuildDependencies(ctx, cfg, infra, lgr)
	if err != nil {
		infra.Close(ctx, lgr)
		return nil, fmt.Errorf("failed to setup dependencies: %w", err)
	}

	router, err := bootstrap.SetupRouter(cfg, deps, infra.Metrics, lgr)
	if err != nil {
		infra.Close(ctx, lgr)
		return nil, fmt.Errorf("failed to setup router: %w", err)
	}

	s := &Server{
		config: cfg,
		router: router,
		infra:  infra,
		logger: lgr,
	}
	s.workers = billingWorkers(cfg, deps.Services.Trials, lgr)
	return s, nil
}

// billingWorkers runs the expiration sweep and trial reminders in process when
// cron.interval is positive. The HTTP cron endpoints stay available either way.
func billingWorkers(cfg *config.Config, trials services.TrialService, lgr zerolog.Logger) []*workers.Worker {
	interval := helpers.ParseDuration(cfg.Cron.Interval, 0)
	if interval <= 0 {
		lgr.Info().Msg("In-process billing workers disabled")
		return nil
	}

	sweep := workers.NewWorker("expire-lapsed", interval, lgr, func(ctx context.Context) {
		resp, err := trials.ExpireLapsed(ctx, time.Now())
		if err != nil {
			lgr.Error().Err(err).Msg("Expiration sweep failed")
			return
		}
		if resp.Skipped {
			return
		}
		lgr.Info().
			Int64("communitiesSuspended", resp.CommunitiesSuspended).
			Int64("userTrialsExpired", resp.UserTrialsExpired).
			Int64("subscriptionsExpired", resp.SubscriptionsExpired).
			Msg("Expiration sweep finished")
	})
	reminders := workers.NewWorker("trial-reminders", interval, lgr, func(ctx context.Context) {
		resp, err := trials.NotifyExpiringTrials(ctx, time.Now())
		if err != nil {
			lgr.Error().Err(err).Msg("Trial reminders failed")
			return
		}
		lgr.Debug().Int("sent", resp.Sent).Msg("Trial reminders finished")
	})
	return []*workers.Worker{sweep, reminders}
}

// Run starts the HTTP server and handles graceful shutdown.
func (s *Server) Run() error {
	s.logger.Info().Str("port", s.config.Server.Port).Msg("Starting server...")

	s.http = &http.Server{
		Addr:         ":" + s.config.Server.Port,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	workerCtx, cancel := context.WithCancel(context.Background())
	s.cancelWorkers = cancel
	for _, w := range s.workers {
		s.workersDone.Add(1)
		go func(w *workers.Worker) {
			defer s.workersDone.Done()
			w.Start(workerCtx)
		}(w)
	}

	// Channel to listen for errors starting the server
	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.http.Addr).Msg("HTTP server listening")
		serverErrors <- s.http.ListenAndServe()
	}()

	osSignals := make(chan os.Signal, 1)
	signal.Notify(osSignals, syscall.SIGINT, syscall.SIGTERM)

	// Block until we receive either a server error or an OS signal
	var runErr error
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("error starting server: %w", err)
		}
	case sig := <-osSignals:
		s.logger.Info().Str("signal", sig.String()).Msg("Received OS signal, initiating shutdown...")
	}

	return errors.Join(runErr, s.Shutdown(context.Background()))
}

// Shutdown gracefully stops the server, the workers and closes resources.
func (s *Server) Shutdown(ctx context.Context) error {
	timeout := helpers.ParseDuration(s.config.Server.ShutdownTimeout, 10*time.Second)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var shutdownErr error

	if s.http != nil {
		s.logger.Info().Msg("Shutting down HTTP server...")
		if err := s.http.Shutdown(ctx); err != nil {
			s.logger.Error().Err(err).Msg("HTTP server shutdown error")
			shutdownErr = err
		} else {
			s.logger.Info().Msg("HTTP server gracefully stopped.")
		}
	}

	if s.cancelWorkers != nil {
		s.cancelWorkers()
		s.workersDone.Wait()
	}

	if s.infra != nil {
		s.logger.Info().Msg("Closing database and cache connections...")
		s.infra.Close(ctx, s.logger)
	}

	s.logger.Info().Msg("Server shutdown process complete.")
	if shutdownErr != nil {
		return fmt.Errorf("server shutdown completed with errors: %w", shutdownErr)
	}
	return nil
}
