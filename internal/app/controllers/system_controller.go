package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/circlehub/internal/app/models/dto"
	"github.com/yigit/circlehub/internal/app/services"
	"github.com/yigit/circlehub/internal/middleware"
)

const healthTimeout = 3 * time.Second

// Pinger is a dependency the health check can reach
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// SystemController serves health checks and the scheduler endpoints
type SystemController struct {
	trialService services.TrialService
	dependencies map[string]Pinger
	now          func() time.Time
	logger       zerolog.Logger
}

// NewSystemController creates a new SystemController. dependencies are keyed by
// the name reported in /health.
func NewSystemController(trialService services.TrialService, dependencies map[string]Pinger, logger zerolog.Logger) *SystemController {
	return &SystemController{
		trialService: trialService,
		dependencies: dependencies,
		now:          time.Now,
		logger:       logger,
	}
}

// Health pings every dependency; any failure answers 503
// @Summary Health check
// @Tags system
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (c *SystemController) Health(ctx *gin.Context) {
	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), healthTimeout)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(c.dependencies))
	for name, dep := range c.dependencies {
		if err := dep.Ping(pingCtx); err != nil {
			c.logger.Error().Err(err).Str("dependency", name).Msg("Health check failed")
			checks[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "up"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	ctx.JSON(status, gin.H{
		"status":       overall,
		"dependencies": checks,
		"timestamp":    c.now().UTC(),
	})
}

// Ping answers without touching any dependency
func (c *SystemController) Ping(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
}

// ExpireLapsed runs the expiration sweep. Guarded by the cron secret.
// @Router /cron/expire [post]
func (c *SystemController) ExpireLapsed(ctx *gin.Context) {
	resp, err := c.trialService.ExpireLapsed(ctx.Request.Context(), c.now())
	if err != nil {
		c.logger.Error().Err(err).Msg("Expiration sweep failed")
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// TrialReminders notifies trials ending soon. Guarded by the cron secret.
// @Router /cron/trial-reminders [post]
func (c *SystemController) TrialReminders(ctx *gin.Context) {
	resp, err := c.trialService.NotifyExpiringTrials(ctx.Request.Context(), c.now())
	if err != nil {
		c.logger.Error().Err(err).Msg("Trial reminders failed")
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}
