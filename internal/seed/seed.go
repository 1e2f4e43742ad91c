// Package seed creates the reference data the application expects at boot.
package seed

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/yigit/circlehub/internal/app/models"
	"github.com/yigit/circlehub/internal/app/repositories"
	"github.com/yigit/circlehub/internal/pkg/apperrors"
)

// DefaultPlans are the platform plans offered to community admins
var DefaultPlans = []models.PaymentPlan{
	{
		Code:     "platform-monthly",
		Name:     "Platform (monthly)",
		Purpose:  models.PurposePlatform,
		Amount:   2900,
		Currency: "usd",
		Interval: models.IntervalMonth,
		IsActive: true,
	},
	{
		Code:     "platform-yearly",
		Name:     "Platform (yearly)",
		Purpose:  models.PurposePlatform,
		Amount:   29000,
		Currency: "usd",
		Interval: models.IntervalYear,
		IsActive: true,
	},
}

// CreateDefaultData inserts the default plans that don't exist yet. Existing
// plans are left alone so prices edited in the database survive restarts.
func CreateDefaultData(ctx context.Context, plans repositories.PlanRepository, lgr zerolog.Logger) error {
	lgr.Info().Msg("Checking/Creating default payment plans...")
	var finalErr error

	for i := range DefaultPlans {
		plan := DefaultPlans[i]
		_, err := plans.GetByCode(ctx, plan.Code)
		if err == nil {
			lgr.Debug().Str("plan", plan.Code).Msg("Plan already exists, skipping creation")
			continue
		}
		if !errors.Is(err, apperrors.ErrResourceNotFound) {
			lgr.Error().Err(err).Str("plan", plan.Code).Msg("Error checking plan")
			finalErr = errors.Join(finalErr, err)
			continue
		}

		if err := plans.Upsert(ctx, &plan); err != nil {
			lgr.Error().Err(err).Str("plan", plan.Code).Msg("Error creating plan")
			finalErr = errors.Join(finalErr, err)
			continue
		}
		lgr.Info().Str("plan", plan.Code).Int64("amount", plan.Amount).Msg("Default plan created")
	}

	lgr.Info().Msg("Default data check/creation finished.")
	return finalErr
}
