package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rs/zerolog"
	"github.com/yigit/circlehub/internal/app/models"
	"github.com/yigit/circlehub/internal/app/models/dto"
	"github.com/yigit/circlehub/internal/app/repositories"
	"github.com/yigit/circlehub/internal/pkg/apperrors"
	"github.com/yigit/circlehub/internal/pkg/cache"
	"github.com/yigit/circlehub/internal/pkg/helpers"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Ineligibility reasons returned to clients
const (
	ReasonUserTrialUsed      = "user has already used a free trial"
	ReasonCommunityTrialUsed = "community has already used a free trial"
	ReasonCommunityBilled    = "community already has an active or past subscription"
)

const (
	sweepLockKey = "lock:expire-lapsed"
	sweepLockTTL = 5 * time.Minute

	auditIPWindow = 24 * time.Hour

	// timestamps in trial responses carry milliseconds
	isoMillis = "2006-01-02T15:04:05.000Z07:00"
)

// TrialConfig holds the trial lengths
type TrialConfig struct {
	Days         int
	ReminderDays int
}

// ClientInfo is recorded with every eligibility check
type ClientInfo struct {
	IP        string
	UserAgent string
}

// TrialService defines the interface for trials and the expiration sweep
type TrialService interface {
	CheckEligibility(ctx context.Context, userID primitive.ObjectID, req *dto.TrialRequest, client ClientInfo) (*dto.TrialEligibilityResponse, error)
	ActivateTrial(ctx context.Context, userID primitive.ObjectID, req *dto.TrialRequest, client ClientInfo) (*dto.TrialActivationResponse, error)
	// ExpireLapsed suspends and expires everything whose paid or trial period ended before now
	ExpireLapsed(ctx context.Context, now time.Time) (*dto.SweepResponse, error)
	NotifyExpiringTrials(ctx context.Context, now time.Time) (*dto.ReminderResponse, error)
}

type trialServiceImpl struct {
	userRepo         repositories.UserRepository
	communityRepo    repositories.CommunityRepository
	subscriptionRepo repositories.SubscriptionRepository
	auditRepo        repositories.TrialAuditRepository
	notifications    NotificationService
	cache            cache.Client
	metrics          statsd.ClientInterface
	config           TrialConfig
	logger           zerolog.Logger
}

// NewTrialService creates a new TrialService
func NewTrialService(
	userRepo repositories.UserRepository,
	communityRepo repositories.CommunityRepository,
	subscriptionRepo repositories.SubscriptionRepository,
	auditRepo repositories.TrialAuditRepository,
	notifications NotificationService,
	cacheClient cache.Client,
	metrics statsd.ClientInterface,
	config TrialConfig,
	logger zerolog.Logger,
) TrialService {
	if config.Days <= 0 {
		config.Days = 14
	}
	if config.ReminderDays <= 0 {
		config.ReminderDays = 3
	}
	return &trialServiceImpl{
		userRepo:         userRepo,
		communityRepo:    communityRepo,
		subscriptionRepo: subscriptionRepo,
		auditRepo:        auditRepo,
		notifications:    notifications,
		cache:            cacheClient,
		metrics:          metrics,
		config:           config,
		logger:           logger,
	}
}

type trialTarget struct {
	scope     models.TrialScope
	community *models.Community
}

func (s *trialServiceImpl) CheckEligibility(ctx context.Context, userID primitive.ObjectID, req *dto.TrialRequest, client ClientInfo) (*dto.TrialEligibilityResponse, error) {
	result, _, err := s.evaluate(ctx, userID, req, client)
	return result, err
}

// evaluate decides eligibility and appends the decision to the audit ledger
func (s *trialServiceImpl) evaluate(ctx context.Context, userID primitive.ObjectID, req *dto.TrialRequest, client ClientInfo) (*dto.TrialEligibilityResponse, *trialTarget, error) {
	target := &trialTarget{scope: req.Scope}
	result := &dto.TrialEligibilityResponse{Eligible: true}

	switch req.Scope {
	case models.TrialScopeUser:
		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return nil, nil, err
		}
		if user.HasUsedTrial {
			result.Eligible, result.Reason = false, ReasonUserTrialUsed
		}

	case models.TrialScopeCommunity:
		communityID, err := primitive.ObjectIDFromHex(req.CommunityID)
		if err != nil {
			return nil, nil, apperrors.NewBadRequestError("communityId is required for community trials")
		}
		community, err := s.communityRepo.GetByID(ctx, communityID)
		if err != nil {
			return nil, nil, err
		}
		if !community.IsAdmin(userID) {
			return nil, nil, apperrors.NewForbiddenError("only the community admin can start a trial")
		}
		target.community = community
		switch {
		case community.HasUsedTrial:
			result.Eligible, result.Reason = false, ReasonCommunityTrialUsed
		case community.PaymentStatus != models.PaymentStatusUnpaid:
			result.Eligible, result.Reason = false, ReasonCommunityBilled
		}

	default:
		return nil, nil, apperrors.NewBadRequestError("scope must be user or community")
	}

	s.audit(ctx, userID, target, result, client)
	return result, target, nil
}

// audit is best effort; the ledger is never consulted for the decision
func (s *trialServiceImpl) audit(ctx context.Context, userID primitive.ObjectID, target *trialTarget, result *dto.TrialEligibilityResponse, client ClientInfo) {
	entry := &models.TrialAudit{
		UserID:    userID.Hex(),
		Scope:     target.scope,
		IPAddress: client.IP,
		UserAgent: client.UserAgent,
		Eligible:  result.Eligible,
		Reason:    result.Reason,
	}
	if target.community != nil {
		id := target.community.ID.Hex()
		entry.CommunityID = &id
	}

	if err := s.auditRepo.Record(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("userID", entry.UserID).Msg("Failed to write trial audit entry")
	}

	event := s.logger.Info().
		Str("userID", entry.UserID).
		Str("scope", string(entry.Scope)).
		Str("ip", client.IP).
		Str("userAgent", client.UserAgent).
		Bool("eligible", result.Eligible).
		Str("reason", result.Reason)
	// recent checks from the same address, for abuse review only
	if client.IP != "" {
		since := time.Now().UTC().Add(-auditIPWindow)
		if n, err := s.auditRepo.CountByIP(ctx, client.IP, since); err == nil {
			event = event.Int64("checksFromIP24h", n)
		} else {
			s.logger.Warn().Err(err).Str("ip", client.IP).Msg("Failed to count trial checks by ip")
		}
	}
	event.Msg("Trial eligibility checked")
}

func (s *trialServiceImpl) ActivateTrial(ctx context.Context, userID primitive.ObjectID, req *dto.TrialRequest, client ClientInfo) (*dto.TrialActivationResponse, error) {
	result, target, err := s.evaluate(ctx, userID, req, client)
	if err != nil {
		return nil, err
	}
	if !result.Eligible {
		return nil, apperrors.NewTrialIneligibleError(result.Reason)
	}

	start := time.Now().UTC().Truncate(time.Millisecond)
	end := helpers.AddDays(start, s.config.Days)
	resp := &dto.TrialActivationResponse{
		Scope:     target.scope,
		StartDate: start.Format(isoMillis),
		EndDate:   end.Format(isoMillis),
	}

	switch target.scope {
	case models.TrialScopeUser:
		if err := s.userRepo.StartTrial(ctx, userID, start, end); err != nil {
			if errors.Is(err, apperrors.ErrConflict) {
				return nil, apperrors.NewTrialIneligibleError(ReasonUserTrialUsed)
			}
			return nil, err
		}

	case models.TrialScopeCommunity:
		community := target.community
		if err := s.communityRepo.StartTrial(ctx, community.ID, start, end); err != nil {
			if errors.Is(err, apperrors.ErrConflict) {
				return nil, apperrors.NewTrialIneligibleError(ReasonCommunityTrialUsed)
			}
			return nil, err
		}
		resp.CommunityID = community.ID.Hex()
		// the community trial is already live; a failure here is reported but not undone
		if err := s.userRepo.SetTrialEndDate(ctx, community.Admin, end); err != nil {
			s.logger.Error().Err(err).
				Str("communityID", community.ID.Hex()).
				Str("adminID", community.Admin.Hex()).
				Msg("Community trial started but admin trial end date was not written")
			return nil, err
		}
	}

	_ = s.metrics.Incr("trial.activated", []string{"scope:" + string(target.scope)}, 1)
	s.logger.Info().
		Str("userID", userID.Hex()).
		Str("scope", string(target.scope)).
		Str("communityID", resp.CommunityID).
		Time("trialEndDate", end).
		Msg("Trial activated")
	return resp, nil
}

func (s *trialServiceImpl) ExpireLapsed(ctx context.Context, now time.Time) (*dto.SweepResponse, error) {
	lock, ok, err := cache.TryLock(ctx, s.cache, sweepLockKey, sweepLockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		_ = s.metrics.Incr("sweep.skipped", nil, 1)
		s.logger.Info().Msg("Expiration sweep already running elsewhere, skipping")
		return &dto.SweepResponse{Skipped: true}, nil
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to release sweep lock")
		}
	}()

	started := time.Now()
	now = now.UTC()
	resp := &dto.SweepResponse{}

	if resp.CommunitiesSuspended, err = s.communityRepo.SuspendLapsed(ctx, now); err != nil {
		return nil, fmt.Errorf("suspend lapsed communities: %w", err)
	}
	if resp.UserTrialsExpired, err = s.userRepo.ExpireTrials(ctx, now); err != nil {
		return nil, fmt.Errorf("expire user trials: %w", err)
	}
	if resp.UserPlansExpired, err = s.userRepo.ExpireSubscriptions(ctx, now); err != nil {
		return nil, fmt.Errorf("expire user subscriptions: %w", err)
	}
	if resp.SubscriptionsExpired, err = s.subscriptionRepo.ExpireLapsed(ctx, now); err != nil {
		return nil, fmt.Errorf("expire membership subscriptions: %w", err)
	}

	_ = s.metrics.Incr("sweep.run", nil, 1)
	_ = s.metrics.Count("sweep.communities_suspended", resp.CommunitiesSuspended, nil, 1)
	_ = s.metrics.Count("sweep.user_trials_expired", resp.UserTrialsExpired, nil, 1)
	_ = s.metrics.Count("sweep.user_plans_expired", resp.UserPlansExpired, nil, 1)
	_ = s.metrics.Count("sweep.subscriptions_expired", resp.SubscriptionsExpired, nil, 1)
	_ = s.metrics.Timing("sweep.duration", time.Since(started), nil, 1)

	s.logger.Info().
		Time("now", now).
		Int64("communitiesSuspended", resp.CommunitiesSuspended).
		Int64("userTrialsExpired", resp.UserTrialsExpired).
		Int64("userPlansExpired", resp.UserPlansExpired).
		Int64("subscriptionsExpired", resp.SubscriptionsExpired).
		Msg("Expiration sweep finished")
	return resp, nil
}

func (s *trialServiceImpl) NotifyExpiringTrials(ctx context.Context, now time.Time) (*dto.ReminderResponse, error) {
	now = now.UTC()
	window := helpers.AddDays(now, s.config.ReminderDays)
	// keep the marker past the window so a reminder never repeats for the same trial
	ttl := window.Sub(now) + 24*time.Hour
	resp := &dto.ReminderResponse{}

	users, err := s.userRepo.ListTrialsEndingBetween(ctx, now, window)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.TrialEndDate == nil {
			continue
		}
		key := fmt.Sprintf("trial-reminder:user:%s:%d", u.ID.Hex(), u.TrialEndDate.Unix())
		if !s.firstReminder(ctx, key, ttl) {
			continue
		}
		s.notifications.Dispatch(ctx, Notice{
			Recipient: u.ID,
			Type:      models.NotificationTrialExpiring,
			Message:   fmt.Sprintf("Your free trial ends on %s", u.TrialEndDate.UTC().Format("Jan 2, 2006")),
			Link:      "/billing",
		})
		resp.Sent++
	}

	communities, err := s.communityRepo.ListTrialsEndingBetween(ctx, now, window)
	if err != nil {
		return nil, err
	}
	for _, c := range communities {
		if c.TrialEndDate == nil {
			continue
		}
		key := fmt.Sprintf("trial-reminder:community:%s:%d", c.ID.Hex(), c.TrialEndDate.Unix())
		if !s.firstReminder(ctx, key, ttl) {
			continue
		}
		s.notifications.Dispatch(ctx, Notice{
			Recipient: c.Admin,
			Type:      models.NotificationTrialExpiring,
			Message:   fmt.Sprintf("The free trial of %s ends on %s", c.Name, c.TrialEndDate.UTC().Format("Jan 2, 2006")),
			Link:      "/communities/" + c.Slug + "/billing",
		})
		resp.Sent++
	}

	_ = s.metrics.Count("trial.reminders_sent", int64(resp.Sent), nil, 1)
	s.logger.Info().Int("sent", resp.Sent).Msg("Trial reminders dispatched")
	return resp, nil
}

func (s *trialServiceImpl) firstReminder(ctx context.Context, key string, ttl time.Duration) bool {
	first, err := cache.MarkOnce(ctx, s.cache, key, ttl)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Failed to record trial reminder, skipping")
		return false
	}
	return first
}
