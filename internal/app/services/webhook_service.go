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
	"github.com/yigit/circlehub/internal/pkg/payments"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WebhookService defines the interface for gateway event processing
type WebhookService interface {
	// HandleStripeEvent verifies, deduplicates and applies one gateway event
	HandleStripeEvent(ctx context.Context, payload []byte, signature string) (*dto.WebhookResponse, error)
}

type webhookServiceImpl struct {
	userRepo         repositories.UserRepository
	communityRepo    repositories.CommunityRepository
	transactionRepo  repositories.TransactionRepository
	planRepo         repositories.PlanRepository
	subscriptionRepo repositories.SubscriptionRepository
	eventRepo        repositories.WebhookEventRepository
	suspension       SuspensionService
	notifications    NotificationService
	gateway          payments.Gateway
	metrics          statsd.ClientInterface
	logger           zerolog.Logger
}

// NewWebhookService creates a new WebhookService
func NewWebhookService(
	userRepo repositories.UserRepository,
	communityRepo repositories.CommunityRepository,
	transactionRepo repositories.TransactionRepository,
	planRepo repositories.PlanRepository,
	subscriptionRepo repositories.SubscriptionRepository,
	eventRepo repositories.WebhookEventRepository,
	suspension SuspensionService,
	notifications NotificationService,
	gateway payments.Gateway,
	metrics statsd.ClientInterface,
	logger zerolog.Logger,
) WebhookService {
	return &webhookServiceImpl{
		userRepo:         userRepo,
		communityRepo:    communityRepo,
		transactionRepo:  transactionRepo,
		planRepo:         planRepo,
		subscriptionRepo: subscriptionRepo,
		eventRepo:        eventRepo,
		suspension:       suspension,
		notifications:    notifications,
		gateway:          gateway,
		metrics:          metrics,
		logger:           logger,
	}
}

func (s *webhookServiceImpl) HandleStripeEvent(ctx context.Context, payload []byte, signature string) (*dto.WebhookResponse, error) {
	evt, err := s.gateway.ConstructEvent(payload, signature)
	if err != nil {
		_ = s.metrics.Incr("webhook.invalid_signature", nil, 1)
		s.logger.Warn().Err(err).Msg("Rejected webhook with invalid signature")
		return nil, apperrors.NewBadRequestError("invalid webhook signature")
	}
	tags := []string{"type:" + evt.Type}
	_ = s.metrics.Incr("webhook.received", tags, 1)
	log := s.logger.With().Str("eventID", evt.ID).Str("eventType", evt.Type).Logger()

	fresh, err := s.eventRepo.MarkProcessed(ctx, evt.ID, evt.Type)
	if err != nil {
		_ = s.metrics.Incr("webhook.failed", tags, 1)
		return nil, fmt.Errorf("record webhook event: %w", err)
	}
	if !fresh {
		log.Info().Msg("Duplicate webhook event ignored")
		return &dto.WebhookResponse{Received: true, Duplicate: true, EventType: evt.Type}, nil
	}

	handled, err := s.dispatch(ctx, evt, log)
	if err != nil {
		_ = s.metrics.Incr("webhook.failed", tags, 1)
		log.Error().Err(err).Msg("Webhook processing failed")
		// let the gateway retry the event
		if ferr := s.eventRepo.Forget(context.WithoutCancel(ctx), evt.ID); ferr != nil {
			log.Error().Err(ferr).Msg("Failed to forget webhook event after failure")
		}
		return nil, err
	}
	return &dto.WebhookResponse{Received: true, Ignored: !handled, EventType: evt.Type}, nil
}

func (s *webhookServiceImpl) dispatch(ctx context.Context, evt payments.Event, log zerolog.Logger) (bool, error) {
	switch evt.Type {
	case payments.EventCheckoutCompleted:
		return true, s.onCheckoutCompleted(ctx, evt, log)
	case payments.EventPaymentCapturable:
		return true, s.onPaymentIntent(ctx, evt, models.TransactionAuthorized, log)
	case payments.EventPaymentFailed:
		return true, s.onPaymentIntent(ctx, evt, models.TransactionFailed, log)
	case payments.EventInvoicePaid:
		return true, s.onInvoicePaid(ctx, evt, log)
	case payments.EventSubscriptionDeleted:
		return true, s.onSubscriptionDeleted(ctx, evt, log)
	default:
		log.Debug().Msg("Unhandled webhook event type")
		return false, nil
	}
}

func (s *webhookServiceImpl) onCheckoutCompleted(ctx context.Context, evt payments.Event, log zerolog.Logger) error {
	data, err := payments.DecodeCheckoutCompleted(evt.Data)
	if err != nil {
		return err
	}
	tx, err := s.findTransaction(ctx, data.Metadata, func() (*models.Transaction, error) {
		return s.transactionRepo.GetBySessionID(ctx, data.SessionID)
	})
	if errors.Is(err, apperrors.ErrResourceNotFound) {
		log.Warn().Str("sessionID", data.SessionID).Msg("Checkout completed for unknown transaction")
		return nil
	}
	if err != nil {
		return err
	}

	applied, err := s.transactionRepo.Transition(ctx, tx.ID, models.TransactionCaptured,
		repositories.TransactionUpdate{GatewayPaymentID: data.PaymentIntentID})
	if err != nil {
		return err
	}
	if !applied {
		log.Warn().Str("transactionID", tx.ID.Hex()).Str("status", string(tx.Status)).
			Msg("Transaction cannot move to captured, ignoring")
		return nil
	}
	if tx.Community == nil {
		return nil
	}

	gatewaySubID := data.SubscriptionID
	if gatewaySubID == "" {
		gatewaySubID = "session:" + data.SessionID
	}
	now := time.Now().UTC()

	switch tx.Purpose {
	case models.PurposeMembership:
		periodEnd := now.AddDate(0, 1, 0)
		sub := &models.CommunitySubscription{
			Community:             *tx.Community,
			User:                  tx.User,
			Purpose:               models.PurposeMembership,
			Status:                models.CommunitySubscriptionActive,
			GatewaySubscriptionID: gatewaySubID,
			CurrentPeriodEnd:      &periodEnd,
		}
		if err := s.subscriptionRepo.Upsert(ctx, sub); err != nil {
			return err
		}
		if err := s.communityRepo.AddMember(ctx, *tx.Community, tx.User); err != nil {
			return err
		}
		s.notifications.Dispatch(ctx, Notice{
			Recipient: tx.User,
			Type:      models.NotificationSubscription,
			Message:   "Your membership payment was received",
			Link:      "/communities/" + tx.Community.Hex(),
		})
		log.Info().Str("transactionID", tx.ID.Hex()).Str("communityID", tx.Community.Hex()).Msg("Membership activated")

	case models.PurposePlatform:
		periodEnd := s.periodEnd(ctx, tx.PlanCode, now)
		sub := &models.CommunitySubscription{
			Community:             *tx.Community,
			User:                  tx.User,
			PlanCode:              tx.PlanCode,
			Purpose:               models.PurposePlatform,
			Status:                models.CommunitySubscriptionActive,
			GatewaySubscriptionID: gatewaySubID,
			CurrentPeriodEnd:      &periodEnd,
		}
		if err := s.subscriptionRepo.Upsert(ctx, sub); err != nil {
			return err
		}
		if err := s.suspension.Reactivate(ctx, *tx.Community, periodEnd); err != nil {
			return err
		}
		if err := s.userRepo.SetSubscription(ctx, tx.User, models.SubscriptionActive, &periodEnd); err != nil {
			return err
		}
		if data.CustomerID != "" {
			if err := s.communityRepo.SetGatewayCustomerID(ctx, *tx.Community, data.CustomerID); err != nil {
				log.Warn().Err(err).Msg("Failed to store community gateway customer id")
			}
		}
		s.notifications.Dispatch(ctx, Notice{
			Recipient: tx.User,
			Type:      models.NotificationSubscription,
			Message:   "Your platform subscription is active",
			Link:      "/communities/" + tx.Community.Hex() + "/billing",
		})
		log.Info().Str("transactionID", tx.ID.Hex()).Str("communityID", tx.Community.Hex()).
			Time("paidUntil", periodEnd).Msg("Platform subscription activated")
	}
	return nil
}

func (s *webhookServiceImpl) onPaymentIntent(ctx context.Context, evt payments.Event, status models.TransactionStatus, log zerolog.Logger) error {
	data, err := payments.DecodePaymentIntent(evt.Data)
	if err != nil {
		return err
	}
	tx, err := s.findTransaction(ctx, data.Metadata, func() (*models.Transaction, error) {
		return s.transactionRepo.GetByPaymentID(ctx, data.PaymentIntentID)
	})
	if errors.Is(err, apperrors.ErrResourceNotFound) {
		log.Debug().Str("paymentIntentID", data.PaymentIntentID).Msg("Payment intent for unknown transaction")
		return nil
	}
	if err != nil {
		return err
	}

	applied, err := s.transactionRepo.Transition(ctx, tx.ID, status, repositories.TransactionUpdate{
		GatewayPaymentID: data.PaymentIntentID,
		FailureReason:    data.FailureReason,
	})
	if err != nil {
		return err
	}
	if !applied {
		log.Warn().Str("transactionID", tx.ID.Hex()).Str("from", string(tx.Status)).Str("to", string(status)).
			Msg("Transaction transition not allowed, ignoring")
		return nil
	}
	log.Info().Str("transactionID", tx.ID.Hex()).Str("status", string(status)).Msg("Transaction updated")
	return nil
}

func (s *webhookServiceImpl) onInvoicePaid(ctx context.Context, evt payments.Event, log zerolog.Logger) error {
	data, err := payments.DecodeInvoicePaid(evt.Data)
	if err != nil {
		return err
	}
	if data.SubscriptionID == "" || data.PeriodEnd.IsZero() {
		return nil
	}
	sub, err := s.subscriptionRepo.GetByGatewayID(ctx, data.SubscriptionID)
	if errors.Is(err, apperrors.ErrResourceNotFound) {
		// the first invoice can arrive before checkout.session.completed
		log.Debug().Str("gatewaySubscriptionID", data.SubscriptionID).Msg("Invoice for unknown subscription")
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.subscriptionRepo.ExtendPeriod(ctx, data.SubscriptionID, data.PeriodEnd); err != nil {
		return err
	}
	if sub.Status == models.CommunitySubscriptionPastDue {
		if err := s.subscriptionRepo.SetStatus(ctx, sub.ID, models.CommunitySubscriptionActive, nil); err != nil {
			return err
		}
	}
	if sub.Purpose == models.PurposePlatform {
		if err := s.suspension.Reactivate(ctx, sub.Community, data.PeriodEnd); err != nil {
			return err
		}
		if err := s.userRepo.SetSubscription(ctx, sub.User, models.SubscriptionActive, &data.PeriodEnd); err != nil {
			return err
		}
	}
	log.Info().Str("subscriptionID", sub.ID.Hex()).Time("periodEnd", data.PeriodEnd).Msg("Subscription period extended")
	return nil
}

func (s *webhookServiceImpl) onSubscriptionDeleted(ctx context.Context, evt payments.Event, log zerolog.Logger) error {
	data, err := payments.DecodeSubscriptionDeleted(evt.Data)
	if err != nil {
		return err
	}
	sub, err := s.subscriptionRepo.GetByGatewayID(ctx, data.SubscriptionID)
	if errors.Is(err, apperrors.ErrResourceNotFound) {
		log.Debug().Str("gatewaySubscriptionID", data.SubscriptionID).Msg("Deletion of unknown subscription")
		return nil
	}
	if err != nil {
		return err
	}
	if sub.Status == models.CommunitySubscriptionCancelled || sub.Status == models.CommunitySubscriptionExpired {
		return nil
	}

	at := data.CanceledAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	if err := s.subscriptionRepo.SetStatus(ctx, sub.ID, models.CommunitySubscriptionCancelled, &at); err != nil {
		return err
	}
	if sub.Purpose == models.PurposePlatform {
		if err := s.userRepo.SetSubscription(ctx, sub.User, models.SubscriptionCancelled, sub.CurrentPeriodEnd); err != nil {
			return err
		}
	}
	log.Info().Str("subscriptionID", sub.ID.Hex()).Msg("Subscription cancelled by gateway")
	return nil
}

// findTransaction prefers the id carried in metadata and falls back to lookup
func (s *webhookServiceImpl) findTransaction(ctx context.Context, meta map[string]string, lookup func() (*models.Transaction, error)) (*models.Transaction, error) {
	if raw := meta[payments.MetaTransactionID]; raw != "" {
		if id, err := primitive.ObjectIDFromHex(raw); err == nil {
			tx, err := s.transactionRepo.GetByID(ctx, id)
			if err == nil || !errors.Is(err, apperrors.ErrResourceNotFound) {
				return tx, err
			}
		}
	}
	return lookup()
}

// periodEnd is the first paid period end; invoice.paid later sets the exact value
func (s *webhookServiceImpl) periodEnd(ctx context.Context, planCode string, from time.Time) time.Time {
	if planCode != "" {
		if plan, err := s.planRepo.GetByCode(ctx, planCode); err == nil && plan.Interval == models.IntervalYear {
			return from.AddDate(1, 0, 0)
		}
	}
	return from.AddDate(0, 1, 0)
}
