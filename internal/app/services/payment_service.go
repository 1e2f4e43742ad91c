package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/circlehub/internal/app/models"
	"github.com/yigit/circlehub/internal/app/models/dto"
	"github.com/yigit/circlehub/internal/app/repositories"
	"github.com/yigit/circlehub/internal/pkg/apperrors"
	"github.com/yigit/circlehub/internal/pkg/helpers"
	"github.com/yigit/circlehub/internal/pkg/payments"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultPlatformPlan is used when a platform checkout names no plan
const DefaultPlatformPlan = "platform-monthly"

// CheckoutURLs are where the gateway sends the buyer afterwards
type CheckoutURLs struct {
	SuccessURL string
	CancelURL  string
}

// PaymentService defines the interface for checkout and subscriptions
type PaymentService interface {
	ListPlans(ctx context.Context) ([]models.PaymentPlan, error)
	CreateCheckout(ctx context.Context, userID primitive.ObjectID, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error)
	ListTransactions(ctx context.Context, userID primitive.ObjectID, page helpers.Page) (*dto.TransactionListResponse, error)
	ListSubscriptions(ctx context.Context, userID primitive.ObjectID) ([]models.CommunitySubscription, error)
	CancelSubscription(ctx context.Context, userID, subscriptionID primitive.ObjectID) (*models.CommunitySubscription, error)
}

type paymentServiceImpl struct {
	userRepo         repositories.UserRepository
	communityRepo    repositories.CommunityRepository
	transactionRepo  repositories.TransactionRepository
	planRepo         repositories.PlanRepository
	subscriptionRepo repositories.SubscriptionRepository
	gateway          payments.Gateway
	urls             CheckoutURLs
	logger           zerolog.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	userRepo repositories.UserRepository,
	communityRepo repositories.CommunityRepository,
	transactionRepo repositories.TransactionRepository,
	planRepo repositories.PlanRepository,
	subscriptionRepo repositories.SubscriptionRepository,
	gateway payments.Gateway,
	urls CheckoutURLs,
	logger zerolog.Logger,
) PaymentService {
	return &paymentServiceImpl{
		userRepo:         userRepo,
		communityRepo:    communityRepo,
		transactionRepo:  transactionRepo,
		planRepo:         planRepo,
		subscriptionRepo: subscriptionRepo,
		gateway:          gateway,
		urls:             urls,
		logger:           logger,
	}
}

func (s *paymentServiceImpl) ListPlans(ctx context.Context) ([]models.PaymentPlan, error) {
	plans, err := s.planRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if plans == nil {
		plans = []models.PaymentPlan{}
	}
	return plans, nil
}

func (s *paymentServiceImpl) CreateCheckout(ctx context.Context, userID primitive.ObjectID, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	communityID, err := primitive.ObjectIDFromHex(req.CommunityID)
	if err != nil {
		return nil, apperrors.NewBadRequestError("invalid communityId")
	}
	community, err := s.communityRepo.GetByID(ctx, communityID)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	tx := &models.Transaction{
		User:      userID,
		Community: &communityID,
		Purpose:   req.Purpose,
		Status:    models.TransactionCreated,
	}
	params := payments.CheckoutParams{
		CustomerEmail: user.Email,
		SuccessURL:    s.urls.SuccessURL,
		CancelURL:     s.urls.CancelURL,
	}

	switch req.Purpose {
	case models.PurposeMembership:
		if !community.PaymentEnabled || community.SubscriptionPrice <= 0 {
			return nil, apperrors.NewBadRequestError("this community does not accept payments")
		}
		if community.IsMember(userID) {
			return nil, apperrors.NewConflictError("you are already a member of this community")
		}
		tx.Amount = community.SubscriptionPrice
		tx.Currency = community.Currency
		params.UnitAmount = community.SubscriptionPrice
		params.Currency = community.Currency
		params.ProductName = community.Name + " membership"
		params.Interval = string(models.IntervalMonth)

	case models.PurposePlatform:
		if !community.IsAdmin(userID) {
			return nil, apperrors.NewForbiddenError("only the community admin can pay the platform subscription")
		}
		code := strings.TrimSpace(req.PlanCode)
		if code == "" {
			code = DefaultPlatformPlan
		}
		plan, err := s.planRepo.GetByCode(ctx, code)
		if err != nil {
			if errors.Is(err, apperrors.ErrResourceNotFound) {
				return nil, apperrors.NewResourceNotFoundError("payment plan not found")
			}
			return nil, err
		}
		if !plan.IsActive || plan.Purpose != models.PurposePlatform {
			return nil, apperrors.NewBadRequestError("payment plan is not available")
		}
		tx.PlanCode = plan.Code
		tx.Amount = plan.Amount
		tx.Currency = plan.Currency
		if plan.GatewayPriceID != "" {
			params.PriceID = plan.GatewayPriceID
		} else {
			params.UnitAmount = plan.Amount
			params.Currency = plan.Currency
			params.ProductName = plan.Name
			params.Interval = string(plan.Interval)
		}

	default:
		return nil, apperrors.NewBadRequestError("unknown payment purpose")
	}

	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return nil, err
	}
	params.CustomerID = customerID

	if err := s.transactionRepo.Create(ctx, tx); err != nil {
		return nil, err
	}
	params.ClientReferenceID = tx.ID.Hex()
	params.Metadata = map[string]string{
		payments.MetaTransactionID: tx.ID.Hex(),
		payments.MetaUserID:        userID.Hex(),
		payments.MetaCommunityID:   communityID.Hex(),
		payments.MetaPurpose:       string(req.Purpose),
		payments.MetaPlanCode:      tx.PlanCode,
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, params)
	if err != nil {
		if _, terr := s.transactionRepo.Transition(ctx, tx.ID, models.TransactionFailed,
			repositories.TransactionUpdate{FailureReason: "checkout session failed"}); terr != nil {
			s.logger.Warn().Err(terr).Str("transactionID", tx.ID.Hex()).Msg("Failed to mark transaction failed")
		}
		s.logger.Error().Err(err).Str("transactionID", tx.ID.Hex()).Msg("Gateway checkout failed")
		return nil, apperrors.NewExternalServiceError("payment gateway is unavailable", err)
	}
	if err := s.transactionRepo.SetSessionID(ctx, tx.ID, session.ID); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("transactionID", tx.ID.Hex()).
		Str("sessionID", session.ID).
		Str("purpose", string(req.Purpose)).
		Int64("amount", tx.Amount).
		Msg("Checkout session created")
	return &dto.CheckoutResponse{CheckoutURL: session.URL, TransactionID: tx.ID.Hex()}, nil
}

func (s *paymentServiceImpl) ensureCustomer(ctx context.Context, user *models.User) (string, error) {
	if user.GatewayCustomerID != "" {
		return user.GatewayCustomerID, nil
	}
	customerID, err := s.gateway.CreateCustomer(ctx, user.Email, user.Name, map[string]string{
		payments.MetaUserID: user.ID.Hex(),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("userID", user.ID.Hex()).Msg("Gateway customer creation failed")
		return "", apperrors.NewExternalServiceError("payment gateway is unavailable", err)
	}
	if err := s.userRepo.SetGatewayCustomerID(ctx, user.ID, customerID); err != nil {
		s.logger.Warn().Err(err).Str("userID", user.ID.Hex()).Msg("Failed to store gateway customer id")
	}
	return customerID, nil
}

func (s *paymentServiceImpl) ListTransactions(ctx context.Context, userID primitive.ObjectID, page helpers.Page) (*dto.TransactionListResponse, error) {
	items, total, err := s.transactionRepo.ListByUser(ctx, userID, page.Skip(), page.Limit())
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Transaction{}
	}
	return &dto.TransactionListResponse{
		Transactions:   items,
		PaginationInfo: helpers.NewPaginationInfo(total, page),
	}, nil
}

func (s *paymentServiceImpl) ListSubscriptions(ctx context.Context, userID primitive.ObjectID) ([]models.CommunitySubscription, error) {
	subs, err := s.subscriptionRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if subs == nil {
		subs = []models.CommunitySubscription{}
	}
	return subs, nil
}

// CancelSubscription cancels at the gateway first. Access continues until the period end.
func (s *paymentServiceImpl) CancelSubscription(ctx context.Context, userID, subscriptionID primitive.ObjectID) (*models.CommunitySubscription, error) {
	sub, err := s.subscriptionRepo.GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.User != userID {
		return nil, apperrors.NewForbiddenError("you can only cancel your own subscriptions")
	}
	switch sub.Status {
	case models.CommunitySubscriptionCancelled:
		return nil, apperrors.NewConflictError("subscription is already cancelled")
	case models.CommunitySubscriptionExpired:
		return nil, apperrors.NewConflictError("subscription has already expired")
	}

	if err := s.gateway.CancelSubscription(ctx, sub.GatewaySubscriptionID); err != nil {
		s.logger.Error().Err(err).
			Str("subscriptionID", sub.ID.Hex()).
			Str("gatewaySubscriptionID", sub.GatewaySubscriptionID).
			Msg("Gateway cancellation failed")
		return nil, apperrors.NewExternalServiceError("payment gateway could not cancel the subscription", err)
	}

	now := time.Now().UTC()
	if err := s.subscriptionRepo.SetStatus(ctx, sub.ID, models.CommunitySubscriptionCancelled, &now); err != nil {
		s.logger.Error().Err(err).
			Str("subscriptionID", sub.ID.Hex()).
			Str("gatewaySubscriptionID", sub.GatewaySubscriptionID).
			Msg("Subscription cancelled at the gateway but the local update failed")
		return nil, fmt.Errorf("record cancellation: %w", err)
	}
	if sub.Purpose == models.PurposePlatform {
		if err := s.userRepo.SetSubscription(ctx, userID, models.SubscriptionCancelled, sub.CurrentPeriodEnd); err != nil {
			s.logger.Warn().Err(err).Str("userID", userID.Hex()).Msg("Failed to mark user plan cancelled")
		}
	}

	sub.Status = models.CommunitySubscriptionCancelled
	sub.CancelledAt = &now
	s.logger.Info().Str("subscriptionID", sub.ID.Hex()).Str("userID", userID.Hex()).Msg("Subscription cancelled")
	return sub, nil
}
