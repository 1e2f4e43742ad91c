package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/circlehub/internal/app/models/dto"
	"github.com/yigit/circlehub/internal/app/services"
	"github.com/yigit/circlehub/internal/middleware"
	"github.com/yigit/circlehub/internal/pkg/helpers"
)

// stripe sends events well below this
const maxWebhookBody = 1 << 20

// PaymentController handles checkout, subscriptions, trials and the gateway webhook
type PaymentController struct {
	paymentService services.PaymentService
	trialService   services.TrialService
	webhookService services.WebhookService
	logger         zerolog.Logger
}

// NewPaymentController creates a new PaymentController
func NewPaymentController(paymentService services.PaymentService, trialService services.TrialService, webhookService services.WebhookService, logger zerolog.Logger) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
		trialService:   trialService,
		webhookService: webhookService,
		logger:         logger,
	}
}

// ListPlans returns the active platform plans
// @Router /payments/plans [get]
func (c *PaymentController) ListPlans(ctx *gin.Context) {
	plans, err := c.paymentService.ListPlans(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(plans))
}

// CreateCheckout starts a hosted checkout session
// @Summary Start checkout
// @Tags payments
// @Security BearerAuth
// @Param request body dto.CheckoutRequest true "Checkout"
// @Success 201 {object} dto.APIResponse{data=dto.CheckoutResponse}
// @Failure 409 {object} dto.ErrorResponse "Already a member"
// @Failure 502 {object} dto.ErrorResponse "Gateway failure"
// @Router /payments/checkout [post]
func (c *PaymentController) CreateCheckout(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req dto.CheckoutRequest
	if !bindJSON(ctx, &req) {
		return
	}
	resp, err := c.paymentService.CreateCheckout(ctx.Request.Context(), userID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(resp))
}

// @Router /payments/transactions [get]
func (c *PaymentController) ListTransactions(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	page, err := c.paymentService.ListTransactions(ctx.Request.Context(), userID, helpers.ParsePaginationParams(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(page))
}

// @Router /payments/subscriptions [get]
func (c *PaymentController) ListSubscriptions(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	subs, err := c.paymentService.ListSubscriptions(ctx.Request.Context(), userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(subs))
}

// CancelSubscription cancels at the gateway; access lasts until the period end
// @Router /payments/subscriptions/{id}/cancel [post]
func (c *PaymentController) CancelSubscription(ctx *gin.Context) {
	userID, id, ok := userAndID(ctx, "id")
	if !ok {
		return
	}
	sub, err := c.paymentService.CancelSubscription(ctx.Request.Context(), userID, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Subscription cancelled", sub))
}

func clientInfo(ctx *gin.Context) services.ClientInfo {
	return services.ClientInfo{IP: ctx.ClientIP(), UserAgent: ctx.Request.UserAgent()}
}

// CheckTrialEligibility never activates anything
// @Summary Check trial eligibility
// @Tags trials
// @Security BearerAuth
// @Param request body dto.TrialRequest true "Scope"
// @Success 200 {object} dto.APIResponse{data=dto.TrialEligibilityResponse}
// @Router /trials/eligibility [post]
func (c *PaymentController) CheckTrialEligibility(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req dto.TrialRequest
	if !bindJSON(ctx, &req) {
		return
	}
	resp, err := c.trialService.CheckEligibility(ctx.Request.Context(), userID, &req, clientInfo(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// ActivateTrial starts a one-time free trial for the user or a community
// @Summary Activate trial
// @Tags trials
// @Security BearerAuth
// @Param request body dto.TrialRequest true "Scope"
// @Success 201 {object} dto.APIResponse{data=dto.TrialActivationResponse}
// @Failure 400 {object} dto.ErrorResponse "Not eligible"
// @Router /trials/activate [post]
func (c *PaymentController) ActivateTrial(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req dto.TrialRequest
	if !bindJSON(ctx, &req) {
		return
	}
	resp, err := c.trialService.ActivateTrial(ctx.Request.Context(), userID, &req, clientInfo(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.logger.Info().Str("userID", userID.Hex()).Str("scope", string(resp.Scope)).Str("endDate", resp.EndDate).Msg("Trial activated")
	ctx.JSON(http.StatusCreated, dto.NewMessageResponse("Trial activated", resp))
}

// StripeWebhook verifies and applies a gateway event. Processing failures
// answer 500 so the gateway retries.
// @Summary Stripe webhook
// @Tags webhooks
// @Param Stripe-Signature header string true "Signature"
// @Success 200 {object} dto.WebhookResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid signature"
// @Router /webhooks/stripe [post]
func (c *PaymentController) StripeWebhook(ctx *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxWebhookBody))
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to read webhook body")
		middleware.HandleBindError(ctx, err)
		return
	}

	resp, err := c.webhookService.HandleStripeEvent(ctx.Request.Context(), payload, ctx.GetHeader("Stripe-Signature"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}
