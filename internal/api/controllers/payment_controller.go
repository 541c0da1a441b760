package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/growsinofficial/kyc-sub000/internal/models/request_models"
	"github.com/growsinofficial/kyc-sub000/internal/services"
	"github.com/growsinofficial/kyc-sub000/pkg/utils"
)

type PaymentController struct {
	paymentService services.IPaymentService
	refundService  services.IRefundService
}

func NewPaymentController(paymentService services.IPaymentService, refundService services.IRefundService) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
		refundService:  refundService,
	}
}

func currentAccountID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetString("user_id")
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Initiate godoc
// @Summary Open a purchase transaction and a gateway checkout session
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body request_models.InitiatePaymentRequest true "Initiate Payment Request"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /payments/initiate [post]
func (p *PaymentController) Initiate(c *gin.Context) {
	var request request_models.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	accountID, ok := currentAccountID(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, "user_id is required")
		return
	}

	resp, err := p.paymentService.InitiatePayment(c.Request.Context(), accountID, request)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, resp, "Transaction initiated")
}

// Verify godoc
// @Summary Verify a payment outcome against the gateway and finalize
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body request_models.VerifyPaymentRequest true "Verify Payment Request"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /payments/verify [post]
func (p *PaymentController) Verify(c *gin.Context) {
	var request request_models.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	accountID, ok := currentAccountID(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, "user_id is required")
		return
	}

	resp, err := p.paymentService.VerifyPayment(c.Request.Context(), accountID, request)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, resp, "Payment completed")
}

// History godoc
// @Summary List the caller's transactions, newest first
// @Tags Payments
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /payments/history [get]
func (p *PaymentController) History(c *gin.Context) {
	accountID, ok := currentAccountID(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, "user_id is required")
		return
	}

	txns, err := p.paymentService.GetHistory(c.Request.Context(), accountID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, txns, "Transaction history")
}

// Cancel marks an abandoned checkout's transaction cancelled.
func (p *PaymentController) Cancel(c *gin.Context) {
	accountID, ok := currentAccountID(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, "user_id is required")
		return
	}

	if err := p.paymentService.CancelPayment(c.Request.Context(), accountID, c.Param("transactionId")); err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, nil, "Transaction cancelled")
}

// Refund godoc
// @Summary Refund part or all of a completed transaction (admin)
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body request_models.CreateRefundRequest true "Create Refund Request"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /payments/{transactionId}/refund [post]
func (p *PaymentController) Refund(c *gin.Context) {
	var request request_models.CreateRefundRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	resp, err := p.refundService.CreateRefund(c.Request.Context(), c.Param("transactionId"), request.AmountMinor, request.Reason)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, resp, "Refund processed")
}
