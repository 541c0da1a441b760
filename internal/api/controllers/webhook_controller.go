package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/growsinofficial/kyc-sub000/internal/services"
	"github.com/growsinofficial/kyc-sub000/pkg/utils"
)

// SignatureHeader carries the hex HMAC digest of the raw request body.
const SignatureHeader = "X-Webhook-Signature"

type WebhookController struct {
	webhookService services.IWebhookService
}

func NewWebhookController(webhookService services.IWebhookService) *WebhookController {
	return &WebhookController{webhookService: webhookService}
}

// HandleWebhook godoc
// @Summary Gateway webhook endpoint
// @Tags Payments
// @Accept json
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Failure 401 {object} utils.APIResponse
// @Router /payments/webhook [post]
func (w *WebhookController) HandleWebhook(c *gin.Context) {
	// The signature covers the exact bytes on the wire; the body must not be
	// decoded and re-encoded before verification.
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Failed to read request body")
		return
	}

	err = w.webhookService.ProcessEvent(c.Request.Context(), rawBody, c.GetHeader(SignatureHeader))
	if err != nil {
		if errors.Is(err, utils.ErrInvalidSignature) {
			utils.RespondError(c, http.StatusUnauthorized, "Invalid signature")
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, "Failed to process event")
		return
	}

	// quick 200 once the event is durably recorded; side effects run in the
	// background worker
	utils.RespondSuccess(c, nil, "Event accepted")
}
