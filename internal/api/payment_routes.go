package api

import (
	"net/http"

	"backoffice/internal/mpesa"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type stkPushRequest struct {
	OrderID     int64  `json:"order_id" binding:"required"`
	PhoneNumber string `json:"phone_number"`
}

func (h *Handler) initiateSTKPush(c *gin.Context) {
	var req stkPushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.payments.InitiateSTKPush(c.Request.Context(), req.OrderID, req.PhoneNumber)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, resp.CustomerMessage, gin.H{
		"checkout_request_id": resp.CheckoutRequestID,
		"merchant_request_id": resp.MerchantRequestID,
	})
}

func (h *Handler) adminInitiateSTKPush(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		PhoneNumber string `json:"phone_number"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.payments.InitiateSTKPush(c.Request.Context(), id, req.PhoneNumber)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, resp.CustomerMessage, gin.H{
		"checkout_request_id": resp.CheckoutRequestID,
		"merchant_request_id": resp.MerchantRequestID,
	})
}

// paymentCallback receives the provider's asynchronous result. The response
// is always the success acknowledgment; reconciliation problems are ours to
// resolve, not the provider's to retry.
func (h *Handler) paymentCallback(c *gin.Context) {
	var envelope mpesa.CallbackEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		h.logger.Warn("malformed payment callback", zap.Error(err))
		c.JSON(http.StatusOK, mpesa.AckSuccess())
		return
	}

	ack := h.payments.HandleCallback(c.Request.Context(), &envelope.Body.STKCallback)
	c.JSON(http.StatusOK, ack)
}

func (h *Handler) queryPaymentStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	resp, err := h.payments.QueryStatus(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, resp)
}

type manualPaymentRequest struct {
	Receipt string  `json:"receipt" binding:"required"`
	Phone   string  `json:"phone"`
	Amount  float64 `json:"amount" binding:"required,gt=0"`
}

func (h *Handler) recordManualPayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req manualPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.payments.RecordManualPayment(c.Request.Context(), id, req.Receipt, req.Phone, req.Amount)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, order)
}

func (h *Handler) confirmCashOnDelivery(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.payments.ConfirmCashOnDelivery(c.Request.Context(), id, req.Amount)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, order)
}
