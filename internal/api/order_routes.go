package api

import (
	"net/http"

	"backoffice/internal/service"
	"backoffice/internal/store"

	"github.com/gin-gonic/gin"
)

func (h *Handler) createOrder(c *gin.Context) {
	var in service.CreateOrderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if in.IdempotencyKey == "" {
		in.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), &in)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, order)
}

func (h *Handler) trackOrder(c *gin.Context) {
	orderNumber := c.Param("orderNumber")
	order, err := h.orders.GetOrderByNumber(c.Request.Context(), orderNumber)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	// Public tracking exposes status progress only, not payment internals
	respondOK(c, gin.H{
		"order_number":       order.OrderNumber,
		"order_status":       order.OrderStatus,
		"payment_status":     order.PaymentStatus,
		"fulfillment_status": order.FulfillmentStatus,
		"tracking_number":    order.TrackingNumber,
		"status_history":     order.History,
		"created_at":         order.CreatedAt,
	})
}

func (h *Handler) listOrders(c *gin.Context) {
	f := store.OrderFilter{
		OrderStatus:   c.Query("order_status"),
		PaymentStatus: c.Query("payment_status"),
		Search:        c.Query("search"),
		Page:          queryInt(c, "page"),
		Limit:         queryInt(c, "limit"),
	}
	orders, total, err := h.orders.ListOrders(c.Request.Context(), f)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	respondOK(c, paginated{Items: orders, Total: total, Page: normalizePage(f.Page), Limit: f.Limit})
}

func (h *Handler) getOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	order, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, order)
}

type updateStatusRequest struct {
	Status         string `json:"status" binding:"required"`
	Note           string `json:"note"`
	TrackingNumber string `json:"tracking_number"`
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), id, req.Status, req.Note, req.TrackingNumber)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, order)
}

type updateFulfillmentRequest struct {
	FulfillmentStatus string `json:"fulfillment_status"`
	TrackingNumber    string `json:"tracking_number"`
}

func (h *Handler) updateOrderFulfillment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateFulfillmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.FulfillmentStatus == "" && req.TrackingNumber == "" {
		respondError(c, http.StatusBadRequest, "nothing to update")
		return
	}

	order, err := h.orders.UpdateFulfillment(c.Request.Context(), id, req.FulfillmentStatus, req.TrackingNumber)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, order)
}

func (h *Handler) orderAnalytics(c *gin.Context) {
	period := c.DefaultQuery("period", "month")
	analytics, err := h.orders.Analytics(c.Request.Context(), period)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	respondOK(c, gin.H{"period": period, "orders": analytics})
}

func (h *Handler) customerAnalytics(c *gin.Context) {
	analytics, err := h.store.GetCustomerAnalytics(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	respondOK(c, analytics)
}
