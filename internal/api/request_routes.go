package api

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"backoffice/internal/models"
	"backoffice/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type createProductRequestBody struct {
	CustomerName string `json:"customer_name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Phone        string `json:"phone" binding:"required"`
	ProductName  string `json:"product_name" binding:"required"`
	Category     string `json:"category"`
	Description  string `json:"description"`
	Urgency      string `json:"urgency"`
}

func (h *Handler) createProductRequest(c *gin.Context) {
	var req createProductRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	urgency := req.Urgency
	switch urgency {
	case "low", "medium", "high":
	case "":
		urgency = "medium"
	default:
		respondError(c, http.StatusBadRequest, "urgency must be low, medium or high")
		return
	}

	request := &models.ProductRequest{
		CustomerName: req.CustomerName,
		Email:        req.Email,
		Phone:        req.Phone,
		ProductName:  req.ProductName,
		Category:     req.Category,
		Description:  req.Description,
		Urgency:      urgency,
	}
	if err := h.store.CreateProductRequest(c.Request.Context(), request); err != nil {
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	if h.publisher != nil {
		event := &models.ProductRequestReceivedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeProductRequestReceived,
				Timestamp: time.Now(),
			},
			RequestID:    request.ID,
			ProductName:  request.ProductName,
			Category:     request.Category,
			Description:  request.Description,
			Urgency:      request.Urgency,
			CustomerName: request.CustomerName,
			Email:        request.Email,
			Phone:        request.Phone,
		}
		if err := h.publisher.PublishProductRequestReceived(c.Request.Context(), event); err != nil {
			h.logger.Error("failed to publish product request event",
				zap.Int64("request_id", request.ID), zap.Error(err))
		}
	}

	respondCreated(c, request)
}

func (h *Handler) listProductRequests(c *gin.Context) {
	f := store.RequestFilter{
		Status: c.Query("status"),
		Page:   queryInt(c, "page"),
		Limit:  queryInt(c, "limit"),
	}
	switch c.Query("read") {
	case "true":
		t := true
		f.Read = &t
	case "false":
		fa := false
		f.Read = &fa
	}

	requests, total, err := h.store.ListProductRequests(c.Request.Context(), f)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	respondOK(c, paginated{Items: requests, Total: total, Page: normalizePage(f.Page), Limit: f.Limit})
}

func (h *Handler) getProductRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	request, err := h.store.GetProductRequestByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(c, http.StatusNotFound, "product request not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	respondOK(c, request)
}

func (h *Handler) markProductRequestRead(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.store.MarkProductRequestRead(c.Request.Context(), id); err != nil {
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	respondMessage(c, "marked as read", nil)
}

type respondRequestBody struct {
	Status          string `json:"status"`
	AdminNotes      string `json:"admin_notes"`
	ResponseMessage string `json:"response_message"`
}

func (h *Handler) respondProductRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req respondRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if req.Status != "" {
		switch req.Status {
		case models.RequestStatusNew, models.RequestStatusReviewing, models.RequestStatusSourcing,
			models.RequestStatusAvailable, models.RequestStatusDeclined:
		default:
			respondError(c, http.StatusBadRequest, "unknown status: "+req.Status)
			return
		}
	}

	admin := currentAdmin(c)
	if err := h.store.RespondProductRequest(c.Request.Context(), id, req.Status, req.AdminNotes, req.ResponseMessage, admin.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(c, http.StatusNotFound, "product request not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	request, err := h.store.GetProductRequestByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	respondOK(c, request)
}
