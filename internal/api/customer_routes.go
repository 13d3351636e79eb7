package api

import (
	"database/sql"
	"errors"
	"net/http"

	"backoffice/internal/models"
	"backoffice/internal/store"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listCustomers(c *gin.Context) {
	f := store.CustomerFilter{
		Search: c.Query("search"),
		Source: c.Query("source"),
		Page:   queryInt(c, "page"),
		Limit:  queryInt(c, "limit"),
	}
	customers, total, err := h.store.ListCustomers(c.Request.Context(), f)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	respondOK(c, paginated{Items: customers, Total: total, Page: normalizePage(f.Page), Limit: f.Limit})
}

func (h *Handler) getCustomer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	customer, err := h.store.GetCustomerByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(c, http.StatusNotFound, "customer not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	respondOK(c, customer)
}

type customerRequestBody struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Phone      string `json:"phone" binding:"required"`
	Street     string `json:"street"`
	City       string `json:"city"`
	County     string `json:"county"`
	PostalCode string `json:"postal_code"`
	Source     string `json:"source"`
	Newsletter bool   `json:"newsletter"`
	Notes      string `json:"notes"`
}

func (h *Handler) createCustomer(c *gin.Context) {
	var req customerRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	source := req.Source
	if source == "" {
		source = "manual"
	}
	customer := &models.Customer{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Street:     req.Street,
		City:       req.City,
		County:     req.County,
		PostalCode: req.PostalCode,
		Source:     source,
		Newsletter: req.Newsletter,
		Notes:      req.Notes,
	}
	if err := h.store.CreateCustomer(c.Request.Context(), customer); err != nil {
		respondError(c, http.StatusConflict, "could not create customer: "+err.Error())
		return
	}
	respondCreated(c, customer)
}

func (h *Handler) updateCustomer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req customerRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	customer := &models.Customer{
		ID:         id,
		Name:       req.Name,
		Phone:      req.Phone,
		Street:     req.Street,
		City:       req.City,
		County:     req.County,
		PostalCode: req.PostalCode,
		Newsletter: req.Newsletter,
		Notes:      req.Notes,
	}
	if err := h.store.UpdateCustomer(c.Request.Context(), customer); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(c, http.StatusNotFound, "customer not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	respondOK(c, customer)
}

func (h *Handler) deleteCustomer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.store.SoftDeleteCustomer(c.Request.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(c, http.StatusNotFound, "customer not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	respondMessage(c, "customer deleted", nil)
}
