package api

import (
	"errors"
	"net/http"

	"backoffice/internal/service"

	"github.com/gin-gonic/gin"
)

// envelope is the uniform JSON response shape
type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

func respondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, envelope{Success: true, Data: data})
}

func respondMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, envelope{Success: true, Message: message, Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, envelope{Success: false, Error: message})
}

// respondServiceError maps service sentinel errors to HTTP statuses
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrValidation):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInsufficientStock):
		respondError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrAlreadyPaid):
		respondError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		respondError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrUpstream):
		respondError(c, http.StatusBadGateway, err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "internal server error")
	}
}

// paginated wraps list results with paging metadata
type paginated struct {
	Items interface{} `json:"items"`
	Total int         `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}
