package api

import (
	"database/sql"
	"errors"
	"net/http"

	"backoffice/internal/auth"
	"backoffice/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	admin, err := h.store.GetAdminByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(c, http.StatusUnauthorized, "invalid credentials")
			return
		}
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	if !admin.IsActive || !auth.VerifyPassword(admin.PasswordHash, req.Password) {
		respondError(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.tokens.Issue(admin.ID, admin.Role)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := h.store.TouchAdminLogin(c.Request.Context(), admin.ID); err != nil {
		h.logger.Warn("failed to record login time", zap.Int64("admin_id", admin.ID), zap.Error(err))
	}

	respondOK(c, gin.H{
		"token":        token,
		"admin":        admin,
		"capabilities": auth.Capabilities(admin.Role),
	})
}

func (h *Handler) me(c *gin.Context) {
	admin := currentAdmin(c)
	respondOK(c, gin.H{
		"admin":        admin,
		"capabilities": auth.Capabilities(admin.Role),
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	admin := currentAdmin(c)
	if !auth.VerifyPassword(admin.PasswordHash, req.CurrentPassword) {
		respondError(c, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	if err := h.store.UpdateAdminPassword(c.Request.Context(), admin.ID, hash); err != nil {
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	respondMessage(c, "password updated", nil)
}

type registerAdminRequest struct {
	Name           string `json:"name" binding:"required"`
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required,min=8"`
	Role           string `json:"role" binding:"required"`
	WhatsAppNumber string `json:"whatsapp_number"`
}

func (h *Handler) registerAdmin(c *gin.Context) {
	var req registerAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if !auth.ValidRole(req.Role) {
		respondError(c, http.StatusBadRequest, "unknown role: "+req.Role)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	admin := &models.Admin{
		Name:                  req.Name,
		Email:                 req.Email,
		PasswordHash:          hash,
		Role:                  req.Role,
		WhatsAppNumber:        req.WhatsAppNumber,
		WhatsAppNotifications: req.WhatsAppNumber != "",
		IsActive:              true,
	}
	if err := h.store.CreateAdmin(c.Request.Context(), admin); err != nil {
		respondError(c, http.StatusConflict, "could not create admin: "+err.Error())
		return
	}
	respondCreated(c, admin)
}
