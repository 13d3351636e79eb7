package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"backoffice/internal/auth"
	"backoffice/internal/models"
	"backoffice/internal/util"

	"github.com/gin-gonic/gin"
)

const contextAdminKey = "admin"

// prometheusMiddleware records request counts and latency per route
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		util.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		util.HTTPRequestDuration.WithLabelValues(c.Request.Method, path, status).
			Observe(time.Since(start).Seconds())
	}
}

// requireAuth validates the bearer token and loads the admin into the context
func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			respondError(c, http.StatusUnauthorized, "missing bearer token")
			c.Abort()
			return
		}

		adminID, err := h.tokens.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			respondError(c, http.StatusUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		admin, err := h.store.GetAdminByID(c.Request.Context(), adminID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				respondError(c, http.StatusUnauthorized, "account not found")
			} else {
				respondError(c, http.StatusInternalServerError, "internal server error")
			}
			c.Abort()
			return
		}
		if !admin.IsActive {
			respondError(c, http.StatusUnauthorized, "account is deactivated")
			c.Abort()
			return
		}

		c.Set(contextAdminKey, admin)
		c.Next()
	}
}

// requireCapability guards a route group behind one capability
func (h *Handler) requireCapability(cap auth.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin := currentAdmin(c)
		if admin == nil {
			respondError(c, http.StatusUnauthorized, "authentication required")
			c.Abort()
			return
		}
		if !auth.RoleHas(admin.Role, cap) {
			respondError(c, http.StatusForbidden, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}

func currentAdmin(c *gin.Context) *models.Admin {
	v, ok := c.Get(contextAdminKey)
	if !ok {
		return nil
	}
	admin, ok := v.(*models.Admin)
	if !ok {
		return nil
	}
	return admin
}
