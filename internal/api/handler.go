package api

import (
	"net/http"

	"backoffice/internal/auth"
	"backoffice/internal/broker"
	"backoffice/internal/service"
	"backoffice/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handler wires HTTP routes to the services
type Handler struct {
	store     *store.Store
	orders    *service.OrderService
	payments  *service.PaymentService
	tokens    *auth.TokenIssuer
	publisher *broker.EventPublisher
	logger    *zap.Logger
}

// NewHandler creates the HTTP handler
func NewHandler(st *store.Store, orders *service.OrderService, payments *service.PaymentService, tokens *auth.TokenIssuer, publisher *broker.EventPublisher, logger *zap.Logger) *Handler {
	return &Handler{
		store:     st,
		orders:    orders,
		payments:  payments,
		tokens:    tokens,
		publisher: publisher,
		logger:    logger,
	}
}

// SetupRoutes registers all routes on the router
func (h *Handler) SetupRoutes(r *gin.Engine) {
	r.Use(gin.Recovery())
	r.Use(prometheusMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := h.store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")

	// Public storefront surface
	v1.POST("/auth/login", h.login)
	v1.GET("/products", h.listProducts)
	v1.GET("/products/:id", h.getProduct)
	v1.GET("/categories", h.listCategories)
	v1.POST("/orders", h.createOrder)
	v1.GET("/orders/track/:orderNumber", h.trackOrder)
	v1.POST("/payments/stk-push", h.initiateSTKPush)
	v1.POST("/payments/callback", h.paymentCallback)
	v1.POST("/product-requests", h.createProductRequest)

	// Operator surface
	admin := v1.Group("/admin")
	admin.Use(h.requireAuth())
	{
		admin.GET("/auth/me", h.me)
		admin.POST("/auth/change-password", h.changePassword)
		admin.POST("/auth/register", h.requireCapability(auth.CapUsers), h.registerAdmin)

		products := admin.Group("/products", h.requireCapability(auth.CapProducts))
		{
			products.POST("", h.createProduct)
			products.PUT("/:id", h.updateProduct)
			products.DELETE("/:id", h.deleteProduct)
			products.PATCH("/:id/stock", h.setProductStock)
		}

		categories := admin.Group("/categories", h.requireCapability(auth.CapCategories))
		{
			categories.GET("", h.listAllCategories)
			categories.POST("", h.createCategory)
			categories.PUT("/:id", h.updateCategory)
			categories.DELETE("/:id", h.deleteCategory)
			categories.PATCH("/:id/visibility", h.setCategoryVisibility)
		}

		orders := admin.Group("/orders", h.requireCapability(auth.CapOrders))
		{
			orders.GET("", h.listOrders)
			orders.GET("/:id", h.getOrder)
			orders.PATCH("/:id/status", h.updateOrderStatus)
			orders.PATCH("/:id/fulfillment", h.updateOrderFulfillment)
			orders.POST("/:id/payments/stk-push", h.adminInitiateSTKPush)
			orders.GET("/:id/payments/status", h.queryPaymentStatus)
			orders.POST("/:id/payments/manual", h.recordManualPayment)
			orders.POST("/:id/payments/cod", h.confirmCashOnDelivery)
		}

		customers := admin.Group("/customers", h.requireCapability(auth.CapCustomers))
		{
			customers.GET("", h.listCustomers)
			customers.GET("/:id", h.getCustomer)
			customers.POST("", h.createCustomer)
			customers.PUT("/:id", h.updateCustomer)
			customers.DELETE("/:id", h.deleteCustomer)
		}

		analytics := admin.Group("/analytics", h.requireCapability(auth.CapAnalytics))
		{
			analytics.GET("/orders", h.orderAnalytics)
			analytics.GET("/customers", h.customerAnalytics)
		}

		requests := admin.Group("/product-requests", h.requireCapability(auth.CapProducts))
		{
			requests.GET("", h.listProductRequests)
			requests.GET("/:id", h.getProductRequest)
			requests.PATCH("/:id/read", h.markProductRequestRead)
			requests.POST("/:id/respond", h.respondProductRequest)
		}
	}
}
