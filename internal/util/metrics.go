package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of failed order creations",
	}, []string{"reason"})

	StockCompensationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_compensations_total",
		Help: "Total number of compensating stock increments after partial reservation",
	})

	PaymentInitiationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_initiations_total",
		Help: "Total number of STK push initiations",
	}, []string{"outcome"})

	PaymentCallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_callbacks_total",
		Help: "Total number of payment provider callbacks received",
	}, []string{"outcome"})

	PaymentCallbackLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_callback_latency_seconds",
		Help:    "Latency of payment callback processing",
		Buckets: prometheus.DefBuckets,
	})

	NotificationsDispatchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_dispatched_total",
		Help: "Total number of notifications dispatched by the worker",
	}, []string{"channel", "outcome"})

	NotificationRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notification_retries_total",
		Help: "Total number of notification delivery retries",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
