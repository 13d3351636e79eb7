package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"backoffice/internal/models"
	"backoffice/internal/mpesa"
	"backoffice/internal/store"
	"backoffice/internal/util"

	"go.uber.org/zap"
)

// PaymentStore is the persistence surface the payment service depends on
type PaymentStore interface {
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrderByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*models.Order, error)
	SetCheckoutRequest(ctx context.Context, orderID int64, checkoutRequestID, phone string) error
	ApplyPaymentUpdate(ctx context.Context, orderID int64, u store.PaymentUpdate) error
}

// PaymentGateway is the provider surface: push initiation and status query
type PaymentGateway interface {
	InitiateSTKPush(ctx context.Context, phoneNumber string, amount float64, accountReference, transactionDesc string) (*mpesa.STKPushResponse, error)
	QuerySTKStatus(ctx context.Context, checkoutRequestID string) (*mpesa.STKQueryResponse, error)
}

// CallbackLocker serializes concurrent callback deliveries for one push
type CallbackLocker interface {
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
}

// PaymentService drives the payment lifecycle: STK push initiation, the
// asynchronous callback reconciliation, and the manual payment paths.
type PaymentService struct {
	store   PaymentStore
	gateway PaymentGateway
	locker  CallbackLocker
	logger  *zap.Logger
}

// NewPaymentService creates a payment service. locker may be nil; callback
// serialization is then skipped.
func NewPaymentService(st PaymentStore, gw PaymentGateway, locker CallbackLocker, logger *zap.Logger) *PaymentService {
	return &PaymentService{store: st, gateway: gw, locker: locker, logger: logger}
}

// InitiateSTKPush sends a push payment prompt for an order. Refused when the
// order is already paid.
func (s *PaymentService) InitiateSTKPush(ctx context.Context, orderID int64, phoneNumber string) (*mpesa.STKPushResponse, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.InitiateSTKPush")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, err
	}
	if order.PaymentStatus == models.PaymentStatusCompleted {
		return nil, fmt.Errorf("%w: order %s", ErrAlreadyPaid, order.OrderNumber)
	}

	phone := phoneNumber
	if phone == "" {
		phone = order.CustomerPhone
	}

	resp, err := s.gateway.InitiateSTKPush(ctx, phone, order.Total,
		order.OrderNumber, "Payment for order "+order.OrderNumber)
	if err != nil {
		util.PaymentInitiationsTotal.WithLabelValues("error").Inc()
		s.logger.Error("stk push initiation failed",
			zap.Int64("order_id", orderID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	util.PaymentInitiationsTotal.WithLabelValues("accepted").Inc()

	if err := s.store.SetCheckoutRequest(ctx, orderID, resp.CheckoutRequestID, mpesa.FormatPhone(phone)); err != nil {
		return nil, err
	}

	s.logger.Info("stk push initiated",
		zap.Int64("order_id", orderID),
		zap.String("order_number", order.OrderNumber),
		zap.String("checkout_request_id", resp.CheckoutRequestID))
	return resp, nil
}

// HandleCallback reconciles a provider callback into the order's payment
// state. The returned acknowledgment is always success; anything else makes
// the provider retry against an already-settled order.
//
// Transition rules: completed is terminal; a failure callback never
// downgrades a completed payment; a success callback after a recorded
// failure still completes the payment.
func (s *PaymentService) HandleCallback(ctx context.Context, cb *mpesa.STKCallback) mpesa.CallbackAck {
	ctx, span := util.StartSpan(ctx, "PaymentService.HandleCallback")
	defer span.End()

	started := time.Now()
	defer func() {
		util.PaymentCallbackLatency.Observe(time.Since(started).Seconds())
	}()

	if cb.CheckoutRequestID == "" {
		util.PaymentCallbacksTotal.WithLabelValues("malformed").Inc()
		s.logger.Warn("callback without CheckoutRequestID ignored")
		return mpesa.AckSuccess()
	}

	if s.locker != nil {
		acquired, err := s.locker.AcquireLock(ctx, "callback:"+cb.CheckoutRequestID, 30*time.Second)
		if err != nil {
			s.logger.Warn("callback lock unavailable, proceeding unlocked",
				zap.String("checkout_request_id", cb.CheckoutRequestID), zap.Error(err))
		} else if !acquired {
			// A concurrent delivery of the same callback is in flight
			util.PaymentCallbacksTotal.WithLabelValues("duplicate").Inc()
			return mpesa.AckSuccess()
		} else {
			defer func() {
				if err := s.locker.ReleaseLock(ctx, "callback:"+cb.CheckoutRequestID); err != nil {
					s.logger.Warn("failed to release callback lock", zap.Error(err))
				}
			}()
		}
	}

	order, err := s.store.GetOrderByCheckoutRequestID(ctx, cb.CheckoutRequestID)
	if err != nil {
		// Unmatched callbacks are logged and acknowledged so the provider
		// stops retrying something we cannot correlate.
		util.PaymentCallbacksTotal.WithLabelValues("unmatched").Inc()
		s.logger.Warn("callback for unknown checkout request",
			zap.String("checkout_request_id", cb.CheckoutRequestID),
			zap.Int("result_code", cb.ResultCode))
		return mpesa.AckSuccess()
	}

	if order.PaymentStatus == models.PaymentStatusCompleted {
		util.PaymentCallbacksTotal.WithLabelValues("duplicate").Inc()
		s.logger.Info("callback for already-completed payment ignored",
			zap.Int64("order_id", order.ID),
			zap.String("checkout_request_id", cb.CheckoutRequestID))
		return mpesa.AckSuccess()
	}

	if cb.ResultCode == 0 {
		s.applySuccess(ctx, order, cb)
	} else {
		s.applyFailure(ctx, order, cb)
	}
	return mpesa.AckSuccess()
}

func (s *PaymentService) applySuccess(ctx context.Context, order *models.Order, cb *mpesa.STKCallback) {
	meta := cb.MetadataMap()

	update := store.PaymentUpdate{
		PaymentStatus: models.PaymentStatusCompleted,
		TransactionID: cb.CheckoutRequestID,
	}
	if order.OrderStatus == models.OrderStatusPending {
		update.OrderStatus = models.OrderStatusProcessing
		update.Note = "Payment received via M-Pesa"
	}

	if receipt, ok := meta["MpesaReceiptNumber"].(string); ok {
		update.MpesaReceipt = receipt
	}
	if amount, ok := meta["Amount"].(float64); ok {
		update.PaidAmount = amount
	}
	if phone, ok := metadataString(meta["PhoneNumber"]); ok {
		update.MpesaPhone = phone
	}
	if dateStr, ok := metadataString(meta["TransactionDate"]); ok {
		if t, err := time.ParseInLocation("20060102150405", dateStr, time.Local); err == nil {
			update.PaymentDate = t
		}
	}
	if update.PaymentDate.IsZero() {
		update.PaymentDate = time.Now()
	}

	if err := s.store.ApplyPaymentUpdate(ctx, order.ID, update); err != nil {
		util.PaymentCallbacksTotal.WithLabelValues("error").Inc()
		s.logger.Error("failed to apply payment success",
			zap.Int64("order_id", order.ID), zap.Error(err))
		return
	}
	util.PaymentCallbacksTotal.WithLabelValues("success").Inc()
	s.logger.Info("payment completed",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("receipt", update.MpesaReceipt),
		zap.Float64("amount", update.PaidAmount))
}

func (s *PaymentService) applyFailure(ctx context.Context, order *models.Order, cb *mpesa.STKCallback) {
	update := store.PaymentUpdate{
		PaymentStatus: models.PaymentStatusFailed,
		Note:          fmt.Sprintf("Payment failed: %s", cb.ResultDesc),
	}
	if err := s.store.ApplyPaymentUpdate(ctx, order.ID, update); err != nil {
		util.PaymentCallbacksTotal.WithLabelValues("error").Inc()
		s.logger.Error("failed to apply payment failure",
			zap.Int64("order_id", order.ID), zap.Error(err))
		return
	}
	util.PaymentCallbacksTotal.WithLabelValues("failed").Inc()
	s.logger.Info("payment failed",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Int("result_code", cb.ResultCode),
		zap.String("result_desc", cb.ResultDesc))
}

// QueryStatus asks the provider for the state of an earlier push
func (s *PaymentService) QueryStatus(ctx context.Context, orderID int64) (*mpesa.STKQueryResponse, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, err
	}
	if order.CheckoutRequestID == "" {
		return nil, fmt.Errorf("%w: order %s has no pending push", ErrValidation, order.OrderNumber)
	}

	resp, err := s.gateway.QuerySTKStatus(ctx, order.CheckoutRequestID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return resp, nil
}

// RecordManualPayment records an out-of-band paybill payment that an operator
// verified against the statement. Same terminal-state rule as the callback.
func (s *PaymentService) RecordManualPayment(ctx context.Context, orderID int64, receipt, phone string, amount float64) (*models.Order, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, err
	}
	if order.PaymentStatus == models.PaymentStatusCompleted {
		return nil, fmt.Errorf("%w: order %s", ErrAlreadyPaid, order.OrderNumber)
	}
	if receipt == "" {
		return nil, fmt.Errorf("%w: receipt number is required", ErrValidation)
	}

	update := store.PaymentUpdate{
		PaymentStatus: models.PaymentStatusCompleted,
		MpesaReceipt:  receipt,
		MpesaPhone:    mpesa.FormatPhone(phone),
		PaidAmount:    amount,
		PaymentDate:   time.Now(),
	}
	if order.OrderStatus == models.OrderStatusPending {
		update.OrderStatus = models.OrderStatusProcessing
		update.Note = "Manual paybill payment recorded"
	}

	if err := s.store.ApplyPaymentUpdate(ctx, orderID, update); err != nil {
		return nil, err
	}
	return s.store.GetOrderByID(ctx, orderID)
}

// ConfirmCashOnDelivery marks a cash-on-delivery order paid at handover
func (s *PaymentService) ConfirmCashOnDelivery(ctx context.Context, orderID int64, amount float64) (*models.Order, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, err
	}
	if order.PaymentMethod != models.PaymentMethodCOD {
		return nil, fmt.Errorf("%w: order %s is not cash on delivery", ErrValidation, order.OrderNumber)
	}
	if order.PaymentStatus == models.PaymentStatusCompleted {
		return nil, fmt.Errorf("%w: order %s", ErrAlreadyPaid, order.OrderNumber)
	}

	if amount <= 0 {
		amount = order.Total
	}
	if err := s.store.ApplyPaymentUpdate(ctx, orderID, store.PaymentUpdate{
		PaymentStatus: models.PaymentStatusCompleted,
		PaidAmount:    amount,
		PaymentDate:   time.Now(),
		Note:          "Cash collected on delivery",
	}); err != nil {
		return nil, err
	}
	return s.store.GetOrderByID(ctx, orderID)
}

func metadataString(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return fmt.Sprintf("%.0f", t), true
	default:
		return "", false
	}
}
