package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backoffice/config"
	"backoffice/internal/api"
	"backoffice/internal/auth"
	"backoffice/internal/broker"
	"backoffice/internal/models"
	"backoffice/internal/mpesa"
	"backoffice/internal/notify"
	"backoffice/internal/redisclient"
	"backoffice/internal/service"
	"backoffice/internal/store"
	"backoffice/internal/util"
	"backoffice/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		panic(err)
	}
	defer util.SyncLogger()
	logger := util.GetLogger()

	tp, err := util.InitTracer("backoffice", cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Warn("tracer init failed, continuing without tracing", zap.Error(err))
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Warn("tracer shutdown failed", zap.Error(err))
			}
		}()
	}

	if err := store.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	st, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer st.Close()

	redis, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("redis connection failed", zap.Error(err))
	}
	defer redis.Close()

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicNotification)
	defer producer.Close()
	publisher := broker.NewEventPublisher(producer)

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)

	gateway := mpesa.NewClient(mpesa.Config{
		ConsumerKey:    cfg.Mpesa.ConsumerKey,
		ConsumerSecret: cfg.Mpesa.ConsumerSecret,
		Passkey:        cfg.Mpesa.Passkey,
		Shortcode:      cfg.Mpesa.Shortcode,
		CallbackURL:    cfg.Mpesa.CallbackURL,
		Environment:    cfg.Mpesa.Environment,
	})

	orderService := service.NewOrderService(st, redis, publisher, logger)
	paymentService := service.NewPaymentService(st, gateway, redis, logger)

	mailer := notify.NewMailer(cfg.Email.Host, cfg.Email.Port, cfg.Email.User, cfg.Email.Password, cfg.Email.From)
	whatsapp := notify.NewWhatsAppSender(
		cfg.WhatsApp.TwilioAccountSID, cfg.WhatsApp.TwilioAuthToken, cfg.WhatsApp.TwilioFromNumber,
		cfg.WhatsApp.BusinessAPIToken, cfg.WhatsApp.BusinessPhoneID, logger)

	consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicNotification, cfg.Kafka.ConsumerGroup)
	defer consumer.Close()

	notifications := worker.NewNotificationWorker(consumer, mailer, whatsapp, st, logger)
	notifications.Start(context.Background())
	defer notifications.Stop()

	seedFirstAdmin(st, logger)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	handler := api.NewHandler(st, orderService, paymentService, tokens, publisher, logger)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}

// seedFirstAdmin bootstraps a super-admin account when the admins table is
// empty, so a fresh deployment can log in. Credentials come from the
// environment and the password is required; nothing is seeded otherwise.
func seedFirstAdmin(st *store.Store, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := st.CountAdmins(ctx)
	if err != nil {
		logger.Warn("could not count admins, skipping seed", zap.Error(err))
		return
	}
	if count > 0 {
		return
	}

	email := os.Getenv("SEED_ADMIN_EMAIL")
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if email == "" || password == "" {
		logger.Warn("no admins exist and SEED_ADMIN_EMAIL/SEED_ADMIN_PASSWORD unset, skipping seed")
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		logger.Error("failed to hash seed password", zap.Error(err))
		return
	}
	admin := &models.Admin{
		Name:         "Administrator",
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleSuperAdmin,
		IsActive:     true,
	}
	if err := st.CreateAdmin(ctx, admin); err != nil {
		logger.Error("failed to seed admin", zap.Error(err))
		return
	}
	logger.Info("seeded initial super-admin", zap.String("email", email))
}
