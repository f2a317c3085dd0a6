package main

import (
	"log"
	"strings"

	"marketplace-order-service/config"
	"marketplace-order-service/controllers"
	"marketplace-order-service/database"
	"marketplace-order-service/kafka"
	"marketplace-order-service/logger"
	"marketplace-order-service/repository"
	"marketplace-order-service/routes"
	"marketplace-order-service/sender"
	"marketplace-order-service/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[OrderPipeline] No .env file found, using system environment")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("[OrderPipeline] Failed to load config:", err)
	}

	logger.Initialize(cfg.Env)
	defer logger.Log.Sync()

	if err := database.Connect(cfg); err != nil {
		log.Fatal("[OrderPipeline] Failed to connect to DB:", err)
	}
	if err := database.Migrate(database.DB); err != nil {
		log.Fatal("[OrderPipeline] Failed to migrate models:", err)
	}

	orderRepo := repository.NewGormOrderRepository(database.DB)
	failedEventRepo := repository.NewGormFailedEventRepo(database.DB)
	notificationRepo := repository.NewGormNotificationRepo(database.DB)

	var producer *kafka.Producer
	var publisher services.OrderEventPublisher
	if cfg.KafkaBrokers != "" {
		producer = kafka.NewProducer(strings.Split(cfg.KafkaBrokers, ","), cfg.OrderEventTopic)
		defer producer.Close()
		publisher = producer
	}

	var emailSender sender.EmailSender
	if cfg.SMTPHost != "" {
		smtpSender, err := sender.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.EmailFrom)
		if err != nil {
			logger.Log.Warn("Email sender disabled", zap.Error(err))
		} else {
			emailSender = smtpSender
		}
	}

	gateway := services.NewGatewayService(cfg.StripeWebhookKey)
	recorder := services.NewFailureRecorder(failedEventRepo, logger.Log)
	materializer := services.NewOrderMaterializer(orderRepo, recorder, logger.Log)
	lifecycle := services.NewLifecycleService(orderRepo, publisher, logger.Log)
	fanout := services.NewNotificationFanout(notificationRepo, emailSender, publisher, logger.Log)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestLogger())

	routes.RegisterRoutes(r,
		&controllers.PaymentEventController{
			Gateway:      gateway,
			Materializer: materializer,
			Lifecycle:    lifecycle,
			Fanout:       fanout,
			Recorder:     recorder,
			Logger:       logger.Log,
		},
		&controllers.OrderController{Repo: orderRepo, Logger: logger.Log},
		&controllers.NotificationController{Repo: notificationRepo, Logger: logger.Log},
	)

	logger.Log.Info("Order pipeline running", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("[OrderPipeline] Server failed:", err)
	}
}
