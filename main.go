package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"messaging-service/internal/auth"
	"messaging-service/internal/config"
	"messaging-service/internal/db"
	"messaging-service/internal/handlers"
	"messaging-service/internal/middleware"
	"messaging-service/internal/observability"
	"messaging-service/internal/rabbitmq"
	"messaging-service/internal/repositories"
	"messaging-service/internal/service"
	"messaging-service/internal/telemetry"
	"messaging-service/internal/ws"
)

const serviceName = "messaging-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	shutdownTracing, err := telemetry.SetupTracing(context.Background(), serviceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	auditPublisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer auditPublisher.Close()
	emitter := telemetry.NewAuditEmitter(auditPublisher, "audit_log.messaging", serviceName, cfg.Env)

	if cfg.AMQPURL != "" {
		eventPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Printf("event publisher disabled: %v", err)
		} else {
			observability.SetPublisher(eventPublisher)
			defer eventPublisher.Close()
		}
	}

	userRepo := repositories.NewUserRepo(database)
	chatRepo := repositories.NewChatRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	hub := ws.NewHub(userRepo, cfg.WriteTimeout)

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL)
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)
	authSvc := auth.NewService(userRepo, tokens, hasher)

	messageSvc := service.NewMessageService(chatRepo, messageRepo, hub)
	chatSvc := service.NewChatService(chatRepo, messageRepo, userRepo)

	authHandler := handlers.NewAuthHandler(authSvc, emitter)
	chatHandler := handlers.NewChatHandler(chatSvc, messageSvc)
	messageHandler := handlers.NewMessageHandler(messageSvc)
	userHandler := handlers.NewUserHandler(userRepo, hub, emitter)
	socketHandler := ws.NewSocketHandler(hub, tokens, messageSvc)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(tokens)

	api := router.Group("/api")
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.GET("/auth/me", authMiddleware, authHandler.Me)

	api.GET("/chats", authMiddleware, chatHandler.ListChats)
	api.POST("/chats", authMiddleware, chatHandler.StartChat)
	api.GET("/chats/:chat_id/messages", authMiddleware, chatHandler.GetChatMessages)
	api.POST("/chats/:chat_id/messages", authMiddleware, chatHandler.PostChatMessage)

	api.POST("/messages/:message_id/read", authMiddleware, messageHandler.MarkRead)
	api.POST("/messages/status", authMiddleware, messageHandler.BulkUpdateStatus)

	api.PUT("/users/me/status", authMiddleware, userHandler.UpdateStatus)
	api.GET("/users/search", authMiddleware, userHandler.SearchUsers)

	router.GET("/ws", socketHandler.Handle)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterDebugRoutes(router, emitter, cfg.DebugRoutes)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
