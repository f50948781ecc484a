package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/studyroom-service/internal/config"
	"github.com/SAP-F-2025/studyroom-service/internal/realtime"
	"github.com/SAP-F-2025/studyroom-service/internal/services"
	"github.com/SAP-F-2025/studyroom-service/internal/utils"
)

// HandlerConfig holds the HTTP settings the handlers need
type HandlerConfig struct {
	UploadDir     string
	SecureCookies bool
	WebSocket     config.WebSocketConfig
}

// NewHandlerConfig derives the handler settings from the runtime configuration
func NewHandlerConfig(cfg *config.Config) HandlerConfig {
	return HandlerConfig{
		UploadDir:     cfg.UploadDir,
		SecureCookies: cfg.Environment == "production",
		WebSocket:     cfg.WebSocket,
	}
}

type HandlerManager struct {
	mainHandler      *MainHandler
	authHandler      *AuthHandler
	profileHandler   *ProfileHandler
	studyRoomHandler *StudyRoomHandler
	assistantHandler *AssistantHandler
	chatHandler      *ChatHandler
	authMiddleware   *SessionAuthMiddleware
	config           HandlerConfig
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	hub *realtime.Hub,
	origins *realtime.OriginPolicy,
	cfg HandlerConfig,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		mainHandler:      NewMainHandler(serviceManager, logger),
		authHandler:      NewAuthHandler(serviceManager.Auth(), cfg.SecureCookies, logger),
		profileHandler:   NewProfileHandler(serviceManager.Profile(), logger),
		studyRoomHandler: NewStudyRoomHandler(serviceManager.StudyRoom(), logger),
		assistantHandler: NewAssistantHandler(serviceManager.Assistant(), logger),
		chatHandler:      NewChatHandler(serviceManager.Chat(), hub, origins, cfg.WebSocket, logger),
		authMiddleware:   NewSessionAuthMiddleware(serviceManager.Auth(), logger),
		config:           cfg,
	}
}

// SetupRoutes sets up all routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	requireLogin := hm.authMiddleware.AuthMiddleware()

	router.GET("/", hm.authMiddleware.OptionalAuthMiddleware(), hm.mainHandler.Home)
	router.GET("/health", hm.mainHandler.Health)
	router.GET("/dashboard", requireLogin, hm.mainHandler.Dashboard)

	if hm.config.UploadDir != "" {
		router.Static("/static/profile_pics", hm.config.UploadDir)
	}

	// Auth routes
	authGroup := router.Group("/auth")
	{
		authGroup.GET("/register", hm.authHandler.Register)
		authGroup.POST("/register", hm.authHandler.Register)
		authGroup.GET("/login", hm.authHandler.Login)
		authGroup.POST("/login", hm.authHandler.Login)
		authGroup.GET("/logout", requireLogin, hm.authHandler.Logout)

		// both paths serve the same reset request flow
		authGroup.GET("/forgot-password", hm.authHandler.ForgotPassword)
		authGroup.POST("/forgot-password", hm.authHandler.ForgotPassword)
		authGroup.GET("/reset_password", hm.authHandler.ForgotPassword)
		authGroup.POST("/reset_password", hm.authHandler.ForgotPassword)
		authGroup.GET("/reset_password/:token", hm.authHandler.ResetPassword)
		authGroup.POST("/reset_password/:token", hm.authHandler.ResetPassword)

		authGroup.GET("/profile", requireLogin, hm.profileHandler.Profile)
		authGroup.POST("/profile", requireLogin, hm.profileHandler.Profile)

		// Single sign-on, answers "not enabled" when Casdoor is not configured
		authGroup.GET("/casdoor/login", hm.authHandler.CasdoorLogin)
		authGroup.GET("/casdoor/callback", hm.authHandler.CasdoorCallback)
	}

	// Study room routes
	rooms := router.Group("/studyroom")
	rooms.Use(requireLogin)
	{
		rooms.GET("/rooms", hm.studyRoomHandler.ListRooms)
		rooms.GET("/rooms/create", hm.studyRoomHandler.CreateRoom)
		rooms.POST("/rooms/create", hm.studyRoomHandler.CreateRoom)
		rooms.GET("/rooms/:id", hm.studyRoomHandler.GetRoom)
		rooms.GET("/rooms/:id/edit", hm.studyRoomHandler.EditRoom)
		rooms.POST("/rooms/:id/edit", hm.studyRoomHandler.EditRoom)
		rooms.POST("/rooms/:id/delete", hm.studyRoomHandler.DeleteRoom)
		rooms.GET("/rooms/:id/chat", hm.studyRoomHandler.ChatHistory)
		rooms.GET("/rooms/:id/export", hm.studyRoomHandler.ExportTranscript)

		rooms.GET("/assistant", hm.assistantHandler.Ask)
		rooms.POST("/assistant", hm.assistantHandler.Ask)
	}

	// Chat socket
	router.GET("/ws", requireLogin, hm.chatHandler.Connect)
}
