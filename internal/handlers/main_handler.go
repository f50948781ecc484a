package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/studyroom-service/internal/auth"
	"github.com/SAP-F-2025/studyroom-service/internal/services"
	"github.com/SAP-F-2025/studyroom-service/internal/utils"
)

type MainHandler struct {
	BaseHandler
	serviceManager services.ServiceManager
}

func NewMainHandler(serviceManager services.ServiceManager, logger utils.Logger) *MainHandler {
	return &MainHandler{
		BaseHandler:    NewBaseHandler(logger),
		serviceManager: serviceManager,
	}
}

// Home shows the site counters and, when signed in, who the user is
func (h *MainHandler) Home(c *gin.Context) {
	stats, err := h.serviceManager.StudyRoom().Stats(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err, pathHome)
		return
	}

	data := gin.H{
		"stats":       stats,
		"sso_enabled": h.serviceManager.Auth().SSOEnabled(),
	}
	if identity, ok := auth.GetIdentity(c); ok {
		data["user"] = identity
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: data})
}

func (h *MainHandler) Dashboard(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: fmt.Sprintf(msgWelcome, identity.Username)})
}

func (h *MainHandler) Health(c *gin.Context) {
	status, code := "healthy", http.StatusOK
	if err := h.serviceManager.HealthCheck(c.Request.Context()); err != nil {
		h.LogError(c, err, "Health check failed")
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "studyroom-service",
	})
}
