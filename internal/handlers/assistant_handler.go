package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/studyroom-service/internal/services"
	"github.com/SAP-F-2025/studyroom-service/internal/utils"
	"github.com/SAP-F-2025/studyroom-service/internal/validator"
)

type AssistantHandler struct {
	BaseHandler
	assistantService services.AssistantService
}

func NewAssistantHandler(assistantService services.AssistantService, logger utils.Logger) *AssistantHandler {
	return &AssistantHandler{
		BaseHandler:      NewBaseHandler(logger),
		assistantService: assistantService,
	}
}

func (h *AssistantHandler) Ask(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}

	if c.Request.Method == http.MethodGet {
		c.JSON(http.StatusOK, assistantForm)
		return
	}

	var req validator.AssistantRequest
	if !h.bind(c, &req) {
		return
	}

	reply, err := h.assistantService.Ask(c.Request.Context(), identity, req.Message)
	if err != nil {
		h.handleServiceError(c, err, pathAssistant)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: reply})
}
