package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/studyroom-service/internal/auth"
	"github.com/SAP-F-2025/studyroom-service/internal/models"
	"github.com/SAP-F-2025/studyroom-service/internal/services"
	"github.com/SAP-F-2025/studyroom-service/internal/utils"
)

type (
	ErrorResponse   = models.ErrorResponse
	SuccessResponse = models.SuccessResponse
)

// Redirect targets carried by notices
const (
	pathHome          = "/"
	pathLogin         = "/auth/login"
	pathRegister      = "/auth/register"
	pathForgot        = "/auth/forgot-password"
	pathProfile       = "/auth/profile"
	pathRooms         = "/studyroom/rooms"
	pathRoomCreate    = "/studyroom/rooms/create"
	pathAssistant     = "/studyroom/assistant"
	sessionCookieName = "session"
)

func roomPath(id uint) string {
	return fmt.Sprintf("%s/%d", pathRooms, id)
}

// BaseHandler carries what every handler shares
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.GetLogger(c, h.logger).Debug(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	utils.GetLogger(c, h.logger).Error(msg, append(args, "error", err)...)
}

// notify writes a flash style notice
func (h *BaseHandler) notify(c *gin.Context, status int, category, message, redirect string, data interface{}) {
	c.JSON(status, SuccessResponse{
		Message:  message,
		Category: category,
		Redirect: redirect,
		Data:     data,
	})
}

func (h *BaseHandler) fail(c *gin.Context, status int, category, message, redirect string) {
	c.JSON(status, ErrorResponse{
		Message:  message,
		Category: category,
		Redirect: redirect,
	})
}

// bind decodes a form, multipart or JSON body depending on the content type
func (h *BaseHandler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBind(req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message:  "Invalid request payload",
			Category: models.FlashDanger,
			Details:  err.Error(),
		})
		return false
	}
	return true
}

// identity returns the user set by the session gate
func (h *BaseHandler) identity(c *gin.Context) (auth.Identity, bool) {
	id, ok := auth.GetIdentity(c)
	if !ok {
		h.fail(c, http.StatusUnauthorized, models.FlashInfo, msgLoginRequired, pathLogin)
		return auth.Identity{}, false
	}
	return *id, true
}

func (h *BaseHandler) parseIDParam(c *gin.Context, param string) uint {
	idStr := c.Param(param)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message:  "Not found",
			Category: models.FlashDanger,
			Redirect: pathRooms,
			Details:  "invalid " + param,
		})
		return 0
	}
	return uint(id)
}

// handleServiceError turns a service failure into a notice. redirect is where
// validation failures send the user back to.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error, redirect string) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message:  validationErrors.First(),
			Category: models.FlashDanger,
			Redirect: redirect,
			Details:  validationErrors,
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		message := msgNoEditPermission
		if permissionError.Action == "delete" {
			message = msgNoDeletePermission
		}
		h.fail(c, http.StatusForbidden, models.FlashDanger, message, pathRooms)
		return
	}

	switch {
	case errors.Is(err, services.ErrEmailTaken):
		h.fail(c, http.StatusConflict, models.FlashDanger, msgEmailTaken, pathRegister)
	case errors.Is(err, services.ErrUsernameTaken):
		h.fail(c, http.StatusConflict, models.FlashDanger, msgUsernameTaken, redirect)
	case errors.Is(err, services.ErrInvalidCredentials):
		h.fail(c, http.StatusUnauthorized, models.FlashDanger, msgInvalidCredentials, pathLogin)
	case errors.Is(err, services.ErrUnauthorized):
		h.fail(c, http.StatusUnauthorized, models.FlashInfo, msgLoginRequired, pathLogin)
	case errors.Is(err, services.ErrInvalidResetToken):
		h.fail(c, http.StatusBadRequest, models.FlashDanger, msgInvalidToken, pathForgot)
	case errors.Is(err, services.ErrRoomNotFound):
		h.fail(c, http.StatusNotFound, models.FlashDanger, msgRoomNotFound, pathRooms)
	case errors.Is(err, services.ErrUserNotFound):
		h.fail(c, http.StatusNotFound, models.FlashDanger, msgUserNotFound, pathHome)
	case errors.Is(err, services.ErrMessageEmpty):
		h.fail(c, http.StatusBadRequest, models.FlashWarning, msgMessageRequired, redirect)
	case errors.Is(err, services.ErrAssistantUnavailable):
		h.fail(c, http.StatusServiceUnavailable, models.FlashWarning, msgAssistantUnavailable, pathAssistant)
	case errors.Is(err, services.ErrSSODisabled):
		h.fail(c, http.StatusNotFound, models.FlashInfo, msgSSODisabled, pathLogin)
	case errors.Is(err, services.ErrSSOFailed):
		h.fail(c, http.StatusUnauthorized, models.FlashDanger, msgSSOFailed, pathLogin)
	default:
		h.LogError(c, err, "Unhandled service error")
		h.fail(c, http.StatusInternalServerError, models.FlashDanger, msgInternal, redirect)
	}
}
