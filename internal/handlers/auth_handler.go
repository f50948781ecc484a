package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/studyroom-service/internal/models"
	"github.com/SAP-F-2025/studyroom-service/internal/services"
	"github.com/SAP-F-2025/studyroom-service/internal/utils"
)

type AuthHandler struct {
	BaseHandler
	authService   services.AuthService
	secureCookies bool
}

func NewAuthHandler(authService services.AuthService, secureCookies bool, logger utils.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler:   NewBaseHandler(logger),
		authService:   authService,
		secureCookies: secureCookies,
	}
}

// Register creates an account and signs it in
func (h *AuthHandler) Register(c *gin.Context) {
	if c.Request.Method == http.MethodGet {
		c.JSON(http.StatusOK, registerForm)
		return
	}

	var req services.RegisterRequest
	if !h.bind(c, &req) {
		return
	}

	h.LogRequest(c, "Registering user")

	result, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err, pathRegister)
		return
	}

	h.setSession(c, result)
	h.notify(c, http.StatusCreated, models.FlashSuccess, msgRegistered, pathHome, result.Identity)
}

func (h *AuthHandler) Login(c *gin.Context) {
	if c.Request.Method == http.MethodGet {
		c.JSON(http.StatusOK, loginForm)
		return
	}

	var req services.LoginRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err, pathLogin)
		return
	}

	h.setSession(c, result)
	h.notify(c, http.StatusOK, models.FlashSuccess, msgLoggedIn, pathHome, result.Identity)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if sessionID := c.GetString("session_id"); sessionID != "" {
		if err := h.authService.Logout(c.Request.Context(), sessionID); err != nil {
			h.LogError(c, err, "Failed to end session")
		}
	}

	h.clearSession(c)
	h.notify(c, http.StatusOK, models.FlashInfo, msgLoggedOut, pathLogin, nil)
}

// ForgotPassword queues a reset link. The answer is the same whether or not the address is known.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	if c.Request.Method == http.MethodGet {
		c.JSON(http.StatusOK, forgotPasswordForm)
		return
	}

	var req services.ForgotPasswordRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.authService.RequestPasswordReset(c.Request.Context(), &req); err != nil {
		h.handleServiceError(c, err, pathForgot)
		return
	}

	h.notify(c, http.StatusOK, models.FlashInfo, msgResetSent, pathLogin, nil)
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	token := c.Param("token")

	if c.Request.Method == http.MethodGet {
		if _, err := h.authService.VerifyResetToken(c.Request.Context(), token); err != nil {
			h.handleServiceError(c, err, pathForgot)
			return
		}
		c.JSON(http.StatusOK, resetPasswordForm)
		return
	}

	var req services.ResetPasswordRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), token, &req); err != nil {
		h.handleServiceError(c, err, c.Request.URL.Path)
		return
	}

	h.notify(c, http.StatusOK, models.FlashSuccess, msgPasswordUpdated, pathLogin, nil)
}

func (h *AuthHandler) setSession(c *gin.Context, result *services.AuthResult) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookieName, result.SessionID, int(result.ExpiresIn/time.Second), "/", "", h.secureCookies, true)
}

func (h *AuthHandler) clearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookieName, "", -1, "/", "", h.secureCookies, true)
}
