package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/studyroom-service/internal/models"
	"github.com/SAP-F-2025/studyroom-service/internal/services"
)

// CasdoorLogin sends the browser to the Casdoor sign-in page
func (h *AuthHandler) CasdoorLogin(c *gin.Context) {
	if !h.authService.SSOEnabled() {
		h.handleServiceError(c, services.ErrSSODisabled, pathLogin)
		return
	}
	c.Redirect(http.StatusFound, h.authService.SSOSigninURL())
}

// CasdoorCallback finishes the authorization code flow and starts a session
func (h *AuthHandler) CasdoorCallback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		h.fail(c, http.StatusBadRequest, models.FlashDanger, msgSSOFailed, pathLogin)
		return
	}

	result, err := h.authService.LoginWithSSO(c.Request.Context(), code, c.Query("state"))
	if err != nil {
		h.handleServiceError(c, err, pathLogin)
		return
	}

	h.LogRequest(c, "Single sign-on login", "user_id", result.Identity.UserID)
	h.setSession(c, result)
	h.notify(c, http.StatusOK, models.FlashSuccess, msgLoggedIn, pathHome, result.Identity)
}
