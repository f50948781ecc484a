package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/studyroom-service/internal/models"
	"github.com/SAP-F-2025/studyroom-service/internal/services"
	"github.com/SAP-F-2025/studyroom-service/internal/utils"
)

const pictureField = "picture"

type ProfileHandler struct {
	BaseHandler
	profileService services.ProfileService
}

func NewProfileHandler(profileService services.ProfileService, logger utils.Logger) *ProfileHandler {
	return &ProfileHandler{
		BaseHandler:    NewBaseHandler(logger),
		profileService: profileService,
	}
}

// Profile shows (GET) or edits (POST) the signed-in user's profile
func (h *ProfileHandler) Profile(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}

	if c.Request.Method == http.MethodGet {
		profile, err := h.profileService.Get(c.Request.Context(), identity.UserID)
		if err != nil {
			h.handleServiceError(c, err, pathHome)
			return
		}
		c.JSON(http.StatusOK, SuccessResponse{Data: gin.H{"form": profileForm, "profile": profile}})
		return
	}

	var req services.ProfileUpdateRequest
	if !h.bind(c, &req) {
		return
	}

	var upload *services.Upload
	fileHeader, err := c.FormFile(pictureField)
	switch {
	case err == nil:
		file, err := fileHeader.Open()
		if err != nil {
			h.LogError(c, err, "Failed to open uploaded picture")
			h.fail(c, http.StatusBadRequest, models.FlashDanger, "Could not read the uploaded picture.", pathProfile)
			return
		}
		defer file.Close()
		upload = &services.Upload{Filename: fileHeader.Filename, Content: file}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		h.fail(c, http.StatusBadRequest, models.FlashDanger, "Could not read the uploaded picture.", pathProfile)
		return
	}

	h.LogRequest(c, "Updating profile", "user_id", identity.UserID, "with_picture", upload != nil)

	profile, err := h.profileService.Update(c.Request.Context(), identity.UserID, &req, upload)
	if err != nil {
		h.handleServiceError(c, err, pathProfile)
		return
	}

	h.notify(c, http.StatusOK, models.FlashSuccess, msgProfileUpdated, pathProfile, profile)
}
