package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/studyroom-service/internal/models"
	"github.com/SAP-F-2025/studyroom-service/internal/repositories"
	"github.com/SAP-F-2025/studyroom-service/internal/services"
	"github.com/SAP-F-2025/studyroom-service/internal/utils"
)

type StudyRoomHandler struct {
	BaseHandler
	roomService services.StudyRoomService
}

func NewStudyRoomHandler(roomService services.StudyRoomService, logger utils.Logger) *StudyRoomHandler {
	return &StudyRoomHandler{
		BaseHandler: NewBaseHandler(logger),
		roomService: roomService,
	}
}

// ListRooms lists study rooms
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 50, max: 100)"
// @Param q query string false "Search in room names"
// @Param mine query bool false "Only rooms hosted by the current user"
func (h *StudyRoomHandler) ListRooms(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}

	filters := h.parseRoomFilters(c)
	if mine, _ := strconv.ParseBool(c.Query("mine")); mine {
		filters.HostID = &identity.UserID
	}

	rooms, err := h.roomService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err, pathHome)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: rooms})
}

func (h *StudyRoomHandler) CreateRoom(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}

	if c.Request.Method == http.MethodGet {
		c.JSON(http.StatusOK, roomForm)
		return
	}

	var req services.RoomRequest
	if !h.bind(c, &req) {
		return
	}

	room, err := h.roomService.Create(c.Request.Context(), identity, &req)
	if err != nil {
		h.handleServiceError(c, err, pathRoomCreate)
		return
	}

	h.notify(c, http.StatusCreated, models.FlashSuccess, msgRoomCreated, pathRooms, room)
}

func (h *StudyRoomHandler) GetRoom(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	detail, err := h.roomService.Get(c.Request.Context(), identity, id)
	if err != nil {
		h.handleServiceError(c, err, pathRooms)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: detail})
}

// EditRoom returns the room for editing (GET) or applies the edit (POST). Host only.
func (h *StudyRoomHandler) EditRoom(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	if c.Request.Method == http.MethodGet {
		room, err := h.roomService.GetForEdit(c.Request.Context(), identity, id)
		if err != nil {
			h.handleServiceError(c, err, pathRooms)
			return
		}
		c.JSON(http.StatusOK, SuccessResponse{Data: gin.H{"form": roomForm, "room": room}})
		return
	}

	var req services.RoomRequest
	if !h.bind(c, &req) {
		return
	}

	room, err := h.roomService.Update(c.Request.Context(), identity, id, &req)
	if err != nil {
		h.handleServiceError(c, err, roomPath(id)+"/edit")
		return
	}

	h.notify(c, http.StatusOK, models.FlashSuccess, msgRoomUpdated, roomPath(id), room)
}

func (h *StudyRoomHandler) DeleteRoom(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	if err := h.roomService.Delete(c.Request.Context(), identity, id); err != nil {
		h.handleServiceError(c, err, pathRooms)
		return
	}

	h.notify(c, http.StatusOK, models.FlashInfo, msgRoomDeleted, pathRooms, nil)
}

// ChatHistory returns the room with its messages, oldest first
// @Param after query int false "Only messages after this message id"
// @Param before query int false "Only messages before this message id"
// @Param limit query int false "Page size when paging"
func (h *StudyRoomHandler) ChatHistory(c *gin.Context) {
	if _, ok := h.identity(c); !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	history, err := h.roomService.ChatHistory(c.Request.Context(), id, h.parseHistoryQuery(c))
	if err != nil {
		h.handleServiceError(c, err, pathRooms)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: history})
}

// ExportTranscript downloads the room chat as a spreadsheet
func (h *StudyRoomHandler) ExportTranscript(c *gin.Context) {
	if _, ok := h.identity(c); !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	transcript, err := h.roomService.ExportTranscript(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err, roomPath(id))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", transcript.FileName))
	c.Data(http.StatusOK, transcript.ContentType, transcript.Data)
}

func (h *StudyRoomHandler) parseRoomFilters(c *gin.Context) repositories.RoomFilters {
	page := 1
	size := 50

	if pageStr := c.Query("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	if sizeStr := c.Query("size"); sizeStr != "" {
		if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
			size = s
		}
	}

	return repositories.RoomFilters{
		Search: c.Query("q"),
		Limit:  size,
		Offset: (page - 1) * size,
	}
}

func (h *StudyRoomHandler) parseHistoryQuery(c *gin.Context) services.HistoryQuery {
	var query services.HistoryQuery

	if v, err := strconv.ParseUint(c.Query("after"), 10, 64); err == nil {
		query.AfterID = uint(v)
	}
	if v, err := strconv.ParseUint(c.Query("before"), 10, 64); err == nil {
		query.BeforeID = uint(v)
	}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		query.Limit = v
	}

	return query
}
