package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/SAP-F-2025/studyroom-service/internal/config"
	"github.com/SAP-F-2025/studyroom-service/internal/realtime"
	"github.com/SAP-F-2025/studyroom-service/internal/services"
	"github.com/SAP-F-2025/studyroom-service/internal/utils"
)

// Error frame texts
const (
	wsMalformed    = "Malformed event."
	wsRoomRequired = "A room is required."
	wsUnknownEvent = "Unknown event."
	wsInternal     = "Something went wrong."
)

// ChatHandler upgrades signed-in requests to chat sockets
type ChatHandler struct {
	BaseHandler
	hub        *realtime.Hub
	upgrader   websocket.Upgrader
	config     config.WebSocketConfig
	dispatcher *chatDispatcher
}

func NewChatHandler(chatService services.ChatService, hub *realtime.Hub, origins *realtime.OriginPolicy, cfg config.WebSocketConfig, logger utils.Logger) *ChatHandler {
	return &ChatHandler{
		BaseHandler: NewBaseHandler(logger),
		hub:         hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			HandshakeTimeout: cfg.HandshakeTimeout,
			CheckOrigin:      origins.Check,
		},
		config:     cfg,
		dispatcher: &chatDispatcher{chat: chatService, logger: logger},
	}
}

func (h *ChatHandler) Connect(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}

	// the upgrader writes the HTTP error itself
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.GetLogger(c, h.logger).Warn("WebSocket upgrade failed", "error", err)
		return
	}

	client := realtime.NewClient(conn, h.hub, identity, c.ClientIP(), h.config, h.dispatcher)
	if err := h.hub.Attach(client); err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}

	h.LogRequest(c, "Chat socket connected", "client", client.String())
}

// chatDispatcher routes socket events to the chat service. Returned errors
// are shown to the client, so they carry user facing text only.
type chatDispatcher struct {
	chat   services.ChatService
	logger utils.Logger
}

func (d *chatDispatcher) Dispatch(ctx context.Context, c *realtime.Client, event realtime.InboundEvent) error {
	var payload realtime.RoomPayload
	if len(event.Data) > 0 {
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return errors.New(wsMalformed)
		}
	}
	if payload.Room == 0 {
		return errors.New(wsRoomRequired)
	}

	var err error
	switch event.Event {
	case realtime.EventJoin:
		err = d.chat.Join(ctx, c, payload.Room)
	case realtime.EventLeave:
		err = d.chat.Leave(ctx, c, payload.Room)
	case realtime.EventMessage:
		_, err = d.chat.Send(ctx, c.Identity(), payload.Room, payload.Text, services.MessageOrigin{
			ClientAddr: c.Addr(),
			Transport:  "websocket",
		})
	default:
		return errors.New(wsUnknownEvent)
	}

	if err != nil {
		return d.userError(c, err)
	}
	return nil
}

func (d *chatDispatcher) userError(c *realtime.Client, err error) error {
	var validationErrors services.ValidationErrors
	switch {
	case errors.As(err, &validationErrors):
		return errors.New(validationErrors.First())
	case errors.Is(err, services.ErrRoomNotFound):
		return errors.New(msgRoomNotFound)
	case errors.Is(err, services.ErrMessageEmpty):
		return errors.New(msgMessageRequired)
	}

	d.logger.Error("Chat event failed", "error", err, "client", c.String())
	return errors.New(wsInternal)
}
