package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/PapNorbert/WatchWise/internal/config"
	"github.com/PapNorbert/WatchWise/internal/domain"
	"github.com/PapNorbert/WatchWise/internal/hub"
	"github.com/PapNorbert/WatchWise/internal/service"
	"github.com/PapNorbert/WatchWise/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSHandler struct {
	hub     *hub.Hub
	service service.ChatService
	wsCfg   config.WebSocketConfig
}

func NewWSHandler(h *hub.Hub, svc service.ChatService, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:     h,
		service: svc,
		wsCfg:   wsCfg,
	}
}

func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l := log.L()
		l.Warn().Err(err).Str(log.FieldClientIP, r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	// The request context ends once this handler returns.
	client := hub.NewClient(context.Background(), uuid.New().String(), h.hub, conn, h.wsCfg)

	h.hub.Register(client)
	l := log.Ctx(client.Context())
	l.Info().Str(log.FieldClientIP, r.RemoteAddr).Msg("websocket connected")

	go client.WritePump()
	go client.ReadPump(h.handleMessage, h.handleDisconnect)
}

func (h *WSHandler) handleDisconnect(client *hub.Client) {
	ctx := client.Context()
	if err := h.service.HandleDisconnect(ctx, client); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("disconnect cleanup failed")
	}
}

func (h *WSHandler) handleMessage(client *hub.Client, message []byte) {
	var base domain.BaseMessage
	if err := json.Unmarshal(message, &base); err != nil {
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid message format"))
		return
	}

	ctx := client.Context()
	l := log.Ctx(ctx)

	switch base.Type {
	case domain.MsgTypeJoinRoom:
		var msg domain.JoinRoomMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid join_room message"))
			return
		}
		if err := h.service.HandleJoinRoom(ctx, client, msg.RoomID); err != nil {
			l.Debug().Err(err).Str(log.FieldRoomID, msg.RoomID).Msg("join room failed")
		}

	case domain.MsgTypeSendMessage:
		var msg domain.SendMessageWS
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid send_message"))
			return
		}
		if err := h.service.HandleSendMessage(ctx, client, msg.SendPayload); err != nil {
			l.Debug().Err(err).Str(log.FieldRoomID, msg.RoomID).Msg("send message failed")
		}

	case domain.MsgTypeLeaveRoom:
		var msg domain.LeaveRoomMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid leave_room message"))
			return
		}
		if err := h.service.HandleLeaveRoom(ctx, client, msg.RoomID); err != nil {
			l.Debug().Err(err).Str(log.FieldRoomID, msg.RoomID).Msg("leave room failed")
		}

	case domain.MsgTypePing:
		client.SendMessage(&domain.PongMessage{Type: domain.MsgTypePong})

	default:
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Unknown message type"))
	}
}

func (h *WSHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/chat/ws", gin.WrapF(h.HandleWebSocket))
}
