package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PapNorbert/WatchWise/internal/domain"
	"github.com/PapNorbert/WatchWise/internal/service"
	"github.com/PapNorbert/WatchWise/pkg/log"
	"github.com/PapNorbert/WatchWise/pkg/response"
)

type HTTPHandler struct {
	chatLogService service.ChatLogService
}

func NewHTTPHandler(chatLogService service.ChatLogService) *HTTPHandler {
	return &HTTPHandler{
		chatLogService: chatLogService,
	}
}

func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		groups := api.Group("/watch-groups/:room_id")
		groups.GET("/messages", h.GetMessages)
		groups.POST("/chat", h.CreateChatLog)
		groups.POST("/archive", h.ArchiveChatLog)
		groups.GET("/archives", h.ListArchives)
	}

	r.GET("/health", h.HealthCheck)
}

// storeError maps chat errors onto the response envelope.
func storeError(c *gin.Context, err error, fallback string) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, domain.ErrMalformedPayload):
		response.BadRequest(c, err.Error())
	case errors.Is(err, domain.ErrRoomNotFound):
		response.NotFound(c, "chat log not found")
	case errors.Is(err, domain.ErrStoreUnavailable):
		response.ServiceUnavailable(c, "chat store unavailable")
	default:
		response.InternalError(c, fallback)
	}
}

func (h *HTTPHandler) GetMessages(c *gin.Context) {
	roomID := c.Param("room_id")

	msgs, err := h.chatLogService.History(c.Request.Context(), roomID)
	if err != nil {
		storeError(c, err, "failed to get chat history")
		return
	}

	response.Success(c, gin.H{
		"room_id":  roomID,
		"messages": msgs,
	})
}

func (h *HTTPHandler) CreateChatLog(c *gin.Context) {
	roomID := c.Param("room_id")

	chatID, err := h.chatLogService.Provision(c.Request.Context(), roomID)
	if err != nil {
		storeError(c, err, "failed to create chat log")
		return
	}

	response.Created(c, gin.H{
		"room_id": roomID,
		"chat_id": chatID,
	})
}

func (h *HTTPHandler) ArchiveChatLog(c *gin.Context) {
	roomID := c.Param("room_id")

	result, err := h.chatLogService.Archive(c.Request.Context(), roomID)
	if err != nil {
		storeError(c, err, "failed to archive chat log")
		return
	}

	response.Created(c, result)
}

func (h *HTTPHandler) ListArchives(c *gin.Context) {
	roomID := c.Param("room_id")

	files, err := h.chatLogService.ListArchives(c.Request.Context(), roomID)
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to list archives")
		storeError(c, err, "failed to list archives")
		return
	}

	response.Success(c, gin.H{
		"room_id":  roomID,
		"archives": files,
	})
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}
