package handler

import (
	"edu-forum-go/internal/middleware"
	"edu-forum-go/internal/service"
	"edu-forum-go/pkg/log"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// MessageHandler 处理讨论中的消息读写。
type MessageHandler struct {
	messageService service.MessageService
}

// NewMessageHandler 创建一个新的 MessageHandler 实例。
func NewMessageHandler(messageService service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// PostMessageRequest 定义了发布消息的请求体结构。
type PostMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

func discussionIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid discussion id"})
		return 0, false
	}
	return uint(id), true
}

// List 按时间顺序返回讨论中的全部消息。
func (h *MessageHandler) List(c *gin.Context) {
	discussionID, ok := discussionIDParam(c)
	if !ok {
		return
	}
	messages, err := h.messageService.List(c.Request.Context(), discussionID)
	if err != nil {
		h.writeError(c, discussionID, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// Post 在讨论中发布一条消息，内容包含触发词时同步生成机器人回复。
func (h *MessageHandler) Post(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}
	discussionID, ok := discussionIDParam(c)
	if !ok {
		return
	}
	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	result, err := h.messageService.Post(c.Request.Context(), discussionID, user, req.Content)
	if err != nil {
		h.writeError(c, discussionID, err)
		return
	}
	log.Infof("PostMessage: discussionID: %d, userID: %d, state: %s, fallback: %t", discussionID, user.ID, result.State, result.Fallback)
	c.JSON(http.StatusCreated, gin.H{"message": "Message created successfully"})
}

func (h *MessageHandler) writeError(c *gin.Context, discussionID uint, err error) {
	if errors.Is(err, service.ErrDiscussionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Discussion not found"})
		return
	}
	log.Errorf("MessageHandler: discussionID: %d, error: %v", discussionID, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
