package handler

import (
	"edu-forum-go/internal/middleware"
	"edu-forum-go/internal/service"
	"edu-forum-go/pkg/log"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// DiscussionHandler 处理讨论的列表与创建。
type DiscussionHandler struct {
	discussionService service.DiscussionService
}

// NewDiscussionHandler 创建一个新的 DiscussionHandler 实例。
func NewDiscussionHandler(discussionService service.DiscussionService) *DiscussionHandler {
	return &DiscussionHandler{discussionService: discussionService}
}

// CreateDiscussionRequest 定义了创建讨论的请求体结构。
type CreateDiscussionRequest struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// List 返回全部讨论。
func (h *DiscussionHandler) List(c *gin.Context) {
	discussions, err := h.discussionService.List()
	if err != nil {
		log.Errorf("ListDiscussions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list discussions"})
		return
	}
	c.JSON(http.StatusOK, discussions)
}

// Create 创建一个新的讨论，仅教师可用。
func (h *DiscussionHandler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return
	}

	var req CreateDiscussionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and content are required"})
		return
	}

	if _, err := h.discussionService.Create(user, req.Title, req.Content); err != nil {
		if errors.Is(err, service.ErrNotTeacher) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Only teachers can create discussions"})
			return
		}
		log.Errorf("CreateDiscussion: userID: %d, error: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create discussion"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Discussion created successfully"})
}
