package handler

import (
	"edu-forum-go/internal/middleware"
	"edu-forum-go/internal/model"
	"edu-forum-go/internal/service"
	"edu-forum-go/pkg/token"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RouterConfig 汇集注册路由所需的全部依赖。
type RouterConfig struct {
	DB                *gorm.DB
	JWTManager        *token.JWTManager
	UserService       service.UserService
	DiscussionService service.DiscussionService
	MessageService    service.MessageService
	AllowOrigins      []string
}

// NewRouter 创建 Gin 引擎并注册全部路由。
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery(), middleware.CORS(cfg.AllowOrigins))

	r.GET("/healthz", NewHealthHandler(cfg.DB).Check)

	userHandler := NewUserHandler(cfg.UserService)
	discussionHandler := NewDiscussionHandler(cfg.DiscussionService)
	messageHandler := NewMessageHandler(cfg.MessageService)

	api := r.Group("/api")
	{
		// 无需认证的路由
		api.POST("/register", userHandler.Register)
		api.POST("/login", userHandler.Login)

		// 需要认证的路由
		authed := api.Group("")
		authed.Use(middleware.AuthMiddleware(cfg.JWTManager, cfg.UserService))
		{
			authed.GET("/me", userHandler.GetProfile)
			authed.POST("/logout", userHandler.Logout)

			authed.GET("/discussions", discussionHandler.List)
			authed.POST("/discussions",
				middleware.RequireRole(model.RoleTeacher, "Only teachers can create discussions"),
				discussionHandler.Create)

			authed.GET("/discussions/:id/messages", messageHandler.List)
			authed.POST("/discussions/:id/messages", messageHandler.Post)
		}
	}
	return r
}
