// Package main 是应用程序的入口点。
package main

import (
	"context"
	"edu-forum-go/internal/config"
	"edu-forum-go/internal/handler"
	"edu-forum-go/internal/model"
	"edu-forum-go/internal/pipeline"
	"edu-forum-go/internal/repository"
	"edu-forum-go/internal/service"
	"edu-forum-go/pkg/database"
	"edu-forum-go/pkg/kafka"
	"edu-forum-go/pkg/llm"
	"edu-forum-go/pkg/log"
	"edu-forum-go/pkg/token"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// 0. 读取 .env（不存在时忽略），使 OPENAI_API_KEY 等变量对配置层可见
	_ = godotenv.Load()

	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库和 Redis，并自动建表
	database.Init(cfg.Database, model.All()...)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)

	// 4. 初始化 Repository
	userRepo := repository.NewUserRepository(database.DB)
	discussionRepo := repository.NewDiscussionRepository(database.DB)
	messageRepo := repository.NewMessageRepository(database.DB)
	tokenRepo := repository.NewTokenRepository(database.RDB)

	// 5. 补全客户端只在启动时构建一次
	if cfg.LLM.APIKey == "" {
		log.Warnf("未配置 OPENAI_API_KEY，机器人回复将全部使用固定文本")
	}
	llmClient := llm.NewClient(cfg.LLM)
	bot := pipeline.NewBotResponder(llmClient, cfg.Bot, cfg.LLM.Generation)

	// 6. 消息事件，仅在配置了 broker 时启用
	var publisher service.EventPublisher
	var producer *kafka.Producer
	if cfg.Kafka.Brokers != "" {
		producer = kafka.NewProducer(cfg.Kafka)
		publisher = producer
		log.Infof("消息事件将发布到 Kafka topic: %s", cfg.Kafka.Topic)
	}

	// 7. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours)
	userService := service.NewUserService(userRepo, tokenRepo, jwtManager)
	discussionService := service.NewDiscussionService(discussionRepo)
	messageService := service.NewMessageService(discussionRepo, messageRepo, bot, publisher)

	// 8. 设置 Gin 模式并注册路由
	gin.SetMode(cfg.Server.Mode)
	r := handler.NewRouter(handler.RouterConfig{
		DB:                database.DB,
		JWTManager:        jwtManager,
		UserService:       userService,
		DiscussionService: discussionService,
		MessageService:    messageService,
		AllowOrigins:      cfg.CORS.AllowOrigins,
	})

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	// 刷新异步写入中的消息事件
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Errorf("关闭 Kafka 生产者失败: %v", err)
		}
	}
	log.Info("服务已优雅关闭")
}
