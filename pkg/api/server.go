package api

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

// Server API服务器
type Server struct {
	router *gin.Engine
	srv    *http.Server
}

// NewServer 创建新的API服务器
func NewServer(port string) *Server {
	router := gin.Default()

	// 设置中间件
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	return &Server{
		router: router,
		srv:    srv,
	}
}

// SetupRoutes 设置路由
func (s *Server) SetupRoutes(handlers *Handlers) {
	// 健康检查
	s.router.GET("/health", handlers.HealthCheck)
	s.router.GET("/ready", handlers.ReadinessCheck)

	// API v1 路由组
	v1 := s.router.Group("/api/v1")
	{
		// 规则接口
		v1.POST("/rules", handlers.CreateRule)
		v1.GET("/rules", handlers.ListRules)
		v1.GET("/rules/:id", handlers.GetRule)
		v1.PUT("/rules/:id", handlers.UpdateRule)
		v1.DELETE("/rules/:id", handlers.DeleteRule)

		// 规则状态接口
		v1.POST("/rules/:id/activate", handlers.ActivateRule)
		v1.POST("/rules/:id/pause", handlers.PauseRule)

		// 手动触发接口
		v1.POST("/rules/:id/execute", handlers.ExecuteRule)

		// 执行历史接口
		v1.GET("/rules/:id/executions", handlers.GetExecutions)

		// 规则模板接口
		v1.GET("/templates", handlers.ListTemplates)
		v1.POST("/templates/:id/instantiate", handlers.InstantiateTemplate)

		// 每日执行摘要接口
		v1.GET("/digest", handlers.GetDailyDigest)
	}
}

// Start 启动服务器
func (s *Server) Start() {
	// 在goroutine中启动服务器
	go func() {
		log.Printf("API服务器启动在 %s\n", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("启动服务器失败: %v\n", err)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("正在关闭服务器...")

	// 设置超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 优雅关闭
	if err := s.srv.Shutdown(ctx); err != nil {
		log.Fatalf("服务器关闭失败: %v\n", err)
	}

	log.Println("服务器已关闭")
}
