package statushttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"remora/internal/logger"
	"remora/internal/store/journal"
	"remora/internal/trader"

	"github.com/gin-gonic/gin"
)

// Server 提供最小化的状态查询 HTTP 服务（健康检查 + 持仓/流水查询）。
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig 描述状态服务依赖。
type ServerConfig struct {
	Addr      string
	Trader    *trader.Trader
	Journal   *journal.Store
	StartedAt time.Time
}

// NewServer 构建状态 HTTP server。
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Trader == nil {
		return nil, errors.New("status http server requires a trader")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9992"
	}
	if cfg.StartedAt.IsZero() {
		cfg.StartedAt = time.Now()
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	registerStatusRoutes(router.Group("/api"), cfg)

	return &Server{addr: cfg.Addr, router: router}, nil
}

// requestLogger 记录接口调用，便于追踪人工查询。
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		client := c.ClientIP()
		c.Next()
		dur := time.Since(start)
		status := c.Writer.Status()
		fullPath := path
		if query != "" {
			fullPath = path + "?" + query
		}
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", method, fullPath, status, client, dur)
	}
}

// Addr 返回监听地址。
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start 启动 HTTP 服务，直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
