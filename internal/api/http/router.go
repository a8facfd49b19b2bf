package http

import (
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/config"

	"adaptive-rag/internal/api/http/middleware"
)

// Router HTTP 路由器（Hertz）
type Router struct {
	handler    *Handler
	middleware *middleware.Middleware
	jwt        *middleware.JWTAuth
	metrics    bool
}

// NewRouter 创建新的 HTTP 路由器
func NewRouter(handler *Handler, mw *middleware.Middleware) *Router {
	return &Router{handler: handler, middleware: mw}
}

// SetJWT 启用 JWT：注册 /api/login，/api 下其余接口需携带 token（health 除外）
func (r *Router) SetJWT(j *middleware.JWTAuth) {
	r.jwt = j
}

// EnableMetrics 注册 GET /metrics
func (r *Router) EnableMetrics(enable bool) {
	r.metrics = enable
}

// Build 创建 Hertz 实例并注册路由
func (r *Router) Build(addr string, opts ...config.Option) *server.Hertz {
	opts = append([]config.Option{server.WithHostPorts(addr)}, opts...)
	h := server.New(opts...)
	h.Use(r.middleware.AccessLog(), r.middleware.CORS(), r.middleware.Metrics())

	if r.metrics {
		h.GET("/metrics", r.handler.Metrics)
	}

	api := h.Group("/api")
	api.GET("/health", r.handler.HealthCheck)
	if r.jwt != nil {
		api.POST("/login", r.jwt.LoginHandler())
		api.GET("/refresh_token", r.jwt.RefreshHandler())
		api.Use(r.jwt.MiddlewareFunc())
	}

	api.GET("/stats", r.handler.Stats)
	api.GET("/formats", r.handler.Formats)
	api.GET("/documents", r.handler.Documents)
	api.POST("/upload", r.handler.Upload)
	api.POST("/query", r.handler.Query)
	api.POST("/clear", r.handler.Clear)
	api.GET("/chat/memory", r.handler.ChatMemory)
	api.DELETE("/chat/memory", r.handler.ClearChatMemory)
	return h
}
