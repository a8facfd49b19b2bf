package middleware

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"adaptive-rag/pkg/metrics"
)

// Middleware 中间件管理器
type Middleware struct {
	allowOrigins []string
}

// NewMiddleware 创建中间件管理器；allowOrigins 为空时允许任意来源
func NewMiddleware(allowOrigins []string) *Middleware {
	return &Middleware{allowOrigins: allowOrigins}
}

func (m *Middleware) originAllowed(origin string) (string, bool) {
	if len(m.allowOrigins) == 0 {
		return "*", true
	}
	for _, o := range m.allowOrigins {
		if o == "*" {
			return "*", true
		}
		if strings.EqualFold(o, origin) {
			return origin, true
		}
	}
	return "", false
}

// CORS 跨域中间件；OPTIONS 预检直接返回 204
func (m *Middleware) CORS() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		origin := string(c.GetHeader("Origin"))
		if allow, ok := m.originAllowed(origin); ok {
			c.Header("Access-Control-Allow-Origin", allow)
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization")
			c.Header("Access-Control-Expose-Headers", "Content-Length")
			c.Header("Access-Control-Max-Age", "86400")
			if allow != "*" {
				c.Header("Vary", "Origin")
			}
		}
		if string(c.Method()) == consts.MethodOptions {
			c.AbortWithStatus(consts.StatusNoContent)
			return
		}
		c.Next(ctx)
	}
}

// Metrics 按路由模板与状态码统计请求数
func (m *Middleware) Metrics() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		c.Next(ctx)
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(path, strconv.Itoa(c.Response.StatusCode())).Inc()
	}
}

// AccessLog 请求日志
func (m *Middleware) AccessLog() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		c.Next(ctx)
		hlog.CtxInfof(ctx, "%s %s %d %s", c.Method(), c.Path(), c.Response.StatusCode(), time.Since(start))
	}
}
