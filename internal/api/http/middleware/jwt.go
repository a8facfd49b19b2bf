// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/hertz-contrib/jwt"
)

// IdentityKey JWT claims 中的用户标识字段
const IdentityKey = "username"

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// JWTAuth 基于 hertz-contrib/jwt 的登录与鉴权
type JWTAuth struct {
	mw *jwt.HertzJWTMiddleware
}

// NewJWTAuth 创建 JWT 中间件；users 为 用户名->密码，为空时任何登录都会失败
func NewJWTAuth(key []byte, timeout, maxRefresh time.Duration, users map[string]string) (*JWTAuth, error) {
	if len(key) == 0 {
		return nil, errors.New("jwt key 不能为空")
	}
	mw, err := jwt.New(&jwt.HertzJWTMiddleware{
		Realm:       "adaptive-rag",
		Key:         key,
		Timeout:     timeout,
		MaxRefresh:  maxRefresh,
		IdentityKey: IdentityKey,
		PayloadFunc: func(data interface{}) jwt.MapClaims {
			if name, ok := data.(string); ok {
				return jwt.MapClaims{IdentityKey: name}
			}
			return jwt.MapClaims{}
		},
		IdentityHandler: func(ctx context.Context, c *app.RequestContext) interface{} {
			claims := jwt.ExtractClaims(ctx, c)
			return claims[IdentityKey]
		},
		Authenticator: func(ctx context.Context, c *app.RequestContext) (interface{}, error) {
			var req loginRequest
			if err := c.BindAndValidate(&req); err != nil || req.Username == "" {
				return nil, jwt.ErrMissingLoginValues
			}
			want, ok := users[req.Username]
			if !ok || subtle.ConstantTimeCompare([]byte(want), []byte(req.Password)) != 1 {
				return nil, jwt.ErrFailedAuthentication
			}
			return req.Username, nil
		},
		Unauthorized: func(ctx context.Context, c *app.RequestContext, code int, message string) {
			c.JSON(code, map[string]string{"error": message})
		},
		TokenLookup:   "header: Authorization, query: token",
		TokenHeadName: "Bearer",
		TimeFunc:      time.Now,
	})
	if err != nil {
		return nil, err
	}
	if err := mw.MiddlewareInit(); err != nil {
		return nil, err
	}
	return &JWTAuth{mw: mw}, nil
}

// LoginHandler POST /api/login
func (j *JWTAuth) LoginHandler() app.HandlerFunc {
	return j.mw.LoginHandler
}

// RefreshHandler 刷新 token
func (j *JWTAuth) RefreshHandler() app.HandlerFunc {
	return j.mw.RefreshHandler
}

// MiddlewareFunc 鉴权中间件
func (j *JWTAuth) MiddlewareFunc() app.HandlerFunc {
	return j.mw.MiddlewareFunc()
}
