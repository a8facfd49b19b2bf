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

package http

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"adaptive-rag/internal/rag"
	"adaptive-rag/internal/router"
	"adaptive-rag/internal/storage/metadata"
	apperrors "adaptive-rag/pkg/errors"
	"adaptive-rag/pkg/metrics"
)

// QueryRouter 查询路由（由 app 注入 *router.Router）
type QueryRouter interface {
	Process(ctx context.Context, query string) router.QueryResult
	ChatMemory() []router.Turn
	ClearChatMemory()
	WebSearchEnabled() bool
}

// DocumentService 文档索引服务（由 app 注入 *rag.Service）
type DocumentService interface {
	AddDocuments(ctx context.Context, paths []string) rag.ProcessingStats
	Stats(ctx context.Context) rag.IndexStats
	Clear(ctx context.Context) error
	SupportedFormats() []string
	Documents(ctx context.Context) ([]*metadata.Document, error)
}

// Handler HTTP 处理器；router 或 docs 为 nil 时对应接口返回 503
type Handler struct {
	router    QueryRouter
	docs      DocumentService
	uploadDir string
}

// NewHandler 创建 HTTP 处理器；uploadDir 为空时使用系统临时目录
func NewHandler(r QueryRouter, docs DocumentService, uploadDir string) *Handler {
	if uploadDir == "" {
		uploadDir = filepath.Join(os.TempDir(), "adaptive-rag-uploads")
	}
	return &Handler{router: r, docs: docs, uploadDir: uploadDir}
}

type queryRequest struct {
	Question *string `json:"question"`
}

func errorJSON(c *app.RequestContext, status int, msg string) {
	c.JSON(status, map[string]interface{}{"error": msg})
}

// HealthCheck GET /api/health
func (h *Handler) HealthCheck(ctx context.Context, c *app.RequestContext) {
	webSearch := false
	if h.router != nil {
		webSearch = h.router.WebSearchEnabled()
	}
	c.JSON(consts.StatusOK, map[string]interface{}{
		"status":                   "healthy",
		"message":                  "Adaptive RAG API is running",
		"rag_app_initialized":      h.docs != nil,
		"smart_router_initialized": h.router != nil,
		"web_search_enabled":       webSearch,
	})
}

// Stats GET /api/stats；出错时仍返回 200 与 error 字段
func (h *Handler) Stats(ctx context.Context, c *app.RequestContext) {
	if h.docs == nil {
		c.JSON(consts.StatusOK, rag.IndexStats{
			Dimension:  384,
			Namespaces: map[string]rag.NamespaceStats{},
			Error:      "document index is not initialized",
		})
		return
	}
	c.JSON(consts.StatusOK, h.docs.Stats(ctx))
}

// Upload POST /api/upload，multipart 字段 files（可多个）
func (h *Handler) Upload(ctx context.Context, c *app.RequestContext) {
	if h.docs == nil {
		c.JSON(consts.StatusServiceUnavailable, map[string]interface{}{"success": false, "error": "document index is not initialized"})
		return
	}
	form, err := c.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		c.JSON(consts.StatusBadRequest, map[string]interface{}{"success": false, "error": "No files provided"})
		return
	}
	files := form.File["files"]
	if err := os.MkdirAll(h.uploadDir, 0755); err != nil {
		hlog.CtxErrorf(ctx, "create upload dir %s: %v", h.uploadDir, err)
		c.JSON(consts.StatusInternalServerError, map[string]interface{}{"success": false, "error": err.Error()})
		return
	}

	var paths, names []string
	failed := 0
	for _, fh := range files {
		name := filepath.Base(fh.Filename)
		if name == "" || name == "." || name == string(filepath.Separator) {
			failed++
			continue
		}
		dst := filepath.Join(h.uploadDir, name)
		if err := c.SaveUploadedFile(fh, dst); err != nil {
			hlog.CtxErrorf(ctx, "save uploaded file %s: %v", name, err)
			failed++
			continue
		}
		paths = append(paths, dst)
		names = append(names, name)
	}
	if len(paths) == 0 {
		c.JSON(consts.StatusBadRequest, map[string]interface{}{"success": false, "error": "No files selected"})
		return
	}

	stats := h.docs.AddDocuments(ctx, paths)
	stats.TotalFiles += failed
	stats.FailedFiles += failed
	if stats.SuccessfulFiles == 0 {
		c.JSON(consts.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "Failed to process any files",
			"stats":   stats,
		})
		return
	}
	processed := make(map[string]bool, len(stats.ProcessedFiles))
	for _, p := range stats.ProcessedFiles {
		processed[p] = true
	}
	uploaded := make([]string, 0, len(names))
	for i, p := range paths {
		if processed[p] {
			uploaded = append(uploaded, names[i])
		}
	}
	c.JSON(consts.StatusOK, map[string]interface{}{
		"success":        true,
		"message":        fmt.Sprintf("Successfully uploaded %d files", stats.SuccessfulFiles),
		"uploaded_files": uploaded,
		"stats":          stats,
	})
}

// Query POST /api/query {"question": "..."}；路由失败也以 200 返回统一结果
func (h *Handler) Query(ctx context.Context, c *app.RequestContext) {
	var req queryRequest
	if err := c.BindJSON(&req); err != nil || req.Question == nil {
		errorJSON(c, consts.StatusBadRequest, "No question provided")
		return
	}
	question := strings.TrimSpace(*req.Question)
	if question == "" {
		errorJSON(c, consts.StatusBadRequest, "Empty question")
		return
	}
	if h.router == nil {
		errorJSON(c, consts.StatusServiceUnavailable, "router is not initialized")
		return
	}
	c.JSON(consts.StatusOK, h.router.Process(ctx, question))
}

// Clear POST /api/clear
func (h *Handler) Clear(ctx context.Context, c *app.RequestContext) {
	if h.docs == nil {
		errorJSON(c, consts.StatusServiceUnavailable, "document index is not initialized")
		return
	}
	if err := h.docs.Clear(ctx); err != nil {
		hlog.CtxErrorf(ctx, "clear index: %v", err)
		errorJSON(c, apperrors.HTTPStatus(err), err.Error())
		return
	}
	c.JSON(consts.StatusOK, map[string]interface{}{"success": true, "message": "Index cleared successfully"})
}

// Formats GET /api/formats
func (h *Handler) Formats(ctx context.Context, c *app.RequestContext) {
	if h.docs == nil {
		errorJSON(c, consts.StatusServiceUnavailable, "document index is not initialized")
		return
	}
	c.JSON(consts.StatusOK, map[string]interface{}{"formats": h.docs.SupportedFormats()})
}

// Documents GET /api/documents
func (h *Handler) Documents(ctx context.Context, c *app.RequestContext) {
	if h.docs == nil {
		errorJSON(c, consts.StatusServiceUnavailable, "document index is not initialized")
		return
	}
	docs, err := h.docs.Documents(ctx)
	if err != nil {
		errorJSON(c, apperrors.HTTPStatus(err), err.Error())
		return
	}
	c.JSON(consts.StatusOK, map[string]interface{}{"documents": docs, "total": len(docs)})
}

// ChatMemory GET /api/chat/memory
func (h *Handler) ChatMemory(ctx context.Context, c *app.RequestContext) {
	if h.router == nil {
		errorJSON(c, consts.StatusServiceUnavailable, "router is not initialized")
		return
	}
	c.JSON(consts.StatusOK, map[string]interface{}{"memory": h.router.ChatMemory()})
}

// ClearChatMemory DELETE /api/chat/memory
func (h *Handler) ClearChatMemory(ctx context.Context, c *app.RequestContext) {
	if h.router == nil {
		errorJSON(c, consts.StatusServiceUnavailable, "router is not initialized")
		return
	}
	h.router.ClearChatMemory()
	c.JSON(consts.StatusOK, map[string]interface{}{"success": true, "message": "Chat memory cleared"})
}

// Metrics GET /metrics，Prometheus 文本格式
func (h *Handler) Metrics(ctx context.Context, c *app.RequestContext) {
	var buf bytes.Buffer
	if err := metrics.WritePrometheus(&buf); err != nil {
		errorJSON(c, consts.StatusInternalServerError, err.Error())
		return
	}
	c.Data(consts.StatusOK, "text/plain; version=0.0.4; charset=utf-8", buf.Bytes())
}
