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

package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzslog "github.com/hertz-contrib/logger/slog"
	"github.com/hertz-contrib/obs-opentelemetry/provider"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"google.golang.org/grpc"

	apigrpc "adaptive-rag/internal/api/grpc"
	"adaptive-rag/internal/api/http"
	"adaptive-rag/internal/api/http/middleware"
	"adaptive-rag/internal/app"
	"adaptive-rag/internal/pipeline/ingest"
	"adaptive-rag/internal/rag"
	"adaptive-rag/internal/router"
	"adaptive-rag/pkg/log"
	"adaptive-rag/pkg/tracing"
	"adaptive-rag/pkg/utils"
)

// otelProviderShutdown 用于优雅关闭时关闭 OpenTelemetry provider
type otelProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// App API 应用：装配文档索引、查询路由、HTTP/gRPC 服务与目录监听
type App struct {
	bootstrap    *app.Bootstrap
	docs         *rag.Service
	router       *router.Router
	httpRouter   *http.Router
	hertz        *server.Hertz
	grpcServer   *grpcRun
	otelProvider otelProviderShutdown
	watcher      *ingest.Watcher
	stopWatcher  context.CancelFunc
}

// grpcRun 持有 gRPC Server 与 Listener，用于 GracefulStop 时关闭
type grpcRun struct {
	srv *grpc.Server
	lis net.Listener
}

func (g *grpcRun) GracefulStop() {
	if g.srv != nil {
		g.srv.GracefulStop()
	}
	if g.lis != nil {
		_ = g.lis.Close()
	}
}

// NewApp 创建 API 应用（由 cmd/api 调用）。
// 文档索引或 LLM 初始化失败不阻止启动，对应能力降级，health 接口如实反映。
func NewApp(ctx context.Context, b *app.Bootstrap) (*App, error) {
	cfg := b.Config
	logger := b.Logger

	llmClient, err := app.NewLLMClientFromConfig(ctx, cfg, b.Secrets)
	if err != nil {
		logger.Warn("LLM 初始化失败，将仅使用规则分类与降级回答", "error", err)
		llmClient = nil
	} else if llmClient == nil {
		logger.Warn("未配置 LLM API Key，将仅使用规则分类与降级回答")
	}

	var docs *rag.Service
	embedder, err := app.NewEmbedderFromConfig(ctx, cfg, b.Secrets)
	if err != nil {
		logger.Warn("Embedding 初始化失败，文档索引不可用", "error", err)
	} else {
		docs, err = rag.NewService(ctx, rag.Options{
			Vector:       cfg.Storage.Vector,
			ChunkSize:    cfg.Ingest.ChunkSize,
			ChunkOverlap: cfg.Ingest.ChunkOverlap,
			BM25Path:     cfg.Ingest.BM25Path,
			Temperature:  cfg.Router.Classifier.Temperature,
		}, rag.Deps{
			VectorStore: b.VectorStore,
			Embedder:    embedder,
			LLM:         llmClient,
			Metadata:    b.MetadataStore,
			Logger:      logger.With("component", "rag"),
		})
		if err != nil {
			logger.Warn("文档索引初始化失败", "error", err)
			docs = nil
		} else {
			logger.Info("文档索引已初始化", "vector", cfg.Storage.Vector.Type, "embedding", embedder.Model())
		}
	}

	searcher, err := app.NewWebSearcherFromConfig(ctx, cfg, b.Secrets, b.Cache, logger)
	if err != nil {
		logger.Warn("Web 搜索初始化失败，将不可用", "error", err)
		searcher = nil
	}

	queryRouter := router.New(router.Config{
		MaxMemoryLength: cfg.Router.MaxMemoryLength,
		GeneralHistory:  cfg.Router.GeneralHistory,
		TopK:            cfg.Router.TopK,
		Temperature:     cfg.Router.Classifier.Temperature,
		SearchDepth:     cfg.Search.SearchDepth,
		MaxResults:      cfg.Search.MaxResults,
		RulesOnly:       cfg.Router.Classifier.Mode == "rules" || llmClient == nil,
	}, router.Deps{
		LLM:      llmClient,
		Index:    app.NewDocumentIndexAdapter(docs),
		Searcher: app.NewWebSearcherAdapter(searcher),
		Logger:   logger,
	})
	logger.Info("查询路由已初始化",
		"web_search", queryRouter.WebSearchEnabled(),
		"document_index", queryRouter.DocumentIndexEnabled(),
	)

	// 接口类型为 nil 时 handler 才能正确识别"未初始化"
	var docService http.DocumentService
	if docs != nil {
		docService = docs
	}
	handler := http.NewHandler(queryRouter, docService, cfg.Ingest.UploadDir)

	var origins []string
	if cfg.API.CORS.Enable {
		origins = cfg.API.CORS.AllowOrigins
	}
	httpRouter := http.NewRouter(handler, middleware.NewMiddleware(origins))
	httpRouter.EnableMetrics(cfg.Monitoring.Prometheus.Enable)

	if cfg.API.Middleware.Auth {
		timeout := parseDuration(cfg.API.Middleware.JWTTimeout, time.Hour)
		maxRefresh := parseDuration(cfg.API.Middleware.JWTMaxRefresh, time.Hour)
		jwtAuth, err := middleware.NewJWTAuth([]byte(cfg.API.Middleware.JWTKey), timeout, maxRefresh, cfg.API.Middleware.Users)
		if err != nil {
			logger.Warn("JWT 初始化失败，将跳过认证", "error", err)
		} else {
			httpRouter.SetJWT(jwtAuth)
			logger.Info("JWT 认证已启用")
		}
	}

	a := &App{
		bootstrap:  b,
		docs:       docs,
		router:     queryRouter,
		httpRouter: httpRouter,
	}

	if docs != nil && cfg.Ingest.WatchDir != "" {
		a.watcher = ingest.NewWatcher(cfg.Ingest.WatchDir, docs.Supported, func(ctx context.Context, paths []string) {
			stats := docs.AddDocuments(ctx, paths)
			logger.Info("监听目录入库完成", "files", stats.TotalFiles, "chunks", stats.TotalChunks, "failed", stats.FailedFiles)
		}, 0, logger.With("component", "watcher"))
	}

	if cfg.API.Grpc.Enable && cfg.API.Grpc.Port > 0 {
		gs, err := startGRPC(queryRouter, cfg.API.Grpc.Port)
		if err != nil {
			logger.Warn("gRPC 服务启动失败", "error", err)
		} else {
			a.grpcServer = gs
			logger.Info("gRPC 服务已启动", "port", cfg.API.Grpc.Port)
		}
	}
	return a, nil
}

// Router 查询路由
func (a *App) Router() *router.Router {
	return a.router
}

// Run 启动 HTTP 服务（阻塞），addr 如 ":4001"
func (a *App) Run(addr string) error {
	cfg := a.bootstrap.Config
	a.bootstrap.Logger.Info("API 服务启动", "addr", addr)

	if err := setHertzLogger(a.bootstrap.Logger, cfg.Log.File); err != nil {
		return err
	}

	var opts []config.Option
	var tracerCfg *hertztracing.Config
	if cfg.Monitoring.Tracing.Enable {
		opts, tracerCfg = a.initTracing()
	}
	a.hertz = a.httpRouter.Build(addr, opts...)
	if tracerCfg != nil {
		a.hertz.Use(hertztracing.ServerMiddleware(tracerCfg))
	}

	if a.watcher != nil {
		ctx, cancel := context.WithCancel(context.Background())
		a.stopWatcher = cancel
		go func() {
			if err := a.watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.bootstrap.Logger.Error("目录监听退出", "error", err)
			}
		}()
	}
	return a.hertz.Run()
}

// initTracing grpc 协议使用 hertz-contrib provider，http 协议使用 OTLP/HTTP 导出
func (a *App) initTracing() ([]config.Option, *hertztracing.Config) {
	tc := a.bootstrap.Config.Monitoring.Tracing
	serviceName := utils.FirstNonEmpty(tc.ServiceName, "adaptive-rag")
	endpoint := utils.FirstNonEmpty(tc.ExportEndpoint, os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	if endpoint == "" {
		a.bootstrap.Logger.Warn("链路追踪已开启但未配置 export_endpoint，跳过")
		return nil, nil
	}

	if tc.Protocol == "http" {
		tp, err := tracing.InitTracer(tracing.OTelConfig{ServiceName: serviceName, ExportEndpoint: endpoint, Insecure: tc.Insecure})
		if err != nil {
			a.bootstrap.Logger.Warn("初始化 OTLP/HTTP tracer 失败", "error", err)
			return nil, nil
		}
		a.otelProvider = tp
	} else {
		popts := []provider.Option{
			provider.WithServiceName(serviceName),
			provider.WithExportEndpoint(endpoint),
		}
		if tc.Insecure {
			popts = append(popts, provider.WithInsecure())
		}
		a.otelProvider = provider.NewOpenTelemetryProvider(popts...)
	}

	tracerOpt, tracerCfg := hertztracing.NewServerTracer()
	a.bootstrap.Logger.Info("链路追踪已启用", "service_name", serviceName, "endpoint", endpoint, "protocol", tc.Protocol)
	return []config.Option{tracerOpt}, tracerCfg
}

// setHertzLogger 使用 Hertz slog 扩展，输出与级别和 bootstrap 日志对齐
func setHertzLogger(logger *log.Logger, file string) error {
	output := logger.Output()
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("打开日志文件失败: %w", err)
		}
		output = f
	}
	levelVar := &slog.LevelVar{}
	levelVar.Set(logger.Level())
	hlog.SetLogger(hertzslog.NewLogger(
		hertzslog.WithOutput(output),
		hertzslog.WithLevel(levelVar),
	))
	return nil
}

// Shutdown 优雅关闭（传入 ctx 以支持超时，如 cmd 层 WithTimeout）
func (a *App) Shutdown(ctx context.Context) error {
	if a.stopWatcher != nil {
		a.stopWatcher()
	}
	if a.grpcServer != nil {
		a.grpcServer.GracefulStop()
	}
	var errs []error
	if a.hertz != nil {
		errs = append(errs, a.hertz.Shutdown(ctx))
	}
	if a.otelProvider != nil {
		errs = append(errs, a.otelProvider.Shutdown(ctx))
	}
	if a.docs != nil {
		// rag.Service 负责关闭向量与元数据存储
		errs = append(errs, a.docs.Close())
		if a.bootstrap.Cache != nil {
			errs = append(errs, a.bootstrap.Cache.Close())
		}
	} else {
		errs = append(errs, a.bootstrap.Close())
	}
	return errors.Join(errs...)
}

// parseDuration 解析时长字符串，无效或空时返回 defaultVal
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// startGRPC 创建并启动 gRPC 服务（在 goroutine 中 Serve），返回 grpcRun 以便 Shutdown 时 GracefulStop
func startGRPC(r apigrpc.QueryRouter, port int) (*grpcRun, error) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}
	srv := grpc.NewServer()
	apigrpc.NewServer(r).Register(srv)
	go func() {
		_ = srv.Serve(lis)
	}()
	return &grpcRun{srv: srv, lis: lis}, nil
}
