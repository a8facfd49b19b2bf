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

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultConfigPath 默认配置文件路径
const DefaultConfigPath = "configs/api.yaml"

// Config 应用配置结构体
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Router     RouterConfig     `mapstructure:"router"`
	Model      ModelConfig      `mapstructure:"model"`
	Search     SearchConfig     `mapstructure:"search"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Ingest     IngestConfig     `mapstructure:"ingest"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
	Log        LogConfig        `mapstructure:"log"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	RateLimits RateLimitsConfig `mapstructure:"rate_limits"`
}

// APIConfig API 服务配置
type APIConfig struct {
	Port       int              `mapstructure:"port"`
	Host       string           `mapstructure:"host"`
	Timeout    string           `mapstructure:"timeout"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Middleware MiddlewareConfig `mapstructure:"middleware"`
	Grpc       GrpcConfig       `mapstructure:"grpc"`
}

// GrpcConfig gRPC 服务配置
type GrpcConfig struct {
	Enable bool `mapstructure:"enable"`
	Port   int  `mapstructure:"port"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	Enable       bool     `mapstructure:"enable"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// MiddlewareConfig 中间件配置
type MiddlewareConfig struct {
	Auth          bool   `mapstructure:"auth"`
	JWTKey        string `mapstructure:"jwt_key"`
	JWTTimeout    string `mapstructure:"jwt_timeout"`     // 如 "1h"
	JWTMaxRefresh string `mapstructure:"jwt_max_refresh"` // 如 "1h"
	// Users 登录用户表（username -> password），仅 auth=true 时使用
	Users map[string]string `mapstructure:"users"`
}

// RouterConfig 查询路由配置
type RouterConfig struct {
	MaxMemoryLength int              `mapstructure:"max_memory_length"` // 对话记忆上限（条），默认 10
	GeneralHistory  int              `mapstructure:"general_history"`   // 通用对话携带的最近记忆条数，默认 4
	TopK            int              `mapstructure:"top_k"`             // 文档检索条数，默认 5
	Classifier      ClassifierConfig `mapstructure:"classifier"`
}

// ClassifierConfig 分类器配置
type ClassifierConfig struct {
	// Mode llm | rules；rules 时只走关键词规则
	Mode        string  `mapstructure:"mode"`
	Temperature float64 `mapstructure:"temperature"`
}

// ModelConfig 模型配置
type ModelConfig struct {
	// Backend resty | eino：OpenAI 兼容 REST 客户端或 eino-ext ChatModel
	Backend   string          `mapstructure:"backend"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Defaults  DefaultsConfig  `mapstructure:"defaults"`
}

// LLMConfig LLM 模型配置
type LLMConfig struct {
	Providers map[string]ProviderConfig `mapstructure:"providers"`
}

// EmbeddingConfig Embedding 模型配置
type EmbeddingConfig struct {
	Providers map[string]ProviderConfig `mapstructure:"providers"`
}

// ProviderConfig 模型提供商配置
type ProviderConfig struct {
	APIKey  string               `mapstructure:"api_key"`
	BaseURL string               `mapstructure:"base_url"`
	Models  map[string]ModelInfo `mapstructure:"models"`
}

// ModelInfo 模型信息
type ModelInfo struct {
	Name        string  `mapstructure:"name"`
	Temperature float64 `mapstructure:"temperature"`
	Dimension   int     `mapstructure:"dimension"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// DefaultsConfig 默认模型配置，格式 "provider.model_key"
type DefaultsConfig struct {
	LLM       string `mapstructure:"llm"`
	Embedding string `mapstructure:"embedding"`
}

// SearchConfig Web 搜索配置
type SearchConfig struct {
	Provider    string `mapstructure:"provider"` // tavily
	APIKey      string `mapstructure:"api_key"`
	BaseURL     string `mapstructure:"base_url"`
	SearchDepth string `mapstructure:"search_depth"`
	MaxResults  int    `mapstructure:"max_results"`
	CacheTTL    string `mapstructure:"cache_ttl"` // 如 "10m"，空则不缓存
}

// StorageConfig 存储配置
type StorageConfig struct {
	Metadata MetadataConfig `mapstructure:"metadata"`
	Vector   VectorConfig   `mapstructure:"vector"`
	Cache    CacheConfig    `mapstructure:"cache"`
}

// MetadataConfig 元数据存储配置
type MetadataConfig struct {
	Type     string `mapstructure:"type"` // memory | postgres
	DSN      string `mapstructure:"dsn"`
	PoolSize int    `mapstructure:"pool_size"`
}

// VectorConfig 向量存储配置（memory 为内置混合检索；qdrant 为稠密+稀疏；redis 使用 eino-ext，仅稠密）
type VectorConfig struct {
	Type       string  `mapstructure:"type"`
	Addr       string  `mapstructure:"addr"`
	DB         string  `mapstructure:"db"`         // Redis 为 DB 编号，如 "0"
	Collection string  `mapstructure:"collection"` // 默认索引/集合名，ingest 与 query 共用
	Password   string  `mapstructure:"password"`
	APIKey     string  `mapstructure:"api_key"` // qdrant cloud
	Dimension  int     `mapstructure:"dimension"`
	Alpha      float64 `mapstructure:"alpha"` // 稠密分数权重，1-alpha 为稀疏权重
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Type     string `mapstructure:"type"` // memory | redis
	Addr     string `mapstructure:"addr"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
}

// IngestConfig 文档入库配置
type IngestConfig struct {
	ChunkSize    int    `mapstructure:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap"`
	BatchSize    int    `mapstructure:"batch_size"`
	UploadDir    string `mapstructure:"upload_dir"`
	WatchDir     string `mapstructure:"watch_dir"` // 非空时监听该目录自动入库
	BM25Path     string `mapstructure:"bm25_path"` // BM25 参数持久化文件，空则仅内存
}

// SecretsConfig Secret Store 配置
type SecretsConfig struct {
	Provider string            `mapstructure:"provider"` // env | memory | vault
	Config   map[string]string `mapstructure:"config"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// TracingConfig 链路追踪配置（OpenTelemetry）
type TracingConfig struct {
	Enable         bool   `mapstructure:"enable"`
	ServiceName    string `mapstructure:"service_name"`
	ExportEndpoint string `mapstructure:"export_endpoint"`
	Insecure       bool   `mapstructure:"insecure"`
	// Protocol grpc（默认，hertz-contrib provider）| http（OTLP/HTTP 导出）
	Protocol string `mapstructure:"protocol"`
}

// PrometheusConfig Prometheus 配置
type PrometheusConfig struct {
	Enable bool `mapstructure:"enable"`
}

// RateLimitsConfig 限流配置
type RateLimitsConfig struct {
	LLM map[string]LLMRateLimitConfig `mapstructure:"llm"`
}

// LLMRateLimitConfig 单个 LLM Provider 的限流配置
type LLMRateLimitConfig struct {
	TokensPerMinute   int     `mapstructure:"tokens_per_minute"`
	RequestsPerMinute float64 `mapstructure:"requests_per_minute"`
	MaxConcurrent     int     `mapstructure:"max_concurrent"`
}

// setDefaults 写入默认值，配置文件与环境变量会覆盖
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 4001)
	v.SetDefault("api.timeout", "60s")
	v.SetDefault("api.cors.enable", true)
	v.SetDefault("api.cors.allow_origins", []string{"*"})
	v.SetDefault("api.middleware.jwt_timeout", "1h")
	v.SetDefault("api.middleware.jwt_max_refresh", "1h")
	v.SetDefault("api.grpc.port", 4002)

	v.SetDefault("router.max_memory_length", 10)
	v.SetDefault("router.general_history", 4)
	v.SetDefault("router.top_k", 5)
	v.SetDefault("router.classifier.mode", "llm")
	v.SetDefault("router.classifier.temperature", 0.5)

	v.SetDefault("model.backend", "resty")
	v.SetDefault("model.defaults.llm", "openai.gpt_4o_mini")
	v.SetDefault("model.defaults.embedding", "")
	v.SetDefault("model.llm.providers.openai.api_key", "${OPENAI_API_KEY}")
	v.SetDefault("model.llm.providers.openai.models.gpt_4o_mini.name", "gpt-4o-mini")
	v.SetDefault("model.llm.providers.openai.models.gpt_4o_mini.temperature", 0.5)

	v.SetDefault("search.provider", "tavily")
	v.SetDefault("search.api_key", "${TAVILY_API_KEY}")
	v.SetDefault("search.base_url", "https://api.tavily.com")
	v.SetDefault("search.search_depth", "advanced")
	v.SetDefault("search.max_results", 5)

	v.SetDefault("storage.metadata.type", "memory")
	v.SetDefault("storage.vector.type", "memory")
	v.SetDefault("storage.vector.collection", "hybrid-rag")
	v.SetDefault("storage.vector.dimension", 384)
	v.SetDefault("storage.vector.alpha", 0.5)
	v.SetDefault("storage.cache.type", "memory")

	v.SetDefault("ingest.chunk_size", 1000)
	v.SetDefault("ingest.chunk_overlap", 200)
	v.SetDefault("ingest.batch_size", 100)
	v.SetDefault("ingest.upload_dir", "uploads")

	v.SetDefault("secrets.provider", "env")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("monitoring.prometheus.enable", true)
	v.SetDefault("monitoring.tracing.service_name", "adaptive-rag")
	v.SetDefault("monitoring.tracing.protocol", "grpc")
}

// Default 返回仅含默认值的配置（无配置文件时使用）
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	replaceEnvVars(&cfg)
	return &cfg
}

// LoadConfig 加载配置文件，文件中的值覆盖默认值
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("无法读取配置文件: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}

	replaceEnvVars(&config)
	return &config, nil
}

// Load 先加载 .env（若存在），再读取配置文件；文件不存在时退回默认配置
func Load(configPath string, envFiles ...string) (*Config, error) {
	if err := LoadDotEnv(envFiles...); err != nil {
		return nil, err
	}
	if configPath == "" {
		configPath = os.Getenv("RAG_CONFIG")
	}
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return LoadConfig(configPath)
}

// LoadDotEnv 加载 .env 文件到进程环境；文件不存在不视为错误，已存在的环境变量不被覆盖
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("加载 .env 失败: %w", err)
	}
	return nil
}

// expandEnv 将 "${VAR}" 形式替换为环境变量值；未设置时返回空串
func expandEnv(s string) string {
	if !strings.HasPrefix(s, "$") {
		return s
	}
	return os.Getenv(strings.TrimPrefix(strings.TrimSuffix(s, "}"), "${"))
}

// replaceEnvVars 替换配置中的环境变量
func replaceEnvVars(config *Config) {
	for provider, providerConfig := range config.Model.LLM.Providers {
		providerConfig.APIKey = expandEnv(providerConfig.APIKey)
		config.Model.LLM.Providers[provider] = providerConfig
	}
	for provider, providerConfig := range config.Model.Embedding.Providers {
		providerConfig.APIKey = expandEnv(providerConfig.APIKey)
		config.Model.Embedding.Providers[provider] = providerConfig
	}
	config.Search.APIKey = expandEnv(config.Search.APIKey)
	config.Storage.Vector.APIKey = expandEnv(config.Storage.Vector.APIKey)
	config.Storage.Metadata.DSN = expandEnv(config.Storage.Metadata.DSN)
	config.API.Middleware.JWTKey = expandEnv(config.API.Middleware.JWTKey)
}

// ParseDefaultKey 解析 "provider.model_key" 形式的默认模型键
func ParseDefaultKey(key string) (provider, modelKey string, ok bool) {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
