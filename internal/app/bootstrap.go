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

package app

import (
	"context"
	"errors"
	"fmt"

	"adaptive-rag/internal/storage/cache"
	"adaptive-rag/internal/storage/metadata"
	"adaptive-rag/internal/storage/vector"
	"adaptive-rag/pkg/config"
	"adaptive-rag/pkg/log"
	"adaptive-rag/pkg/secrets"
)

// Bootstrap 统一初始化：日志、Secret、元数据/向量/缓存存储，cmd 内不写业务装配
type Bootstrap struct {
	Config        *config.Config
	Logger        *log.Logger
	Secrets       secrets.Store
	MetadataStore metadata.Store
	VectorStore   vector.Store
	Cache         cache.Store
}

// NewBootstrap 根据配置创建 Bootstrap；cfg 为 nil 时使用默认配置
func NewBootstrap(ctx context.Context, cfg *config.Config) (*Bootstrap, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	logger, err := log.NewLogger(&log.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化日志failed: %w", err)
	}

	secretStore, err := secrets.NewStore(secrets.Config{Provider: cfg.Secrets.Provider, Config: cfg.Secrets.Config})
	if err != nil {
		return nil, fmt.Errorf("初始化 Secret Store failed: %w", err)
	}

	metaStore, err := metadata.NewStore(ctx, cfg.Storage.Metadata)
	if err != nil {
		return nil, fmt.Errorf("初始化元数据存储failed: %w", err)
	}

	// type=redis 时由 einoext 直接构造 eino-ext 组件，不创建 Store
	var vecStore vector.Store
	if cfg.Storage.Vector.Type != "redis" {
		vecStore, err = vector.NewStore(cfg.Storage.Vector)
		if err != nil {
			_ = metaStore.Close()
			return nil, fmt.Errorf("初始化向量存储failed: %w", err)
		}
	}

	cacheStore, err := cache.NewCache(cfg.Storage.Cache)
	if err != nil {
		_ = metaStore.Close()
		if vecStore != nil {
			_ = vecStore.Close()
		}
		return nil, fmt.Errorf("初始化缓存failed: %w", err)
	}

	logger.Info("存储初始化完成",
		"metadata", cfg.Storage.Metadata.Type,
		"vector", cfg.Storage.Vector.Type,
		"cache", cfg.Storage.Cache.Type,
	)
	return &Bootstrap{
		Config:        cfg,
		Logger:        logger,
		Secrets:       secretStore,
		MetadataStore: metaStore,
		VectorStore:   vecStore,
		Cache:         cacheStore,
	}, nil
}

// Close 关闭所有存储连接
func (b *Bootstrap) Close() error {
	var errs []error
	if b.MetadataStore != nil {
		errs = append(errs, b.MetadataStore.Close())
	}
	if b.VectorStore != nil {
		errs = append(errs, b.VectorStore.Close())
	}
	if b.Cache != nil {
		errs = append(errs, b.Cache.Close())
	}
	return errors.Join(errs...)
}
