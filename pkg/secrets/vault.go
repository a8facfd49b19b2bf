// Copyright 2026 fanjia1024
// HashiCorp Vault secret store

package secrets

import (
	"context"
	"fmt"
	"strings"

	vault "github.com/hashicorp/vault/api"
)

// VaultConfig Vault 配置
type VaultConfig struct {
	Address    string // Vault 地址，如 http://vault:8200
	Token      string
	PathPrefix string // 默认 "secret"
}

type vaultStore struct {
	client     *vault.Client
	pathPrefix string
}

// NewVaultStore 创建 Vault secret store，启动时做一次健康检查
func NewVaultStore(config VaultConfig) (Store, error) {
	if config.Address == "" {
		config.Address = "http://localhost:8200"
	}

	cfg := vault.DefaultConfig()
	cfg.Address = config.Address

	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if config.Token != "" {
		client.SetToken(config.Token)
	}
	if _, err := client.Sys().Health(); err != nil {
		return nil, fmt.Errorf("failed to connect to vault: %w", err)
	}

	prefix := strings.Trim(config.PathPrefix, "/")
	if prefix == "" {
		prefix = "secret"
	}
	return &vaultStore{client: client, pathPrefix: prefix}, nil
}

// Get 读取 <prefix>/<key> 的 "value" 字段，没有时取第一个字符串字段
func (v *vaultStore) Get(ctx context.Context, key string) (string, error) {
	secret, err := v.client.Logical().ReadWithContext(ctx, v.buildPath(key))
	if err != nil {
		return "", fmt.Errorf("failed to read secret from vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, key)
	}
	if data, ok := secret.Data["value"].(string); ok {
		return data, nil
	}
	for _, val := range secret.Data {
		if str, ok := val.(string); ok {
			return str, nil
		}
	}
	return "", fmt.Errorf("%w: %s has no string value", ErrSecretNotFound, key)
}

func (v *vaultStore) Set(ctx context.Context, key string, value string) error {
	_, err := v.client.Logical().WriteWithContext(ctx, v.buildPath(key), map[string]interface{}{
		"value": value,
	})
	if err != nil {
		return fmt.Errorf("failed to write secret to vault: %w", err)
	}
	return nil
}

func (v *vaultStore) Delete(ctx context.Context, key string) error {
	if _, err := v.client.Logical().DeleteWithContext(ctx, v.buildPath(key)); err != nil {
		return fmt.Errorf("failed to delete secret from vault: %w", err)
	}
	return nil
}

func (v *vaultStore) List(ctx context.Context, prefix string) ([]string, error) {
	secret, err := v.client.Logical().ListWithContext(ctx, v.pathPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list secrets from vault: %w", err)
	}
	if secret == nil {
		return nil, nil
	}
	keys, ok := secret.Data["keys"].([]interface{})
	if !ok {
		return nil, nil
	}
	var result []string
	for _, k := range keys {
		if str, ok := k.(string); ok && strings.HasPrefix(str, prefix) {
			result = append(result, str)
		}
	}
	return result, nil
}

func (v *vaultStore) buildPath(key string) string {
	return v.pathPrefix + "/" + key
}
