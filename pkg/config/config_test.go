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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
api:
  port: 9000
  host: "127.0.0.1"
log:
  level: "debug"
router:
  max_memory_length: 6
`
	path := filepath.Join(dir, "test.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.API.Port != 9000 {
		t.Errorf("API.Port: got %d", cfg.API.Port)
	}
	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host: got %q", cfg.API.Host)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level: got %q", cfg.Log.Level)
	}
	if cfg.Router.MaxMemoryLength != 6 {
		t.Errorf("Router.MaxMemoryLength: got %d", cfg.Router.MaxMemoryLength)
	}
	// 未在文件中出现的键保留默认值
	if cfg.Router.TopK != 5 {
		t.Errorf("Router.TopK: got %d", cfg.Router.TopK)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 4001, cfg.API.Port)
	assert.Equal(t, 10, cfg.Router.MaxMemoryLength)
	assert.Equal(t, 4, cfg.Router.GeneralHistory)
	assert.Equal(t, 0.5, cfg.Router.Classifier.Temperature)
	assert.Equal(t, "advanced", cfg.Search.SearchDepth)
	assert.Equal(t, 5, cfg.Search.MaxResults)
	assert.Equal(t, 1000, cfg.Ingest.ChunkSize)
	assert.Equal(t, 200, cfg.Ingest.ChunkOverlap)
	assert.Equal(t, 384, cfg.Storage.Vector.Dimension)
	assert.Equal(t, "openai.gpt_4o_mini", cfg.Model.Defaults.LLM)
	assert.Equal(t, "gpt-4o-mini", cfg.Model.LLM.Providers["openai"].Models["gpt_4o_mini"].Name)
}

func TestLoadConfig_EnvSubstitution(t *testing.T) {
	t.Setenv("TEST_TAVILY_KEY", "tvly-123")
	dir := t.TempDir()
	path := filepath.Join(dir, "api.yaml")
	yaml := `
search:
  api_key: "${TEST_TAVILY_KEY}"
model:
  llm:
    providers:
      openai:
        api_key: "${TEST_MISSING_KEY}"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "tvly-123", cfg.Search.APIKey)
	assert.Empty(t, cfg.Model.LLM.Providers["openai"].APIKey)
}

func TestLoad_MissingFileFallsBackToDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)
	assert.Equal(t, 4001, cfg.API.Port)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("RAG_DOTENV_PROBE=from-dotenv\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("RAG_DOTENV_PROBE") })

	require.NoError(t, LoadDotEnv(envPath))
	assert.Equal(t, "from-dotenv", os.Getenv("RAG_DOTENV_PROBE"))
}

func TestParseDefaultKey(t *testing.T) {
	p, m, ok := ParseDefaultKey("openai.gpt_4o_mini")
	require.True(t, ok)
	assert.Equal(t, "openai", p)
	assert.Equal(t, "gpt_4o_mini", m)

	_, _, ok = ParseDefaultKey("openai")
	assert.False(t, ok)
}
