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

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
)

func apiBaseURL() string {
	if u := os.Getenv("RAG_API_URL"); u != "" {
		return u
	}
	return "http://localhost:4001"
}

// Client Adaptive RAG HTTP API 客户端
type Client struct {
	http *resty.Client
}

func newClient(baseURL string) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(120 * time.Second)
	if token := os.Getenv("RAG_API_TOKEN"); token != "" {
		c.SetAuthToken(token)
	}
	return &Client{http: c}
}

// Source 回答来源
type Source struct {
	FileName       string `json:"file_name"`
	FileType       string `json:"file_type"`
	ChunkID        string `json:"chunk_id"`
	Title          string `json:"title"`
	URL            string `json:"url"`
	SourceType     string `json:"source_type"`
	ContentPreview string `json:"content_preview"`
}

// QueryResult POST /api/query 响应
type QueryResult struct {
	Answer          string   `json:"answer"`
	Sources         []Source `json:"sources"`
	Method          string   `json:"method"`
	EvaluationScore float64  `json:"evaluation_score"`
	IterationCount  int      `json:"iteration_count"`
	Question        string   `json:"question"`
}

// Turn 对话记忆条目
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func apiError(method, path string, resp *resty.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Error != "" {
		return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode(), body.Error)
	}
	return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode(), resp.String())
}

func (c *Client) getJSON(path string) (map[string]interface{}, error) {
	var out map[string]interface{}
	resp, err := c.http.R().SetResult(&out).Get(path)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apiError("GET", path, resp)
	}
	return out, nil
}

// Health GET /api/health
func (c *Client) Health() (map[string]interface{}, error) {
	return c.getJSON("/api/health")
}

// Stats GET /api/stats
func (c *Client) Stats() (map[string]interface{}, error) {
	return c.getJSON("/api/stats")
}

// Documents GET /api/documents
func (c *Client) Documents() (map[string]interface{}, error) {
	return c.getJSON("/api/documents")
}

// Formats GET /api/formats
func (c *Client) Formats() ([]string, error) {
	var out struct {
		Formats []string `json:"formats"`
	}
	resp, err := c.http.R().SetResult(&out).Get("/api/formats")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apiError("GET", "/api/formats", resp)
	}
	return out.Formats, nil
}

// Query POST /api/query
func (c *Client) Query(question string) (*QueryResult, error) {
	var out QueryResult
	resp, err := c.http.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"question": question}).
		SetResult(&out).
		Post("/api/query")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apiError("POST", "/api/query", resp)
	}
	return &out, nil
}

// Upload POST /api/upload，multipart 字段 files
func (c *Client) Upload(paths []string) (map[string]interface{}, error) {
	req := c.http.R()
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		req.SetFileReader("files", filepath.Base(p), f)
	}
	var out map[string]interface{}
	resp, err := req.SetResult(&out).SetError(&out).Post("/api/upload")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return out, apiError("POST", "/api/upload", resp)
	}
	return out, nil
}

// Clear POST /api/clear
func (c *Client) Clear() error {
	resp, err := c.http.R().Post("/api/clear")
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return apiError("POST", "/api/clear", resp)
	}
	return nil
}

// ChatMemory GET /api/chat/memory
func (c *Client) ChatMemory() ([]Turn, error) {
	var out struct {
		Memory []Turn `json:"memory"`
	}
	resp, err := c.http.R().SetResult(&out).Get("/api/chat/memory")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apiError("GET", "/api/chat/memory", resp)
	}
	return out.Memory, nil
}

// ClearChatMemory DELETE /api/chat/memory
func (c *Client) ClearChatMemory() error {
	resp, err := c.http.R().Delete("/api/chat/memory")
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return apiError("DELETE", "/api/chat/memory", resp)
	}
	return nil
}

func prettyJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
