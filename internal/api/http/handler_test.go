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
	"encoding/json"
	"errors"
	"mime/multipart"
	"os"
	"path/filepath"
	"testing"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adaptive-rag/internal/api/http/middleware"
	"adaptive-rag/internal/rag"
	"adaptive-rag/internal/router"
	"adaptive-rag/internal/storage/metadata"
	apperrors "adaptive-rag/pkg/errors"
)

type fakeRouter struct {
	questions []string
	memory    []router.Turn
	cleared   bool
	web       bool
}

func (f *fakeRouter) Process(ctx context.Context, q string) router.QueryResult {
	f.questions = append(f.questions, q)
	return router.QueryResult{Answer: "answer to " + q, Sources: []router.SourceRef{}, Method: router.MethodGeneral, EvaluationScore: 0.9, IterationCount: 1, Question: q}
}
func (f *fakeRouter) ChatMemory() []router.Turn {
	out := make([]router.Turn, len(f.memory))
	copy(out, f.memory)
	return out
}
func (f *fakeRouter) ClearChatMemory()       { f.cleared = true; f.memory = nil }
func (f *fakeRouter) WebSearchEnabled() bool { return f.web }

type fakeDocs struct {
	added    [][]string
	stats    rag.ProcessingStats
	reject   string // 该扩展名的文件视为处理失败
	clearErr error
	cleared  bool
}

func (f *fakeDocs) AddDocuments(ctx context.Context, paths []string) rag.ProcessingStats {
	f.added = append(f.added, paths)
	s := f.stats
	s.TotalFiles = len(paths)
	for _, p := range paths {
		if f.reject != "" && filepath.Ext(p) == f.reject {
			continue
		}
		s.ProcessedFiles = append(s.ProcessedFiles, p)
	}
	return s
}
func (f *fakeDocs) Stats(ctx context.Context) rag.IndexStats {
	return rag.IndexStats{TotalVectorCount: 7, Dimension: 384, Namespaces: map[string]rag.NamespaceStats{"hybrid-rag": {VectorCount: 7}}}
}
func (f *fakeDocs) Clear(ctx context.Context) error {
	f.cleared = f.clearErr == nil
	return f.clearErr
}
func (f *fakeDocs) SupportedFormats() []string { return []string{".md", ".txt"} }
func (f *fakeDocs) Documents(ctx context.Context) ([]*metadata.Document, error) {
	return []*metadata.Document{{ID: "d1", Name: "a.txt", Status: metadata.StatusIndexed}}, nil
}

func newServer(t *testing.T, r QueryRouter, d DocumentService) *server.Hertz {
	t.Helper()
	h := NewHandler(r, d, t.TempDir())
	rt := NewRouter(h, middleware.NewMiddleware(nil))
	rt.EnableMetrics(true)
	return rt.Build(":0")
}

func doJSON(s *server.Hertz, method, path string, body []byte) *ut.ResponseRecorder {
	return ut.PerformRequest(s.Engine, method, path, &ut.Body{Body: bytes.NewReader(body), Len: len(body)},
		ut.Header{Key: "Content-Type", Value: "application/json"})
}

func decode(t *testing.T, w *ut.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Result().Body(), &out), "body: %s", w.Result().Body())
	return out
}

func TestHealthCheck(t *testing.T) {
	s := newServer(t, &fakeRouter{web: true}, &fakeDocs{})
	w := doJSON(s, "GET", "/api/health", nil)
	require.Equal(t, 200, w.Result().StatusCode())
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, true, body["rag_app_initialized"])
	assert.Equal(t, true, body["smart_router_initialized"])
	assert.Equal(t, true, body["web_search_enabled"])
}

func TestHealthCheck_Uninitialized(t *testing.T) {
	s := newServer(t, nil, nil)
	body := decode(t, doJSON(s, "GET", "/api/health", nil))
	assert.Equal(t, false, body["rag_app_initialized"])
	assert.Equal(t, false, body["smart_router_initialized"])
	assert.Equal(t, false, body["web_search_enabled"])
}

func TestQuery(t *testing.T) {
	fr := &fakeRouter{}
	s := newServer(t, fr, &fakeDocs{})

	w := doJSON(s, "POST", "/api/query", []byte(`{"question":"  hello  "}`))
	require.Equal(t, 200, w.Result().StatusCode())
	body := decode(t, w)
	assert.Equal(t, "answer to hello", body["answer"])
	assert.Equal(t, router.MethodGeneral, body["method"])
	assert.Equal(t, []interface{}{}, body["sources"])
	assert.Equal(t, []string{"hello"}, fr.questions)
}

func TestQuery_BadRequests(t *testing.T) {
	fr := &fakeRouter{}
	s := newServer(t, fr, &fakeDocs{})

	cases := map[string]string{
		`{}`:                "No question provided",
		`not json`:          "No question provided",
		`{"question":"   "}`: "Empty question",
	}
	for body, msg := range cases {
		w := doJSON(s, "POST", "/api/query", []byte(body))
		assert.Equal(t, 400, w.Result().StatusCode(), body)
		assert.Contains(t, string(w.Result().Body()), msg, body)
	}
	assert.Empty(t, fr.questions)
}

func TestQuery_NoRouter(t *testing.T) {
	s := newServer(t, nil, &fakeDocs{})
	w := doJSON(s, "POST", "/api/query", []byte(`{"question":"hi"}`))
	assert.Equal(t, 503, w.Result().StatusCode())
}

func TestStatsAndFormatsAndDocuments(t *testing.T) {
	s := newServer(t, &fakeRouter{}, &fakeDocs{})

	stats := decode(t, doJSON(s, "GET", "/api/stats", nil))
	assert.Equal(t, float64(7), stats["total_vector_count"])
	assert.Equal(t, float64(384), stats["dimension"])

	formats := decode(t, doJSON(s, "GET", "/api/formats", nil))
	assert.Equal(t, []interface{}{".md", ".txt"}, formats["formats"])

	docs := decode(t, doJSON(s, "GET", "/api/documents", nil))
	assert.Equal(t, float64(1), docs["total"])
}

func TestStats_Uninitialized(t *testing.T) {
	s := newServer(t, &fakeRouter{}, nil)
	w := doJSON(s, "GET", "/api/stats", nil)
	require.Equal(t, 200, w.Result().StatusCode())
	body := decode(t, w)
	assert.Equal(t, float64(0), body["total_vector_count"])
	assert.NotEmpty(t, body["error"])
}

func TestClear(t *testing.T) {
	docs := &fakeDocs{}
	s := newServer(t, &fakeRouter{}, docs)
	w := doJSON(s, "POST", "/api/clear", nil)
	require.Equal(t, 200, w.Result().StatusCode())
	assert.True(t, docs.cleared)
	assert.Equal(t, "Index cleared successfully", decode(t, w)["message"])

	docs.clearErr = errors.New("backend down")
	w = doJSON(s, "POST", "/api/clear", nil)
	assert.Equal(t, 500, w.Result().StatusCode())
	assert.Contains(t, string(w.Result().Body()), "backend down")

	docs.clearErr = apperrors.Wrap(apperrors.ErrUnavailable, "qdrant")
	w = doJSON(s, "POST", "/api/clear", nil)
	assert.Equal(t, 503, w.Result().StatusCode())
}

func TestChatMemory(t *testing.T) {
	fr := &fakeRouter{memory: []router.Turn{{Role: router.RoleUser, Content: "hi"}, {Role: router.RoleAssistant, Content: "hello"}}}
	s := newServer(t, fr, &fakeDocs{})

	body := decode(t, doJSON(s, "GET", "/api/chat/memory", nil))
	mem, ok := body["memory"].([]interface{})
	require.True(t, ok)
	require.Len(t, mem, 2)
	assert.Equal(t, "user", mem[0].(map[string]interface{})["role"])

	w := doJSON(s, "DELETE", "/api/chat/memory", nil)
	require.Equal(t, 200, w.Result().StatusCode())
	assert.True(t, fr.cleared)

	body = decode(t, doJSON(s, "GET", "/api/chat/memory", nil))
	assert.Equal(t, []interface{}{}, body["memory"])
}

func multipartBody(t *testing.T, files map[string]string) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func TestUpload(t *testing.T) {
	docs := &fakeDocs{stats: rag.ProcessingStats{SuccessfulFiles: 1, TotalChunks: 3, Errors: []string{}}}
	dir := t.TempDir()
	h := NewHandler(&fakeRouter{}, docs, dir)
	s := NewRouter(h, middleware.NewMiddleware(nil)).Build(":0")

	body, contentType := multipartBody(t, map[string]string{"notes.txt": "some notes"})
	w := ut.PerformRequest(s.Engine, "POST", "/api/upload", &ut.Body{Body: bytes.NewReader(body), Len: len(body)},
		ut.Header{Key: "Content-Type", Value: contentType})
	require.Equal(t, 200, w.Result().StatusCode(), string(w.Result().Body()))

	resp := decode(t, w)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "Successfully uploaded 1 files", resp["message"])
	assert.Equal(t, []interface{}{"notes.txt"}, resp["uploaded_files"])

	require.Len(t, docs.added, 1)
	saved := filepath.Join(dir, "notes.txt")
	assert.Equal(t, []string{saved}, docs.added[0])
	data, err := os.ReadFile(saved)
	require.NoError(t, err)
	assert.Equal(t, "some notes", string(data))
}

func TestUpload_ListsOnlyProcessedFiles(t *testing.T) {
	docs := &fakeDocs{
		stats:  rag.ProcessingStats{SuccessfulFiles: 1, FailedFiles: 1, Errors: []string{"unsupported file type"}},
		reject: ".docx",
	}
	s := newServer(t, &fakeRouter{}, docs)

	body, contentType := multipartBody(t, map[string]string{"notes.txt": "some notes", "report.docx": "x"})
	w := ut.PerformRequest(s.Engine, "POST", "/api/upload", &ut.Body{Body: bytes.NewReader(body), Len: len(body)},
		ut.Header{Key: "Content-Type", Value: contentType})
	require.Equal(t, 200, w.Result().StatusCode(), string(w.Result().Body()))

	resp := decode(t, w)
	assert.Equal(t, []interface{}{"notes.txt"}, resp["uploaded_files"])
	require.Len(t, docs.added, 1)
	assert.Len(t, docs.added[0], 2)
}

func TestUpload_NoFiles(t *testing.T) {
	s := newServer(t, &fakeRouter{}, &fakeDocs{})
	body, contentType := multipartBody(t, nil)
	w := ut.PerformRequest(s.Engine, "POST", "/api/upload", &ut.Body{Body: bytes.NewReader(body), Len: len(body)},
		ut.Header{Key: "Content-Type", Value: contentType})
	assert.Equal(t, 400, w.Result().StatusCode())
	assert.Contains(t, string(w.Result().Body()), "No files provided")
}

func TestUpload_NothingProcessed(t *testing.T) {
	docs := &fakeDocs{stats: rag.ProcessingStats{FailedFiles: 1, Errors: []string{"unsupported"}}}
	s := newServer(t, &fakeRouter{}, docs)
	body, contentType := multipartBody(t, map[string]string{"deck.pptx": "x"})
	w := ut.PerformRequest(s.Engine, "POST", "/api/upload", &ut.Body{Body: bytes.NewReader(body), Len: len(body)},
		ut.Header{Key: "Content-Type", Value: contentType})
	assert.Equal(t, 400, w.Result().StatusCode())
	assert.Contains(t, string(w.Result().Body()), "Failed to process any files")
}
