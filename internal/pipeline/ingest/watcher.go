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

package ingest

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"adaptive-rag/pkg/log"
)

// IngestFunc 处理一批新增/修改的文件路径
type IngestFunc func(ctx context.Context, paths []string)

// Watcher 监听目录，新建或写入受支持文件后去抖，再批量交给 IngestFunc
type Watcher struct {
	dir       string
	supported func(path string) bool
	ingest    IngestFunc
	debounce  time.Duration
	logger    *log.Logger
}

// NewWatcher debounce<=0 时为 2s
func NewWatcher(dir string, supported func(string) bool, ingest IngestFunc, debounce time.Duration, logger *log.Logger) *Watcher {
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Watcher{dir: dir, supported: supported, ingest: ingest, debounce: debounce, logger: logger}
}

// Run 阻塞直到 ctx 结束
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create watch dir: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info("开始监听目录", "dir", w.dir)

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if w.supported != nil && !w.supported(event.Name) {
				continue
			}
			pending[event.Name] = struct{}{}
			timer.Reset(w.debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("fsnotify error", "error", err)
		case <-timer.C:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			pending = make(map[string]struct{})
			if len(paths) > 0 {
				w.logger.Info("检测到新文件", "count", len(paths))
				w.ingest(ctx, paths)
			}
		}
	}
}
