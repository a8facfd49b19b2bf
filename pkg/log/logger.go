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

package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger 简单封装，供 internal 使用
type Logger struct {
	*slog.Logger
	level slog.Level
	out   io.Writer
}

// Config 日志配置（可与 config 包对接）
type Config struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// ParseLevel 将配置字符串转为 slog.Level，未知值按 info 处理
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// NewLogger 根据配置创建 Logger，cfg 可为 nil 使用默认
func NewLogger(cfg *Config) (*Logger, error) {
	level := slog.LevelInfo
	var out io.Writer = os.Stdout
	if cfg != nil {
		level = ParseLevel(cfg.Level)
		if cfg.File != "" {
			f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err == nil {
				out = f
			} else {
				// 打不开日志文件时退回 stdout
				slog.Warn("无法打开日志文件，使用 stdout", "file", cfg.File, "error", err)
			}
		}
	}
	return newLogger(out, level, cfg != nil && cfg.Format == "text"), nil
}

// NewWithWriter 输出到指定 writer，测试中使用
func NewWithWriter(w io.Writer, level string) *Logger {
	return newLogger(w, ParseLevel(level), true)
}

// Nop 丢弃所有输出
func Nop() *Logger {
	return newLogger(io.Discard, slog.LevelError, true)
}

func newLogger(out io.Writer, level slog.Level, text bool) *Logger {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewJSONHandler(out, opts)
	if text {
		h = slog.NewTextHandler(out, opts)
	}
	return &Logger{Logger: slog.New(h), level: level, out: out}
}

// Level 当前日志级别
func (l *Logger) Level() slog.Level {
	return l.level
}

// Output 日志输出目标，供 Hertz 等第三方日志桥接复用
func (l *Logger) Output() io.Writer {
	return l.out
}

// With 返回附加属性的子 Logger
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), level: l.level, out: l.out}
}
