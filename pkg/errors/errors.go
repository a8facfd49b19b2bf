// Package errors 提供统一错误辅助，不依赖 internal
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// 哨兵错误，各存储/客户端的具体错误包装它们，API 层据此映射状态码
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnavailable 依赖的外部服务未配置或不可用
	ErrUnavailable = errors.New("service unavailable")
)

// Wrap 包装错误并附加消息
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf 带格式的 Wrap
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is errors.Is 的转发，便于调用方只引入本包
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// HTTPStatus 按哨兵错误映射 HTTP 状态码，其余为 500
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
