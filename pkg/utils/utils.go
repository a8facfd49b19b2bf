// Package utils 通用小工具，不依赖 internal
package utils

// FirstNonEmpty 返回第一个非空字符串，常用于 配置值 > 环境变量 > 默认值 的取值顺序
func FirstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}

// PositiveInt v <= 0 时返回 def
func PositiveInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
