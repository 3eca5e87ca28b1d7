package logger

import (
	"log/slog"
	"os"
	"strings"
)

// NewDefault 创建默认的 slog 日志记录器，输出到标准输出。
//
// level 支持 debug / info / warn / error，无法识别时退回 info。
func NewDefault(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}
