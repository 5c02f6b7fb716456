package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// InitLogger 配置全局 logrus：带完整时间戳的文本格式，可选同时写入日志文件。
// 未配置日志文件时返回的 Closer 为 nil
func InitLogger(cfg *Config) (io.Closer, error) {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.LogFile == "" {
		logrus.SetOutput(os.Stdout)
		return nil, nil
	}

	logPath := filepath.Clean(cfg.LogFile)
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logrus.SetOutput(io.MultiWriter(os.Stdout, logFile))
	return logFile, nil
}
