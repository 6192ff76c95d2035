package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kumardeo/blogger-pwa/internal/config"
)

// InitLogger 根据全局配置初始化 JSON 结构化日志。
// 日志文件不可用时降级到 stdout，进程照常启动。
func InitLogger(cfg config.GlobalConfig) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("无法解析日志级别 %q: %w", cfg.LogLevel, err)
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})

	output, outErr := fileOutput(cfg)
	logger.SetOutput(output)
	if outErr != nil {
		logger.WithError(outErr).WithFields(logrus.Fields{
			"action":   "logger_fallback",
			"path":     cfg.LogFilePath,
			"fallback": "stdout",
		}).Warn("日志文件不可写，降级到标准输出")
	}

	return logger, nil
}

// fileOutput 返回滚动日志 Writer；未配置文件或目录创建失败时退回 stdout。
func fileOutput(cfg config.GlobalConfig) (io.Writer, error) {
	if cfg.LogFilePath == "" {
		return os.Stdout, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogFilePath), 0o755); err != nil {
		return os.Stdout, fmt.Errorf("创建日志目录失败: %w", err)
	}

	return &lumberjack.Logger{
		Filename:   cfg.LogFilePath,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		Compress:   cfg.LogCompress,
		LocalTime:  true,
	}, nil
}
