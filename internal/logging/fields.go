package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// RequestFields 提供请求路径与缓存状态字段，供资产请求日志复用。
func RequestFields(method, path, cacheStatus string, status int, elapsedMS int64) logrus.Fields {
	return logrus.Fields{
		"method":       method,
		"path":         path,
		"cache_status": cacheStatus,
		"status":       status,
		"elapsed_ms":   elapsedMS,
	}
}
