package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	switch g.Environment {
	case EnvProduction, EnvDevelopment:
	default:
		return newFieldError("Global.Environment", "仅支持 production/development")
	}

	switch c.Mode {
	case ModeStatic:
		if c.Static.ManifestPath == "" {
			return newFieldError("Static.ManifestPath", "不能为空")
		}
		if c.Static.StorePath == "" {
			return newFieldError("Static.StorePath", "不能为空")
		}
	case ModeRemote:
		if err := validateRepository(c.Remote.Repository); err != nil {
			return fmt.Errorf("Remote.Repository: %w", err)
		}
		if c.Remote.Origin != "" {
			if err := validateOrigin(c.Remote.Origin); err != nil {
				return fmt.Errorf("Remote.Origin: %w", err)
			}
		}
	default:
		return newFieldError("Mode", "仅支持 static/remote")
	}

	cc := c.Cache
	switch cc.Backend {
	case BackendMemory:
	case BackendRedis:
		if cc.RedisAddr == "" {
			return newFieldError("Cache.RedisAddr", "redis 后端必须提供地址")
		}
	default:
		return newFieldError("Cache.Backend", "仅支持 memory/redis")
	}
	switch cc.DefaultETag {
	case "strong", "weak":
	default:
		return newFieldError("Cache.DefaultETag", "仅支持 strong/weak")
	}
	if !cc.DisableEdgeCache && cc.EdgeTTL.DurationValue() <= 0 {
		return newFieldError("Cache.EdgeTTL", "必须大于 0，或设置 DisableEdgeCache")
	}
	if cc.BrowserTTL.DurationValue() < 0 {
		return newFieldError("Cache.BrowserTTL", "不能为负数")
	}
	if cc.MaxPendingWrites < 0 {
		return newFieldError("Cache.MaxPendingWrites", "不能为负数")
	}

	return nil
}

func validateRepository(repo string) error {
	if repo == "" {
		return errors.New("不能为空")
	}
	parts := strings.Split(repo, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("必须为 owner/name 形式: %s", repo)
	}
	return nil
}

func validateOrigin(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https，源站: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("源站缺少 Host: %s", raw)
	}
	return nil
}
