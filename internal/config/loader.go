package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Mode == ModeStatic {
		absManifest, err := filepath.Abs(cfg.Static.ManifestPath)
		if err != nil {
			return nil, fmt.Errorf("无法解析清单路径: %w", err)
		}
		cfg.Static.ManifestPath = absManifest

		absStore, err := filepath.Abs(cfg.Static.StorePath)
		if err != nil {
			return nil, fmt.Errorf("无法解析资产库路径: %w", err)
		}
		cfg.Static.StorePath = absStore
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 5000)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("Environment", EnvProduction)
	v.SetDefault("Mode", ModeStatic)
	v.SetDefault("Cache.Backend", BackendMemory)
	v.SetDefault("Cache.Namespace", "pwa")
	v.SetDefault("Cache.EdgeTTL", 172800)
	v.SetDefault("Cache.DefaultETag", "strong")
	v.SetDefault("Cache.MaxPendingWrites", 64)
	v.SetDefault("Static.ManifestPath", "./manifest.json")
	v.SetDefault("Static.StorePath", "./assets.db")
	v.SetDefault("Remote.Branch", "main")
	v.SetDefault("Remote.Timeout", "30s")
}

func applyDefaults(cfg *Config) {
	if cfg.Global.ListenPort == 0 {
		cfg.Global.ListenPort = 5000
	}
	if cfg.Global.Environment == "" {
		cfg.Global.Environment = EnvProduction
	}
	cfg.Global.Environment = strings.ToLower(strings.TrimSpace(cfg.Global.Environment))
	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))
	cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))
	cfg.Cache.DefaultETag = strings.ToLower(strings.TrimSpace(cfg.Cache.DefaultETag))
	if cfg.Cache.EdgeTTL.DurationValue() == 0 && !cfg.Cache.DisableEdgeCache {
		cfg.Cache.EdgeTTL = Duration(48 * time.Hour)
	}
	if cfg.Cache.MaxPendingWrites == 0 {
		cfg.Cache.MaxPendingWrites = 64
	}
	if cfg.Remote.Branch == "" {
		cfg.Remote.Branch = "main"
	}
	if cfg.Remote.Timeout.DurationValue() == 0 {
		cfg.Remote.Timeout = Duration(30 * time.Second)
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
