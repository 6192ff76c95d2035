package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kumardeo/blogger-pwa/internal/edgecache"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// 服务运行模式。
const (
	ModeStatic = "static"
	ModeRemote = "remote"
)

// 缓存后端。
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// 运行环境。
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// GlobalConfig 描述全局运行时行为。
type GlobalConfig struct {
	ListenPort    int    `mapstructure:"ListenPort"`
	LogLevel      string `mapstructure:"LogLevel"`
	LogFilePath   string `mapstructure:"LogFilePath"`
	LogMaxSize    int    `mapstructure:"LogMaxSize"`
	LogMaxBackups int    `mapstructure:"LogMaxBackups"`
	LogCompress   bool   `mapstructure:"LogCompress"`
	Environment   string `mapstructure:"Environment"`
}

// CacheConfig 决定边缘缓存的后端与默认策略。
type CacheConfig struct {
	Backend          string   `mapstructure:"Backend"`
	RedisAddr        string   `mapstructure:"RedisAddr"`
	RedisPassword    string   `mapstructure:"RedisPassword"`
	RedisDB          int      `mapstructure:"RedisDB"`
	Namespace        string   `mapstructure:"Namespace"`
	EdgeTTL          Duration `mapstructure:"EdgeTTL"`
	BrowserTTL       Duration `mapstructure:"BrowserTTL"`
	DisableEdgeCache bool     `mapstructure:"DisableEdgeCache"`
	DefaultETag      string   `mapstructure:"DefaultETag"`
	MaxPendingWrites int      `mapstructure:"MaxPendingWrites"`
}

// StaticConfig 静态模式：构建清单 + 本地键值库。
type StaticConfig struct {
	ManifestPath string `mapstructure:"ManifestPath"`
	StorePath    string `mapstructure:"StorePath"`
}

// RemoteConfig 远程模式：源站镜像坐标。
type RemoteConfig struct {
	Origin     string   `mapstructure:"Origin"`
	Repository string   `mapstructure:"Repository"`
	Branch     string   `mapstructure:"Branch"`
	Token      string   `mapstructure:"Token"`
	BuildHash  string   `mapstructure:"BuildHash"`
	Timeout    Duration `mapstructure:"Timeout"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global GlobalConfig `mapstructure:",squash"`
	Mode   string       `mapstructure:"Mode"`
	Cache  CacheConfig  `mapstructure:"Cache"`
	Static StaticConfig `mapstructure:"Static"`
	Remote RemoteConfig `mapstructure:"Remote"`
}

// IsProduction 报告当前是否为生产环境。
func (c *Config) IsProduction() bool {
	return c.Global.Environment == EnvProduction
}

// BypassCache 开发环境跳过边缘缓存，每次请求都回源生产。
func (c *Config) BypassCache() bool {
	return !c.IsProduction()
}

// DefaultValidator 将配置的 ETag 形态映射为缓存层的取值。
func (cc CacheConfig) DefaultValidator() edgecache.Validator {
	if cc.DefaultETag == "weak" {
		return edgecache.ValidatorWeak
	}
	return edgecache.ValidatorStrong
}

// Options 把缓存配置转换为缓存门面的策略对象。
// BrowserTTL 为零表示不设置浏览器缓存头。
func (cc CacheConfig) Options(bypass bool) edgecache.Options {
	opts := edgecache.Options{
		DefaultETag:      cc.DefaultValidator(),
		DisableEdgeCache: cc.DisableEdgeCache,
		BypassCache:      bypass,
	}
	if ttl := cc.EdgeTTL.DurationValue(); ttl > 0 {
		opts.EdgeTTL = &ttl
	}
	if ttl := cc.BrowserTTL.DurationValue(); ttl > 0 {
		opts.BrowserTTL = &ttl
	}
	return opts
}
