package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/kumardeo/blogger-pwa/internal/assets"
	"github.com/kumardeo/blogger-pwa/internal/config"
	"github.com/kumardeo/blogger-pwa/internal/edgecache"
	"github.com/kumardeo/blogger-pwa/internal/logging"
	"github.com/kumardeo/blogger-pwa/internal/remote"
	"github.com/kumardeo/blogger-pwa/internal/server"
	"github.com/kumardeo/blogger-pwa/internal/server/routes"
	"github.com/kumardeo/blogger-pwa/internal/task"
	"github.com/kumardeo/blogger-pwa/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["mode"] = cfg.Mode
		fields["cache_backend"] = cfg.Cache.Backend
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// CLI 启动遵循“配置 → 缓存存储 → 资产解析器 → Fiber server”顺序，
	// 保证所有请求共享同一个缓存门面与后台写入队列。
	store, opener := buildCacheStore(cfg.Cache)
	tasks := task.NewGroup(logger, cfg.Cache.MaxPendingWrites)
	cacheFacade := edgecache.New(store, opener, tasks, logger)

	handler, err := buildAssetHandler(cfg, cacheFacade)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化资产解析器失败: %v\n", err)
		return 1
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["mode"] = cfg.Mode
	fields["cache_backend"] = cfg.Cache.Backend
	fields["listen_port"] = cfg.Global.ListenPort
	fields["bypass_cache"] = cfg.BypassCache()
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := startHTTPServer(cfg, handler, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}

	tasks.Wait()
	return 0
}

// buildCacheStore 按配置选择缓存后端，默认存储落在配置的命名空间内。
func buildCacheStore(cfg config.CacheConfig) (edgecache.Store, edgecache.Opener) {
	switch cfg.Backend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		base := edgecache.NewRedisStore(client)
		if cfg.Namespace != "" {
			return base.Open(cfg.Namespace), base
		}
		return base, base
	default:
		base := edgecache.NewMemoryStore()
		if cfg.Namespace != "" {
			return base.Open(cfg.Namespace), base
		}
		return base, base
	}
}

// buildAssetHandler 根据运行模式装配静态或远程解析器。
func buildAssetHandler(cfg *config.Config, cacheFacade *edgecache.Cache) (server.AssetHandler, error) {
	cacheOpts := cfg.Cache.Options(cfg.BypassCache())

	switch cfg.Mode {
	case config.ModeRemote:
		client := remote.NewClient(remote.ClientOptions{
			HTTPClient: remote.NewOriginClient(cfg.Remote.Timeout.DurationValue()),
			Cache:      cacheFacade,
			Origin:     cfg.Remote.Origin,
			Repository: cfg.Remote.Repository,
			Branch:     cfg.Remote.Branch,
			Token:      cfg.Remote.Token,
			BuildHash:  cfg.Remote.BuildHash,
		})
		return server.AssetHandlerFunc(func(ctx context.Context, req *edgecache.Request) (*edgecache.Response, error) {
			return client.Fetch(ctx, req, remote.FetchOptions{Options: cacheOpts})
		}), nil
	default:
		manifest, err := assets.LoadManifest(cfg.Static.ManifestPath)
		if err != nil {
			return nil, fmt.Errorf("加载清单失败: %w", err)
		}
		kv, err := assets.OpenKV(cfg.Static.StorePath)
		if err != nil {
			return nil, fmt.Errorf("打开资产库失败: %w", err)
		}
		fetcher := assets.NewFetcher(manifest, kv, cacheFacade)
		return server.AssetHandlerFunc(func(ctx context.Context, req *edgecache.Request) (*edgecache.Response, error) {
			return fetcher.Serve(ctx, req, assets.ServeOptions{Options: cacheOpts})
		}), nil
	}
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("blogger-pwa", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 BLOGGER_PWA_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("BLOGGER_PWA_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}

func startHTTPServer(cfg *config.Config, handler server.AssetHandler, logger *logrus.Logger) error {
	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Assets:     handler,
		Production: cfg.IsProduction(),
	})
	if err != nil {
		return err
	}
	routes.RegisterDiagnostics(app, cfg.Mode)

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
