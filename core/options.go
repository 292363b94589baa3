package core

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	opts "github.com/goliatone/go-options"
)

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type serviceBuilder struct {
	runtimeConfig     Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorMapper       ErrorMapper
	persistenceClient any
	repositoryFactory any
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	store             CommunityStore
	reader            CommunityReader
	now               func() time.Time
}

type Option func(*serviceBuilder)

func WithLogger(logger Logger) Option {
	return func(b *serviceBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *serviceBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *serviceBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *serviceBuilder) {
		b.errorMapper = mapper
	}
}

func WithPersistenceClient(client any) Option {
	return func(b *serviceBuilder) {
		b.persistenceClient = client
	}
}

// WithRepositoryFactory accepts either a RepositoryStoreFactory or a
// StoreProvider.
func WithRepositoryFactory(factory any) Option {
	return func(b *serviceBuilder) {
		b.repositoryFactory = factory
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *serviceBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *serviceBuilder) {
		b.optionsResolver = resolver
	}
}

func WithCommunityStore(store CommunityStore) Option {
	return func(b *serviceBuilder) {
		b.store = store
	}
}

func WithCommunityReader(reader CommunityReader) Option {
	return func(b *serviceBuilder) {
		b.reader = reader
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *serviceBuilder) {
		b.now = now
	}
}

func defaultServiceBuilder(runtime Config) serviceBuilder {
	return serviceBuilder{
		runtimeConfig:   runtime,
		metricsRecorder: NopMetricsRecorder{},
		errorMapper:     MapError,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
		now:             func() time.Time { return time.Now().UTC() },
	}
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

// EnvConfigLoader reads COMMUNITIES_* variables into the nested raw layout
// cfgx expects. The signing secret also honours the provider's own names.
type EnvConfigLoader struct {
	Prefix string
	Lookup func(key string) (string, bool)
}

var secretFallbackEnv = []string{"CLERK_WEBHOOK_SECRET", "NEXT_CLERK_WEBHOOK_SECRET"}

type envBinding struct {
	key     string
	path    []string
	convert func(string) (any, error)
}

var envBindings = []envBinding{
	{key: "SERVICE_NAME", path: []string{"service_name"}, convert: asString},
	{key: "WEBHOOK_PATH", path: []string{"webhook", "path"}, convert: asString},
	{key: "WEBHOOK_SIGNING_SECRET", path: []string{"webhook", "signing_secret"}, convert: asString},
	{key: "WEBHOOK_MAX_BODY_BYTES", path: []string{"webhook", "max_body_bytes"}, convert: asInt64},
	{key: "COMMUNITY_DEFAULT_BIO", path: []string{"community", "default_bio"}, convert: asString},
	{key: "HTTP_ADDRESS", path: []string{"http", "address"}, convert: asString},
	{key: "HTTP_READ_TIMEOUT", path: []string{"http", "read_timeout"}, convert: asDuration},
	{key: "HTTP_WRITE_TIMEOUT", path: []string{"http", "write_timeout"}, convert: asDuration},
	{key: "HTTP_SHUTDOWN_TIMEOUT", path: []string{"http", "shutdown_timeout"}, convert: asDuration},
	{key: "PERSISTENCE_DRIVER", path: []string{"persistence", "driver"}, convert: asString},
	{key: "PERSISTENCE_DSN", path: []string{"persistence", "dsn"}, convert: asString},
	{key: "PERSISTENCE_DEBUG", path: []string{"persistence", "debug"}, convert: asBool},
	{key: "PERSISTENCE_AUTO_MIGRATE", path: []string{"persistence", "auto_migrate"}, convert: asBool},
	{key: "PERSISTENCE_PING_TIMEOUT", path: []string{"persistence", "ping_timeout"}, convert: asDuration},
	{key: "CACHE_ENABLED", path: []string{"cache", "enabled"}, convert: asBool},
	{key: "CACHE_TTL", path: []string{"cache", "ttl"}, convert: asDuration},
	{key: "NOTIFY_ENABLED", path: []string{"notify", "enabled"}, convert: asBool},
	{key: "NOTIFY_AMQP_URL", path: []string{"notify", "amqp_url"}, convert: asString},
	{key: "NOTIFY_EXCHANGE", path: []string{"notify", "exchange"}, convert: asString},
}

func NewEnvConfigLoader() EnvConfigLoader {
	return EnvConfigLoader{Prefix: "COMMUNITIES_", Lookup: os.LookupEnv}
}

func (l EnvConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	lookup := l.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	prefix := l.Prefix
	if prefix == "" {
		prefix = "COMMUNITIES_"
	}

	raw := map[string]any{}
	for _, binding := range envBindings {
		value, ok := lookup(prefix + binding.key)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		converted, err := binding.convert(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("core: env %s%s: %w", prefix, binding.key, err)
		}
		setPath(raw, binding.path, converted)
	}

	if _, ok := lookupPath(raw, []string{"webhook", "signing_secret"}); !ok {
		for _, key := range secretFallbackEnv {
			if value, found := lookup(key); found && strings.TrimSpace(value) != "" {
				setPath(raw, []string{"webhook", "signing_secret"}, strings.TrimSpace(value))
				break
			}
		}
	}
	return raw, nil
}

func setPath(root map[string]any, path []string, value any) {
	node := root
	for _, segment := range path[:len(path)-1] {
		child, ok := node[segment].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[segment] = child
		}
		node = child
	}
	node[path[len(path)-1]] = value
}

func lookupPath(root map[string]any, path []string) (any, bool) {
	var node any = root
	for _, segment := range path {
		current, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		node, ok = current[segment]
		if !ok {
			return nil, false
		}
	}
	return node, true
}

func asString(value string) (any, error) { return value, nil }

func asInt64(value string) (any, error) {
	return strconv.ParseInt(value, 10, 64)
}

func asBool(value string) (any, error) {
	return strconv.ParseBool(value)
}

func asDuration(value string) (any, error) {
	return time.ParseDuration(value)
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// GoOptionsResolver merges defaults < loaded < runtime. Zero values in the
// loaded and runtime layers never override a lower layer.
type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}

	section := func(name string, values map[string]any) {
		if len(values) > 0 {
			layer[name] = values
		}
	}
	put := func(values map[string]any, key string, value any, set bool) {
		if includeZero || set {
			values[key] = value
		}
	}

	webhook := map[string]any{}
	put(webhook, "path", cfg.Webhook.Path, strings.TrimSpace(cfg.Webhook.Path) != "")
	put(webhook, "signing_secret", cfg.Webhook.SigningSecret, cfg.Webhook.SigningSecret != "")
	put(webhook, "max_body_bytes", cfg.Webhook.MaxBodyBytes, cfg.Webhook.MaxBodyBytes != 0)
	section("webhook", webhook)

	community := map[string]any{}
	put(community, "default_bio", cfg.Community.DefaultBio, cfg.Community.DefaultBio != "")
	section("community", community)

	httpCfg := map[string]any{}
	put(httpCfg, "address", cfg.HTTP.Address, strings.TrimSpace(cfg.HTTP.Address) != "")
	put(httpCfg, "read_timeout", cfg.HTTP.ReadTimeout, cfg.HTTP.ReadTimeout != 0)
	put(httpCfg, "write_timeout", cfg.HTTP.WriteTimeout, cfg.HTTP.WriteTimeout != 0)
	put(httpCfg, "shutdown_timeout", cfg.HTTP.ShutdownTimeout, cfg.HTTP.ShutdownTimeout != 0)
	section("http", httpCfg)

	persistence := map[string]any{}
	put(persistence, "driver", cfg.Persistence.Driver, strings.TrimSpace(cfg.Persistence.Driver) != "")
	put(persistence, "dsn", cfg.Persistence.DSN, strings.TrimSpace(cfg.Persistence.DSN) != "")
	put(persistence, "debug", cfg.Persistence.Debug, cfg.Persistence.Debug)
	put(persistence, "auto_migrate", cfg.Persistence.AutoMigrate, cfg.Persistence.AutoMigrate)
	put(persistence, "ping_timeout", cfg.Persistence.PingTimeout, cfg.Persistence.PingTimeout != 0)
	section("persistence", persistence)

	cache := map[string]any{}
	put(cache, "enabled", cfg.Cache.Enabled, cfg.Cache.Enabled)
	put(cache, "ttl", cfg.Cache.TTL, cfg.Cache.TTL != 0)
	section("cache", cache)

	notify := map[string]any{}
	put(notify, "enabled", cfg.Notify.Enabled, cfg.Notify.Enabled)
	put(notify, "amqp_url", cfg.Notify.AMQPURL, strings.TrimSpace(cfg.Notify.AMQPURL) != "")
	put(notify, "exchange", cfg.Notify.Exchange, strings.TrimSpace(cfg.Notify.Exchange) != "")
	section("notify", notify)

	return layer
}
