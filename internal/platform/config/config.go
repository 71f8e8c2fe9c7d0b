package config

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultEnvFile         = ".env"
	defaultAddr            = ":3000"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultLoginPath       = "/login"
	defaultLogLevel        = "info"
	defaultEnvironment     = "development"
	defaultStorageDriver   = "cookie"
	defaultSQLitePath      = "workout-web.db"
	defaultBackendURL      = "http://localhost:8080"
	defaultBackendTimeout  = 8 * time.Second
	defaultOTLPEndpoint    = "localhost:4317"
	defaultServiceName     = "workout-web"
)

// defaultProxyPrefixes are forwarded to the backend when no proxy file is given.
var defaultProxyPrefixes = []string{"/api", "/health"}

// Config captures all runtime configuration organised by concern.
type Config struct {
	Environment string
	Server      ServerConfig
	Routes      RoutesConfig
	Log         LogConfig
	Storage     StorageConfig
	Backend     BackendConfig
	Proxy       ProxyConfig
	Tracing     TracingConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	// AssetsDir serves /assets/ from disk instead of the embedded files.
	AssetsDir       string
}

// RoutesConfig names the guard-exempt login route.
type RoutesConfig struct {
	LoginPath string
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string
}

// StorageConfig selects the persisted key-value storage driver.
type StorageConfig struct {
	Driver       string
	HashKey      []byte
	BlockKey     []byte
	CookieSecure bool
	RedisURL     string
	RedisTTL     time.Duration
	SQLitePath   string
}

// BackendConfig points at the workout tracker API.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

// TracingConfig controls span export for outbound API and proxy calls.
type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	Insecure    bool
	ServiceName string
}

// ProxyConfig lists the path prefixes forwarded to other services.
type ProxyConfig struct {
	Enabled bool
	File    string
	Routes  []ProxyRoute
}

// ProxyRoute forwards every request whose path starts with Prefix to Target.
// ChangeOrigin rewrites the Host header to the target host.
type ProxyRoute struct {
	Prefix       string `yaml:"-"`
	Target       string `yaml:"target"`
	ChangeOrigin bool   `yaml:"changeOrigin"`
}

// Production reports whether the shell runs in a production environment.
func (c Config) Production() bool {
	switch strings.ToLower(c.Environment) {
	case "prod", "production":
		return true
	}
	return false
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the configuration from defaults, .env overrides, environment
// variables and the optional proxy YAML file.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	addr := stringWithDefault(lookup, "WEB_HTTP_ADDR", "")
	if addr == "" {
		// Cloud Run style PORT fallback.
		if port := stringWithDefault(lookup, "PORT", ""); port != "" {
			addr = ":" + port
		} else {
			addr = defaultAddr
		}
	}

	cfg := Config{
		Environment: stringWithDefault(lookup, "WEB_ENV", defaultEnvironment),
		Server: ServerConfig{
			Addr:            addr,
			ReadTimeout:     durationWithDefault(lookup, "WEB_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:    durationWithDefault(lookup, "WEB_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:     durationWithDefault(lookup, "WEB_IDLE_TIMEOUT", defaultIdleTimeout),
			ShutdownTimeout: durationWithDefault(lookup, "WEB_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
			AssetsDir:       stringWithDefault(lookup, "WEB_ASSETS_DIR", ""),
		},
		Routes: RoutesConfig{
			LoginPath: stringWithDefault(lookup, "WEB_LOGIN_PATH", defaultLoginPath),
		},
		Log: LogConfig{
			Level: stringWithDefault(lookup, "WEB_LOG_LEVEL", defaultLogLevel),
		},
		Storage: StorageConfig{
			Driver:     strings.ToLower(stringWithDefault(lookup, "WEB_STORAGE_DRIVER", defaultStorageDriver)),
			HashKey:    bytesOrNil(stringWithDefault(lookup, "WEB_STORAGE_HASH_KEY", "")),
			BlockKey:   bytesOrNil(stringWithDefault(lookup, "WEB_STORAGE_BLOCK_KEY", "")),
			RedisURL:   stringWithDefault(lookup, "WEB_STORAGE_REDIS_URL", ""),
			RedisTTL:   durationWithDefault(lookup, "WEB_STORAGE_REDIS_TTL", 0),
			SQLitePath: stringWithDefault(lookup, "WEB_STORAGE_SQLITE_PATH", defaultSQLitePath),
		},
		Backend: BackendConfig{
			BaseURL: strings.TrimRight(stringWithDefault(lookup, "WEB_BACKEND_URL", defaultBackendURL), "/"),
			Timeout: durationWithDefault(lookup, "WEB_BACKEND_TIMEOUT", defaultBackendTimeout),
		},
		Proxy: ProxyConfig{
			Enabled: boolWithDefault(lookup, "WEB_PROXY_ENABLED", true),
			File:    stringWithDefault(lookup, "WEB_PROXY_CONFIG", ""),
		},
	}
	cfg.Storage.CookieSecure = boolWithDefault(lookup, "WEB_STORAGE_COOKIE_SECURE", cfg.Production())
	cfg.Tracing = TracingConfig{
		Enabled:     boolWithDefault(lookup, "WEB_OTEL_ENABLED", false),
		Endpoint:    stringWithDefault(lookup, "WEB_OTEL_ENDPOINT", defaultOTLPEndpoint),
		Insecure:    boolWithDefault(lookup, "WEB_OTEL_INSECURE", !cfg.Production()),
		ServiceName: stringWithDefault(lookup, "WEB_OTEL_SERVICE_NAME", defaultServiceName),
	}

	if cfg.Proxy.Enabled {
		routes, err := resolveProxyRoutes(cfg.Proxy.File, cfg.Backend.BaseURL)
		if err != nil {
			return Config{}, err
		}
		cfg.Proxy.Routes = routes
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var fields []string
	if !strings.HasPrefix(cfg.Routes.LoginPath, "/") {
		fields = append(fields, "Routes.LoginPath")
	}
	switch cfg.Storage.Driver {
	case "cookie", "memory", "sqlite":
	case "redis":
		if cfg.Storage.RedisURL == "" {
			fields = append(fields, "Storage.RedisURL")
		}
	default:
		fields = append(fields, "Storage.Driver")
	}
	if cfg.Storage.Driver == "sqlite" && cfg.Storage.SQLitePath == "" {
		fields = append(fields, "Storage.SQLitePath")
	}
	if n := len(cfg.Storage.HashKey); n != 0 && n < 32 {
		fields = append(fields, "Storage.HashKey")
	}
	switch len(cfg.Storage.BlockKey) {
	case 0, 16, 24, 32:
	default:
		fields = append(fields, "Storage.BlockKey")
	}
	if cfg.Backend.BaseURL != "" && !absoluteURL(cfg.Backend.BaseURL) {
		fields = append(fields, "Backend.BaseURL")
	}
	for _, route := range cfg.Proxy.Routes {
		if !strings.HasPrefix(route.Prefix, "/") || !absoluteURL(route.Target) {
			fields = append(fields, fmt.Sprintf("Proxy.Routes[%s]", route.Prefix))
		}
	}
	if len(fields) > 0 {
		return &ValidationError{fields: fields}
	}
	return nil
}

type proxyFile struct {
	Proxy map[string]ProxyRoute `yaml:"proxy"`
}

// resolveProxyRoutes reads the proxy table from path, or forwards the default
// prefixes to the backend when no file is configured.
func resolveProxyRoutes(path, backendURL string) ([]ProxyRoute, error) {
	if path == "" {
		if backendURL == "" {
			return nil, nil
		}
		routes := make([]ProxyRoute, 0, len(defaultProxyPrefixes))
		for _, prefix := range defaultProxyPrefixes {
			routes = append(routes, ProxyRoute{Prefix: prefix, Target: backendURL, ChangeOrigin: true})
		}
		return routes, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: unable to read proxy file %s: %w", path, err)
	}
	var file proxyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("config: failed parsing proxy file %s: %w", path, err)
	}

	prefixes := make([]string, 0, len(file.Proxy))
	for prefix := range file.Proxy {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)

	routes := make([]ProxyRoute, 0, len(prefixes))
	for _, prefix := range prefixes {
		route := file.Proxy[prefix]
		route.Prefix = prefix
		routes = append(routes, route)
	}
	return routes, nil
}

func absoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func bytesOrNil(value string) []byte {
	if value == "" {
		return nil
	}
	return []byte(value)
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
