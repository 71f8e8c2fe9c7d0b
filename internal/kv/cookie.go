package kv

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	defaultStorageCookie   = "wt_storage"
	defaultPartitionCookie = "wt_partition"
	defaultCookieLifetime  = 365 * 24 * time.Hour
)

// ErrInvalidConfig indicates the provider was initialised with missing or invalid options.
var ErrInvalidConfig = errors.New("kv: invalid config")

// CookieConfig controls how storage cookies are encoded and scoped.
type CookieConfig struct {
	Name     string
	HashKey  []byte
	BlockKey []byte
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
	Lifetime time.Duration
}

func (cfg CookieConfig) withDefaults(name string) (CookieConfig, error) {
	if len(cfg.HashKey) == 0 {
		return cfg, fmt.Errorf("%w: hash key is required", ErrInvalidConfig)
	}
	switch len(cfg.BlockKey) {
	case 0, 16, 24, 32:
	default:
		return cfg, fmt.Errorf("%w: block key must be 16, 24 or 32 bytes", ErrInvalidConfig)
	}
	if cfg.Name == "" {
		cfg.Name = name
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	if cfg.SameSite == http.SameSiteDefaultMode {
		cfg.SameSite = http.SameSiteLaxMode
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = defaultCookieLifetime
	}
	return cfg, nil
}

func (cfg CookieConfig) codec() *securecookie.SecureCookie {
	codec := securecookie.New(cfg.HashKey, cfg.BlockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(cfg.Lifetime.Seconds()))
	return codec
}

func (cfg CookieConfig) cookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     cfg.Name,
		Value:    value,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: cfg.SameSite,
		MaxAge:   int(cfg.Lifetime.Seconds()),
	}
}

func (cfg CookieConfig) expired() *http.Cookie {
	c := cfg.cookie("")
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	return c
}

// CookieProvider keeps the whole partition inside a signed (and optionally
// encrypted) cookie, so the data lives with the browser like origin storage.
type CookieProvider struct {
	cfg   CookieConfig
	codec *securecookie.SecureCookie
}

// NewCookieProvider constructs a provider storing partitions in cookies.
func NewCookieProvider(cfg CookieConfig) (*CookieProvider, error) {
	cfg, err := cfg.withDefaults(defaultStorageCookie)
	if err != nil {
		return nil, err
	}
	return &CookieProvider{cfg: cfg, codec: cfg.codec()}, nil
}

// Open decodes the storage cookie. Missing or tampered cookies yield an empty partition.
func (p *CookieProvider) Open(w http.ResponseWriter, r *http.Request) (Storage, error) {
	values := make(map[string]string)
	if c, err := r.Cookie(p.cfg.Name); err == nil && c.Value != "" {
		var stored map[string]string
		if err := p.codec.Decode(p.cfg.Name, c.Value, &stored); err == nil {
			for k, v := range stored {
				values[k] = v
			}
		}
	}
	return &cookieStorage{provider: p, w: w, values: values}, nil
}

// Close is a no-op; cookie partitions hold no server resources.
func (p *CookieProvider) Close() error { return nil }

type cookieStorage struct {
	provider *CookieProvider
	w        http.ResponseWriter
	values   map[string]string
}

func (s *cookieStorage) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *cookieStorage) Set(_ context.Context, key, value string) error {
	s.values[key] = value
	return s.flush()
}

func (s *cookieStorage) Delete(_ context.Context, key string) error {
	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)
	return s.flush()
}

func (s *cookieStorage) flush() error {
	cfg := s.provider.cfg
	if len(s.values) == 0 {
		replaceCookie(s.w, cfg.expired())
		return nil
	}
	encoded, err := s.provider.codec.Encode(cfg.Name, s.values)
	if err != nil {
		return fmt.Errorf("kv: encode storage cookie: %w", err)
	}
	replaceCookie(s.w, cfg.cookie(encoded))
	return nil
}

// replaceCookie sets c on w, dropping any Set-Cookie for the same name that an
// earlier write in this response produced.
func replaceCookie(w http.ResponseWriter, c *http.Cookie) {
	header := w.Header()
	prefix := c.Name + "="
	var kept []string
	for _, v := range header.Values("Set-Cookie") {
		if !strings.HasPrefix(v, prefix) {
			kept = append(kept, v)
		}
	}
	header.Del("Set-Cookie")
	for _, v := range kept {
		header.Add("Set-Cookie", v)
	}
	http.SetCookie(w, c)
}
