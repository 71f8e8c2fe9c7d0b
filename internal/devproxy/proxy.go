// Package devproxy forwards API path prefixes to the backend service so the
// web shell and the API share one origin during development.
package devproxy

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/drichardson-tmp/workout-tracker/internal/platform/config"
	"github.com/drichardson-tmp/workout-tracker/internal/platform/metrics"
	"github.com/drichardson-tmp/workout-tracker/internal/platform/requestctx"
)

// ErrInvalidRoute is returned for a route without a usable prefix or target.
var ErrInvalidRoute = errors.New("devproxy: invalid route")

// Proxy forwards requests for a set of path prefixes.
type Proxy struct {
	routes []route
}

type route struct {
	prefix  string
	handler http.Handler
}

// Option customises a Proxy.
type Option func(*options)

type options struct {
	transport http.RoundTripper
	metrics   *metrics.Metrics
}

// WithTransport overrides the upstream transport. It is wrapped by otelhttp.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithMetrics records forwarded requests.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// New builds a proxy for routes.
func New(routes []config.ProxyRoute, opts ...Option) (*Proxy, error) {
	o := options{transport: http.DefaultTransport}
	for _, opt := range opts {
		opt(&o)
	}
	transport := otelhttp.NewTransport(o.transport)

	p := &Proxy{}
	for _, rt := range routes {
		prefix := "/" + strings.Trim(strings.TrimSpace(rt.Prefix), "/")
		if prefix == "/" {
			return nil, fmt.Errorf("%w: empty prefix", ErrInvalidRoute)
		}
		target, err := url.Parse(strings.TrimSpace(rt.Target))
		if err != nil || target.Scheme == "" || target.Host == "" {
			return nil, fmt.Errorf("%w: %s target %q", ErrInvalidRoute, prefix, rt.Target)
		}
		p.routes = append(p.routes, route{
			prefix:  prefix,
			handler: newReverseProxy(prefix, target, rt.ChangeOrigin, transport, o.metrics),
		})
	}
	return p, nil
}

// Prefixes lists the forwarded prefixes in registration order.
func (p *Proxy) Prefixes() []string {
	out := make([]string, 0, len(p.routes))
	for _, rt := range p.routes {
		out = append(out, rt.prefix)
	}
	return out
}

// Mount registers every prefix, and every path below it, on r.
func (p *Proxy) Mount(r chi.Router) {
	if p == nil {
		return
	}
	for _, rt := range p.routes {
		r.Handle(rt.prefix, rt.handler)
		r.Handle(rt.prefix+"/*", rt.handler)
	}
}

func newReverseProxy(prefix string, target *url.URL, changeOrigin bool, transport http.RoundTripper, m *metrics.Metrics) http.Handler {
	record := func(status string) {
		if m != nil {
			m.ProxyRequestsTotal.WithLabelValues(prefix, status).Inc()
		}
	}

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			if !changeOrigin {
				pr.Out.Host = pr.In.Host
			}
		},
		Transport: transport,
		ModifyResponse: func(resp *http.Response) error {
			record(strconv.Itoa(resp.StatusCode))
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			record("error")
			requestctx.Logger(r.Context()).Warn("proxy upstream failed",
				zap.String("prefix", prefix),
				zap.String("target", target.String()),
				zap.Error(err),
			)
			w.WriteHeader(http.StatusBadGateway)
		},
	}
}
