package probe

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/healthalert/internal/domain"
	"github.com/hamed0406/healthalert/internal/metrics"
)

const userAgent = "healthalert/1.0"

// HTTPProber issues one GET per probe. Clients are cached per
// (proxy, tls-verify) pair so connections are reused across cycles.
//
// A definition without a timeout gets no deadline at all: such a probe can
// block its cycle for as long as the remote end holds the connection.
type HTTPProber struct {
	Logger  *zap.Logger
	DNS     *DNSDiagnoser
	Metrics metrics.Recorder

	base    *http.Transport
	mu      sync.Mutex
	clients map[clientKey]*http.Client
}

type clientKey struct {
	proxy    string
	insecure bool
}

// NewHTTPProber returns a prober. dns may be nil to skip diagnostics.
func NewHTTPProber(logger *zap.Logger, dns *DNSDiagnoser, m metrics.Recorder) *HTTPProber {
	if m == nil {
		m = metrics.Noop{}
	}
	return &HTTPProber{
		Logger:  logger,
		DNS:     dns,
		Metrics: m,
		base: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		},
		clients: make(map[clientKey]*http.Client),
	}
}

// Probe runs one exchange against t and classifies it.
func (p *HTTPProber) Probe(ctx context.Context, t domain.Target, hc *domain.HealthCheck) domain.Outcome {
	ex := p.exchange(ctx, t, hc)
	out := Classify(ex, hc)

	if out.Kind == domain.KindTransportError && p.DNS != nil {
		if class := p.DNS.Diagnose(ctx, t.Host); class != "" {
			out.Detail = out.Detail + " dns=" + class
		}
	}

	p.Metrics.Probe(ctx, out.Status, out.Latency)
	p.Logger.Debug("probe_completed",
		zap.String("group", t.Group),
		zap.String("sub_group", t.SubGroup),
		zap.String("target", t.Name),
		zap.String("url", out.URL),
		zap.String("kind", out.Kind.String()),
		zap.String("status", out.Status),
		zap.Int("status_code", out.StatusCode),
		zap.Duration("latency", out.Latency),
		zap.String("detail", out.Detail),
	)
	return out
}

func (p *HTTPProber) exchange(ctx context.Context, t domain.Target, hc *domain.HealthCheck) Exchange {
	ex := Exchange{URL: ResolveURL(t, hc)}

	pctx := ctx
	hasDeadline := hc.Timeout != nil && hc.Timeout.Duration > 0
	if hasDeadline {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, hc.Timeout.Duration)
		defer cancel()
	}
	timedOut := func() bool {
		return hasDeadline && ctx.Err() == nil && errors.Is(pctx.Err(), context.DeadlineExceeded)
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(pctx, http.MethodGet, ex.URL, nil)
	if err != nil {
		ex.Err = err
		return ex
	}
	req.Header = MergeHeaders(hc.Headers, t.Headers)
	if h := req.Header.Get("Host"); h != "" {
		req.Host = h
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := p.client(ResolveProxy(t, hc), hc.InsecureSkipVerify).Do(req)
	if err != nil {
		ex.Latency = time.Since(start)
		ex.Err = err
		ex.TimedOut = timedOut()
		return ex
	}
	defer resp.Body.Close()

	// content rules need the whole body
	body, err := io.ReadAll(resp.Body)
	ex.Latency = time.Since(start)
	ex.StatusCode = resp.StatusCode
	if err != nil {
		ex.Err = err
		ex.TimedOut = timedOut()
		return ex
	}
	ex.Body = string(body)
	return ex
}

func (p *HTTPProber) client(proxy *domain.Proxy, insecure bool) *http.Client {
	key := clientKey{insecure: insecure}
	if proxy != nil {
		key.proxy = proxyURL(proxy).String()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[key]; ok {
		return c
	}

	tr := p.base.Clone()
	if proxy != nil {
		tr.Proxy = http.ProxyURL(proxyURL(proxy))
	}
	if insecure {
		tr.TLSClientConfig.InsecureSkipVerify = true
	}
	c := &http.Client{Transport: tr}
	p.clients[key] = c
	return c
}

// ResolveURL builds the request URL: https and port 443 for secure
// definitions, http and port 80 otherwise, unless the target sets a port.
func ResolveURL(t domain.Target, hc *domain.HealthCheck) string {
	scheme, port := "http", 80
	if hc.Secure {
		scheme, port = "https", 443
	}
	if t.Port != 0 {
		port = t.Port
	}

	u := url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(t.Host, strconv.Itoa(port)),
	}
	if ref, err := url.Parse(hc.Path); err == nil {
		u.Path = ref.Path
		u.RawQuery = ref.RawQuery
	} else {
		u.Path = hc.Path
	}
	return u.String()
}

// MergeHeaders layers target headers over definition headers. Keys are
// canonicalized first, so "x-env" in a target overrides "X-Env" in a
// definition.
func MergeHeaders(definition, target map[string]string) http.Header {
	h := make(http.Header, len(definition)+len(target))
	for k, v := range definition {
		h.Set(k, v)
	}
	for k, v := range target {
		h.Set(k, v)
	}
	return h
}

// ResolveProxy returns the target proxy, else the definition proxy, else nil.
func ResolveProxy(t domain.Target, hc *domain.HealthCheck) *domain.Proxy {
	if t.Proxy != nil && t.Proxy.Host != "" {
		return t.Proxy
	}
	if hc.Proxy != nil && hc.Proxy.Host != "" {
		return hc.Proxy
	}
	return nil
}

func proxyURL(p *domain.Proxy) *url.URL {
	host := p.Host
	if p.Port != 0 {
		host = net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
	}
	return &url.URL{Scheme: "http", Host: host}
}
