// Package httpclient builds proxy-aware *http.Client instances shared by
// every venue API client (Gamma, CLOB). It generalizes the proxy-rotation
// logic that used to live duplicated inside each client: parse an
// HTTP/HTTPS or SOCKS5 proxy URL, build a Transport for it, and rotate to
// the next proxy in a configured list on demand.
package httpclient

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/proxy"
)

// DefaultTimeout is the request timeout new clients use unless overridden.
const DefaultTimeout = 30 * time.Second

// NewTransport builds an *http.Transport for proxyURL. A "socks5://" prefix
// selects a SOCKS5 dialer; anything else is treated as an HTTP/HTTPS proxy
// in "user:pass@host:port" form.
func NewTransport(proxyURL string) (*http.Transport, error) {
	if strings.HasPrefix(proxyURL, "socks5://") {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse socks5 proxy url: %w", err)
		}

		var auth *proxy.Auth
		if u.User != nil {
			auth = &proxy.Auth{User: u.User.Username()}
			if pass, ok := u.User.Password(); ok {
				auth.Password = pass
			}
		}

		dialer, err := proxy.SOCKS5("tcp", u.Host, auth, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("create socks5 dialer: %w", err)
		}
		return &http.Transport{Dial: dialer.Dial}, nil
	}

	parsed, err := url.Parse("http://" + proxyURL)
	if err != nil {
		return nil, fmt.Errorf("parse http proxy url: %w", err)
	}
	return &http.Transport{Proxy: http.ProxyURL(parsed)}, nil
}

// RotatingClient wraps an *http.Client that can be pointed at the next
// proxy in a fixed list, used by venue clients that rotate proxies after a
// request failure (rate limiting, IP bans).
type RotatingClient struct {
	mu      sync.Mutex
	client  *http.Client
	timeout time.Duration
	proxies []string
	current int
}

// New builds a RotatingClient. With no proxies, every request uses the
// direct (no-proxy) transport. The first proxy in the list, if any, is
// active immediately.
func New(timeout time.Duration, proxies []string) (*RotatingClient, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	rc := &RotatingClient{
		timeout: timeout,
		proxies: proxies,
	}

	if len(proxies) == 0 {
		rc.client = &http.Client{Timeout: timeout}
		return rc, nil
	}

	transport, err := NewTransport(proxies[0])
	if err != nil {
		return nil, err
	}
	rc.client = &http.Client{Timeout: timeout, Transport: transport}
	return rc, nil
}

// Client returns the current underlying *http.Client.
func (rc *RotatingClient) Client() *http.Client {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.client
}

// Rotate switches to the next proxy in the list, wrapping around. It
// returns an error if fewer than two proxies are configured.
func (rc *RotatingClient) Rotate() error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if len(rc.proxies) <= 1 {
		return fmt.Errorf("no more proxies to rotate")
	}

	rc.current = (rc.current + 1) % len(rc.proxies)
	transport, err := NewTransport(rc.proxies[rc.current])
	if err != nil {
		return err
	}
	rc.client = &http.Client{Timeout: rc.timeout, Transport: transport}
	return nil
}

// CurrentIndex reports which proxy in the list is currently active.
func (rc *RotatingClient) CurrentIndex() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.current
}

// ProxyCount reports how many proxies are configured.
func (rc *RotatingClient) ProxyCount() int {
	return len(rc.proxies)
}
