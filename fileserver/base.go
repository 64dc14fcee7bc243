package fileserver

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const DefaultEchoURL = "https://checkip.amazonaws.com"

// BaseProvider supplies the public scheme://host[:port] served paths are
// appended to.
type BaseProvider interface {
	BaseURL(ctx context.Context) (*url.URL, error)
}

type staticBase struct {
	base *url.URL
}

func StaticBase(base *url.URL) BaseProvider {
	return staticBase{base: base}
}

func (s staticBase) BaseURL(ctx context.Context) (*url.URL, error) {
	return s.base, nil
}

// DiscoverBase asks an IP echo service for the machine's public address the
// first time it is needed and remembers the answer.
type DiscoverBase struct {
	EchoURL string
	Scheme  string
	Port    int
	Client  *http.Client

	mu   sync.Mutex
	base *url.URL
}

func NewDiscoverBase(port int) *DiscoverBase {
	return &DiscoverBase{
		EchoURL: DefaultEchoURL,
		Scheme:  "http",
		Port:    port,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *DiscoverBase) BaseURL(ctx context.Context) (*url.URL, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.base != nil {
		return d.base, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.EchoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discovering public address: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discovering public address: unexpected status code %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return nil, err
	}
	ip := net.ParseIP(strings.TrimSpace(string(body)))
	if ip == nil {
		return nil, fmt.Errorf("discovering public address: %q is not an IP", strings.TrimSpace(string(body)))
	}

	host := ip.String()
	if d.Port > 0 {
		host = net.JoinHostPort(host, fmt.Sprint(d.Port))
	} else if ip.To4() == nil {
		host = "[" + host + "]"
	}
	d.base = &url.URL{Scheme: d.Scheme, Host: host}
	log.WithField("base", d.base.String()).Info("discovered public base address")
	return d.base, nil
}

func joinURL(base *url.URL, path string) string {
	joined := *base
	joined.Path = strings.TrimRight(base.Path, "/") + path
	return joined.String()
}
