package session

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/NordCoder/Sugu/internal/obs"
)

type TransportConfig struct {
	Timeout   time.Duration
	VerifyTLS bool
	Tracing   bool
}

// NewBaseTransport is the network transport under the session layer.
func NewBaseTransport(cfg TransportConfig) http.RoundTripper {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	var rt http.RoundTripper = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !cfg.VerifyTLS,
			MinVersion:         tls.VersionTLS12,
		},
	}
	if cfg.Tracing {
		rt = obs.HTTPTransport(rt)
	}
	return rt
}
