package util

import (
	"net/http"
	"net/url"

	"golang.org/x/net/http/httpproxy"

	"github.com/ppiankov/ontobridge/internal/model"
)

// NewProxyFunc creates a proxy function from the HTTP configuration.
// If no proxy URLs are configured, falls back to environment variables.
func NewProxyFunc(cfg model.HTTPConfig) func(*http.Request) (*url.URL, error) {
	if cfg.HTTPProxy == "" && cfg.HTTPSProxy == "" {
		return http.ProxyFromEnvironment
	}

	pc := &httpproxy.Config{
		HTTPProxy:  cfg.HTTPProxy,
		HTTPSProxy: cfg.HTTPSProxy,
		NoProxy:    cfg.NoProxy,
	}
	if pc.HTTPSProxy == "" {
		pc.HTTPSProxy = cfg.HTTPProxy
	}
	proxy := pc.ProxyFunc()

	return func(req *http.Request) (*url.URL, error) {
		return proxy(req.URL)
	}
}
