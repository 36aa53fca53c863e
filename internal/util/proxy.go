// Package util provides helpers shared by the sign-in CLI: outbound HTTP client setup
// with proxy support and path normalization.
package util

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/mcmsa/msaauth/internal/config"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"
)

// NewHTTPClient returns the client used for all stage requests. Request deadlines
// come from the chain's context, so the client itself has no timeout.
func NewHTTPClient(cfg *config.SDKConfig) *http.Client {
	httpClient := &http.Client{}
	if cfg == nil || strings.TrimSpace(cfg.ProxyURL) == "" {
		return httpClient
	}
	return SetProxy(cfg, httpClient)
}

// SetProxy configures the provided HTTP client with proxy settings from the configuration.
// It supports SOCKS5, HTTP, and HTTPS proxies. The client is returned unchanged when the
// proxy URL cannot be used.
func SetProxy(cfg *config.SDKConfig, httpClient *http.Client) *http.Client {
	var transport *http.Transport
	proxyURL, errParse := url.Parse(strings.TrimSpace(cfg.ProxyURL))
	if errParse != nil {
		log.Errorf("invalid proxy url: %v", errParse)
		return httpClient
	}

	switch proxyURL.Scheme {
	case "socks5":
		var proxyAuth *proxy.Auth
		if proxyURL.User != nil {
			username := proxyURL.User.Username()
			password, _ := proxyURL.User.Password()
			proxyAuth = &proxy.Auth{User: username, Password: password}
		}
		dialer, errSOCKS5 := proxy.SOCKS5("tcp", proxyURL.Host, proxyAuth, proxy.Direct)
		if errSOCKS5 != nil {
			log.Errorf("create SOCKS5 dialer failed: %v", errSOCKS5)
			return httpClient
		}
		transport = &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				if contextDialer, ok := dialer.(proxy.ContextDialer); ok {
					return contextDialer.DialContext(ctx, network, addr)
				}
				return dialer.Dial(network, addr)
			},
		}
	case "http", "https":
		transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	default:
		log.Warnf("unsupported proxy scheme %q, connecting directly", proxyURL.Scheme)
	}

	if transport != nil {
		log.Debugf("routing outbound requests through %s proxy %s", proxyURL.Scheme, proxyURL.Host)
		httpClient.Transport = transport
	}
	return httpClient
}
