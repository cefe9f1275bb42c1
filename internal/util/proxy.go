// Package util provides helpers shared by the openai-auth packages: outbound
// proxy wiring for the token client, log level management and SSH tunnel hints.
package util

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"
)

// SetProxy routes httpClient through proxyURL. Supported schemes are socks5, http
// and https. An empty proxyURL leaves the client untouched; an unusable one is
// logged and also leaves it untouched. A nil client is replaced by a new one.
func SetProxy(proxyURL string, httpClient *http.Client) *http.Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	proxyURL = strings.TrimSpace(proxyURL)
	if proxyURL == "" {
		return httpClient
	}

	transport, err := NewProxyTransport(proxyURL)
	if err != nil {
		log.Errorf("proxy %q ignored: %v", RedactProxyURL(proxyURL), err)
		return httpClient
	}
	httpClient.Transport = transport
	return httpClient
}

// NewProxyTransport builds an http.Transport that dials through proxyURL.
func NewProxyTransport(proxyURL string) (*http.Transport, error) {
	parsed, errParse := url.Parse(proxyURL)
	if errParse != nil {
		return nil, fmt.Errorf("parse proxy url: %w", errParse)
	}

	switch parsed.Scheme {
	case "socks5", "socks5h":
		var proxyAuth *proxy.Auth
		if parsed.User != nil {
			password, _ := parsed.User.Password()
			proxyAuth = &proxy.Auth{User: parsed.User.Username(), Password: password}
		}
		dialer, errSOCKS5 := proxy.SOCKS5("tcp", parsed.Host, proxyAuth, proxy.Direct)
		if errSOCKS5 != nil {
			return nil, fmt.Errorf("create SOCKS5 dialer: %w", errSOCKS5)
		}
		return &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				if cd, ok := dialer.(proxy.ContextDialer); ok {
					return cd.DialContext(ctx, network, addr)
				}
				return dialer.Dial(network, addr)
			},
		}, nil
	case "http", "https":
		return &http.Transport{Proxy: http.ProxyURL(parsed)}, nil
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", parsed.Scheme)
	}
}

// RedactProxyURL hides the password of a proxy URL for logging.
func RedactProxyURL(proxyURL string) string {
	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return "<invalid>"
	}
	return parsed.Redacted()
}
