package util

import (
	"net/http"
	"net/url"
	"strings"
)

// NewProxyFunc creates a proxy function for http.Transport.
// If no proxy URLs are provided, falls back to environment variables.
func NewProxyFunc(httpProxy, httpsProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	return func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

// BrowserProxy picks the proxy server a browser should be launched with
// for pages under baseURL. Empty means no explicit proxy.
func BrowserProxy(baseURL, httpProxy, httpsProxy string) string {
	if strings.HasPrefix(baseURL, "https://") && httpsProxy != "" {
		return httpsProxy
	}
	return httpProxy
}
