package fetch

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/proxy"

	apperrors "social-rec/internal/platform/errors"
)

// newTransport clona el transport por defecto y lo enruta por proxyURL si se indica.
// SOCKS5 se resuelve con golang.org/x/net/proxy; HTTP(S) con Transport.Proxy.
// tlsConfig reemplaza la configuración TLS cuando no es nil (CAs de proxies con inspección).
func newTransport(proxyURL string, tlsConfig *tls.Config) (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 4
	if tlsConfig != nil {
		transport.TLSClientConfig = tlsConfig
	}

	raw := strings.TrimSpace(proxyURL)
	if raw == "" {
		return transport, nil
	}

	u, err := ParseProxyURL(raw)
	if err != nil {
		return nil, err
	}

	switch u.Scheme {
	case "socks5", "socks5h":
		dialer, err := proxy.FromURL(u, proxy.Direct)
		if err != nil {
			return nil, apperrors.NewConfigurationError("proxy", raw, err.Error(),
				"Usa el formato socks5h://host:puerto")
		}
		transport.Proxy = nil
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	case "http", "https":
		transport.Proxy = http.ProxyURL(u)
	}
	return transport, nil
}

// ParseProxyURL valida una URL de proxy: esquema soportado y host:puerto presentes.
func ParseProxyURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, apperrors.NewConfigurationError("proxy", raw, "URL inválida",
			"Ejemplo: --proxy socks5h://127.0.0.1:9050")
	}
	switch strings.ToLower(u.Scheme) {
	case "socks5", "socks5h", "http", "https":
		u.Scheme = strings.ToLower(u.Scheme)
	default:
		return nil, apperrors.NewConfigurationError("proxy", raw,
			"esquema no soportado (usa socks5, socks5h, http o https)",
			"Ejemplo: --proxy socks5h://127.0.0.1:9050")
	}
	if u.Hostname() == "" || u.Port() == "" {
		return nil, apperrors.NewConfigurationError("proxy", raw, "falta host o puerto",
			"Ejemplo: --proxy socks5h://127.0.0.1:9050")
	}
	return u, nil
}
