// Package fetch implementa el gateway HTTP compartido por resolvers y finders:
// rotación de User-Agent, timeouts por petición, proxy opcional (SOCKS5/HTTP),
// ritmo de peticiones y retardos aleatorios reproducibles.
package fetch

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	apperrors "social-rec/internal/platform/errors"
)

const (
	// DefaultTimeout es el límite por petición cuando no se especifica otro.
	DefaultTimeout = 10 * time.Second
	// DefaultStealthProxy es el proxy SOCKS local (Tor) usado en modo stealth.
	DefaultStealthProxy = "socks5h://127.0.0.1:9050"
	// maxBodyBytes limita el cuerpo leído para evitar páginas descomunales.
	maxBodyBytes = 8 << 20
)

// DefaultUserAgents es el pool de navegadores de escritorio rotado en cada petición.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/92.0.4515.107 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:90.0) Gecko/20100101 Firefox/90.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.1.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:89.0) Gecko/20100101 Firefox/89.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36 Edg/91.0.864.59",
}

var defaultHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.5",
	"Upgrade-Insecure-Requests": "1",
}

// Options configura un Gateway. Los valores cero usan los defaults.
type Options struct {
	// Timeout por petición.
	Timeout time.Duration
	// ProxyURL admite socks5://, socks5h://, http:// y https://. Vacío = conexión directa.
	ProxyURL string
	// UserAgents reemplaza el pool por defecto.
	UserAgents []string
	// Seed fija la secuencia de User-Agents y retardos. 0 = semilla basada en el reloj.
	Seed uint64
	// RequestsPerSecond > 0 activa un token bucket compartido por todas las peticiones.
	RequestsPerSecond float64
	Burst             int
	// DelayUnit es la duración de una "unidad" de retardo en Pause. Default 1s.
	DelayUnit time.Duration
	// TLSConfig opcional para el transport (CAs adicionales).
	TLSConfig *tls.Config
	// Client permite inyectar un cliente HTTP (tests).
	Client *http.Client
}

// Request describe una petición saliente.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
	// Timeout sobrescribe el timeout del gateway para esta petición.
	Timeout time.Duration
}

// Response es la respuesta completa, con el cuerpo ya leído.
type Response struct {
	Status int
	Body   []byte
	Header http.Header
	// URL final tras redirecciones.
	URL string
}

// OK reporta si el status es 200.
func (r *Response) OK() bool {
	return r != nil && r.Status == http.StatusOK
}

// Text retorna el cuerpo como string.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return string(r.Body)
}

// Gateway es seguro para uso concurrente.
type Gateway struct {
	client   *http.Client
	opts     Options
	agents   []string
	limiter  *rate.Limiter
	proxied  bool
	mu       sync.Mutex
	rng      *rand.Rand
	sleepFor func(ctx context.Context, d time.Duration) error
}

// New construye un Gateway. Un ProxyURL inválido produce un ConfigurationError.
func New(opts Options) (*Gateway, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.DelayUnit <= 0 {
		opts.DelayUnit = time.Second
	}
	agents := opts.UserAgents
	if len(agents) == 0 {
		agents = DefaultUserAgents
	}
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	client := opts.Client
	if client == nil {
		transport, err := newTransport(opts.ProxyURL, opts.TLSConfig)
		if err != nil {
			return nil, err
		}
		client = &http.Client{Transport: transport}
	}

	g := &Gateway{
		client:   client,
		opts:     opts,
		agents:   agents,
		proxied:  strings.TrimSpace(opts.ProxyURL) != "",
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		sleepFor: sleepContext,
	}
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return g, nil
}

// Proxied reporta si el tráfico sale por un proxy.
func (g *Gateway) Proxied() bool {
	return g.proxied
}

// UserAgent elige un User-Agent del pool.
func (g *Gateway) UserAgent() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.agents[g.rng.IntN(len(g.agents))]
}

// Fetch ejecuta req y retorna la respuesta para cualquier status HTTP.
// Los fallos de transporte (DNS, conexión, proxy, timeout) se retornan como NetworkError.
func (g *Gateway) Fetch(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, apperrors.NewNetworkError(method, req.URL, err)
		}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = g.opts.Timeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(reqCtx, method, req.URL, body)
	if err != nil {
		return nil, apperrors.NewNetworkError(method, req.URL, err)
	}
	for k, v := range defaultHeaders {
		httpReq.Header.Set(k, v)
	}
	httpReq.Header.Set("User-Agent", g.UserAgent())
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, apperrors.NewNetworkError(method, req.URL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, apperrors.NewNetworkError(method, req.URL, err)
	}

	finalURL := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return &Response{
		Status: resp.StatusCode,
		Body:   data,
		Header: resp.Header,
		URL:    finalURL,
	}, nil
}

// Get hace un GET y exige status 200; cualquier otro status es un NetworkError.
func (g *Gateway) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	resp, err := g.Fetch(ctx, Request{Method: http.MethodGet, URL: url, Headers: headers})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return resp, apperrors.NewStatusError(http.MethodGet, url, resp.Status)
	}
	return resp, nil
}
