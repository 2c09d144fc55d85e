package netutil

import (
	"context"
	"net"
	"net/http"
	"time"

	apperrors "social-rec/internal/platform/errors"
)

const (
	// DefaultCheckAddr es un resolver DNS público con alta disponibilidad.
	DefaultCheckAddr = "8.8.8.8:53"
	// DefaultCheckURL se usa cuando el dial directo está filtrado.
	DefaultCheckURL = "https://www.google.com"
)

// Checker verifica que haya salida a internet antes de lanzar las fuentes.
type Checker struct {
	Addr    string
	URL     string
	Timeout time.Duration
	Dial    func(ctx context.Context, network, addr string) (net.Conn, error)
	Client  *http.Client
}

// NewChecker retorna un Checker con los destinos y timeouts por defecto.
func NewChecker() *Checker {
	return &Checker{
		Addr:    DefaultCheckAddr,
		URL:     DefaultCheckURL,
		Timeout: 3 * time.Second,
	}
}

// Check intenta primero un dial TCP y, si falla, un GET HTTP. Retorna un
// NetworkError si ninguno de los dos responde dentro del timeout.
func (p *Checker) Check(ctx context.Context) error {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	dial := p.Dial
	if dial == nil {
		d := &net.Dialer{Timeout: timeout}
		dial = d.DialContext
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	conn, dialErr := dial(dialCtx, "tcp", p.Addr)
	cancel()
	if dialErr == nil {
		conn.Close()
		return nil
	}

	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	reqCtx, cancelReq := context.WithTimeout(ctx, timeout)
	defer cancelReq()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, p.URL, nil)
	if err != nil {
		return apperrors.NewNetworkError("connectivity check", p.URL, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return apperrors.WithContext(
			apperrors.NewNetworkError("connectivity check", p.URL, err),
			"dial_error", dialErr.Error(),
		)
	}
	resp.Body.Close()
	return nil
}
