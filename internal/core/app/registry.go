package app

import (
	"context"
	"strings"

	"social-rec/internal/adapters/fetch"
	"social-rec/internal/adapters/finders"
	"social-rec/internal/adapters/resolvers"
	"social-rec/internal/core/profile"
	apperrors "social-rec/internal/platform/errors"
)

// Source es una fuente del reporte: un resolver de plataforma o un finder.
type Source interface {
	Name() string
	Collect(ctx context.Context, handle string, mode profile.Mode) (*profile.Record, error)
}

// Gateway agrupa lo que necesitan resolvers y finders. *fetch.Gateway lo implementa.
type Gateway interface {
	Get(ctx context.Context, url string, headers map[string]string) (*fetch.Response, error)
	Fetch(ctx context.Context, req fetch.Request) (*fetch.Response, error)
	Pause(ctx context.Context, lo, hi float64) error
}

// Nombres de fuentes como constantes para evitar typos.
const (
	sourceInstagram = "instagram"
	sourceFacebook  = "facebook"
	sourceTwitter   = "twitter"
	sourceSnapchat  = "snapchat"
	sourceEmail     = "email"
	sourcePhone     = "phone"

	allSources = "all"
)

// DefaultOrder es el orden de habilitación cuando se pide "all".
var DefaultOrder = []string{sourceInstagram, sourceFacebook, sourceTwitter, sourceSnapchat, sourceEmail, sourcePhone}

// Registry resuelve nombres de fuente a implementaciones.
type Registry struct {
	order   []string
	sources map[string]Source
}

// NewRegistry construye el registro por defecto sobre gw.
func NewRegistry(gw Gateway) *Registry {
	r := &Registry{sources: make(map[string]Source)}
	r.Register(resolvers.NewInstagram(gw))
	r.Register(resolvers.NewFacebook(gw))
	r.Register(resolvers.NewTwitter(gw))
	r.Register(resolvers.NewSnapchat(gw))
	r.Register(finders.NewEmailFinder(gw))
	r.Register(finders.NewPhoneFinder(gw))
	return r
}

// Register agrega src al final del orden. Un nombre repetido reemplaza la
// implementación y conserva la posición.
func (r *Registry) Register(src Source) {
	if r.sources == nil {
		r.sources = make(map[string]Source)
	}
	name := strings.ToLower(src.Name())
	if _, ok := r.sources[name]; !ok {
		r.order = append(r.order, name)
	}
	r.sources[name] = src
}

// Names retorna los nombres registrados en orden.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Select valida names contra el registro y retorna las fuentes en el orden pedido.
// "all" expande al orden del registro; los repetidos se ignoran.
func (r *Registry) Select(names []string) ([]Source, error) {
	seen := make(map[string]bool, len(names))
	var ordered []string
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		if name == allSources {
			for _, n := range r.order {
				if !seen[n] {
					seen[n] = true
					ordered = append(ordered, n)
				}
			}
			continue
		}
		if _, ok := r.sources[name]; !ok {
			return nil, apperrors.NewConfigurationError(
				"platforms", name, "plataforma desconocida",
				"disponibles: "+strings.Join(r.Names(), ", "),
			)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		ordered = append(ordered, name)
	}
	if len(ordered) == 0 {
		return nil, apperrors.NewConfigurationError("platforms", strings.Join(names, ","), "no hay fuentes habilitadas", "usa -p all o una lista CSV")
	}

	out := make([]Source, len(ordered))
	for i, name := range ordered {
		out[i] = r.sources[name]
	}
	return out, nil
}
