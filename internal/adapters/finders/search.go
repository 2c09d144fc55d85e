// Package finders implementa la búsqueda de contactos (emails y teléfonos)
// mediante consultas a motores de búsqueda públicos.
package finders

import (
	"context"
	"sort"
	"time"

	"social-rec/internal/adapters/document"
	"social-rec/internal/adapters/fetch"
	"social-rec/internal/core/profile"
	"social-rec/internal/platform/logx"
	"social-rec/internal/platform/netutil"
	"social-rec/internal/platform/urlutil"
)

const (
	// maxOutlinks es cuántos enlaces de una página de resultados se siguen.
	maxOutlinks = 5
	// outlinkTimeout limita cada página seguida desde los resultados.
	outlinkTimeout = 5 * time.Second
)

// Engine describe un motor de búsqueda: URL base y nombre del parámetro de consulta.
type Engine struct {
	Name  string
	Base  string
	Param string
}

// URL arma la URL de búsqueda para query.
func (e Engine) URL(query string) string {
	return urlutil.WithQuery(e.Base, e.Param, query)
}

// DefaultEngines en el orden en que se consultan.
var DefaultEngines = []Engine{
	{Name: "google", Base: "https://www.google.com/search", Param: "q"},
	{Name: "bing", Base: "https://www.bing.com/search", Param: "q"},
	{Name: "yahoo", Base: "https://search.yahoo.com/search", Param: "p"},
	{Name: "duckduckgo", Base: "https://duckduckgo.com/html/", Param: "q"},
}

// Gateway es lo que los finders necesitan de la capa HTTP. *fetch.Gateway lo implementa.
type Gateway interface {
	Fetch(ctx context.Context, req fetch.Request) (*fetch.Response, error)
	Pause(ctx context.Context, lo, hi float64) error
}

// searcher recorre plantillas x motores y acumula candidatos.
type searcher struct {
	source  string
	gw      Gateway
	engines []Engine
	extract func(text string) []string
}

// run ejecuta todas las consultas. En modo stealth espera 3-7 unidades antes de
// cada búsqueda, pasa a la siguiente consulta tras el primer motor con resultados
// y no sigue enlaces.
func (s *searcher) run(ctx context.Context, queries []string, mode profile.Mode) map[string]struct{} {
	found := make(map[string]struct{})
	stealth := mode == profile.ModeStealth
	op := logx.StartOperation(s.source, "search")

	for _, query := range queries {
		logx.SourceDebugf(s.source, "consulta: %s", query)
		for _, engine := range s.engines {
			if stealth {
				if err := s.gw.Pause(ctx, 3, 7); err != nil {
					op.Fail(err)
					return found
				}
			}
			if ctx.Err() != nil {
				op.Fail(ctx.Err())
				return found
			}
			hits := s.search(ctx, engine.URL(query), !stealth)
			for _, h := range hits {
				found[h] = struct{}{}
			}
			if stealth && len(hits) > 0 {
				break
			}
		}
	}

	if stealth {
		if err := s.gw.Pause(ctx, 2, 5); err != nil {
			logx.SourceDebugf(s.source, "pausa final interrumpida: %v", err)
		}
	}
	op.AddField("candidates", len(found))
	op.Complete()
	return found
}

// search descarga una página de resultados y extrae candidatos. Si hubo
// resultados y follow es true, sigue hasta cinco enlaces a sitios externos.
func (s *searcher) search(ctx context.Context, searchURL string, follow bool) []string {
	doc, ok := s.page(ctx, fetch.Request{URL: searchURL})
	if !ok {
		return nil
	}
	hits := s.extract(doc.Text())
	if len(hits) == 0 || !follow {
		return hits
	}

	for _, href := range doc.Links(maxOutlinks) {
		if !urlutil.IsNavigable(href) {
			continue
		}
		target, ok := urlutil.Resolve(searchURL, href)
		if !ok || s.isEngine(target) {
			continue
		}
		linked, ok := s.page(ctx, fetch.Request{URL: target, Timeout: outlinkTimeout})
		if !ok {
			continue
		}
		hits = append(hits, s.extract(linked.Text())...)
	}
	return hits
}

func (s *searcher) page(ctx context.Context, req fetch.Request) (*document.Document, bool) {
	resp, err := s.gw.Fetch(ctx, req)
	if err != nil {
		logx.SourceDebugf(s.source, "fallo al descargar %s: %v", req.URL, err)
		return nil, false
	}
	if !resp.OK() {
		logx.SourceDebugf(s.source, "HTTP %d en %s", resp.Status, req.URL)
		return nil, false
	}
	doc, err := document.Parse(resp.Body)
	if err != nil {
		return nil, false
	}
	return doc, true
}

// isEngine reporta si target pertenece a algún motor (por dominio registrable).
func (s *searcher) isEngine(target string) bool {
	for _, e := range s.engines {
		if netutil.SameSite(target, e.Base) {
			return true
		}
	}
	return false
}

func sortedSet(set map[string]struct{}, keep func(string) bool) []string {
	var out []string
	for v := range set {
		if keep(v) {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
