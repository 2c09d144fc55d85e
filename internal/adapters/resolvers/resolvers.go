// Package resolvers implementa los resolvers de perfil por plataforma. Cada uno
// ejecuta una cadena de estrategias (endpoint estructurado, estado embebido,
// heurística DOM y superficie alternativa) y normaliza el resultado en un
// profile.Record.
package resolvers

import (
	"context"
	"encoding/json"
	"sort"

	"social-rec/internal/adapters/document"
	"social-rec/internal/adapters/fetch"
	"social-rec/internal/core/contacts"
	"social-rec/internal/core/profile"
	"social-rec/internal/platform/logx"
)

// Gateway es lo que los resolvers necesitan de la capa HTTP. *fetch.Gateway lo implementa.
type Gateway interface {
	Get(ctx context.Context, url string, headers map[string]string) (*fetch.Response, error)
	Pause(ctx context.Context, lo, hi float64) error
}

// session mantiene el estado de una resolución: páginas ya descargadas (las
// estrategias DOM reutilizan el HTML de las de estado embebido) y el id interno
// de la cuenta para los feeds. No es concurrente.
type session struct {
	source   string
	handle   string
	gw       Gateway
	mode     profile.Mode
	requests int
	pages    map[string]pageResult
	// userID es el id interno de la cuenta, necesario para los feeds.
	userID string
	// embedded guarda el objeto de usuario del estado embebido para reutilizarlo
	// en la extracción de actividad.
	embedded map[string]any
	// state es el JSON crudo del estado embebido, para iterar colecciones en orden.
	state json.RawMessage
}

type pageResult struct {
	doc *document.Document
	err error
}

func newSession(source, handle string, gw Gateway, mode profile.Mode) *session {
	return &session{
		source: source,
		handle: handle,
		gw:     gw,
		mode:   mode,
		pages:  make(map[string]pageResult),
	}
}

// get hace un GET; en modo stealth espera 1-3 unidades antes de cada petición salvo la primera.
func (s *session) get(ctx context.Context, url string, headers map[string]string) (*fetch.Response, error) {
	if s.mode == profile.ModeStealth && s.requests > 0 {
		if err := s.gw.Pause(ctx, 1, 3); err != nil {
			return nil, err
		}
	}
	s.requests++
	logx.SourceDebugf(s.source, "GET %s", url)
	return s.gw.Get(ctx, url, headers)
}

// json descarga url y la decodifica.
func (s *session) json(ctx context.Context, url string, headers map[string]string) (any, error) {
	resp, err := s.get(ctx, url, headers)
	if err != nil {
		return nil, err
	}
	return decodeJSON(resp.Body)
}

// page descarga y parsea url una sola vez por resolución.
func (s *session) page(ctx context.Context, url string) (*document.Document, error) {
	if p, ok := s.pages[url]; ok {
		return p.doc, p.err
	}
	resp, err := s.get(ctx, url, nil)
	var doc *document.Document
	if err == nil {
		doc, err = document.Parse(resp.Body)
	}
	s.pages[url] = pageResult{doc: doc, err: err}
	return doc, err
}

// finish aplica la pausa final de 2-5 unidades en modo stealth.
func (s *session) finish(ctx context.Context) {
	if s.mode != profile.ModeStealth {
		return
	}
	if err := s.gw.Pause(ctx, 2, 5); err != nil {
		logx.SourceDebugf(s.source, "pausa final interrumpida: %v", err)
	}
}

// harvest acumula contactos validados por contexto ("bio", "posts", ...).
type harvest struct {
	order  []string
	seen   map[string]bool
	emails map[string]map[string]struct{}
	phones map[string]map[string]struct{}
}

func newHarvest() *harvest {
	return &harvest{
		seen:   make(map[string]bool),
		emails: make(map[string]map[string]struct{}),
		phones: make(map[string]map[string]struct{}),
	}
}

// scan extrae de texts y guarda solo candidatos que pasan AcceptEmail/AcceptPhone.
func (h *harvest) scan(context string, texts ...string) {
	for _, text := range texts {
		if text == "" {
			continue
		}
		for _, c := range contacts.Extract(text, context) {
			switch c.Kind {
			case contacts.KindEmail:
				if contacts.AcceptEmail(c.Value) {
					h.add(h.emails, context, c.Value)
				}
			case contacts.KindPhone:
				if contacts.AcceptPhone(c.Value) {
					h.add(h.phones, context, c.Value)
				}
			}
		}
	}
}

func (h *harvest) add(set map[string]map[string]struct{}, context, value string) {
	if !h.seen[context] {
		h.seen[context] = true
		h.order = append(h.order, context)
	}
	if set[context] == nil {
		set[context] = make(map[string]struct{})
	}
	set[context][value] = struct{}{}
}

// apply escribe emails_from_<ctx>/phones_from_<ctx> y la unión en emails/phones.
// Los campos se agregan solo si hay candidatos.
func (h *harvest) apply(rec *profile.Record) {
	allEmails := make(map[string]struct{})
	allPhones := make(map[string]struct{})
	for _, c := range h.order {
		if e := sorted(h.emails[c]); len(e) > 0 {
			rec.SetFrom("emails_from_"+c, e, "contacts")
			for _, v := range e {
				allEmails[v] = struct{}{}
			}
		}
		if p := sorted(h.phones[c]); len(p) > 0 {
			rec.SetFrom("phones_from_"+c, p, "contacts")
			for _, v := range p {
				allPhones[v] = struct{}{}
			}
		}
	}
	if e := sorted(allEmails); len(e) > 0 {
		rec.SetFrom("emails", e, "contacts")
	}
	if p := sorted(allPhones); len(p) > 0 {
		rec.SetFrom("phones", p, "contacts")
	}
}

func sorted(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// activityTexts retorna el texto de cada elemento para la extracción de contactos.
func activityTexts(items []profile.ActivityItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Text)
	}
	return out
}

// run ejecuta la cadena de perfil y, si produjo algo, la de actividad.
// Retorna un registro vacío (no error) cuando ninguna estrategia produjo datos.
func run(ctx context.Context, s *session, profileChain profile.Chain, layout []string) (*profile.Record, *profile.Draft) {
	rec := profile.NewRecord(s.handle)
	draft, outcomes := profileChain.Run(ctx)
	if draft.Len() == 0 {
		logx.LogSource(logx.LevelDebug, s.source, "sin datos de perfil", logx.Fields{"strategies": len(outcomes)})
		return rec, draft
	}
	rec.Set("username", s.handle)
	draft.Into(rec, layout)
	return rec, draft
}
