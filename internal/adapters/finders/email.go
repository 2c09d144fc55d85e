package finders

import (
	"context"
	"strings"

	"social-rec/internal/core/contacts"
	"social-rec/internal/core/profile"
)

// EmailQueries retorna las consultas de búsqueda de emails para handle, en orden.
func EmailQueries(handle string) []string {
	q := `"` + handle + `"`
	queries := []string{q + " email", q + " contact"}
	for _, domain := range []string{"gmail.com", "yahoo.com", "hotmail.com", "outlook.com", "protonmail.com", "icloud.com"} {
		queries = append(queries, q+` "@`+domain+`"`)
	}
	return queries
}

// EmailFinder busca direcciones asociadas al handle en motores de búsqueda.
type EmailFinder struct {
	searcher
}

// NewEmailFinder crea el finder con los motores por defecto.
func NewEmailFinder(gw Gateway) *EmailFinder {
	return &EmailFinder{searcher{source: "email", gw: gw, engines: DefaultEngines, extract: contacts.ExtractEmails}}
}

// Name implementa la interfaz de fuente.
func (f *EmailFinder) Name() string { return f.source }

// Collect produce possible_emails (patrones sin verificar) y found_emails
// (direcciones encontradas que contienen el handle).
func (f *EmailFinder) Collect(ctx context.Context, handle string, mode profile.Mode) (*profile.Record, error) {
	rec := profile.NewRecord(handle)
	rec.SetFrom("possible_emails", contacts.GuessEmails(handle), "patterns")

	found := f.run(ctx, EmailQueries(handle), mode)
	needle := strings.ToLower(handle)
	emails := sortedSet(found, func(e string) bool {
		return strings.Contains(strings.ToLower(e), needle) && contacts.AcceptEmail(e)
	})
	if len(emails) > 0 {
		rec.SetFrom("found_emails", emails, "search")
	}
	return rec, nil
}
