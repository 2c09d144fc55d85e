package finders

import (
	"context"

	"social-rec/internal/core/contacts"
	"social-rec/internal/core/profile"
)

// PhoneQueries retorna las consultas de búsqueda de teléfonos para handle, en orden.
func PhoneQueries(handle string) []string {
	q := `"` + handle + `"`
	return []string{
		q + " phone",
		q + " contact",
		q + " phone number",
		q + " mobile",
		q + " contact information",
		q + " call",
	}
}

// PhoneFinder busca teléfonos asociados al handle en motores de búsqueda.
type PhoneFinder struct {
	searcher
}

// NewPhoneFinder crea el finder con los motores por defecto.
func NewPhoneFinder(gw Gateway) *PhoneFinder {
	return &PhoneFinder{searcher{source: "phone", gw: gw, engines: DefaultEngines, extract: contacts.ExtractPhones}}
}

// Name implementa la interfaz de fuente.
func (f *PhoneFinder) Name() string { return f.source }

// Collect produce found_phones con los números que pasan la validación.
func (f *PhoneFinder) Collect(ctx context.Context, handle string, mode profile.Mode) (*profile.Record, error) {
	rec := profile.NewRecord(handle)
	phones := sortedSet(f.run(ctx, PhoneQueries(handle), mode), contacts.AcceptPhone)
	if len(phones) > 0 {
		rec.SetFrom("found_phones", phones, "search")
	}
	return rec, nil
}
