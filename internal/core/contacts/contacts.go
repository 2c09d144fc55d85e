// Package contacts extrae y valida candidatos de contacto (emails y teléfonos)
// a partir de texto libre. No realiza I/O.
package contacts

import (
	"regexp"
	"sort"
	"strings"
)

// Kind identifica el tipo de candidato.
type Kind string

const (
	KindEmail Kind = "email"
	KindPhone Kind = "phone"
)

// Candidate es un identificador de contacto encontrado en un campo de texto.
type Candidate struct {
	Value       string
	Kind        Kind
	SourceField string
}

const maxEmailLength = 50

var (
	emailPattern      = regexp.MustCompile(`[\w.-]+@[\w.-]+\.\w+`)
	validEmailPattern = regexp.MustCompile(`^[\w.-]+@[\w.-]+\.\w+$`)

	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\+?[\d\-\(\)\s]{7,}`),                                 // internacional permisivo
		regexp.MustCompile(`\(\d{3}\)[\s\-]?\d{3}[\s\-]?\d{4}`),                   // (123) 456-7890
		regexp.MustCompile(`\d{3}[\s\-]\d{3}[\s\-]\d{4}`),                         // 123-456-7890
		regexp.MustCompile(`\+\d{1,3}[\s\-]?\d{1,4}[\s\-]?\d{1,4}[\s\-]?\d{1,4}`), // +1 123 456 7890
	}

	// Dominios de relleno que aparecen en plantillas y ejemplos.
	deniedDomains = []string{"example.com", "domain.com", "email.com"}
)

// Extract retorna los candidatos de text, emails primero y luego teléfonos,
// cada grupo ordenado y sin duplicados.
func Extract(text, sourceField string) []Candidate {
	emails := ExtractEmails(text)
	phones := ExtractPhones(text)
	out := make([]Candidate, 0, len(emails)+len(phones))
	for _, e := range emails {
		out = append(out, Candidate{Value: e, Kind: KindEmail, SourceField: sourceField})
	}
	for _, p := range phones {
		out = append(out, Candidate{Value: p, Kind: KindPhone, SourceField: sourceField})
	}
	return out
}

// ExtractEmails retorna las direcciones encontradas en text, descartando dominios
// de relleno y coincidencias de más de 50 caracteres.
func ExtractEmails(text string) []string {
	if text == "" {
		return nil
	}
	seen := make(map[string]struct{})
	for _, m := range emailPattern.FindAllString(text, -1) {
		if len(m) > maxEmailLength || isDenied(m) {
			continue
		}
		seen[m] = struct{}{}
	}
	return sortedKeys(seen)
}

// ExtractPhones retorna los números encontrados en text normalizados a dígitos
// y un "+" inicial. Descarta resultados de menos de 7 caracteres.
//
// No aplica el filtro de dígitos repetidos; ver AcceptPhone.
func ExtractPhones(text string) []string {
	if text == "" {
		return nil
	}
	seen := make(map[string]struct{})
	for _, pattern := range phonePatterns {
		for _, m := range pattern.FindAllString(text, -1) {
			phone := NormalizePhone(m)
			if len(phone) < 7 {
				continue
			}
			seen[phone] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// NormalizePhone elimina todo salvo dígitos y un "+" inicial.
func NormalizePhone(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// HasRepeatedDigits reporta si phone contiene el mismo dígito 4 o más veces seguidas.
func HasRepeatedDigits(phone string) bool {
	run := 0
	var last rune
	for _, r := range phone {
		if r < '0' || r > '9' {
			run = 0
			last = 0
			continue
		}
		if r == last {
			run++
		} else {
			run = 1
			last = r
		}
		if run >= 4 {
			return true
		}
	}
	return false
}

// IsLikelyValidPhone aplica la heurística de longitud (7 a 15) y de dígitos repetidos
// sobre el número normalizado.
func IsLikelyValidPhone(phone string) bool {
	cleaned := NormalizePhone(phone)
	if len(cleaned) < 7 || len(cleaned) > 15 {
		return false
	}
	return !HasRepeatedDigits(cleaned)
}

// IsValidEmail verifica la sintaxis completa de una dirección.
func IsValidEmail(email string) bool {
	return validEmailPattern.MatchString(email)
}

// AcceptEmail combina sintaxis, denylist y longitud máxima.
func AcceptEmail(email string) bool {
	return IsValidEmail(email) && len(email) <= maxEmailLength && !isDenied(email)
}

// AcceptPhone es el filtro que deben pasar los teléfonos antes de llegar a un registro.
func AcceptPhone(phone string) bool {
	return IsLikelyValidPhone(phone)
}

func isDenied(email string) bool {
	lower := strings.ToLower(email)
	for _, d := range deniedDomains {
		if strings.Contains(lower, d) {
			return true
		}
	}
	return false
}

func sortedKeys(set map[string]struct{}) []string {
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
