package netutil

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// NormalizeHost extrae el hostname en minúsculas de una URL o de un host suelto.
// Elimina credenciales, puertos, brackets IPv6 y el punto final.
// Devuelve "" si no hay un host utilizable.
func NormalizeHost(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return ""
	}
	host := strings.TrimSuffix(strings.ToLower(parsed.Hostname()), ".")
	if host == "" || strings.ContainsAny(host, "*/ ") {
		return ""
	}
	return host
}

// RegistrableDomain retorna el eTLD+1 de host ("www.google.co.uk" -> "google.co.uk").
// Para IPs, hosts de una sola etiqueta o sufijos públicos retorna el host normalizado.
func RegistrableDomain(host string) string {
	h := NormalizeHost(host)
	if h == "" {
		return ""
	}
	if net.ParseIP(h) != nil {
		return h
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(h)
	if err != nil {
		return h
	}
	return domain
}

// SameSite reporta si a y b comparten dominio registrable.
func SameSite(a, b string) bool {
	da, db := RegistrableDomain(a), RegistrableDomain(b)
	return da != "" && da == db
}
