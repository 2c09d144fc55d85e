package contacts

import (
	"regexp"
)

var (
	guessDomains = []string{
		"gmail.com",
		"yahoo.com",
		"hotmail.com",
		"outlook.com",
		"protonmail.com",
		"icloud.com",
		"mail.com",
		"aol.com",
	}

	nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

// GuessEmails genera las direcciones plausibles para handle: 8 patrones de nombre
// por cada uno de los 8 proveedores gratuitos, en orden de proveedor. Son conjeturas
// sin verificar; no se deduplican para mantener la cardinalidad fija.
func GuessEmails(handle string) []string {
	clean := nonAlnum.ReplaceAllString(handle, "")
	locals := []string{
		handle,
		clean,
		handle + ".contact",
		handle + ".official",
		"official." + handle,
		"contact." + handle,
		"info." + handle,
		handle + ".info",
	}

	out := make([]string, 0, len(guessDomains)*len(locals))
	for _, domain := range guessDomains {
		for _, local := range locals {
			out = append(out, local+"@"+domain)
		}
	}
	return out
}
