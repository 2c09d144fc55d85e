package resolvers

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"social-rec/internal/adapters/document"
	"social-rec/internal/core/profile"
	apperrors "social-rec/internal/platform/errors"
	"social-rec/internal/platform/urlutil"
)

const (
	facebookBaseURL   = "https://www.facebook.com/"
	facebookMobileURL = "https://m.facebook.com/"
)

var (
	fbWorkPattern      = regexp.MustCompile(`Work`)
	fbEducationPattern = regexp.MustCompile(`Education`)
	fbCityPattern      = regexp.MustCompile(`Current city`)
	fbHometownPattern  = regexp.MustCompile(`Hometown`)
	digitsPattern      = regexp.MustCompile(`\d+`)

	facebookLayout = []string{
		"username", "name", "profile_url", "profile_picture", "about", "work",
		"education", "location", "hometown", "friend_count",
	}
)

// Facebook resuelve perfiles de facebook.com. La versión móvil es la superficie
// alternativa y solo se consulta si la de escritorio no dio un nombre.
type Facebook struct {
	BaseURL   string
	MobileURL string
	gw        Gateway
}

// NewFacebook crea el resolver con las URLs públicas.
func NewFacebook(gw Gateway) *Facebook {
	return &Facebook{BaseURL: facebookBaseURL, MobileURL: facebookMobileURL, gw: gw}
}

// Name implementa la interfaz de fuente.
func (fb *Facebook) Name() string { return "facebook" }

// Collect resuelve handle. Sin nombre el registro se considera vacío.
func (fb *Facebook) Collect(ctx context.Context, handle string, mode profile.Mode) (*profile.Record, error) {
	s := newSession(fb.Name(), handle, fb.gw, mode)
	defer s.finish(ctx)

	desktop := urlutil.JoinPath(fb.BaseURL, handle)
	mobile := urlutil.JoinPath(fb.MobileURL, handle)
	noName := func(d *profile.Draft) bool { return !d.Has("name") }

	chain := profile.Chain{Source: fb.Name(), Strategies: []profile.Strategy{
		profile.StrategyFunc{Label: "json-ld", Fields: []string{"name", "profile_picture", "about"}, Fn: func(ctx context.Context) (profile.Partial, error) {
			return fb.jsonLD(ctx, s, desktop)
		}},
		profile.StrategyFunc{Label: "desktop-dom", Fields: facebookLayout[1:], Fn: func(ctx context.Context) (profile.Partial, error) {
			return fb.desktop(ctx, s, desktop)
		}},
		profile.StrategyFunc{Label: "mobile-dom", Fields: facebookLayout[1:], Guard: noName, Fn: func(ctx context.Context) (profile.Partial, error) {
			return fb.mobile(ctx, s, mobile)
		}},
	}}

	rec, _ := run(ctx, s, chain, facebookLayout)
	if !rec.Has("name") {
		return profile.NewRecord(handle), nil
	}

	h := newHarvest()
	h.scan("about", rec.Text("about"))
	if doc, err := s.page(ctx, rec.Text("profile_url")); err == nil {
		if rec.Text("profile_url") == mobile {
			h.scan("page", document.CompactText(doc.Find("div#contact-info")))
		}
		h.scan("page", doc.Text())
	}
	h.apply(rec)
	return rec, nil
}

// jsonLD busca un objeto Person en los bloques application/ld+json.
func (fb *Facebook) jsonLD(ctx context.Context, s *session, url string) (profile.Partial, error) {
	doc, err := s.page(ctx, url)
	if err != nil {
		return nil, err
	}
	for _, block := range doc.ScriptsOfType("application/ld+json") {
		data, err := decodeJSON([]byte(block))
		if err != nil {
			continue
		}
		person := findPerson(data)
		if person == nil {
			continue
		}
		p := profile.Partial{}
		setStr(p, "name", person, "name")
		setStr(p, "profile_picture", person, "image", "url")
		setStr(p, "profile_picture", person, "image")
		setStr(p, "about", person, "description")
		setStr(p, "location", person, "address", "addressLocality")
		if work := names(person, "worksFor"); len(work) > 0 {
			p["work"] = work
		}
		if edu := names(person, "alumniOf"); len(edu) > 0 {
			p["education"] = edu
		}
		if _, ok := p["name"]; ok {
			p["profile_url"] = url
		}
		return p, nil
	}
	return nil, apperrors.NewShapeError("application/ld+json", "sin objeto Person")
}

// findPerson acepta un objeto, una lista o un @graph.
func findPerson(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		if typ, _ := str(t, "@type"); typ == "Person" {
			return t
		}
		if graph, ok := t["@graph"]; ok {
			return findPerson(graph)
		}
	case []any:
		for _, it := range t {
			if p := findPerson(it); p != nil {
				return p
			}
		}
	}
	return nil
}

// names lee key como objeto o lista de objetos con "name".
func names(v any, key string) []string {
	got, ok := lookup(v, key)
	if !ok {
		return nil
	}
	list, isList := got.([]any)
	if !isList {
		list = []any{got}
	}
	var out []string
	for _, it := range list {
		if n, ok := str(it, "name"); ok {
			out = append(out, n)
		}
	}
	return out
}

func (fb *Facebook) desktop(ctx context.Context, s *session, url string) (profile.Partial, error) {
	doc, err := s.page(ctx, url)
	if err != nil {
		return nil, err
	}
	p := profile.Partial{}
	if title := doc.Meta("og:title"); title != "" {
		p.SetString("name", strings.Split(title, " | ")[0])
	} else {
		p.SetString("name", doc.Find("h1#seo_h1_tag").First().Text())
	}
	p.SetString("profile_picture", doc.Meta("og:image"))
	p.SetString("about", document.CompactText(doc.Find(`div[data-pagelet="ProfileTileAbout"]`).First()))

	if work := sectionItems(doc, fbWorkPattern); len(work) > 0 {
		p["work"] = work
	}
	if edu := sectionItems(doc, fbEducationPattern); len(edu) > 0 {
		p["education"] = edu
	}
	p.SetString("location", sectionText(doc, fbCityPattern))
	p.SetString("hometown", sectionText(doc, fbHometownPattern))
	friendCount(doc, p)

	if _, ok := p["name"]; ok {
		p["profile_url"] = url
	}
	return p, nil
}

// sectionItems retorna el texto de los div hijos del bloque que sigue al rótulo.
func sectionItems(doc *document.Document, label *regexp.Regexp) []string {
	header := doc.FindByText("div", label).First()
	next := doc.NextElement(header, "div")
	var out []string
	next.ChildrenFiltered("div").Each(func(_ int, item *goquery.Selection) {
		if t := document.CompactText(item); t != "" {
			out = append(out, t)
		}
	})
	return out
}

func sectionText(doc *document.Document, label *regexp.Regexp) string {
	header := doc.FindByText("div", label).First()
	return document.CompactText(doc.NextElement(header, "div"))
}

func friendCount(doc *document.Document, p profile.Partial) {
	link := doc.Find(`a[href*="/friends"]`).First()
	if m := digitsPattern.FindString(document.CompactText(link)); m != "" {
		if n, err := strconv.ParseInt(m, 10, 64); err == nil {
			p["friend_count"] = n
		}
	}
}

func (fb *Facebook) mobile(ctx context.Context, s *session, url string) (profile.Partial, error) {
	doc, err := s.page(ctx, url)
	if err != nil {
		return nil, err
	}
	p := profile.Partial{}
	p.SetString("name", strings.Split(doc.Title(), " | ")[0])
	if src, ok := doc.Find("img.profpic").First().Attr("src"); ok {
		p.SetString("profile_picture", src)
	}
	p.SetString("about", document.CompactText(doc.Find("div#bio").First()))

	doc.Find("div.timeline-item").Each(func(_ int, section *goquery.Selection) {
		header := section.Find("header").First()
		if header.Length() == 0 {
			return
		}
		items := itemTexts(section)
		switch label := document.CompactText(header); {
		case strings.Contains(label, "Work"):
			if len(items) > 0 {
				p["work"] = items
			}
		case strings.Contains(label, "Education"):
			if len(items) > 0 {
				p["education"] = items
			}
		case strings.Contains(label, "Places"):
			for _, it := range items {
				if strings.Contains(it, "Current City") {
					p.SetString("location", strings.Replace(it, "Current City", "", 1))
				} else if strings.Contains(it, "Hometown") {
					p.SetString("hometown", strings.Replace(it, "Hometown", "", 1))
				}
			}
		}
	})
	friendCount(doc, p)

	if _, ok := p["name"]; ok {
		p["profile_url"] = url
	}
	return p, nil
}

func itemTexts(section *goquery.Selection) []string {
	var out []string
	section.Find("div.item").Each(func(_ int, item *goquery.Selection) {
		if t := document.CompactText(item); t != "" {
			out = append(out, t)
		}
	})
	return out
}
