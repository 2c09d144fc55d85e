// Package document envuelve goquery con las consultas que usan las estrategias
// de extracción: meta tags, texto visible, scripts con estado embebido y enlaces.
package document

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	apperrors "social-rec/internal/platform/errors"
)

// Document es un HTML ya parseado. Es de solo lectura y puede compartirse entre estrategias.
type Document struct {
	doc *goquery.Document
	raw string
}

// Parse construye un Document a partir del cuerpo de una respuesta.
func Parse(body []byte) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.NewDecodeError("html", string(body), err)
	}
	return &Document{doc: doc, raw: string(body)}, nil
}

// Find ejecuta un selector CSS sobre el documento completo.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// Title retorna el contenido de <title> sin espacios sobrantes.
func (d *Document) Title() string {
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}

// Meta retorna el content de <meta property=key> o <meta name=key>.
func (d *Document) Meta(key string) string {
	for _, attr := range []string{"property", "name"} {
		sel := d.doc.Find(`meta[` + attr + `="` + key + `"]`).First()
		if v, ok := sel.Attr("content"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// Text retorna el texto visible del documento. Cada nodo de texto queda en su
// propia línea para que valores de elementos vecinos no se fusionen.
func (d *Document) Text() string {
	body := d.doc.Find("body")
	if body.Length() == 0 {
		body = d.doc.Selection
	}
	var b strings.Builder
	body.Each(func(_ int, s *goquery.Selection) {
		for _, n := range s.Nodes {
			collectText(n, &b)
		}
	})
	return strings.TrimSpace(b.String())
}

func collectText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		if t := strings.TrimSpace(n.Data); t != "" {
			b.WriteString(t)
			b.WriteByte('\n')
		}
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "template":
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

// ScriptContaining retorna el cuerpo del primer <script> que contiene marker.
func (d *Document) ScriptContaining(marker string) (string, bool) {
	var found string
	d.doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if strings.Contains(text, marker) {
			found = text
			return false
		}
		return true
	})
	return found, found != ""
}

// ScriptsOfType retorna el cuerpo de cada <script type=typ>.
func (d *Document) ScriptsOfType(typ string) []string {
	var out []string
	d.doc.Find(`script[type="` + typ + `"]`).Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

// ScriptByID retorna el cuerpo del <script id=id>.
func (d *Document) ScriptByID(id string) (string, bool) {
	sel := d.doc.Find(`script#` + id).First()
	if sel.Length() == 0 {
		return "", false
	}
	return sel.Text(), true
}

// StateJSON localiza el script que contiene marker y decodifica el primer objeto
// JSON que aparece después del marcador ("window.__INITIAL_STATE__ = {...};").
// Retorna ShapeError si no hay script o DecodeError si el literal no es JSON válido.
func (d *Document) StateJSON(marker string) (json.RawMessage, error) {
	script, ok := d.ScriptContaining(marker)
	if !ok {
		return nil, apperrors.NewShapeError(marker, "script no encontrado")
	}
	return AssignedJSON(script, marker)
}

// AssignedJSON decodifica el primer objeto JSON que sigue a marker en src.
func AssignedJSON(src, marker string) (json.RawMessage, error) {
	idx := strings.Index(src, marker)
	if idx < 0 {
		return nil, apperrors.NewShapeError(marker, "marcador ausente")
	}
	rest := src[idx+len(marker):]
	start := strings.IndexByte(rest, '{')
	if start < 0 {
		return nil, apperrors.NewShapeError(marker, "sin objeto JSON tras el marcador")
	}
	var raw json.RawMessage
	dec := json.NewDecoder(strings.NewReader(rest[start:]))
	if err := dec.Decode(&raw); err != nil {
		return nil, apperrors.NewDecodeError("json", rest[start:], err)
	}
	return raw, nil
}

// PatternJSON aplica re sobre el HTML crudo y decodifica el primer grupo capturado.
func (d *Document) PatternJSON(re *regexp.Regexp) (json.RawMessage, error) {
	m := re.FindStringSubmatch(d.raw)
	if len(m) < 2 {
		return nil, apperrors.NewShapeError(re.String(), "patrón no encontrado")
	}
	var raw json.RawMessage
	if err := json.Unmarshal([]byte(m[1]), &raw); err != nil {
		return nil, apperrors.NewDecodeError("json", m[1], err)
	}
	return raw, nil
}

// Links retorna el href de los primeros limit elementos <a href>. limit <= 0 = todos.
func (d *Document) Links(limit int) []string {
	var out []string
	d.doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		out = append(out, href)
		return limit <= 0 || len(out) < limit
	})
	return out
}

// FindByText retorna los elementos que casan con selector cuyo texto propio casa con re.
func (d *Document) FindByText(selector string, re *regexp.Regexp) *goquery.Selection {
	return d.doc.Find(selector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return re.MatchString(ownText(s))
	})
}

// ownText es el texto de los hijos directos de tipo texto.
func ownText(s *goquery.Selection) string {
	var b strings.Builder
	for _, n := range s.Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				b.WriteString(c.Data)
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// NextElement retorna el primer elemento tag que aparece después de s en orden
// de documento (descendientes incluidos), o una selección vacía.
func (d *Document) NextElement(s *goquery.Selection, tag string) *goquery.Selection {
	if s.Length() == 0 {
		return s
	}
	n := nextNode(s.Nodes[0])
	for n != nil {
		if n.Type == html.ElementNode && n.Data == tag {
			return d.doc.FindNodes(n)
		}
		n = nextNode(n)
	}
	return d.doc.FindNodes()
}

// nextNode avanza en preorden.
func nextNode(n *html.Node) *html.Node {
	if n.FirstChild != nil {
		return n.FirstChild
	}
	for n != nil {
		if n.NextSibling != nil {
			return n.NextSibling
		}
		n = n.Parent
	}
	return nil
}

// CompactText concatena los nodos de
// texto de s recortados y sin separador.
func CompactText(s *goquery.Selection) string {
	var b strings.Builder
	for _, n := range s.Nodes {
		compact(n, &b)
	}
	return b.String()
}

func compact(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(strings.TrimSpace(n.Data))
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		compact(c, b)
	}
}
