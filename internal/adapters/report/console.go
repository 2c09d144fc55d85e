// Package report muestra el reporte agregado en consola y lo persiste como JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"social-rec/internal/core/profile"
	"social-rec/internal/platform/logx"
)

// Options controla el render de consola.
type Options struct {
	NoColor bool
	// Width es el ancho de la consola en columnas. 0 = detectarlo de w.
	Width int
}

const minTextWidth = 20

// withOutput completa opts con lo detectado en w.
func (o Options) withOutput(w io.Writer) Options {
	out := logx.DetectOutput(w)
	if o.Width <= 0 {
		o.Width = out.Width
	}
	if out.NoColor {
		o.NoColor = true
	}
	return o
}

// textWidth es el espacio disponible para el texto de un item.
func textWidth(width int) int {
	if n := width - 20; n > minTextWidth {
		return n
	}
	return minTextWidth
}

type styles struct {
	header lipgloss.Style
	source lipgloss.Style
	key    lipgloss.Style
	value  lipgloss.Style
	muted  lipgloss.Style
	err    lipgloss.Style
}

func newStyles(w io.Writer, opts Options) styles {
	r := lipgloss.NewRenderer(w)
	if opts.NoColor {
		r.SetColorProfile(termenv.Ascii)
	}
	return styles{
		header: r.NewStyle().Foreground(lipgloss.Color("#A6E3A1")).Bold(true),
		source: r.NewStyle().Foreground(lipgloss.Color("#F9E2AF")).Bold(true),
		key:    r.NewStyle().Foreground(lipgloss.Color("#06B6D4")),
		value:  r.NewStyle().Foreground(lipgloss.Color("#CDD6F4")),
		muted:  r.NewStyle().Foreground(lipgloss.Color("#6C7086")),
		err:    r.NewStyle().Foreground(lipgloss.Color("#F38BA8")),
	}
}

// Display escribe el reporte en w, una sección por fuente en orden de habilitación.
func Display(w io.Writer, rep *profile.Report, opts Options) error {
	opts = opts.withOutput(w)
	st := newStyles(w, opts)
	var b strings.Builder

	b.WriteString(st.header.Render(fmt.Sprintf("[+] Resultados para %s (modo %s)", rep.Handle, rep.Mode)))
	b.WriteString("\n\n")

	for _, e := range rep.Entries {
		b.WriteString(st.source.Render("[+] " + strings.ToUpper(e.Source)))
		b.WriteByte('\n')

		switch {
		case e.Failed():
			b.WriteString("  " + st.err.Render("Error: "+e.Err) + "\n")
		case e.Record.Empty():
			b.WriteString("  " + st.muted.Render("Sin resultados.") + "\n")
		default:
			writeRecord(&b, st, e.Record, textWidth(opts.Width))
		}
		b.WriteByte('\n')
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeRecord(b *strings.Builder, st styles, rec *profile.Record, limit int) {
	for _, key := range rec.Keys() {
		v, _ := rec.Get(key)
		lines, list := formatValue(v, limit)
		if !list {
			b.WriteString("  " + st.key.Render(key+":") + " " + st.value.Render(lines[0]) + "\n")
			continue
		}
		b.WriteString("  " + st.key.Render(key+":") + "\n")
		for _, line := range lines {
			b.WriteString("    " + st.value.Render("- "+line) + "\n")
		}
	}
}

// formatValue retorna las líneas de v y si debe mostrarse como lista.
func formatValue(v any, limit int) ([]string, bool) {
	switch val := v.(type) {
	case string:
		return []string{val}, false
	case []string:
		return val, true
	case []profile.ActivityItem:
		out := make([]string, len(val))
		for i, item := range val {
			out[i] = formatItem(item, limit)
		}
		return out, true
	case int, int64, float64, bool:
		return []string{fmt.Sprint(val)}, false
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return []string{fmt.Sprint(val)}, false
		}
		return []string{string(data)}, false
	}
}

func formatItem(item profile.ActivityItem, limit int) string {
	parts := []string{"[" + item.ID + "]"}
	if item.Timestamp != "" {
		parts = append(parts, item.Timestamp)
	}
	if item.MediaType != "" {
		parts = append(parts, "("+item.MediaType+")")
	}
	if text := strings.Join(strings.Fields(item.Text), " "); text != "" {
		parts = append(parts, truncate(text, limit))
	}
	if counts := formatEngagement(item.Engagement); counts != "" {
		parts = append(parts, counts)
	}
	if item.Duration > 0 {
		parts = append(parts, fmt.Sprintf("%gs", item.Duration))
	}
	if item.URL != "" {
		parts = append(parts, item.URL)
	}
	return strings.Join(parts, " ")
}

func formatEngagement(m map[string]int64) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, m[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// Banner escribe la cabecera de la corrida antes de lanzar las fuentes.
func Banner(w io.Writer, handle string, mode profile.Mode, sources []string, opts Options) error {
	st := newStyles(w, opts.withOutput(w))
	stealth := "desactivado"
	if mode == profile.ModeStealth {
		stealth = "activado"
	}
	lines := []struct{ key, value string }{
		{"Objetivo", handle},
		{"Modo stealth", stealth},
		{"Fuentes", strings.Join(sources, ", ")},
	}
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(st.key.Render("[*] "+l.key+":") + " " + st.value.Render(l.value) + "\n")
	}
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}
