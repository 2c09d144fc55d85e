package resolvers

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout es el formato de fecha usado en los registros.
const TimestampLayout = "2006-01-02 15:04:05"

var firstNumber = regexp.MustCompile(`\d[\d,.]*[KkMm]?`)

// ParseCount convierte textos como "1,234", "1.5K" o "2M" a entero.
func ParseCount(text string) (int64, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	if s == "" {
		return 0, false
	}
	mult := 1.0
	switch s[len(s)-1] {
	case 'K', 'k':
		mult = 1_000
		s = s[:len(s)-1]
	case 'M', 'm':
		mult = 1_000_000
		s = s[:len(s)-1]
	}
	if mult == 1 {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return int64(math.Round(f * mult)), true
}

// CountIn busca el primer número (con sufijo K/M opcional) dentro de text.
func CountIn(text string) (int64, bool) {
	m := firstNumber.FindString(text)
	if m == "" {
		return 0, false
	}
	return ParseCount(m)
}

// FormatTimestamp formatea un epoch en segundos o milisegundos (más de 10 dígitos).
// Acepta enteros o strings numéricos; cualquier otro valor retorna "".
func FormatTimestamp(v any) string {
	var digits string
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		digits = strings.TrimSpace(t)
	case int:
		digits = strconv.Itoa(t)
	case int64:
		digits = strconv.FormatInt(t, 10)
	case float64:
		digits = strconv.FormatInt(int64(t), 10)
	case interface{ String() string }:
		digits = t.String()
	default:
		return ""
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n <= 0 {
		return ""
	}
	if len(digits) > 10 {
		return time.UnixMilli(n).UTC().Format(TimestampLayout)
	}
	return time.Unix(n, 0).UTC().Format(TimestampLayout)
}
