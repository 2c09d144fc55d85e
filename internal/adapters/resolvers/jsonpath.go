package resolvers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"social-rec/internal/core/profile"
	apperrors "social-rec/internal/platform/errors"
)

// decodeJSON decodifica preservando números como json.Number (IDs de 64 bits).
func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, apperrors.NewDecodeError("json", string(data), err)
	}
	return v, nil
}

// lookup navega v siguiendo claves (string) o índices (int).
func lookup(v any, path ...any) (any, bool) {
	cur := v
	for _, step := range path {
		switch key := step.(type) {
		case string:
			m, ok := cur.(map[string]any)
			if !ok {
				return nil, false
			}
			if cur, ok = m[key]; !ok {
				return nil, false
			}
		case int:
			arr, ok := cur.([]any)
			if !ok || key < 0 || key >= len(arr) {
				return nil, false
			}
			cur = arr[key]
		default:
			return nil, false
		}
	}
	return cur, cur != nil
}

// object exige que la ruta exista y sea un objeto; si no, ShapeError.
func object(v any, path ...any) (map[string]any, error) {
	got, ok := lookup(v, path...)
	if ok {
		if m, isMap := got.(map[string]any); isMap && len(m) > 0 {
			return m, nil
		}
	}
	return nil, apperrors.NewShapeError(pathString(path), "objeto ausente o vacío")
}

func pathString(path []any) string {
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = fmt.Sprint(p)
	}
	return strings.Join(parts, ".")
}

// str retorna un string no vacío en la ruta.
func str(v any, path ...any) (string, bool) {
	got, ok := lookup(v, path...)
	if !ok {
		return "", false
	}
	switch s := got.(type) {
	case string:
		s = strings.TrimSpace(s)
		return s, s != ""
	case json.Number:
		return s.String(), true
	}
	return "", false
}

// num retorna un entero en la ruta; acepta números JSON y strings numéricos.
func num(v any, path ...any) (int64, bool) {
	got, ok := lookup(v, path...)
	if !ok {
		return 0, false
	}
	switch n := got.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return int64(f), true
		}
	case float64:
		return int64(n), true
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

// boolean retorna un bool en la ruta.
func boolean(v any, path ...any) (bool, bool) {
	got, ok := lookup(v, path...)
	if !ok {
		return false, false
	}
	b, isBool := got.(bool)
	return b, isBool
}

// entry es un par clave/valor de un objeto JSON en orden de documento.
type entry struct {
	Key   string
	Value json.RawMessage
}

// rawPath desciende por claves de objeto sin perder el JSON crudo del destino.
func rawPath(raw json.RawMessage, keys ...string) (json.RawMessage, error) {
	cur := raw
	for i, k := range keys {
		var m map[string]json.RawMessage
		if err := json.Unmarshal(cur, &m); err != nil {
			return nil, apperrors.NewShapeError(strings.Join(keys[:i+1], "."), "no es un objeto")
		}
		next, ok := m[k]
		if !ok || string(next) == "null" {
			return nil, apperrors.NewShapeError(strings.Join(keys[:i+1], "."), "clave ausente")
		}
		cur = next
	}
	return cur, nil
}

// orderedEntries recorre un objeto (o array) JSON en el orden en que aparece.
// Para arrays la clave es el índice.
func orderedEntries(raw json.RawMessage) ([]entry, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, apperrors.NewDecodeError("json", string(raw), err)
	}
	delim, ok := tok.(json.Delim)
	if !ok || (delim != '{' && delim != '[') {
		return nil, apperrors.NewShapeError("entries", "se esperaba objeto o array")
	}

	var out []entry
	for i := 0; dec.More(); i++ {
		key := strconv.Itoa(i)
		if delim == '{' {
			kt, err := dec.Token()
			if err != nil {
				return nil, apperrors.NewDecodeError("json", string(raw), err)
			}
			key, _ = kt.(string)
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, apperrors.NewDecodeError("json", string(raw), err)
		}
		out = append(out, entry{Key: key, Value: v})
	}
	return out, nil
}

// value retorna el valor crudo en la ruta, o nil.
func value(v any, path ...any) any {
	got, _ := lookup(v, path...)
	return got
}

// setStr copia a p[key] el string de la ruta si existe y p aún no tiene key.
func setStr(p profile.Partial, key string, v any, path ...any) {
	if _, done := p[key]; done {
		return
	}
	if s, ok := str(v, path...); ok {
		p[key] = s
	}
}

// setNum copia a p[key] el entero de la ruta si existe.
func setNum(p profile.Partial, key string, v any, path ...any) {
	if n, ok := num(v, path...); ok {
		p[key] = n
	}
}

// setBool copia a p[key] el bool de la ruta si existe.
func setBool(p profile.Partial, key string, v any, path ...any) {
	if b, ok := boolean(v, path...); ok {
		p[key] = b
	}
}

// putNum agrega un contador de interacción si la ruta existe.
func putNum(dst map[string]int64, key string, v any, path ...any) {
	if n, ok := num(v, path...); ok {
		dst[key] = n
	}
}

func nonEmpty(m map[string]int64) map[string]int64 {
	if len(m) == 0 {
		return nil
	}
	return m
}
