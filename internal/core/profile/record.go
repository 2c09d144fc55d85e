// Package profile define el modelo de datos de una resolución: el registro de perfil,
// los elementos de actividad, la cadena de estrategias y el reporte agregado.
package profile

import (
	"bytes"
	"encoding/json"
)

// Mode es el modo de ejecución de una corrida.
type Mode int

const (
	ModeParallel Mode = iota
	ModeStealth
)

func (m Mode) String() string {
	if m == ModeStealth {
		return "stealth"
	}
	return "parallel"
}

// Record es el resultado de resolver un handle en una fuente. Un campo existe solo
// si alguna estrategia lo produjo; el orden de inserción se conserva al serializar.
type Record struct {
	Handle     string
	keys       []string
	values     map[string]any
	provenance map[string]string
}

// NewRecord crea un registro vacío para handle.
func NewRecord(handle string) *Record {
	return &Record{
		Handle:     handle,
		values:     make(map[string]any),
		provenance: make(map[string]string),
	}
}

// Set asigna key. Si la clave ya existía conserva su posición original.
func (r *Record) Set(key string, value any) {
	r.SetFrom(key, value, "")
}

// SetFrom asigna key registrando la estrategia que lo produjo.
func (r *Record) SetFrom(key string, value any, strategy string) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
	if strategy != "" {
		r.provenance[key] = strategy
	}
}

// Get retorna el valor de key.
func (r *Record) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Text retorna key como string, o "" si no existe o tiene otro tipo.
func (r *Record) Text(key string) string {
	s, _ := r.values[key].(string)
	return s
}

// Strings retorna key como []string.
func (r *Record) Strings(key string) []string {
	s, _ := r.values[key].([]string)
	return s
}

// Has reporta si key existe.
func (r *Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Keys retorna las claves en orden de inserción.
func (r *Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len retorna el número de campos.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Empty reporta si ninguna estrategia produjo datos.
func (r *Record) Empty() bool {
	return r.Len() == 0
}

// Source retorna la estrategia que produjo key ("" si no se registró).
func (r *Record) Source(key string) string {
	return r.provenance[key]
}

// MarshalJSON serializa los campos como objeto en orden de inserción.
func (r *Record) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
