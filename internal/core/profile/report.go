package profile

import (
	"bytes"
	"encoding/json"
)

// Entry es el resultado de una fuente dentro del reporte.
type Entry struct {
	Source string
	Record *Record
	Err    string
}

// Failed reporta si la fuente terminó con error.
func (e Entry) Failed() bool {
	return e.Err != ""
}

// Report agrega los resultados de una corrida en el orden en que se habilitaron las fuentes.
type Report struct {
	Handle  string
	Mode    Mode
	Entries []Entry
}

// Lookup retorna la entrada de source.
func (r *Report) Lookup(source string) (Entry, bool) {
	for _, e := range r.Entries {
		if e.Source == source {
			return e, true
		}
	}
	return Entry{}, false
}

// Sources retorna los nombres de fuente en orden.
func (r *Report) Sources() []string {
	out := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		out[i] = e.Source
	}
	return out
}

// MarshalJSON serializa el reporte como objeto fuente -> campos, o {"error": msg}.
func (r *Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range r.Entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Source)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		var val []byte
		if e.Failed() {
			val, err = json.Marshal(map[string]string{"error": e.Err})
		} else {
			val, err = e.Record.MarshalJSON()
		}
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
