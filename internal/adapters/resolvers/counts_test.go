package resolvers

import (
	"encoding/json"
	"testing"
)

func TestParseCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		want   int64
		wantOK bool
	}{
		{"1.5K", 1500, true},
		{"2M", 2000000, true},
		{"500", 500, true},
		{"1,234", 1234, true},
		{"3k", 3000, true},
		{" 12 ", 12, true},
		{"invalid", 0, false},
		{"", 0, false},
		{"K", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseCount(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseCount(%q) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestCountIn(t *testing.T) {
	t.Parallel()

	if n, ok := CountIn("12.3K subscribers"); !ok || n != 12300 {
		t.Fatalf("CountIn = %d, %v", n, ok)
	}
	if _, ok := CountIn("no numbers"); ok {
		t.Fatal("expected no count")
	}
}

func TestFormatTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   any
		want string
	}{
		{int64(1623766800000), "2021-06-15 14:20:00"},
		{int64(1623766800), "2021-06-15 14:20:00"},
		{"1623766800", "2021-06-15 14:20:00"},
		{json.Number("1623766800000"), "2021-06-15 14:20:00"},
		{nil, ""},
		{"invalid", ""},
		{true, ""},
	}
	for _, tt := range tests {
		if got := FormatTimestamp(tt.in); got != tt.want {
			t.Errorf("FormatTimestamp(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOrderedEntriesKeepsDocumentOrder(t *testing.T) {
	t.Parallel()

	raw := json.RawMessage(`{"9":{"a":1},"2":{"a":2},"7":{"a":3}}`)
	entries, err := orderedEntries(raw)
	if err != nil {
		t.Fatal(err)
	}
	var keys []string
	for _, e := range entries {
		keys = append(keys, e.Key)
	}
	if len(keys) != 3 || keys[0] != "9" || keys[1] != "2" || keys[2] != "7" {
		t.Fatalf("keys = %v", keys)
	}
}

func TestLookupHelpers(t *testing.T) {
	t.Parallel()

	v, err := decodeJSON([]byte(`{"graphql":{"user":{"id":"123","edge_followed_by":{"count":42},"is_private":false,"tags":["x"]}}}`))
	if err != nil {
		t.Fatal(err)
	}
	if n, ok := num(v, "graphql", "user", "edge_followed_by", "count"); !ok || n != 42 {
		t.Errorf("num = %d, %v", n, ok)
	}
	if s, ok := str(v, "graphql", "user", "id"); !ok || s != "123" {
		t.Errorf("str = %q, %v", s, ok)
	}
	if b, ok := boolean(v, "graphql", "user", "is_private"); !ok || b {
		t.Errorf("boolean = %v, %v", b, ok)
	}
	if s, ok := str(v, "graphql", "user", "tags", 0); !ok || s != "x" {
		t.Errorf("indexed str = %q, %v", s, ok)
	}
	if _, err := object(v, "graphql", "missing"); err == nil {
		t.Error("expected shape error")
	}
}
