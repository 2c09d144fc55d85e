package profile

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	apperrors "social-rec/internal/platform/errors"
)

func fixed(name string, fields []string, p Partial, err error) StrategyFunc {
	return StrategyFunc{
		Label:  name,
		Fields: fields,
		Fn: func(context.Context) (Partial, error) {
			return p, err
		},
	}
}

func TestChainNeverOverwrites(t *testing.T) {
	t.Parallel()

	chain := Chain{Source: "test", Strategies: []Strategy{
		fixed("structured", nil, Partial{"display_name": "Alice"}, nil),
		fixed("embedded", nil, nil, apperrors.NewShapeError("user", "ausente")),
		fixed("dom", nil, Partial{"display_name": "Bob", "bio": "hola"}, nil),
	}}

	draft, outcomes := chain.Run(context.Background())

	if v, _ := draft.Get("display_name"); v != "Alice" {
		t.Fatalf("display_name = %v, want Alice", v)
	}
	if v, _ := draft.Get("bio"); v != "hola" {
		t.Fatalf("bio should be filled by a later strategy, got %v", v)
	}
	if diff := cmp.Diff([]string{"bio"}, outcomes[2].Merged); diff != "" {
		t.Fatalf("dom merged fields mismatch (-want +got):\n%s", diff)
	}
	if !apperrors.IsShape(outcomes[1].Err) {
		t.Fatalf("embedded outcome should carry the shape error, got %v", outcomes[1].Err)
	}

	rec := NewRecord("alice")
	draft.Into(rec, []string{"display_name", "bio"})
	if rec.Source("display_name") != "structured" || rec.Source("bio") != "dom" {
		t.Fatalf("unexpected provenance: %q / %q", rec.Source("display_name"), rec.Source("bio"))
	}
}

func TestChainSkipsCoveredStrategies(t *testing.T) {
	t.Parallel()

	called := false
	chain := Chain{Strategies: []Strategy{
		fixed("first", []string{"name"}, Partial{"name": "Alice"}, nil),
		StrategyFunc{
			Label:  "second",
			Fields: []string{"name"},
			Fn: func(context.Context) (Partial, error) {
				called = true
				return Partial{"name": "Bob"}, nil
			},
		},
	}}
	_, outcomes := chain.Run(context.Background())
	if called {
		t.Fatal("strategy with all fields covered should not run")
	}
	if !outcomes[1].Skipped {
		t.Fatal("second outcome should be marked skipped")
	}
}

func TestChainGuard(t *testing.T) {
	t.Parallel()

	mobile := StrategyFunc{
		Label: "mobile",
		Guard: func(d *Draft) bool { return !d.Has("name") },
		Fn: func(context.Context) (Partial, error) {
			return Partial{"name": "Mobile Alice", "about": "x"}, nil
		},
	}

	d, _ := Chain{Strategies: []Strategy{fixed("desktop", nil, Partial{"name": "Alice"}, nil), mobile}}.Run(context.Background())
	if d.Has("about") {
		t.Fatal("guarded strategy ran although name was present")
	}

	d, _ = Chain{Strategies: []Strategy{fixed("desktop", nil, Partial{"picture": "p.jpg"}, nil), mobile}}.Run(context.Background())
	if v, _ := d.Get("name"); v != "Mobile Alice" {
		t.Fatalf("guarded strategy should fill name, got %v", v)
	}
}

func TestChainRecoversPanicAndEmptyPartial(t *testing.T) {
	t.Parallel()

	chain := Chain{Strategies: []Strategy{
		StrategyFunc{Label: "boom", Fn: func(context.Context) (Partial, error) {
			var m map[string]any
			m["x"] = 1
			return nil, nil
		}},
		fixed("empty", nil, Partial{}, nil),
		fixed("ok", nil, Partial{"name": "Alice"}, nil),
	}}
	d, outcomes := chain.Run(context.Background())
	if outcomes[0].Err == nil {
		t.Fatal("panic should become an error outcome")
	}
	if !apperrors.IsShape(outcomes[1].Err) {
		t.Fatalf("empty partial should be a shape error, got %v", outcomes[1].Err)
	}
	if !outcomes[2].OK() || d.Len() != 1 {
		t.Fatalf("last strategy should still contribute, draft has %d fields", d.Len())
	}
}

func TestChainStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, outcomes := Chain{Strategies: []Strategy{fixed("a", nil, Partial{"x": 1}, nil)}}.Run(ctx)
	if !errors.Is(outcomes[0].Err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", outcomes[0].Err)
	}
}

func TestRecordJSONKeepsOrder(t *testing.T) {
	t.Parallel()

	d := NewDraft()
	d.merge(Partial{"zeta": 1, "username": "alice", "bio": "hi", "alpha": true}, "s")
	rec := NewRecord("alice")
	d.Into(rec, []string{"username", "bio"})
	rec.Set("recent_posts", []ActivityItem{{ID: "1", URL: "https://x/p/1/"}})

	got, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"username":"alice","bio":"hi","alpha":true,"zeta":1,"recent_posts":[{"id":"1","url":"https://x/p/1/"}]}`
	if diff := cmp.Diff(want, string(got)); diff != "" {
		t.Fatalf("json mismatch (-want +got):\n%s", diff)
	}
}

func TestReportJSON(t *testing.T) {
	t.Parallel()

	ig := NewRecord("alice")
	ig.Set("username", "alice")
	rep := &Report{Handle: "alice", Entries: []Entry{
		{Source: "instagram", Record: ig},
		{Source: "twitter", Err: "error de red durante GET: HTTP 503"},
		{Source: "facebook", Record: NewRecord("alice")},
	}}

	got, err := json.Marshal(rep)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"instagram":{"username":"alice"},"twitter":{"error":"error de red durante GET: HTTP 503"},"facebook":{}}`
	if diff := cmp.Diff(want, string(got)); diff != "" {
		t.Fatalf("json mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"instagram", "twitter", "facebook"}, rep.Sources()); diff != "" {
		t.Fatalf("sources mismatch:\n%s", diff)
	}
}

func TestItemListCapsAtCollection(t *testing.T) {
	t.Parallel()

	list := NewItemList(0)
	consumed := 0
	for i := 1; i <= 9; i++ {
		consumed++
		if !list.Add(ActivityItem{ID: string(rune('0' + i))}) {
			break
		}
	}
	if consumed != 5 {
		t.Fatalf("collection should stop after 5 items, consumed %d", consumed)
	}
	var ids []string
	for _, it := range list.Items() {
		ids = append(ids, it.ID)
	}
	if diff := cmp.Diff([]string{"1", "2", "3", "4", "5"}, ids); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
	if list.Add(ActivityItem{ID: "6"}) || list.Len() != 5 {
		t.Fatal("full list must reject items")
	}
}
