package resolvers

import (
	"context"
	"regexp"

	"social-rec/internal/core/profile"
	apperrors "social-rec/internal/platform/errors"
	"social-rec/internal/platform/urlutil"
)

const (
	instagramBaseURL = "https://www.instagram.com/"
	instagramAPIURL  = "https://i.instagram.com/api/v1/"
	// instagramAppID es el id público de la web app, requerido por los endpoints JSON.
	instagramAppID = "936619743392459"
)

var (
	sharedDataPattern     = regexp.MustCompile(`window\._sharedData = (.*?);</script>`)
	additionalDataPattern = regexp.MustCompile(`window\.__additionalDataLoaded\([^,]+,\s*(\{"user":.*?\})\);`)
	igTitlePattern        = regexp.MustCompile(`^(.*?)\s*\(@[^)]+\)`)
	igFollowersPattern    = regexp.MustCompile(`([\d.,]+[KkMm]?)\s+Followers`)
	igFollowingPattern    = regexp.MustCompile(`([\d.,]+[KkMm]?)\s+Following`)

	instagramLayout = []string{
		"username", "full_name", "biography", "follower_count", "following_count",
		"is_private", "is_verified", "profile_pic_url", "external_url",
	}
	instagramUserFields = instagramLayout[1:]
)

// Instagram resuelve perfiles de instagram.com.
type Instagram struct {
	BaseURL string
	APIURL  string
	gw      Gateway
}

// NewInstagram crea el resolver con las URLs públicas.
func NewInstagram(gw Gateway) *Instagram {
	return &Instagram{BaseURL: instagramBaseURL, APIURL: instagramAPIURL, gw: gw}
}

// Name implementa la interfaz de fuente.
func (ig *Instagram) Name() string { return "instagram" }

// Collect resuelve handle. Un perfil sin datos retorna un registro vacío.
func (ig *Instagram) Collect(ctx context.Context, handle string, mode profile.Mode) (*profile.Record, error) {
	s := newSession(ig.Name(), handle, ig.gw, mode)
	defer s.finish(ctx)

	chain := profile.Chain{Source: ig.Name(), Strategies: []profile.Strategy{
		profile.StrategyFunc{Label: "structured", Fields: instagramUserFields, Fn: func(ctx context.Context) (profile.Partial, error) {
			return ig.structured(ctx, s)
		}},
		profile.StrategyFunc{Label: "shared-data", Fields: instagramUserFields, Fn: func(ctx context.Context) (profile.Partial, error) {
			return ig.embedded(ctx, s, sharedDataPattern, "entry_data", "ProfilePage", 0, "graphql", "user")
		}},
		profile.StrategyFunc{Label: "additional-data", Fields: instagramUserFields, Fn: func(ctx context.Context) (profile.Partial, error) {
			return ig.embedded(ctx, s, additionalDataPattern, "user")
		}},
		profile.StrategyFunc{Label: "meta", Fields: []string{"full_name", "follower_count", "following_count", "profile_pic_url"}, Fn: func(ctx context.Context) (profile.Partial, error) {
			return ig.meta(ctx, s)
		}},
	}}

	rec, draft := run(ctx, s, chain, instagramLayout)
	if rec.Empty() {
		return rec, nil
	}

	h := newHarvest()
	h.scan("bio", rec.Text("biography"))

	if private, _ := draft.Get("is_private"); private != true {
		posts := profile.Chain{Source: ig.Name(), Strategies: []profile.Strategy{
			profile.StrategyFunc{Label: "feed", Fn: func(ctx context.Context) (profile.Partial, error) {
				return ig.feed(ctx, s)
			}},
			profile.StrategyFunc{Label: "timeline-edges", Fn: func(ctx context.Context) (profile.Partial, error) {
				return ig.timelineEdges(ctx, s)
			}},
		}}
		activity, _ := posts.Run(ctx)
		if v, ok := activity.Get("recent_posts"); ok {
			items := v.([]profile.ActivityItem)
			rec.Set("recent_posts", items)
			h.scan("posts", activityTexts(items)...)
		}
	}

	h.apply(rec)
	return rec, nil
}

func (ig *Instagram) profileURL(handle string) string {
	return urlutil.JoinPath(ig.BaseURL, handle, "/")
}

func (ig *Instagram) headers() map[string]string {
	return map[string]string{"X-IG-App-ID": instagramAppID, "Accept": "application/json"}
}

func (ig *Instagram) structured(ctx context.Context, s *session) (profile.Partial, error) {
	data, err := s.json(ctx, ig.profileURL(s.handle)+"?__a=1", ig.headers())
	if err != nil {
		return nil, err
	}
	user, err := object(data, "graphql", "user")
	if err != nil {
		return nil, err
	}
	return ig.userPartial(s, user), nil
}

func (ig *Instagram) embedded(ctx context.Context, s *session, pattern *regexp.Regexp, path ...any) (profile.Partial, error) {
	doc, err := s.page(ctx, ig.profileURL(s.handle))
	if err != nil {
		return nil, err
	}
	raw, err := doc.PatternJSON(pattern)
	if err != nil {
		return nil, err
	}
	data, err := decodeJSON(raw)
	if err != nil {
		return nil, err
	}
	user, err := object(data, path...)
	if err != nil {
		return nil, err
	}
	return ig.userPartial(s, user), nil
}

// userPartial mapea el objeto de usuario de GraphQL y guarda id y timeline en la sesión.
func (ig *Instagram) userPartial(s *session, user map[string]any) profile.Partial {
	if id, ok := str(user, "id"); ok && s.userID == "" {
		s.userID = id
	}
	if s.embedded == nil {
		if _, ok := lookup(user, "edge_owner_to_timeline_media"); ok {
			s.embedded = user
		}
	}

	p := profile.Partial{}
	setStr(p, "full_name", user, "full_name")
	setStr(p, "biography", user, "biography")
	setNum(p, "follower_count", user, "edge_followed_by", "count")
	setNum(p, "following_count", user, "edge_follow", "count")
	setBool(p, "is_private", user, "is_private")
	setBool(p, "is_verified", user, "is_verified")
	setStr(p, "profile_pic_url", user, "profile_pic_url_hd")
	setStr(p, "profile_pic_url", user, "profile_pic_url")
	setStr(p, "external_url", user, "external_url")
	return p
}

func (ig *Instagram) meta(ctx context.Context, s *session) (profile.Partial, error) {
	doc, err := s.page(ctx, ig.profileURL(s.handle))
	if err != nil {
		return nil, err
	}
	p := profile.Partial{}
	if m := igTitlePattern.FindStringSubmatch(doc.Meta("og:title")); m != nil {
		p.SetString("full_name", m[1])
	}
	desc := doc.Meta("og:description")
	if m := igFollowersPattern.FindStringSubmatch(desc); m != nil {
		n, ok := ParseCount(m[1])
		p.SetInt("follower_count", n, ok)
	}
	if m := igFollowingPattern.FindStringSubmatch(desc); m != nil {
		n, ok := ParseCount(m[1])
		p.SetInt("following_count", n, ok)
	}
	p.SetString("profile_pic_url", doc.Meta("og:image"))
	return p, nil
}

func (ig *Instagram) feed(ctx context.Context, s *session) (profile.Partial, error) {
	if s.userID == "" {
		return nil, apperrors.NewShapeError("user.id", "id interno desconocido")
	}
	data, err := s.json(ctx, urlutil.JoinPath(ig.APIURL, "feed", "user", s.userID, "/"), ig.headers())
	if err != nil {
		return nil, err
	}
	items, ok := lookup(data, "items")
	arr, isArr := items.([]any)
	if !ok || !isArr {
		return nil, apperrors.NewShapeError("items", "lista ausente")
	}

	list := profile.NewItemList(0)
	for _, it := range arr {
		id, _ := str(it, "id")
		eng := make(map[string]int64)
		putNum(eng, "likes", it, "like_count")
		putNum(eng, "comments", it, "comment_count")
		item := profile.ActivityItem{
			ID:         id,
			Timestamp:  FormatTimestamp(value(it, "taken_at")),
			Engagement: nonEmpty(eng),
			MediaType:  instagramMediaType(num(it, "media_type")),
		}
		item.Text, _ = str(it, "caption", "text")
		if code, ok := str(it, "code"); ok {
			item.URL = ig.postURL(code)
		}
		if !list.Add(item) {
			break
		}
	}
	return activityPartial("recent_posts", list)
}

func (ig *Instagram) timelineEdges(ctx context.Context, s *session) (profile.Partial, error) {
	if s.embedded == nil {
		// El perfil pudo venir del endpoint estructurado sin timeline.
		if _, err := ig.embedded(ctx, s, sharedDataPattern, "entry_data", "ProfilePage", 0, "graphql", "user"); err != nil {
			return nil, err
		}
	}
	edges, ok := lookup(s.embedded, "edge_owner_to_timeline_media", "edges")
	arr, isArr := edges.([]any)
	if !ok || !isArr {
		return nil, apperrors.NewShapeError("edge_owner_to_timeline_media.edges", "lista ausente")
	}

	list := profile.NewItemList(0)
	for _, edge := range arr {
		node, ok := lookup(edge, "node")
		if !ok {
			continue
		}
		id, _ := str(node, "id")
		eng := make(map[string]int64)
		putNum(eng, "likes", node, "edge_liked_by", "count")
		if _, ok := eng["likes"]; !ok {
			putNum(eng, "likes", node, "edge_media_preview_like", "count")
		}
		putNum(eng, "comments", node, "edge_media_to_comment", "count")
		item := profile.ActivityItem{
			ID:         id,
			Timestamp:  FormatTimestamp(value(node, "taken_at_timestamp")),
			Engagement: nonEmpty(eng),
			MediaType:  "image",
		}
		if video, _ := boolean(node, "is_video"); video {
			item.MediaType = "video"
		}
		item.Text, _ = str(node, "edge_media_to_caption", "edges", 0, "node", "text")
		if code, ok := str(node, "shortcode"); ok {
			item.URL = ig.postURL(code)
		}
		if !list.Add(item) {
			break
		}
	}
	return activityPartial("recent_posts", list)
}

func (ig *Instagram) postURL(code string) string {
	return urlutil.JoinPath(ig.BaseURL, "p", code, "/")
}

func instagramMediaType(code int64, ok bool) string {
	if !ok {
		return ""
	}
	switch code {
	case 1:
		return "image"
	case 2:
		return "video"
	case 8:
		return "carousel"
	}
	return ""
}

func activityPartial(field string, list *profile.ItemList) (profile.Partial, error) {
	if list.Len() == 0 {
		return nil, apperrors.NewShapeError(field, "sin elementos")
	}
	return profile.Partial{field: list.Items()}, nil
}
