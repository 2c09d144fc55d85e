package resolvers

import (
	"context"
	"regexp"
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"social-rec/internal/adapters/document"
	"social-rec/internal/core/profile"
	apperrors "social-rec/internal/platform/errors"
	"social-rec/internal/platform/urlutil"
)

const (
	snapchatBaseURL  = "https://www.snapchat.com/"
	snapchatStoryURL = "https://story.snapchat.com/"
)

var (
	subscribersPattern = regexp.MustCompile(`(?i)subscribers`)
	storiesPattern     = regexp.MustCompile(`(?i)stories`)

	// textNodes excluye scripts para no leer el estado embebido como texto.
	textNodes = "body *:not(script):not(style)"

	snapchatLayout = []string{
		"username", "display_name", "bio", "bitmoji_url", "subscriber_count",
		"story_count", "last_active", "snapcode_url",
	}
	snapchatUserFields = snapchatLayout[1:]
)

// Snapchat resuelve perfiles públicos de snapchat.com.
type Snapchat struct {
	BaseURL  string
	StoryURL string
	gw       Gateway
}

// NewSnapchat crea el resolver con las URLs públicas.
func NewSnapchat(gw Gateway) *Snapchat {
	return &Snapchat{BaseURL: snapchatBaseURL, StoryURL: snapchatStoryURL, gw: gw}
}

// Name implementa la interfaz de fuente.
func (sc *Snapchat) Name() string { return "snapchat" }

// Collect resuelve handle.
func (sc *Snapchat) Collect(ctx context.Context, handle string, mode profile.Mode) (*profile.Record, error) {
	s := newSession(sc.Name(), handle, sc.gw, mode)
	defer s.finish(ctx)

	chain := profile.Chain{Source: sc.Name(), Strategies: []profile.Strategy{
		profile.StrategyFunc{Label: "initial-state", Fields: snapchatUserFields, Fn: func(ctx context.Context) (profile.Partial, error) {
			return sc.initialState(ctx, s)
		}},
		profile.StrategyFunc{Label: "next-data", Fields: snapchatUserFields, Fn: func(ctx context.Context) (profile.Partial, error) {
			return sc.nextData(ctx, s)
		}},
		profile.StrategyFunc{Label: "dom", Fields: []string{"display_name", "bitmoji_url", "subscriber_count", "story_count", "snapcode_url"}, Fn: func(ctx context.Context) (profile.Partial, error) {
			return sc.dom(ctx, s)
		}},
	}}

	rec, _ := run(ctx, s, chain, snapchatLayout)
	if rec.Empty() {
		return rec, nil
	}

	h := newHarvest()
	h.scan("bio", rec.Text("bio"))

	stories := profile.Chain{Source: sc.Name(), Strategies: []profile.Strategy{
		profile.StrategyFunc{Label: "story-state", Fn: func(ctx context.Context) (profile.Partial, error) {
			return sc.storyState(ctx, s)
		}},
		profile.StrategyFunc{Label: "story-dom", Fn: func(ctx context.Context) (profile.Partial, error) {
			return sc.storyDOM(ctx, s)
		}},
	}}
	activity, _ := stories.Run(ctx)
	if v, ok := activity.Get("recent_stories"); ok {
		rec.Set("recent_stories", v)
	}

	h.apply(rec)
	return rec, nil
}

func (sc *Snapchat) profileURL(handle string) string {
	return urlutil.JoinPath(sc.BaseURL, "add", handle)
}

func (sc *Snapchat) storiesURL(handle string) string {
	return urlutil.JoinPath(sc.StoryURL, "@"+handle)
}

func (sc *Snapchat) initialState(ctx context.Context, s *session) (profile.Partial, error) {
	doc, err := s.page(ctx, sc.profileURL(s.handle))
	if err != nil {
		return nil, err
	}
	raw, err := doc.StateJSON(initialState)
	if err != nil {
		return nil, err
	}
	data, err := decodeJSON(raw)
	if err != nil {
		return nil, err
	}
	user, err := object(data, "addFriendPage", "user")
	if err != nil {
		return nil, err
	}
	p := profile.Partial{}
	setStr(p, "display_name", user, "displayName")
	setStr(p, "bio", user, "bio")
	setStr(p, "bitmoji_url", user, "bitmojiAvatarUrl")
	setNum(p, "subscriber_count", user, "subscriberCount")
	setNum(p, "story_count", user, "storyCount")
	setStr(p, "snapcode_url", user, "snapcodeUrl")
	p.SetString("last_active", FormatTimestamp(value(user, "lastActiveTimestamp")))
	return p, nil
}

func (sc *Snapchat) nextData(ctx context.Context, s *session) (profile.Partial, error) {
	doc, err := s.page(ctx, sc.profileURL(s.handle))
	if err != nil {
		return nil, err
	}
	body, ok := doc.ScriptByID("__NEXT_DATA__")
	if !ok {
		return nil, apperrors.NewShapeError("__NEXT_DATA__", "script no encontrado")
	}
	data, err := decodeJSON([]byte(body))
	if err != nil {
		return nil, err
	}
	info, err := object(data, "props", "pageProps", "userProfile", "publicProfileInfo")
	if err != nil {
		return nil, err
	}
	p := profile.Partial{}
	setStr(p, "display_name", info, "title")
	setStr(p, "bio", info, "bio")
	setStr(p, "bitmoji_url", info, "profilePictureUrl")
	setNum(p, "subscriber_count", info, "subscriberCount")
	setStr(p, "snapcode_url", info, "snapcodeImageUrl")
	return p, nil
}

func (sc *Snapchat) dom(ctx context.Context, s *session) (profile.Partial, error) {
	doc, err := s.page(ctx, sc.profileURL(s.handle))
	if err != nil {
		return nil, err
	}
	p := profile.Partial{}
	p.SetString("display_name", document.CompactText(doc.Find(`h1[class*="displayName"]`).First()))
	if src, ok := doc.Find(`img[class*="bitmoji"]`).First().Attr("src"); ok {
		p.SetString("bitmoji_url", src)
	}
	if src, ok := doc.Find(`img[class*="snapcode"]`).First().Attr("src"); ok {
		p.SetString("snapcode_url", src)
	}
	n, ok := CountIn(document.CompactText(doc.FindByText(textNodes, subscribersPattern).First()))
	p.SetInt("subscriber_count", n, ok)
	n, ok = CountIn(document.CompactText(doc.FindByText(textNodes, storiesPattern).First()))
	p.SetInt("story_count", n, ok)
	return p, nil
}

func (sc *Snapchat) storyState(ctx context.Context, s *session) (profile.Partial, error) {
	doc, err := s.page(ctx, sc.storiesURL(s.handle))
	if err != nil {
		return nil, err
	}
	raw, err := doc.StateJSON(initialState)
	if err != nil {
		return nil, err
	}
	raw, err = rawPath(raw, "storyPage", "stories")
	if err != nil {
		return nil, err
	}
	entries, err := orderedEntries(raw)
	if err != nil {
		return nil, err
	}

	list := profile.NewItemList(0)
	for _, e := range entries {
		story, err := decodeJSON(e.Value)
		if err != nil {
			continue
		}
		item := profile.ActivityItem{
			ID:        e.Key,
			Timestamp: FormatTimestamp(value(story, "timestamp")),
			MediaType: "unknown",
		}
		if mt, ok := str(story, "mediaType"); ok {
			item.MediaType = mt
		}
		if d, ok := value(story, "duration").(interface{ Float64() (float64, error) }); ok {
			item.Duration, _ = d.Float64()
		}
		if views, ok := num(story, "viewCount"); ok {
			item.Engagement = map[string]int64{"views": views}
		}
		if !list.Add(item) {
			break
		}
	}
	return activityPartial("recent_stories", list)
}

func (sc *Snapchat) storyDOM(ctx context.Context, s *session) (profile.Partial, error) {
	doc, err := s.page(ctx, sc.storiesURL(s.handle))
	if err != nil {
		return nil, err
	}
	list := profile.NewItemList(0)
	doc.Find(`div[data-testid="story-item"]`).EachWithBreak(func(i int, el *goquery.Selection) bool {
		item := profile.ActivityItem{ID: "story_" + strconv.Itoa(i), MediaType: "unknown"}
		if t, ok := el.Find("time").First().Attr("datetime"); ok {
			item.Timestamp = t
		}
		switch {
		case el.Find("video").Length() > 0:
			item.MediaType = "video"
		case el.Find("img").Length() > 0:
			item.MediaType = "image"
		}
		return list.Add(item)
	})
	return activityPartial("recent_stories", list)
}
