package resolvers

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"social-rec/internal/adapters/document"
	"social-rec/internal/core/profile"
	apperrors "social-rec/internal/platform/errors"
	"social-rec/internal/platform/urlutil"
)

const (
	twitterBaseURL = "https://twitter.com/"
	twitterAPIURL  = "https://api.twitter.com/1.1/"
	initialState   = "window.__INITIAL_STATE__"
)

var (
	statusIDPattern = regexp.MustCompile(`/status/(\d+)`)

	twitterLayout = []string{
		"username", "name", "bio", "location", "website", "join_date",
		"followers_count", "following_count", "tweets_count", "profile_image_url", "is_verified",
	}
	twitterUserFields = twitterLayout[1:]
)

// Twitter resuelve perfiles de twitter.com.
type Twitter struct {
	BaseURL string
	APIURL  string
	gw      Gateway
}

// NewTwitter crea el resolver con las URLs públicas.
func NewTwitter(gw Gateway) *Twitter {
	return &Twitter{BaseURL: twitterBaseURL, APIURL: twitterAPIURL, gw: gw}
}

// Name implementa la interfaz de fuente.
func (tw *Twitter) Name() string { return "twitter" }

// Collect resuelve handle.
func (tw *Twitter) Collect(ctx context.Context, handle string, mode profile.Mode) (*profile.Record, error) {
	s := newSession(tw.Name(), handle, tw.gw, mode)
	defer s.finish(ctx)

	chain := profile.Chain{Source: tw.Name(), Strategies: []profile.Strategy{
		profile.StrategyFunc{Label: "structured", Fields: twitterUserFields, Fn: func(ctx context.Context) (profile.Partial, error) {
			return tw.structured(ctx, s)
		}},
		profile.StrategyFunc{Label: "initial-state", Fields: twitterUserFields, Fn: func(ctx context.Context) (profile.Partial, error) {
			return tw.initialState(ctx, s)
		}},
		profile.StrategyFunc{Label: "dom", Fields: []string{"name", "bio", "profile_image_url", "following_count", "followers_count"}, Fn: func(ctx context.Context) (profile.Partial, error) {
			return tw.dom(ctx, s)
		}},
	}}

	rec, _ := run(ctx, s, chain, twitterLayout)
	if rec.Empty() {
		return rec, nil
	}

	h := newHarvest()
	h.scan("bio", rec.Text("bio"))

	tweets := profile.Chain{Source: tw.Name(), Strategies: []profile.Strategy{
		profile.StrategyFunc{Label: "timeline", Fn: func(ctx context.Context) (profile.Partial, error) {
			return tw.timeline(ctx, s)
		}},
		profile.StrategyFunc{Label: "initial-state", Fn: func(ctx context.Context) (profile.Partial, error) {
			return tw.stateTweets(ctx, s)
		}},
		profile.StrategyFunc{Label: "dom", Fn: func(ctx context.Context) (profile.Partial, error) {
			return tw.domTweets(ctx, s)
		}},
	}}
	activity, _ := tweets.Run(ctx)
	if v, ok := activity.Get("recent_tweets"); ok {
		items := v.([]profile.ActivityItem)
		rec.Set("recent_tweets", items)
		h.scan("tweets", activityTexts(items)...)
	}

	h.apply(rec)
	return rec, nil
}

func (tw *Twitter) profileURL(handle string) string {
	return urlutil.JoinPath(tw.BaseURL, handle)
}

func (tw *Twitter) statusURL(handle, id string) string {
	return urlutil.JoinPath(tw.BaseURL, handle, "status", id)
}

func (tw *Twitter) structured(ctx context.Context, s *session) (profile.Partial, error) {
	endpoint := urlutil.WithQuery(urlutil.JoinPath(tw.APIURL, "users", "show.json"), "screen_name", s.handle)
	data, err := s.json(ctx, endpoint, map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, err
	}
	user, err := object(data)
	if err != nil {
		return nil, err
	}
	if _, ok := str(user, "screen_name"); !ok {
		return nil, apperrors.NewShapeError("screen_name", "respuesta sin usuario")
	}
	return tw.userPartial(s, user), nil
}

func (tw *Twitter) loadState(ctx context.Context, s *session) (any, error) {
	doc, err := s.page(ctx, tw.profileURL(s.handle))
	if err != nil {
		return nil, err
	}
	raw, err := doc.StateJSON(initialState)
	if err != nil {
		return nil, err
	}
	s.state = raw
	return decodeJSON(raw)
}

func (tw *Twitter) initialState(ctx context.Context, s *session) (profile.Partial, error) {
	data, err := tw.loadState(ctx, s)
	if err != nil {
		return nil, err
	}
	users, err := object(data, "entities", "users")
	if err != nil {
		return nil, err
	}
	user, err := object(users, strings.ToLower(s.handle))
	if err != nil {
		// Algunas variantes indexan por id numérico.
		for _, u := range users {
			if name, ok := str(u, "screen_name"); ok && strings.EqualFold(name, s.handle) {
				user, _ = u.(map[string]any)
				err = nil
				break
			}
		}
	}
	if err != nil {
		return nil, err
	}
	return tw.userPartial(s, user), nil
}

func (tw *Twitter) userPartial(s *session, user map[string]any) profile.Partial {
	if id, ok := str(user, "id_str"); ok && s.userID == "" {
		s.userID = id
	}
	p := profile.Partial{}
	setStr(p, "name", user, "name")
	setStr(p, "bio", user, "description")
	setStr(p, "location", user, "location")
	setStr(p, "website", user, "entities", "url", "urls", 0, "expanded_url")
	setStr(p, "website", user, "url")
	setStr(p, "join_date", user, "created_at")
	setNum(p, "followers_count", user, "followers_count")
	setNum(p, "following_count", user, "friends_count")
	setNum(p, "tweets_count", user, "statuses_count")
	if img, ok := str(user, "profile_image_url_https"); ok {
		p["profile_image_url"] = urlutil.StripSize(img)
	}
	setBool(p, "is_verified", user, "verified")
	return p
}

func (tw *Twitter) dom(ctx context.Context, s *session) (profile.Partial, error) {
	doc, err := s.page(ctx, tw.profileURL(s.handle))
	if err != nil {
		return nil, err
	}
	p := profile.Partial{}
	p.SetString("name", doc.Meta("og:title"))
	p.SetString("bio", doc.Meta("og:description"))
	p.SetString("profile_image_url", doc.Meta("og:image"))

	stats := doc.Find(`a[href*="followers"] span, a[href*="following"] span`)
	if stats.Length() >= 2 {
		n, ok := ParseCount(document.CompactText(stats.Eq(0)))
		p.SetInt("following_count", n, ok)
		n, ok = ParseCount(document.CompactText(stats.Eq(1)))
		p.SetInt("followers_count", n, ok)
	}
	if doc.Find(`svg[aria-label="Verified account"]`).Length() > 0 {
		p["is_verified"] = true
	}
	return p, nil
}

func (tw *Twitter) timeline(ctx context.Context, s *session) (profile.Partial, error) {
	if s.userID == "" {
		return nil, apperrors.NewShapeError("id_str", "id interno desconocido")
	}
	endpoint := urlutil.JoinPath(tw.APIURL, "statuses", "user_timeline.json") + "?user_id=" + s.userID + "&count=5"
	data, err := s.json(ctx, endpoint, map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, err
	}
	arr, ok := data.([]any)
	if !ok {
		return nil, apperrors.NewShapeError("timeline", "se esperaba una lista")
	}
	list := profile.NewItemList(0)
	for _, t := range arr {
		id, _ := str(t, "id_str")
		if !list.Add(tw.tweetItem(s, id, t)) {
			break
		}
	}
	return activityPartial("recent_tweets", list)
}

func (tw *Twitter) stateTweets(ctx context.Context, s *session) (profile.Partial, error) {
	if s.state == nil {
		if _, err := tw.loadState(ctx, s); err != nil {
			return nil, err
		}
	}
	raw, err := rawPath(s.state, "entities", "tweets")
	if err != nil {
		return nil, err
	}
	entries, err := orderedEntries(raw)
	if err != nil {
		return nil, err
	}

	handle := strings.ToLower(s.handle)
	list := profile.NewItemList(0)
	for _, e := range entries {
		t, err := decodeJSON(e.Value)
		if err != nil {
			continue
		}
		owner, _ := str(t, "user_id_str")
		screen, _ := str(t, "screen_name")
		if !(owner != "" && (owner == s.userID || owner == handle)) && !strings.EqualFold(screen, handle) {
			continue
		}
		if !list.Add(tw.tweetItem(s, e.Key, t)) {
			break
		}
	}
	return activityPartial("recent_tweets", list)
}

func (tw *Twitter) tweetItem(s *session, id string, t any) profile.ActivityItem {
	eng := make(map[string]int64)
	putNum(eng, "retweets", t, "retweet_count")
	putNum(eng, "favorites", t, "favorite_count")
	item := profile.ActivityItem{ID: id, Engagement: nonEmpty(eng)}
	item.Text, _ = str(t, "full_text")
	if item.Text == "" {
		item.Text, _ = str(t, "text")
	}
	item.Timestamp, _ = str(t, "created_at")
	if id != "" {
		item.URL = tw.statusURL(s.handle, id)
	}
	return item
}

func (tw *Twitter) domTweets(ctx context.Context, s *session) (profile.Partial, error) {
	doc, err := s.page(ctx, tw.profileURL(s.handle))
	if err != nil {
		return nil, err
	}
	list := profile.NewItemList(0)
	doc.Find(`div[data-testid="tweet"]`).EachWithBreak(func(_ int, el *goquery.Selection) bool {
		textEl := el.Find(`div[data-testid="tweetText"]`).First()
		if textEl.Length() == 0 {
			return true
		}
		item := profile.ActivityItem{Text: document.CompactText(textEl)}
		if href, ok := el.Find(`a[href*="/status/"]`).First().Attr("href"); ok {
			if m := statusIDPattern.FindStringSubmatch(href); m != nil {
				item.ID = m[1]
				item.URL = tw.statusURL(s.handle, m[1])
			}
		}
		if t, ok := el.Find("time").First().Attr("datetime"); ok {
			item.Timestamp = t
		}
		counts := el.Find(`div[data-testid="retweet"], div[data-testid="like"]`)
		if counts.Length() >= 2 {
			eng := make(map[string]int64)
			if n, ok := ParseCount(document.CompactText(counts.Eq(0))); ok {
				eng["retweets"] = n
			}
			if n, ok := ParseCount(document.CompactText(counts.Eq(1))); ok {
				eng["favorites"] = n
			}
			item.Engagement = nonEmpty(eng)
		}
		return list.Add(item)
	})
	return activityPartial("recent_tweets", list)
}
