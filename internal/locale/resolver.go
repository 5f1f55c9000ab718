package locale

import (
	"net/http"
	"net/url"
	"strings"
)

// Cookie names written by the router. Both always carry the same value.
const (
	CookieLang       = "lang"
	CookieNextLocale = "NEXT_LOCALE"
)

// CookieMaxAge is one year in seconds.
const CookieMaxAge = 31536000

// Geo headers in priority order, consulted after the platform geo field.
var geoHeaders = []string{"x-vercel-ip-country", "cf-ipcountry", "x-geo-country"}

// Request is the routing-relevant view of an inbound page request.
type Request struct {
	// Path is the escaped URL path.
	Path     string
	RawQuery string
	Query    url.Values
	// Cookies holds the first value seen for each cookie name.
	Cookies         map[string]string
	Header          http.Header
	PlatformCountry string
}

type Action int

const (
	// ActionNext serves the request as is.
	ActionNext Action = iota
	// ActionRewrite serves Target internally without changing the browser URL.
	ActionRewrite
	// ActionRedirect sends a 307 to Target.
	ActionRedirect
)

func (a Action) String() string {
	switch a {
	case ActionRewrite:
		return "rewrite"
	case ActionRedirect:
		return "redirect"
	default:
		return "next"
	}
}

// Decision is the single action produced for a request.
type Decision struct {
	Action Action
	// Target is the rewrite path (with query) or the redirect location.
	Target string
	// Locale is the locale the request is served in, when known.
	Locale Locale
	// SetCookie, when non-empty, is written to both locale cookies.
	SetCookie Locale
}

// Resolve decides how to route req. It is total: every input yields a Decision.
func Resolve(req Request) Decision {
	if l, ok := queryOverride(req.Query); ok {
		return Decision{Action: ActionNext, Locale: l, SetCookie: l}
	}

	var seeded Locale
	if _, ok := req.Cookies[CookieLang]; !ok {
		seeded = FromCountry(detectCountry(req))
	}

	path := req.Path
	if path == "" {
		path = "/"
	}

	if l, rest, ok := splitLocalePrefix(path); ok {
		return Decision{
			Action:    ActionRewrite,
			Target:    withQuery(rest, req.RawQuery),
			Locale:    l,
			SetCookie: seeded,
		}
	}

	active := activeLocale(req.Cookies, seeded)
	if path == "/" {
		return Decision{Action: ActionNext, Locale: active, SetCookie: seeded}
	}
	return Decision{
		Action:    ActionRedirect,
		Target:    withQuery("/"+string(active)+path, req.RawQuery),
		Locale:    active,
		SetCookie: seeded,
	}
}

func queryOverride(q url.Values) (Locale, bool) {
	if q == nil {
		return "", false
	}
	if l, ok := Parse(q.Get("lang")); ok {
		return l, true
	}
	if geo := q.Get("geo"); geo != "" {
		return FromCountry(geo), true
	}
	return "", false
}

func detectCountry(req Request) string {
	if req.PlatformCountry != "" {
		return req.PlatformCountry
	}
	for _, h := range geoHeaders {
		if v := req.Header.Get(h); v != "" {
			return v
		}
	}
	return ""
}

// activeLocale prefers a freshly seeded value, then NEXT_LOCALE, then lang.
func activeLocale(cookies map[string]string, seeded Locale) Locale {
	if seeded != "" {
		return seeded
	}
	for _, name := range []string{CookieNextLocale, CookieLang} {
		if l, ok := Parse(cookies[name]); ok {
			return l
		}
	}
	return Default
}

// splitLocalePrefix strips a leading locale segment and returns the remaining path.
func splitLocalePrefix(path string) (Locale, string, bool) {
	seg, rest, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	l, ok := Parse(seg)
	if !ok {
		return "", "", false
	}
	return l, collapseSlashes("/" + rest), true
}

func collapseSlashes(p string) string {
	if !strings.Contains(p, "//") {
		return p
	}
	var b strings.Builder
	b.Grow(len(p))
	prevSlash := false
	for i := 0; i < len(p); i++ {
		if p[i] == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteByte(p[i])
	}
	return b.String()
}

func withQuery(path, rawQuery string) string {
	if rawQuery == "" {
		return path
	}
	return path + "?" + rawQuery
}
