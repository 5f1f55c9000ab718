package locale

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// DefaultExcludedPrefixes are path prefixes (after the leading slash) the router never touches.
var DefaultExcludedPrefixes = []string{"api", "_next/static", "_next/image", "favicon.ico"}

// Matcher reports whether the router applies to an escaped path.
type Matcher func(path string) bool

// PrefixMatcher applies to every path whose remainder after "/" starts with none of excluded.
func PrefixMatcher(excluded ...string) Matcher {
	return func(path string) bool {
		rest := strings.TrimPrefix(path, "/")
		for _, p := range excluded {
			if strings.HasPrefix(rest, p) {
				return false
			}
		}
		return true
	}
}

type Option func(*router)

// WithMatcher replaces the default exclusion matcher.
func WithMatcher(m Matcher) Option {
	return func(r *router) { r.match = m }
}

// Middleware wraps next with locale routing. It must sit in front of the HTTP router so that
// rewrites are visible to route matching.
func Middleware(next http.Handler, opts ...Option) http.Handler {
	r := &router{next: next, match: PrefixMatcher(DefaultExcludedPrefixes...)}
	for _, o := range opts {
		o(r)
	}
	return r
}

type router struct {
	next  http.Handler
	match Matcher
}

func (rt *router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !rt.match(r.URL.EscapedPath()) {
		rt.next.ServeHTTP(w, r)
		return
	}

	d := Resolve(RequestFrom(r))
	if d.SetCookie != "" {
		SetCookies(w, d.SetCookie)
	}

	switch d.Action {
	case ActionRedirect:
		w.Header().Set("Location", d.Target)
		w.WriteHeader(http.StatusTemporaryRedirect)
	case ActionRewrite:
		rt.next.ServeHTTP(w, rewrite(r, d))
	default:
		if d.Locale != "" {
			r = r.WithContext(WithLocale(r.Context(), d.Locale))
		}
		rt.next.ServeHTTP(w, r)
	}
}

func rewrite(r *http.Request, d Decision) *http.Request {
	target, _, _ := strings.Cut(d.Target, "?")
	out := r.Clone(WithLocale(r.Context(), d.Locale))

	u := *r.URL
	if unescaped, err := url.PathUnescape(target); err == nil {
		u.Path = unescaped
		if unescaped == target {
			u.RawPath = ""
		} else {
			u.RawPath = target
		}
	} else {
		u.Path = target
		u.RawPath = ""
	}
	out.URL = &u
	out.RequestURI = u.RequestURI()
	return out
}

// RequestFrom builds the resolver input from an HTTP request.
func RequestFrom(r *http.Request) Request {
	cookies := make(map[string]string)
	for _, c := range r.Cookies() {
		if _, seen := cookies[c.Name]; !seen {
			cookies[c.Name] = c.Value
		}
	}
	return Request{
		Path:            r.URL.EscapedPath(),
		RawQuery:        r.URL.RawQuery,
		Query:           r.URL.Query(),
		Cookies:         cookies,
		Header:          r.Header,
		PlatformCountry: PlatformCountry(r.Context()),
	}
}

// SetCookies writes both locale cookies.
func SetCookies(w http.ResponseWriter, l Locale) {
	for _, name := range []string{CookieLang, CookieNextLocale} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    string(l),
			Path:     "/",
			MaxAge:   CookieMaxAge,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

type localeKey struct{}

type countryKey struct{}

// WithLocale records the locale a request is served in.
func WithLocale(ctx context.Context, l Locale) context.Context {
	return context.WithValue(ctx, localeKey{}, l)
}

// FromContext returns the request locale, or Default.
func FromContext(ctx context.Context) Locale {
	if l, ok := ctx.Value(localeKey{}).(Locale); ok && l != "" {
		return l
	}
	return Default
}

// WithPlatformCountry attaches a country detected by the hosting edge. It takes priority over
// geo headers during first-visit detection.
func WithPlatformCountry(ctx context.Context, country string) context.Context {
	if country == "" {
		return ctx
	}
	return context.WithValue(ctx, countryKey{}, country)
}

func PlatformCountry(ctx context.Context) string {
	if s, ok := ctx.Value(countryKey{}).(string); ok {
		return s
	}
	return ""
}
