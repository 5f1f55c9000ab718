// Package locale resolves the visitor's UI locale and maps locale-prefixed page paths onto the
// locale-neutral routes served by the API process.
package locale

import "strings"

// Locale is a UI language code from a fixed set.
type Locale string

const (
	English  Locale = "en"
	Russian  Locale = "ru"
	Croatian Locale = "hr"
	Spanish  Locale = "es"
)

// Default is used whenever no valid locale can be determined.
const Default = English

var all = []Locale{English, Russian, Croatian, Spanish}

// countryLocales maps uppercase ISO country codes to locales. Unlisted countries get Default.
var countryLocales = map[string]Locale{
	"HR": Croatian,
	"ES": Spanish,
}

// All returns the supported locales in display order.
func All() []Locale {
	out := make([]Locale, len(all))
	copy(out, all)
	return out
}

// Parse reports whether s is exactly one of the supported codes.
func Parse(s string) (Locale, bool) {
	switch l := Locale(s); l {
	case English, Russian, Croatian, Spanish:
		return l, true
	default:
		return "", false
	}
}

// FromCountry maps a two-letter country code to a locale, case-insensitively.
func FromCountry(code string) Locale {
	if l, ok := countryLocales[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return l
	}
	return Default
}

func (l Locale) String() string { return string(l) }
