// Package i18n holds the translated strings the backend itself renders.
package i18n

import (
	"restaurant-ops/internal/locale"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Page keys.
const (
	PageHome      = "home"
	PageDashboard = "dashboard"
	PageBookings  = "bookings"
	PageCalls     = "calls"
	PageKnowledge = "knowledge"
)

var titles = map[string]map[language.Tag]string{
	PageHome: {
		language.English:  "Restaurant operations",
		language.Russian:  "Управление рестораном",
		language.Croatian: "Upravljanje restoranom",
		language.Spanish:  "Operaciones del restaurante",
	},
	PageDashboard: {
		language.English:  "Dashboard",
		language.Russian:  "Панель управления",
		language.Croatian: "Nadzorna ploča",
		language.Spanish:  "Panel de control",
	},
	PageBookings: {
		language.English:  "Bookings",
		language.Russian:  "Бронирования",
		language.Croatian: "Rezervacije",
		language.Spanish:  "Reservas",
	},
	PageCalls: {
		language.English:  "Call logs",
		language.Russian:  "Журнал звонков",
		language.Croatian: "Zapisi poziva",
		language.Spanish:  "Registro de llamadas",
	},
	PageKnowledge: {
		language.English:  "Knowledge base",
		language.Russian:  "База знаний",
		language.Croatian: "Baza znanja",
		language.Spanish:  "Base de conocimiento",
	},
}

var tags = map[locale.Locale]language.Tag{
	locale.English:  language.English,
	locale.Russian:  language.Russian,
	locale.Croatian: language.Croatian,
	locale.Spanish:  language.Spanish,
}

var cat = mustCatalog()

func mustCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, byTag := range titles {
		for tag, msg := range byTag {
			if err := b.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
	return b
}

// Pages lists the page keys with titles.
func Pages() []string {
	return []string{PageHome, PageDashboard, PageBookings, PageCalls, PageKnowledge}
}

// Title returns the page title in l. Unknown pages return the key itself.
func Title(l locale.Locale, page string) string {
	tag, ok := tags[l]
	if !ok {
		tag = language.English
	}
	return message.NewPrinter(tag, message.Catalog(cat)).Sprintf(page)
}
