package note

import (
	"fmt"
	"strings"
	"time"
)

// Locale selects the language of titles and user messages.
type Locale string

const (
	Azerbaijani Locale = "az"
	English     Locale = "en"
)

// DefaultLocale is the language the app ships in.
const DefaultLocale = Azerbaijani

// ParseLocale maps a config value to a Locale, falling back to the default.
func ParseLocale(s string) Locale {
	switch Locale(strings.ToLower(strings.TrimSpace(s))) {
	case English:
		return English
	case Azerbaijani:
		return Azerbaijani
	}
	return DefaultLocale
}

var azMonths = [...]string{
	"Yanvar", "Fevral", "Mart", "Aprel", "May", "İyun",
	"İyul", "Avqust", "Sentyabr", "Oktyabr", "Noyabr", "Dekabr",
}

// Title renders the display date of an archive, "14 Mart 2024" or
// "14 March 2024", in t's location. The zero time has no title.
func Title(t time.Time, lang Locale) string {
	if t.IsZero() {
		if lang == English {
			return "Unknown date"
		}
		return "Tarix bilinmir"
	}
	month := t.Month().String()
	if lang != English {
		month = azMonths[t.Month()-1]
	}
	return fmt.Sprintf("%d %s %d", t.Day(), month, t.Year())
}
