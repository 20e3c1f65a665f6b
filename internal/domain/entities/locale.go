package entities

import (
	"strings"

	"golang.org/x/text/language"
)

// Locale selects prompt, speech and fallback language
type Locale string

const (
	LocaleEnglish Locale = "en-US"
	LocaleHindi   Locale = "hi-IN"
)

var (
	supportedLocales = []Locale{LocaleEnglish, LocaleHindi}
	localeMatcher    = language.NewMatcher([]language.Tag{
		language.MustParse(string(LocaleEnglish)),
		language.MustParse(string(LocaleHindi)),
	})
)

// ParseLocale maps any BCP 47 tag (or bare "en"/"hi") onto a supported
// locale. Unknown or malformed tags resolve to English.
func ParseLocale(tag string) Locale {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return LocaleEnglish
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return LocaleEnglish
	}
	_, index, confidence := localeMatcher.Match(parsed)
	if confidence == language.No {
		return LocaleEnglish
	}
	return supportedLocales[index]
}

// IsHindi reports whether l is the Hindi locale
func (l Locale) IsHindi() bool {
	return l == LocaleHindi
}

// Short returns the two-letter language code
func (l Locale) Short() string {
	if l.IsHindi() {
		return "hi"
	}
	return "en"
}
