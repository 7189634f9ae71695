// Package i18n holds the fr/en language rules and the user-facing strings of the API.
package i18n

import (
	"strings"
	"unicode"
)

const (
	French   = "fr"
	English  = "en"
	Fallback = French
)

// Supported lists the languages replies are written in.
var Supported = []string{French, English}

// Normalize keeps the first two letters of v, lower-cased, when they name a
// supported language and returns Fallback otherwise.
func Normalize(v string) string {
	s := strings.ToLower(strings.TrimSpace(v))
	if len(s) > 2 {
		s = s[:2]
	}
	for _, l := range Supported {
		if s == l {
			return l
		}
	}
	return Fallback
}

// IsSupported reports whether v already names a supported language.
func IsSupported(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	if len(s) > 2 {
		s = s[:2]
	}
	return s == French || s == English
}

// Hints carries every place a language can come from, strongest first.
type Hints struct {
	Explicit       string
	Prior          map[string]interface{}
	Message        string
	AcceptLanguage string
}

// Detect picks the reply language: explicit request field, then prior
// meta.lang, then a word heuristic over the message, then Accept-Language.
func Detect(h Hints) string {
	if IsSupported(h.Explicit) {
		return Normalize(h.Explicit)
	}
	if lang := priorLang(h.Prior); IsSupported(lang) {
		return Normalize(lang)
	}
	if lang, ok := guess(h.Message); ok {
		return lang
	}
	if h.AcceptLanguage != "" {
		first := strings.SplitN(h.AcceptLanguage, ",", 2)[0]
		if IsSupported(first) {
			return Normalize(first)
		}
	}
	return Fallback
}

func priorLang(prior map[string]interface{}) string {
	meta, ok := prior["meta"].(map[string]interface{})
	if !ok {
		return ""
	}
	lang, _ := meta["lang"].(string)
	return lang
}

var frenchWords = map[string]struct{}{
	"le": {}, "la": {}, "les": {}, "des": {}, "une": {}, "un": {}, "et": {}, "pour": {},
	"avec": {}, "est": {}, "sur": {}, "dans": {}, "nous": {}, "vous": {}, "je": {},
	"site": {}, "semaines": {}, "refonte": {}, "devis": {}, "proposition": {}, "bonjour": {},
	"merci": {}, "pas": {}, "du": {}, "au": {}, "fr": {},
}

var englishWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "is": {}, "on": {}, "in": {}, "we": {},
	"you": {}, "i": {}, "weeks": {}, "website": {}, "redesign": {}, "quote": {}, "proposal": {},
	"hello": {}, "thanks": {}, "please": {}, "to": {}, "of": {}, "en": {},
}

// guess counts stop words of each language and needs a clear winner.
func guess(message string) (string, bool) {
	words := strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	var fr, en int
	for _, w := range words {
		if _, ok := frenchWords[w]; ok {
			fr++
		}
		if _, ok := englishWords[w]; ok {
			en++
		}
	}
	for _, r := range message {
		if strings.ContainsRune("éèêàçùôîœ", unicode.ToLower(r)) {
			fr++
			break
		}
	}

	switch {
	case fr > en:
		return French, true
	case en > fr:
		return English, true
	default:
		return "", false
	}
}
