package i18n

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

// Locale is one of the languages the site publishes.
type Locale string

const (
	EN Locale = "en"
	ES Locale = "es"
	FR Locale = "fr"

	// Default is used when nothing better can be negotiated.
	Default = EN
)

// Supported lists the published locales in display order.
var Supported = []Locale{EN, ES, FR}

// Valid reports whether l is a published locale.
func (l Locale) Valid() bool {
	switch l {
	case EN, ES, FR:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (l Locale) String() string { return string(l) }

// Tag returns the BCP 47 tag for l.
func (l Locale) Tag() language.Tag {
	switch l {
	case ES:
		return language.Spanish
	case FR:
		return language.French
	default:
		return language.English
	}
}

// Normalize maps a language tag such as "en-US" to a published locale.
func Normalize(tag string) (Locale, bool) {
	base := strings.ToLower(strings.TrimSpace(tag))
	if dash := strings.IndexByte(base, '-'); dash != -1 {
		base = base[:dash]
	}
	l := Locale(base)
	if !l.Valid() {
		return "", false
	}
	return l, true
}

// Negotiate picks the best published locale for an Accept-Language header, falling back
// to Default. Entries with q=0 are treated as not acceptable.
func Negotiate(acceptLang string) Locale {
	type langPref struct {
		tag string
		q   float64
		pos int
	}
	prefs := make([]langPref, 0, 8)
	for i, raw := range strings.Split(acceptLang, ",") {
		p := strings.TrimSpace(raw)
		if p == "" {
			continue
		}
		q := 1.0
		if sc := strings.IndexByte(p, ';'); sc != -1 {
			params := strings.TrimSpace(p[sc+1:])
			p = strings.TrimSpace(p[:sc])
			if strings.HasPrefix(params, "q=") {
				if v, err := parseQValue(strings.TrimPrefix(params, "q=")); err == nil {
					q = v
				}
			}
		}
		if q <= 0 {
			continue
		}
		prefs = append(prefs, langPref{tag: p, q: q, pos: i})
	}
	// q descending, header order breaks ties
	sort.SliceStable(prefs, func(i, j int) bool {
		if prefs[i].q == prefs[j].q {
			return prefs[i].pos < prefs[j].pos
		}
		return prefs[i].q > prefs[j].q
	})
	for _, lp := range prefs {
		if l, ok := Normalize(lp.tag); ok {
			return l
		}
	}
	return Default
}

// parseQValue parses a qvalue per RFC 7231 (0.0 to 1.0).
func parseQValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "1", "1.0", "1.00", "1.000":
		return 1.0, nil
	case "0", "0.0", "0.00", "0.000":
		return 0.0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	return v, nil
}
