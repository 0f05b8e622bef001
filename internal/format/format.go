package format

import (
	"fmt"
	"time"

	"finitefield.org/shopper-web/internal/i18n"
)

var monthNames = map[i18n.Locale][12]string{
	i18n.ES: {"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"},
	i18n.FR: {"janvier", "février", "mars", "avril", "mai", "juin", "juillet", "août", "septembre", "octobre", "novembre", "décembre"},
}

// FmtDate formats t in a locale-friendly long form. The zero time renders
// as an empty string.
func FmtDate(t time.Time, loc i18n.Locale) string {
	if t.IsZero() {
		return ""
	}
	switch loc {
	case i18n.ES:
		return fmt.Sprintf("%d de %s de %d", t.Day(), monthNames[loc][t.Month()-1], t.Year())
	case i18n.FR:
		day := fmt.Sprint(t.Day())
		if t.Day() == 1 {
			day = "1er"
		}
		return fmt.Sprintf("%s %s %d", day, monthNames[loc][t.Month()-1], t.Year())
	default:
		return t.Format("January 2, 2006")
	}
}

// ISODate is the machine-readable date used in <time datetime>.
func ISODate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// Stars returns five flags, the first rating of which are filled. Ratings are
// clamped to 0..5.
func Stars(rating int) []bool {
	if rating < 0 {
		rating = 0
	}
	if rating > 5 {
		rating = 5
	}
	out := make([]bool, 5)
	for i := 0; i < rating; i++ {
		out[i] = true
	}
	return out
}
