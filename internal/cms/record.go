package cms

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"finitefield.org/shopper-web/internal/i18n"
)

// Record is a flat field map as stored by a content tier. Some keys carry a
// locale suffix (title_en, title_es, ...).
type Record map[string]any

var localizedKey = regexp.MustCompile(`^(.*)_(en|es|fr)$`)

// Split projects record onto loc. Keys suffixed with loc are stored under their
// base name and win over an unsuffixed key of the same name; keys suffixed with
// another locale are dropped; everything else is copied unchanged. The body
// output is the string value of body_<loc>; ok is false when there is none.
func Split(record Record, loc i18n.Locale) (Record, string, bool) {
	out := make(Record, len(record))
	var localized [][2]string

	for key := range record {
		m := localizedKey.FindStringSubmatch(key)
		if m == nil {
			out[key] = record[key]
			continue
		}
		if i18n.Locale(m[2]) == loc {
			localized = append(localized, [2]string{m[1], key})
		}
	}
	for _, pair := range localized {
		out[pair[0]] = record[pair[1]]
	}

	body, ok := record["body_"+string(loc)].(string)
	return out, body, ok
}

// String returns the trimmed string form of key, or "".
func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format("2006-01-02")
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	case bool, int, int64, float64:
		return fmt.Sprint(v)
	default:
		return ""
	}
}

// Int coerces numbers and numeric strings; a string is read up to its first
// non-digit. Anything else yields 0.
func (r Record) Int(key string) int {
	switch v := r[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case float32:
		return truncate(float64(v))
	case float64:
		return truncate(v)
	case string:
		return leadingInt(v)
	default:
		return 0
	}
}

// Time parses key as a content date; the zero time means missing or unparsable.
func (r Record) Time(key string) time.Time {
	switch v := r[key].(type) {
	case time.Time:
		return v
	case string:
		return parseContentDate(v)
	default:
		return time.Time{}
	}
}

// Map returns key as a record when it holds a mapping.
func (r Record) Map(key string) Record {
	return asRecord(r[key])
}

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func asRecord(v any) Record {
	switch m := v.(type) {
	case Record:
		return m
	case map[string]any:
		return Record(m)
	case map[any]any:
		out := make(Record, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out
	default:
		return nil
	}
}

func asRecords(v any) []Record {
	items, ok := v.([]any)
	if !ok {
		if recs, ok := v.([]map[string]any); ok {
			out := make([]Record, 0, len(recs))
			for _, rec := range recs {
				out = append(out, Record(rec))
			}
			return out
		}
		return nil
	}
	out := make([]Record, 0, len(items))
	for _, item := range items {
		if rec := asRecord(item); rec != nil {
			out = append(out, rec)
		}
	}
	return out
}

func truncate(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(f)
}

func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) {
		c := s[end]
		if c >= '0' && c <= '9' || end == 0 && (c == '-' || c == '+') {
			end++
			continue
		}
		break
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

func parseContentDate(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
		"2006/01/02",
		"2006-1-2",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func sanitizeSlug(slug string) string {
	slug = strings.TrimSpace(strings.ToLower(slug))
	slug = strings.Trim(slug, "/")
	if slug == "" {
		return ""
	}
	if strings.Contains(slug, "..") || strings.ContainsAny(slug, `/\`) {
		return ""
	}
	return slug
}
