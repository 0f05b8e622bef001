// Package frontmatter reads the flat key: value header that legacy content files carry
// between two --- lines.
package frontmatter

import (
	"regexp"
	"strings"
)

const delimiter = "---"

var (
	fieldLine  = regexp.MustCompile(`^([A-Za-z0-9_-]+):\s*(.*)$`)
	datePrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
)

// Fields holds header values. Values are strings, except literal true/false which become bools.
type Fields map[string]any

// String returns the value for key when it is a non-empty string.
func (f Fields) String(key string) string {
	if f == nil {
		return ""
	}
	s, _ := f[key].(string)
	return s
}

// Bool returns the value for key when it was written as true or false.
func (f Fields) Bool(key string) (bool, bool) {
	if f == nil {
		return false, false
	}
	b, ok := f[key].(bool)
	return b, ok
}

// Parse splits raw into header fields and body. Input without a well-formed header comes
// back unchanged as the body with empty fields.
func Parse(raw string) (Fields, string) {
	if !strings.HasPrefix(raw, delimiter) {
		return Fields{}, raw
	}
	end := strings.Index(raw[len(delimiter):], "\n"+delimiter)
	if end < 0 {
		return Fields{}, raw
	}
	end += len(delimiter)

	block := strings.TrimSpace(raw[len(delimiter):end])
	body := strings.TrimLeftFunc(raw[end+1+len(delimiter):], isSpace)

	fields := Fields{}
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSuffix(line, "\r")
		m := fieldLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		fields[m[1]] = coerce(unquote(strings.TrimSpace(m[2])))
	}
	return fields, body
}

func unquote(value string) string {
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if first == last && (first == '"' || first == '\'') {
			return value[1 : len(value)-1]
		}
	}
	return value
}

func coerce(value string) any {
	if datePrefix.MatchString(value) {
		return value
	}
	switch value {
	case "true":
		return true
	case "false":
		return false
	}
	return value
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f', '\u00a0', '\ufeff':
		return true
	}
	return false
}
