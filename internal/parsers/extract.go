// Package parsers turns free-form analysis text into structured viability data.
// Each section parser tries an embedded JSON object first, then regular
// expressions over the prose, and gives up with ErrNoData.
package parsers

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	ErrNoData      = errors.New("PARSE_NO_DATA")
	ErrInvalidJSON = errors.New("PARSE_INVALID_JSON")
)

// Method records which strategy produced a section.
type Method string

const (
	MethodJSON    Method = "json"
	MethodRegex   Method = "regex"
	MethodGemini  Method = "gemini"
	MethodDefault Method = "default"
	MethodNone    Method = "none"
)

var fenceRe = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// extractJSONObject returns the first balanced, valid JSON object in text,
// preferring one inside a ```json fence.
func extractJSONObject(text string) (string, bool) {
	for _, m := range fenceRe.FindAllStringSubmatch(text, -1) {
		if obj, ok := firstBalancedObject(m[1]); ok {
			return obj, true
		}
	}
	return firstBalancedObject(text)
}

func firstBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	for start >= 0 {
		end := balancedEnd(s, start)
		if end < 0 {
			return "", false
		}
		if cand := s[start : end+1]; json.Valid([]byte(cand)) {
			return cand, true
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			return "", false
		}
		start += next + 1
	}
	return "", false
}

// balancedEnd returns the index of the brace closing the one at start, or -1.
func balancedEnd(s string, start int) int {
	depth := 0
	inStr, esc := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// sectionObject decodes the first JSON object in text and, when it wraps the
// section under one of keys, descends into it. Keys are normalised to camelCase.
func sectionObject(text string, keys ...string) (map[string]interface{}, error) {
	raw, ok := extractJSONObject(text)
	if !ok {
		return nil, ErrNoData
	}

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	doc = camelKeys(doc)

	for _, k := range keys {
		if inner, ok := doc[k].(map[string]interface{}); ok {
			return inner, nil
		}
	}
	return doc, nil
}

func camelKeys(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if inner, ok := v.(map[string]interface{}); ok {
			v = camelKeys(inner)
		}
		out[toCamel(k)] = v
	}
	return out
}

func toCamel(s string) string {
	if !strings.ContainsAny(s, "_- ") {
		return s
	}
	var b strings.Builder
	upper := false
	for i, r := range s {
		switch {
		case r == '_' || r == '-' || r == ' ':
			upper = i > 0
		case upper:
			b.WriteRune(unicode.ToUpper(r))
			upper = false
		case i == 0:
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func decodeInto(m map[string]interface{}, dst interface{}) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

// amountPattern matches money-like figures: $1.5M, 250k, 1,200,000, 2 billion.
const amountPattern = `\$?\s?\d[\d,]*(?:\.\d+)?(?:\s*(?:thousand|million|billion|mm|mn|bn|k|m|b)\b)?`

var amountRe = regexp.MustCompile(`(?i)^\$?\s*(-?\d[\d,]*(?:\.\d+)?)\s*(thousand|million|billion|mm|mn|bn|k|m|b)?$`)

// ParseAmount parses "$1.5M", "250k", "$1,200" or "2 billion" into a number.
func ParseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimSuffix(s, "USD"), "usd")
	s = strings.TrimSpace(s)

	m := amountRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	switch strings.ToLower(m[2]) {
	case "k", "thousand":
		n *= 1e3
	case "m", "mm", "mn", "million":
		n *= 1e6
	case "b", "bn", "billion":
		n *= 1e9
	}
	return n, true
}

// firstAmount returns the amount captured by the first matching pattern.
func firstAmount(text string, patterns []*regexp.Regexp) (float64, bool) {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if v, ok := ParseAmount(m[len(m)-1]); ok {
				return v, true
			}
		}
	}
	return 0, false
}

func firstNumber(text string, patterns []*regexp.Regexp) (float64, bool) {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if v, err := strconv.ParseFloat(m[len(m)-1], 64); err == nil {
				return v, true
			}
		}
	}
	return 0, false
}

func firstString(text string, patterns []*regexp.Regexp) (string, bool) {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if s := strings.TrimSpace(m[len(m)-1]); s != "" {
				return s, true
			}
		}
	}
	return "", false
}

var bulletRe = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+(.+)$`)

// extractList collects the bullet items following a line that starts with one
// of headers, or the comma separated items on the header line itself.
func extractList(text string, headers ...string) []string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(strings.TrimSpace(line), "#*- ")
		lower := strings.ToLower(trimmed)

		matched := ""
		for _, h := range headers {
			if strings.HasPrefix(lower, h) {
				matched = h
				break
			}
		}
		if matched == "" {
			continue
		}

		rest := trimmed[len(matched):]
		if idx := strings.IndexAny(rest, ":-"); idx >= 0 && idx < 4 {
			rest = rest[idx+1:]
		} else {
			rest = ""
		}
		rest = strings.Trim(strings.TrimSpace(rest), "*")
		if rest != "" {
			return splitItems(rest)
		}

		var items []string
		for _, next := range lines[i+1:] {
			if strings.TrimSpace(next) == "" {
				if len(items) > 0 {
					break
				}
				continue
			}
			m := bulletRe.FindStringSubmatch(next)
			if m == nil {
				break
			}
			items = append(items, cleanItem(m[1]))
		}
		if len(items) > 0 {
			return items
		}
	}
	return nil
}

func splitItems(s string) []string {
	s = strings.TrimSuffix(strings.TrimSpace(s), ".")
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(p), "and "))
		if p != "" {
			out = append(out, cleanItem(p))
		}
	}
	return out
}

func cleanItem(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "*_"))
}

func normalizeLevel(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "minimal":
		return "low"
	case "medium", "moderate":
		return "medium"
	case "high", "significant", "intense":
		return "high"
	}
	return ""
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// guard converts a panic inside a parser into ErrNoData.
func guard(section string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %s parser panicked: %v", ErrNoData, section, r)
	}
}
