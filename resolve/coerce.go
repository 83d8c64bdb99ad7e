package resolve

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// kind names the recognized attribute type, in the fixed, first-
// match-wins precedence order spec.md §4.5 defines.
type kind string

const (
	kindCurrency   kind = "currency"
	kindPercentage kind = "percentage"
	kindDate       kind = "date"
	kindEmail      kind = "email"
	kindPhone      kind = "phone"
	kindURL        kind = "url"
	kindInt        kind = "int"
	kindFloat      kind = "float"
	kindBool       kind = "bool"
)

var coerceValidate = validator.New()

var (
	currencyPattern   = regexp.MustCompile(`^[+-]?[$€£¥]\s?[\d,]+(\.\d+)?$|^[+-]?[\d,]+(\.\d+)?\s?(USD|EUR|GBP|JPY)$`)
	percentagePattern = regexp.MustCompile(`^[+-]?\d+(\.\d+)?\s?%$`)
	phonePattern      = regexp.MustCompile(`^\+?[\d][\d\s().-]{6,}\d$`)

	// isoDatePattern matches ISO 8601 date and date-time forms only
	// (spec.md §4.5 step 3) — no "Jan 2, 2024", no "2/1/24", nothing
	// dateparse.ParseAny would otherwise happily accept.
	isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}([T ]\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})?)?$`)
)

// dateHintWords are substrings of an attribute key that suggest its
// value is a date, so the date branch only runs where a field name
// hints date-ness — otherwise a product code like "12-5" or a
// fraction-shaped value risks misclassification.
var dateHintWords = []string{
	"date", "time", "day", "month", "year", "dob", "birth",
	"expir", "publish", "creat", "updat", "deadline", "timestamp",
}

func isDateHintKey(key string) bool {
	lower := strings.ToLower(key)
	for _, w := range dateHintWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// Coerce tries each attribute string value against the coercion chain
// and, on the first match, adds "<key>_type" and "<key>_value" keys
// recording the detected kind and parsed value. The original "<key>"
// entry is never modified or removed: coercion is advisory, a hint
// downstream consumers may use, not a destructive rewrite (spec.md
// §4.5).
func Coerce(attrs map[string]any) map[string]any {
	if attrs == nil {
		return nil
	}
	out := make(map[string]any, len(attrs))
	for key, v := range attrs {
		out[key] = v
		s, ok := v.(string)
		if !ok {
			continue
		}
		if k, parsed, ok := coerceString(key, s); ok {
			out[key+"_type"] = string(k)
			out[key+"_value"] = parsed
		}
	}
	return out
}

func coerceString(key, s string) (kind, any, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", nil, false
	}

	if currencyPattern.MatchString(trimmed) {
		if amount, ok := currencyAmount(trimmed); ok {
			return kindCurrency, amount, true
		}
	}
	if percentagePattern.MatchString(trimmed) {
		numeric := strings.TrimSuffix(strings.TrimSpace(trimmed), "%")
		if d, err := decimal.NewFromString(strings.ReplaceAll(numeric, ",", "")); err == nil {
			return kindPercentage, d.String(), true
		}
	}
	if isoDatePattern.MatchString(trimmed) {
		if !isDateHintKey(key) {
			// A date-shaped value under a non-date key (a product code)
			// is left uncoerced rather than tried as a phone number.
			return "", nil, false
		}
		if t, err := dateparse.ParseAny(trimmed); err == nil {
			return kindDate, t.UTC().Format("2006-01-02T15:04:05Z"), true
		}
	}
	if coerceValidate.Var(trimmed, "email") == nil {
		return kindEmail, trimmed, true
	}
	if phonePattern.MatchString(trimmed) && digitCount(trimmed) >= 7 {
		return kindPhone, trimmed, true
	}
	if coerceValidate.Var(trimmed, "url") == nil && strings.Contains(trimmed, "://") {
		return kindURL, trimmed, true
	}
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return kindInt, n, true
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return kindFloat, f, true
	}
	if b, ok := parseBool(trimmed); ok {
		return kindBool, b, true
	}
	return "", nil, false
}

func currencyAmount(s string) (string, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-', r == '+':
			return r
		default:
			return -1
		}
	}, s)
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return "", false
	}
	return d.String(), true
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true", "yes":
		return true, true
	case "false", "no":
		return false, true
	default:
		return false, false
	}
}
