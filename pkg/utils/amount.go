package utils

import (
	"encoding/json"
	"math"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts loosely typed input into non-negative whole currency units.
// Input that cannot be read as a number, or is negative, yields 0.
func ParseAmount(v interface{}) int64 {
	var d decimal.Decimal

	switch val := v.(type) {
	case nil:
		return 0
	case int:
		d = decimal.NewFromInt(int64(val))
	case int32:
		d = decimal.NewFromInt(int64(val))
	case int64:
		d = decimal.NewFromInt(val)
	case float32:
		d = decimal.NewFromFloat32(val)
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return 0
		}
		d = decimal.NewFromFloat(val)
	case json.Number:
		parsed, err := decimal.NewFromString(val.String())
		if err != nil {
			return 0
		}
		d = parsed
	case string:
		parsed, ok := parseAmountString(val)
		if !ok {
			return 0
		}
		d = parsed
	default:
		return 0
	}

	if d.IsNegative() {
		return 0
	}
	if !d.LessThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0
	}
	return d.Truncate(0).IntPart()
}

// parseAmountString accepts forms such as "500000", "500,000", "500.000 VND"
// and "1,234.50". Currency symbols and letters are ignored.
func parseAmountString(s string) (decimal.Decimal, bool) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case unicode.IsDigit(r), r == '.', r == ',', r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r), unicode.IsLetter(r), unicode.Is(unicode.Sc, r):
			// currency markers and spacing
		default:
			return decimal.Zero, false
		}
	}

	cleaned := b.String()
	if cleaned == "" || cleaned == "-" {
		return decimal.Zero, false
	}

	cleaned = normalizeSeparators(cleaned)
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// normalizeSeparators rewrites grouping and decimal separators to plain "1234.5"
func normalizeSeparators(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastDot > lastComma {
			return strings.ReplaceAll(s, ",", "")
		}
		s = strings.ReplaceAll(s, ".", "")
		return strings.Replace(s, ",", ".", 1)
	case lastComma >= 0:
		return resolveSingleSeparator(s, ",")
	case lastDot >= 0:
		return resolveSingleSeparator(s, ".")
	}
	return s
}

// resolveSingleSeparator treats sep as grouping when it repeats or when exactly
// three digits follow it, otherwise as the decimal point.
func resolveSingleSeparator(s, sep string) string {
	if strings.Count(s, sep) > 1 {
		return strings.ReplaceAll(s, sep, "")
	}
	idx := strings.Index(s, sep)
	if len(s)-idx-1 == 3 {
		return strings.Replace(s, sep, "", 1)
	}
	return strings.Replace(s, sep, ".", 1)
}

// FormatAmount renders whole currency units with comma grouping
func FormatAmount(amount int64) string {
	raw := decimal.NewFromInt(amount).StringFixed(0)

	sign := ""
	if strings.HasPrefix(raw, "-") {
		sign = "-"
		raw = raw[1:]
	}

	var b strings.Builder
	lead := len(raw) % 3
	if lead > 0 {
		b.WriteString(raw[:lead])
	}
	for i := lead; i < len(raw); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(raw[i : i+3])
	}
	return sign + b.String()
}
