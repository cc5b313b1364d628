// Package normalize converts raw Last.fm payloads into canonical domain records.
//
// Every function here is total: absent or malformed input degrades to 0, nil or an empty
// collection and never produces an error.
package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// msThreshold is the smallest raw duration interpreted as milliseconds.
const msThreshold = 10000

// Number coerces a decoded JSON value to a non-negative finite float.
// Numeric strings are parsed; anything else yields 0.
func Number(v any) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

// Int coerces a decoded JSON value to a non-negative integer, rounding fractions.
// Values beyond the int64 range saturate at math.MaxInt64.
func Int(v any) int64 {
	f := math.Round(Number(v))
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(f)
}

// Text returns v as a string. Numbers are formatted without exponent; other
// non-string values yield "".
func Text(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case json.Number:
		return s.String()
	default:
		return ""
	}
}

// DurationSeconds normalizes a raw duration to whole seconds.
// Values of 10000 and above are treated as milliseconds.
func DurationSeconds(raw float64) int {
	if raw <= 0 || math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0
	}
	secs := math.Round(raw)
	if raw >= msThreshold {
		secs = math.Round(raw / 1000)
	}
	if secs >= math.MaxInt {
		return math.MaxInt
	}
	return int(secs)
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// StripMarkup removes HTML tags from s, decodes entities and trims surrounding space.
func StripMarkup(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or a malformed tail; keep what was collected
			return strings.TrimSpace(b.String())
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}

// OptionalText strips markup from s and returns nil when nothing remains.
func OptionalText(s string) *string {
	text := StripMarkup(s)
	if text == "" {
		return nil
	}
	return &text
}
