package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

const consoleTimeLayout = "2006-01-02 15:04:05"

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Local().Format(consoleTimeLayout)
}

// attrString is the raw text of v, used for header fields.
func attrString(v slog.Value) string {
	text, _ := render(v)
	return text
}

// formatValue is the display form of v, quoted when it would otherwise be
// ambiguous on a bullet line.
func formatValue(v slog.Value) string {
	text, quotable := render(v)
	if quotable && needsQuotes(text) {
		return strconv.Quote(text)
	}
	return text
}

// render returns the text of v and whether it came from free-form input.
func render(v slog.Value) (string, bool) {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String(), true
	case slog.KindBool:
		if v.Bool() {
			return "yes", false
		}
		return "no", false
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10), false
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10), false
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64), false
	case slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String(), false
	case slog.KindTime:
		return formatTimestamp(v.Time()), false
	case slog.KindAny:
		switch val := v.Any().(type) {
		case error:
			return val.Error(), true
		case fmt.Stringer:
			return val.String(), true
		default:
			return fmt.Sprint(val), true
		}
	}
	return v.String(), true
}

func needsQuotes(s string) bool {
	return s == "" || strings.ContainsFunc(s, func(r rune) bool { return r < ' ' || r == '"' })
}
