package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Values longer than this are cut at info level. Errors are never cut.
const infoValueLimit = 160

// field is one flattened attribute with its dotted group path as key.
type field struct {
	key   string
	value slog.Value
}

// prettyHandler renders one header line per record followed by an indented
// bullet per attribute. Attributes bound through WithAttrs are flattened once
// when bound rather than on every record.
type prettyHandler struct {
	mu        *sync.Mutex
	out       io.Writer
	level     slog.Leveler
	addSource bool
	bound     []field
	prefix    string
}

func newPrettyHandler(w io.Writer, level slog.Leveler, addSource bool) slog.Handler {
	return &prettyHandler{mu: new(sync.Mutex), out: w, level: level, addSource: addSource}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	next := *h
	next.bound = slices.Clip(h.bound)
	for _, attr := range attrs {
		next.bound = appendField(next.bound, h.prefix, attr)
	}
	return &next
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = joinKey(h.prefix, name)
	return &next
}

func (h *prettyHandler) Handle(_ context.Context, record slog.Record) error {
	fields := slices.Clone(h.bound)
	record.Attrs(func(attr slog.Attr) bool {
		fields = appendField(fields, h.prefix, attr)
		return true
	})
	fields = lastWins(fields)

	var head header
	head.when = record.Time
	if head.when.IsZero() {
		head.when = time.Now()
	}
	head.level = record.Level
	head.message = strings.TrimSpace(record.Message)
	if head.message == "" {
		head.message = "(no message)"
	}
	if h.addSource {
		head.source = record.Source()
	}

	body := fields[:0]
	for _, f := range fields {
		if head.absorb(f) {
			continue
		}
		body = append(body, f)
	}

	verbose := record.Level < slog.LevelInfo
	var buf bytes.Buffer
	head.write(&buf)
	for _, f := range body {
		if !verbose && headerOnly(f.key) {
			continue
		}
		value := formatValue(f.value)
		if !verbose && f.key != "error" && len(value) > infoValueLimit {
			value = value[:infoValueLimit] + "…"
		}
		buf.WriteString("    - ")
		buf.WriteString(displayLabel(f.key))
		buf.WriteString(": ")
		buf.WriteString(value)
		buf.WriteByte('\n')
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf.Bytes())
	return err
}

// header is the first line of a console record:
//
//	2026-01-02 15:04:05 INFO [pipeline] #2 · Video abc (transform) – message
type header struct {
	when      time.Time
	level     slog.Level
	message   string
	component string
	index     string
	videoID   string
	stage     string
	source    *slog.Source
}

// absorb records f in the header when it is a subject field. Only the
// component is consumed outright; the other subject fields still reach the
// body so debug output shows them.
func (hd *header) absorb(f field) bool {
	switch f.key {
	case FieldComponent:
		hd.component = attrString(f.value)
		return true
	case FieldItemIndex:
		hd.index = attrString(f.value)
	case FieldVideoID:
		hd.videoID = attrString(f.value)
	case FieldStage:
		hd.stage = attrString(f.value)
	}
	return false
}

func (hd header) subject() string {
	parts := make([]string, 0, 2)
	if hd.index != "" {
		parts = append(parts, "#"+hd.index)
	}
	video := ""
	if hd.videoID != "" {
		video = "Video " + hd.videoID
	}
	switch {
	case video != "" && hd.stage != "":
		parts = append(parts, video+" ("+hd.stage+")")
	case video != "":
		parts = append(parts, video)
	case hd.stage != "":
		parts = append(parts, hd.stage)
	}
	return strings.Join(parts, " · ")
}

func (hd header) write(buf *bytes.Buffer) {
	buf.WriteString(formatTimestamp(hd.when))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(hd.level))
	if hd.component != "" {
		buf.WriteString(" [" + hd.component + "]")
	}
	if subject := hd.subject(); subject != "" {
		buf.WriteString(" " + subject)
	}
	buf.WriteString(" – ")
	buf.WriteString(hd.message)
	if hd.source != nil && hd.source.File != "" {
		buf.WriteString(" [" + filepath.Base(hd.source.File) + ":" + strconv.Itoa(hd.source.Line) + "]")
	}
	buf.WriteByte('\n')
}

// headerOnly reports keys that are shown in the header or are correlation
// noise at info level.
func headerOnly(key string) bool {
	switch key {
	case FieldVideoID, FieldStage, FieldItemIndex, FieldRunID:
		return true
	}
	return false
}

var fieldLabels = map[string]string{
	FieldEventType: "Event",
	FieldErrorHint: "Hint",
	FieldImpact:    "Impact",
	"error":        "Error",
}

func displayLabel(key string) string {
	if label, ok := fieldLabels[key]; ok {
		return label
	}
	label := strings.ReplaceAll(key, "_", " ")
	if label == "" {
		return key
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	}
	return "DEBUG"
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	if key == "" {
		return prefix
	}
	return prefix + "." + key
}

// appendField flattens attr (and any nested groups) onto dst.
func appendField(dst []field, prefix string, attr slog.Attr) []field {
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		for _, member := range value.Group() {
			dst = appendField(dst, joinKey(prefix, attr.Key), member)
		}
		return dst
	}
	if attr.Key == "" {
		return dst
	}
	return append(dst, field{key: joinKey(prefix, attr.Key), value: value})
}

// lastWins keeps the first position of each key with the value of its last
// occurrence, so a per-call attribute overrides a bound one.
func lastWins(fields []field) []field {
	if len(fields) < 2 {
		return fields
	}
	index := make(map[string]int, len(fields))
	out := make([]field, 0, len(fields))
	for _, f := range fields {
		if pos, seen := index[f.key]; seen {
			out[pos].value = f.value
			continue
		}
		index[f.key] = len(out)
		out = append(out, f)
	}
	return out
}
