// Package prettylog renders slog records as colored single-line console
// output for local development. Production deployments keep the default
// text handler.
package prettylog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
)

const timeFormat = "15:04:05.000"

const (
	reset    = "\033[0m"
	darkGray = 90
	lightRed = 91
	yellow   = 93
	cyan     = 96
	white    = 97
)

func colorize(code int, v string) string {
	return fmt.Sprintf("\033[%dm%s%s", code, v, reset)
}

type handler struct {
	level  slog.Level
	output io.Writer
	attrs  []slog.Attr
	group  string
}

func NewHandler(level slog.Level) slog.Handler {
	return &handler{
		level:  level,
		output: os.Stderr,
	}
}

func (h *handler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *handler) WithGroup(name string) slog.Handler {
	clone := *h
	if clone.group != "" {
		clone.group += "."
	}
	clone.group += name
	return &clone
}

func (h *handler) Handle(ctx context.Context, r slog.Record) error {
	level := r.Level.String() + ":"
	switch r.Level {
	case slog.LevelDebug:
		level = colorize(darkGray, level)
	case slog.LevelInfo:
		level = colorize(cyan, level)
	case slog.LevelWarn:
		level = colorize(yellow, level)
	case slog.LevelError:
		level = colorize(lightRed, level)
	}

	var b strings.Builder
	b.WriteString(colorize(darkGray, r.Time.Format(timeFormat)))
	b.WriteString(" ")
	b.WriteString(level)
	b.WriteString(" ")
	b.WriteString(colorize(white, r.Message))

	attrs := make(map[string]string)
	for _, a := range h.attrs {
		attrs[h.key(a.Key)] = renderValue(a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[h.key(a.Key)] = renderValue(a.Value)
		return true
	})

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(" ")
		b.WriteString(colorize(darkGray, k+"="+attrs[k]))
	}
	b.WriteString("\n")

	_, err := io.WriteString(h.output, b.String())
	return err
}

func (h *handler) key(k string) string {
	if h.group == "" {
		return k
	}
	return h.group + "." + k
}

func renderValue(v slog.Value) string {
	resolved := v.Resolve().Any()
	if err, ok := resolved.(error); ok {
		return err.Error()
	}
	s := fmt.Sprintf("%v", resolved)
	if strings.ContainsAny(s, " \t") {
		return fmt.Sprintf("%q", s)
	}
	return s
}
