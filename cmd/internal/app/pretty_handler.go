package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	ansiReset   = "\x1b[0m"
	ansiDim     = "\x1b[2m"
	ansiBright  = "\x1b[1m"
	ansiRed     = "\x1b[31m"
	ansiGreen   = "\x1b[32m"
	ansiYellow  = "\x1b[33m"
	ansiBlue    = "\x1b[34m"
	ansiMagenta = "\x1b[35m"
	ansiCyan    = "\x1b[36m"
)

// prettyHandler renders one colorized logfmt-style line per record. It is for
// local development terminals only; production deployments use the JSON
// handler.
type prettyHandler struct {
	w     io.Writer
	opts  slog.HandlerOptions
	attrs []slog.Attr
	group string
	mu    *sync.Mutex
}

func newPrettyHandler(w io.Writer, opts *slog.HandlerOptions) slog.Handler {
	h := &prettyHandler{w: w, mu: &sync.Mutex{}}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	b.WriteString(ansiDim + ts.Format("15:04:05.000") + ansiReset)
	b.WriteByte(' ')
	b.WriteString(prettyLevel(r.Level))
	b.WriteByte(' ')
	b.WriteString(ansiBright + r.Message + ansiReset)

	if h.opts.AddSource && r.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{r.PC})
		frame, _ := frames.Next()
		if frame.File != "" {
			b.WriteString(" " + ansiDim + filepath.Base(frame.File) + ":" + strconv.Itoa(frame.Line) + ansiReset)
		}
	}

	for _, a := range h.attrs {
		h.writeAttr(&b, a, h.group)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&b, a, h.group)
		return true
	})

	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *h
	cp.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &cp
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	name = strings.TrimSpace(name)
	if name == "" {
		return h
	}
	cp := *h
	if cp.group != "" {
		cp.group += "." + name
	} else {
		cp.group = name
	}
	return &cp
}

func (h *prettyHandler) writeAttr(b *strings.Builder, a slog.Attr, prefix string) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) || strings.TrimSpace(a.Key) == "" {
		return
	}

	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}

	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			h.writeAttr(b, ga, key)
		}
		return
	}

	b.WriteString(" " + key + "=" + prettyValue(key, a.Value))
}

func prettyValue(key string, v slog.Value) string {
	switch key {
	case "method":
		return ansiCyan + v.String() + ansiReset
	case "path":
		return ansiCyan + v.String() + ansiReset
	case "status":
		if v.Kind() == slog.KindInt64 {
			return colorizeStatus(int(v.Int64()))
		}
	case "status_class":
		return colorizeStatusClassText(v.String())
	case "duration_ms":
		if v.Kind() == slog.KindInt64 {
			return colorizeDuration(v.Int64())
		}
	case "result":
		switch v.String() {
		case "success":
			return ansiGreen + "success" + ansiReset
		case "client_error":
			return ansiYellow + "client_error" + ansiReset
		case "server_error":
			return ansiRed + "server_error" + ansiReset
		}
	}
	return quoteIfNeeded(plainValue(v))
}

func colorizeStatus(code int) string {
	s := strconv.Itoa(code)
	switch {
	case code >= 500:
		return ansiRed + s + ansiReset
	case code >= 400:
		return ansiYellow + s + ansiReset
	case code >= 300:
		return ansiMagenta + s + ansiReset
	default:
		return ansiGreen + s + ansiReset
	}
}

func colorizeStatusClassText(class string) string {
	switch class {
	case "5xx":
		return ansiRed + class + ansiReset
	case "4xx":
		return ansiYellow + class + ansiReset
	case "3xx":
		return ansiMagenta + class + ansiReset
	default:
		return ansiGreen + class + ansiReset
	}
}

func colorizeDuration(ms int64) string {
	s := strconv.FormatInt(ms, 10) + "ms"
	switch {
	case ms >= 1000:
		return ansiRed + s + ansiReset
	case ms >= 250:
		return ansiYellow + s + ansiReset
	default:
		return ansiDim + s + ansiReset
	}
}

func prettyLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return ansiRed + "[ERROR]" + ansiReset
	case level >= slog.LevelWarn:
		return ansiYellow + "[WARN]" + ansiReset
	case level < slog.LevelInfo:
		return ansiMagenta + "[DEBUG]" + ansiReset
	default:
		return ansiBlue + "[INFO]" + ansiReset
	}
}

func plainValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	default:
		return fmt.Sprint(v.Any())
	}
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, " \t\r\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
