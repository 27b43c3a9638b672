package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// PrettyJSONHandler writes each record as an indented JSON object with
// keys in the order they were logged. String values that span lines, such
// as board dumps, become arrays of lines.
type PrettyJSONHandler struct {
	mu   *sync.Mutex
	w    io.Writer
	opts slog.HandlerOptions

	// preset holds attrs bound with WithAttrs, each under the groups that
	// were open at the time.
	preset []scopedAttr
	groups []string
}

type scopedAttr struct {
	groups []string
	attr   slog.Attr
}

func NewPrettyJSONHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyJSONHandler {
	h := &PrettyJSONHandler{mu: &sync.Mutex{}, w: w}
	if opts != nil {
		h.opts = *opts
	}
	if h.opts.Level == nil {
		h.opts.Level = slog.LevelInfo
	}
	return h
}

func (h *PrettyJSONHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *PrettyJSONHandler) Handle(_ context.Context, r slog.Record) error {
	t := r.Time
	if t.IsZero() {
		t = time.Now()
	}
	root := newObject()
	root.set("time", t.Format(time.RFC3339Nano))
	root.set("level", r.Level.String())
	root.set("msg", r.Message)
	if h.opts.AddSource && r.PC != 0 {
		root.set("source", source(r.PC))
	}
	for _, sa := range h.preset {
		root.under(sa.groups).add(sa.attr)
	}
	scope := root.under(h.groups)
	r.Attrs(func(a slog.Attr) bool {
		scope.add(a)
		return true
	})

	raw, err := json.Marshal(root)
	if err != nil {
		raw, _ = json.Marshal(map[string]string{"level": r.Level.String(), "msg": r.Message, "log_error": err.Error()})
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return err
	}
	out.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.w.Write(out.Bytes())
	return err
}

func (h *PrettyJSONHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.preset = make([]scopedAttr, 0, len(h.preset)+len(attrs))
	next.preset = append(next.preset, h.preset...)
	for _, a := range attrs {
		next.preset = append(next.preset, scopedAttr{groups: h.groups, attr: a})
	}
	return &next
}

func (h *PrettyJSONHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.groups = append(h.groups[:len(h.groups):len(h.groups)], name)
	return &next
}

// object is a JSON object that remembers insertion order.
type object struct {
	keys []string
	vals map[string]any
}

func newObject() *object { return &object{vals: make(map[string]any)} }

func (o *object) set(k string, v any) {
	if _, ok := o.vals[k]; !ok {
		o.keys = append(o.keys, k)
	}
	o.vals[k] = v
}

// under returns the nested object for a group path, creating it as needed.
func (o *object) under(groups []string) *object {
	for _, g := range groups {
		child, ok := o.vals[g].(*object)
		if !ok {
			child = newObject()
			o.set(g, child)
		}
		o = child
	}
	return o
}

func (o *object) add(a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		attrs := v.Group()
		if len(attrs) == 0 {
			return
		}
		dst := o
		if a.Key != "" {
			dst = o.under([]string{a.Key})
		}
		for _, ga := range attrs {
			dst.add(ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	o.set(a.Key, plain(v))
}

func (o *object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(o.vals[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func plain(v slog.Value) any {
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if strings.Contains(s, "\n") {
			return strings.Split(strings.TrimRight(s, "\n"), "\n")
		}
		return s
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	case slog.KindAny:
		switch x := v.Any().(type) {
		case error:
			return x.Error()
		case json.Marshaler:
			return x
		}
		return v.Any()
	}
	return v.Any()
}

func source(pc uintptr) string {
	f, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	if f.File == "" {
		return ""
	}
	file := f.File
	if i := strings.LastIndexByte(file, '/'); i >= 0 {
		file = file[i+1:]
	}
	return file + ":" + strconv.Itoa(f.Line)
}
