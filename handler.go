package gelf

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"
)

type ccKey struct{}

// ContextKey is used to extract a log value from context.Context. The value
// must be a `slog.Attr`.
//
//		Example:
//	 	ctx := context.WithValue(ctx, gelf.ContextKey,
//	 		slog.Group("req",
//	 			slog.String("method", r.Method),
//	 			slog.String("url", r.URL.String()),
//	 		)
//	 	)
//
// These attrs are added to the record as additional fields.
var ContextKey *ccKey = &ccKey{}

// Sink interface defines the Client API the Handler depends on.
type Sink interface {
	WriteMessage(*Message) (int, error)
	Close() error
}

// Handler is an adapter that serializes Go structured logs out to GELF
// records. GELF has a flat field namespace, so slog groups are flattened
// into dot-separated additional field names.
//
//	// Example of basic usage
//	h, err := gelf.NewHandler(servers, nil)
//	if err != nil {
//	   log.Fatalln(err)
//	}
//
//	logger := slog.New(h)
//	slog.SetDefault(logger)
//
//	slog.Info("unrecognized user", "user_id", userID)
type Handler struct {
	*HandlerOptions
	client Sink

	// dot-separated prefix applied to attr keys, built up by WithGroup
	group string

	// attrs pre-rendered by WithAttrs, keyed by their final prefixed names
	preFields Fields
}

// NewHandler creates a Handler over a Client with default options. For
// complete control over the Client, use the NewHandlerCustom constructor.
func NewHandler(servers []Endpoint, opts *HandlerOptions) (*Handler, error) {
	c, err := NewClient(servers, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create gelf.NewClient: %w", err)
	}
	return NewHandlerCustom(c, opts), nil
}

// NewHandlerCustom creates a Handler that wraps a fully customizable client.
func NewHandlerCustom(client Sink, opts *HandlerOptions) *Handler {
	if opts == nil {
		opts = DefaultHandlerOptions()
	} else {
		opts.resolve()
	}

	return &Handler{
		HandlerOptions: opts,
		client:         client,
	}
}

// Shutdown drains the underlying client and releases its socket. You MUST
// NOT call any other logger methods after calling Shutdown.
func (h *Handler) Shutdown() error {
	h.debug("shutting down the logging stack")
	return h.client.Close()
}

func (h *Handler) debug(format string, args ...any) {
	if !h.Verbose {
		return
	}
	InternalLogger().Printf(format, args...)
}

// Enabled reports whether the handler handles records at the given level.
// The handler ignores records whose level is lower. It is called early,
// before any arguments are processed, to save effort if the log event should
// be discarded.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.Level.Level()
}

// severity maps an slog level onto the syslog-style GELF severity. The four
// named slog levels map to debug(7), info(6), warning(4), and error(3);
// in-between values take the severity of the band they fall in.
func severity(l slog.Level) Level {
	switch {
	case l >= slog.LevelError:
		return LevelError
	case l >= slog.LevelWarn:
		return LevelWarning
	case l >= slog.LevelInfo:
		return LevelInfo
	default:
		return LevelDebug
	}
}

// Handle handles the Record. It will only be called when Enabled returns
// true.
//
// Handle observes the slog.Handler rules:
//   - If r.Time is the zero time, ignore the time. Omitting the timestamp is
//     not acceptable for GELF, so the handler *ignores* the zero value and
//     uses time.Now() as a reasonable fallback.
//   - If r.PC is zero, ignore it.
//   - Attr values are resolved.
//   - If an Attr's key and value are both the zero value, ignore the Attr.
//   - If a group's key is empty, inline the group's Attrs.
//   - If a group has no Attrs (even if it has a non-empty key), ignore it.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {

	// rule: ignore record time if zero
	t := r.Time
	if t.IsZero() {
		t = time.Now()
	}

	m := &Message{
		Short:    r.Message,
		TimeUnix: unixTime(t),
		Level:    severity(r.Level),
	}

	for k, v := range h.preFields {
		m.setExtra(k, v)
	}

	// rule: ignore source if no program counter
	if h.AddSource && r.PC != 0 {
		fs := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := fs.Next()
		m.setExtra("file", f.File)
		m.setExtra("line", f.Line)
	}

	// slog.Attrs passed in via the ctx are added without the group prefix
	if ctxAttr, ok := ctx.Value(ContextKey).(slog.Attr); ok {
		h.appendAttr(m, "", ctxAttr)
	}

	r.Attrs(func(attr slog.Attr) bool {
		h.appendAttr(m, h.group, attr)
		return true // continue iterating
	})

	// WriteMessage fills Version and Host from the client configuration
	_, err := h.client.WriteMessage(m)
	return err
}

// appendAttr folds one attr into the record's additional fields, flattening
// groups into dot-separated key prefixes.
func (h *Handler) appendAttr(m *Message, prefix string, attr slog.Attr) {

	// rule: must first resolve, and then ignore if empty
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}

	k, v := attr.Key, attr.Value

	if v.Kind() == slog.KindGroup {
		gAttrs := v.Group()

		// rule: ignore empty groups entirely
		if len(gAttrs) == 0 {
			return
		}

		// rule: inline attrs if the group key is empty
		childPrefix := prefix
		if len(k) > 0 {
			childPrefix = prefix + k + "."
		}
		for i := 0; i < len(gAttrs); i++ {
			h.appendAttr(m, childPrefix, gAttrs[i])
		}
		return
	}

	// rule: ignore non-group attrs with empty keys
	if len(k) == 0 {
		return
	}

	m.setExtra(prefix+k, h.renderValue(v))
}

// renderValue maps an slog.Value onto a GELF-safe additional field value,
// which should be a string or a number.
func (h *Handler) renderValue(v slog.Value) any {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindBool:
		return v.Bool()
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(h.TimeFormat)
	default:
		a := v.Any()
		switch av := a.(type) {
		case string:
			return av
		case error:
			return av.Error()
		case int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64,
			float32, float64, bool:
			return av
		default:
			return fmt.Sprintf("%v", a)
		}
	}
}

// WithAttrs returns a new Handler whose attributes consist of both the
// receiver's attributes and the arguments, pre-rendered under the current
// group prefix. The Handler owns the slice: it may retain, modify or discard
// it.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {

	// rule: skip if no attrs
	if len(attrs) == 0 {
		return h
	}

	h2 := h.clone()

	// render into a scratch record, then keep its extras
	scratch := &Message{Extra: h2.preFields}
	for i := 0; i < len(attrs); i++ {
		h2.appendAttr(scratch, h2.group, attrs[i])
	}
	h2.preFields = scratch.Extra

	return h2
}

// WithGroup returns a new Handler with the given group appended to the
// receiver's existing groups. GELF additional fields are a flat namespace,
// so the group becomes one more dot-separated segment in the field names of
// subsequent attrs. That is,
//
//	logger.WithGroup("s").LogAttrs(level, msg, slog.Int("a", 1))
//
// produces the additional field "_s.a", exactly like
//
//	logger.LogAttrs(level, msg, slog.Group("s", slog.Int("a", 1)))
//
// If the name is empty, WithGroup returns the receiver, which results in the
// nested attributes being inlined into the parent scope.
func (h *Handler) WithGroup(name string) slog.Handler {

	// rule: ignore if name is empty (true for any attr)
	if len(name) == 0 {
		return h
	}

	h2 := h.clone()
	h2.group = h.group + name + "."

	return h2
}

// clone creates a copy of the Handler that can be independently modified
// moving forward without impacting the parent handler it derives from; that
// requires a deep copy of the pre-rendered fields.
func (h *Handler) clone() *Handler {
	h2 := *h
	if h.preFields != nil {
		h2.preFields = make(Fields, len(h.preFields))
		for k, v := range h.preFields {
			h2.preFields[k] = v
		}
	}
	return &h2
}
