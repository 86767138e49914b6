package gelf

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testSink captures records the Handler would have sent.
type testSink struct {
	msgs   []*Message
	closed bool
}

func (s *testSink) WriteMessage(m *Message) (int, error) {
	s.msgs = append(s.msgs, m)
	return 1, nil
}

func (s *testSink) Close() error {
	s.closed = true
	return nil
}

func (s *testSink) last(t *testing.T) *Message {
	t.Helper()
	require.NotEmpty(t, s.msgs)
	return s.msgs[len(s.msgs)-1]
}

func TestHandler_SeverityMapping(t *testing.T) {
	s := &testSink{}
	h := NewHandlerCustom(s, &HandlerOptions{Level: slog.LevelDebug})
	l := slog.New(h)

	l.Debug("d")
	l.Info("i")
	l.Warn("w")
	l.Error("e")

	require.Len(t, s.msgs, 4)
	require.Equal(t, LevelDebug, s.msgs[0].Level)
	require.Equal(t, LevelInfo, s.msgs[1].Level)
	require.Equal(t, LevelWarning, s.msgs[2].Level)
	require.Equal(t, LevelError, s.msgs[3].Level)
}

func TestHandler_Enabled(t *testing.T) {
	s := &testSink{}
	h := NewHandlerCustom(s, &HandlerOptions{Level: slog.LevelWarn})
	l := slog.New(h)

	l.Info("filtered out")
	l.Warn("kept")

	require.Len(t, s.msgs, 1)
	require.Equal(t, "kept", s.msgs[0].Short)
}

func TestHandler_AttrsBecomeExtras(t *testing.T) {
	s := &testSink{}
	l := slog.New(NewHandlerCustom(s, nil))

	l.Info("login", "user", "alice", "attempts", 3)

	m := s.last(t)
	require.Equal(t, "login", m.Short)
	require.Equal(t, "alice", m.Extra["user"])
	require.Equal(t, int64(3), m.Extra["attempts"])
}

// GELF has a flat field namespace; groups become dot-separated key segments
func TestHandler_GroupsFlattened(t *testing.T) {
	s := &testSink{}
	l := slog.New(NewHandlerCustom(s, nil))

	l.Info("request",
		slog.Group("req",
			slog.String("method", "GET"),
			slog.Group("url", slog.String("path", "/x")),
		),
	)

	m := s.last(t)
	require.Equal(t, "GET", m.Extra["req.method"])
	require.Equal(t, "/x", m.Extra["req.url.path"])
}

func TestHandler_WithGroupAndWithAttrs(t *testing.T) {
	s := &testSink{}
	base := slog.New(NewHandlerCustom(s, nil))

	derived := base.WithGroup("req").With("method", "GET")
	derived.Info("handled", "status", 200)

	m := s.last(t)
	require.Equal(t, "GET", m.Extra["req.method"])
	require.Equal(t, int64(200), m.Extra["req.status"])

	// the parent logger must be unaffected by the derived one
	base.Info("plain")
	m = s.last(t)
	require.NotContains(t, m.Extra, "req.method")
}

func TestHandler_EmptyGroupRules(t *testing.T) {
	s := &testSink{}
	l := slog.New(NewHandlerCustom(s, nil))

	l.Info("rules",
		slog.Group("empty"),                           // ignored entirely
		slog.Group("", slog.String("inlined", "yes")), // inlined into parent
	)

	m := s.last(t)
	require.Equal(t, "yes", m.Extra["inlined"])
	for k := range m.Extra {
		require.NotContains(t, k, "empty")
	}
}

func TestHandler_ZeroTimeFallsBackToNow(t *testing.T) {
	s := &testSink{}
	h := NewHandlerCustom(s, nil)

	r := slog.NewRecord(time.Time{}, slog.LevelInfo, "no time", 0)
	require.NoError(t, h.Handle(context.Background(), r))

	require.Greater(t, s.last(t).TimeUnix, 0.0)
}

func TestHandler_AddSource(t *testing.T) {
	s := &testSink{}
	l := slog.New(NewHandlerCustom(s, &HandlerOptions{AddSource: true}))

	l.Info("where am I")

	m := s.last(t)
	file, ok := m.Extra["file"].(string)
	require.True(t, ok)
	require.Contains(t, file, "handler_test.go")
	require.NotZero(t, m.Extra["line"])
}

func TestHandler_ContextValues(t *testing.T) {
	s := &testSink{}
	l := slog.New(NewHandlerCustom(s, nil))

	ctx := context.WithValue(context.Background(), ContextKey,
		slog.Group("req", slog.String("method", "POST")))

	l.InfoContext(ctx, "handled")

	require.Equal(t, "POST", s.last(t).Extra["req.method"])
}

func TestHandler_TimeValueFormatting(t *testing.T) {
	s := &testSink{}
	l := slog.New(NewHandlerCustom(s, &HandlerOptions{TimeFormat: time.RFC3339}))

	ts := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	l.Info("timed", "at", ts)

	require.Equal(t, "2026-08-24T12:00:00Z", s.last(t).Extra["at"])
}

func TestHandler_Shutdown(t *testing.T) {
	s := &testSink{}
	h := NewHandlerCustom(s, nil)

	require.NoError(t, h.Shutdown())
	require.True(t, s.closed)
}
