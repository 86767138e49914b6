package gelf

import (
	"encoding/json"
	"fmt"
	"time"
)

// Version is the GELF payload format version emitted by this package.
const Version = "1.1"

// Level is a syslog-style severity. Lower is more severe.
type Level int

// Severity levels defined by the GELF payload specification, mirroring
// syslog: 0 is most severe, 7 least.
const (
	LevelEmergency Level = iota
	LevelAlert
	LevelCritical
	LevelError
	LevelWarning
	LevelNotice
	LevelInfo
	LevelDebug
)

func (l Level) String() string {
	switch l {
	case LevelEmergency:
		return "emergency"
	case LevelAlert:
		return "alert"
	case LevelCritical:
		return "critical"
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	case LevelNotice:
		return "notice"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel maps a severity name to its Level. It accepts the names produced
// by Level.String plus the common aliases "emerg", "crit", "err", "warn".
func ParseLevel(s string) (Level, error) {
	switch s {
	case "emergency", "emerg", "panic":
		return LevelEmergency, nil
	case "alert":
		return LevelAlert, nil
	case "critical", "crit":
		return LevelCritical, nil
	case "error", "err":
		return LevelError, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "notice":
		return LevelNotice, nil
	case "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	}
	return 0, fmt.Errorf("unknown severity level: %q", s)
}

// Fields carries caller-supplied metadata for one message. The reserved keys
// "facility", "full_message", "level", and "timestamp" override the
// corresponding record fields; every other key becomes an additional field,
// namespaced with a leading underscore on the wire. GELF additional values
// should be strings or numbers.
type Fields map[string]any

// Message is one GELF record. Zero-valued optional fields (Full, Facility)
// are omitted from the wire encoding.
type Message struct {
	Version  string
	Host     string
	Short    string
	Full     string
	TimeUnix float64
	Level    Level
	Facility string
	Extra    Fields
}

// MarshalJSON encodes the record as a GELF 1.1 JSON object. Extra keys are
// underscore-prefixed unless already prefixed. The key "id" (or "_id") is
// reserved by the protocol for server use and is silently renamed "__id"
// rather than rejected, matching the permissive behavior Graylog clients
// conventionally ship with.
func (m *Message) MarshalJSON() ([]byte, error) {
	record := make(map[string]any, 7+len(m.Extra))

	record["version"] = m.Version
	record["host"] = m.Host
	record["short_message"] = m.Short
	record["timestamp"] = m.TimeUnix
	record["level"] = int(m.Level)
	if m.Full != "" {
		record["full_message"] = m.Full
	}
	if m.Facility != "" {
		record["facility"] = m.Facility
	}

	for k, v := range m.Extra {
		record[extraKey(k)] = v
	}

	return json.Marshal(record)
}

// UnmarshalJSON decodes a GELF JSON object. Additional fields keep their
// underscore prefix in Extra, the shape receivers see them in.
func (m *Message) UnmarshalJSON(data []byte) error {
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		return err
	}

	for k, v := range record {
		switch k {
		case "version":
			m.Version, _ = v.(string)
		case "host":
			m.Host, _ = v.(string)
		case "short_message":
			m.Short, _ = v.(string)
		case "full_message":
			m.Full, _ = v.(string)
		case "timestamp":
			m.TimeUnix, _ = v.(float64)
		case "level":
			if f, ok := v.(float64); ok {
				m.Level = Level(f)
			}
		case "facility":
			m.Facility, _ = v.(string)
		default:
			if len(k) > 0 && k[0] == '_' {
				if m.Extra == nil {
					m.Extra = make(Fields)
				}
				m.Extra[k] = v
			}
		}
	}

	return nil
}

// extraKey maps a caller-side additional field name onto the wire name.
func extraKey(k string) string {
	if k == "id" || k == "_id" {
		return "__id"
	}
	if len(k) > 0 && k[0] == '_' {
		return k
	}
	return "_" + k
}

// setExtra records one additional field under its caller-side name.
func (m *Message) setExtra(k string, v any) {
	if m.Extra == nil {
		m.Extra = make(Fields)
	}
	m.Extra[k] = v
}

// newMessage builds the record for one send: protocol version, synthesized
// timestamp, host and facility from client configuration, the fixed severity
// of the calling method, and a short message derived from the input value.
func newMessage(host, facility string, level Level, v any, fields Fields) *Message {
	m := &Message{
		Version:  Version,
		Host:     host,
		TimeUnix: unixNow(),
		Level:    level,
		Facility: facility,
	}

	switch val := v.(type) {
	case string:
		m.Short = val
	case error:
		m.Short = val.Error()
		if trace, file, line, ok := errorTrace(val); ok {
			m.Full = trace
			m.setExtra("file", file)
			m.setExtra("line", line)
		}
	default:
		// non-string, non-error input is serialized generically
		if b, err := json.Marshal(v); err == nil {
			m.Short = string(b)
		} else {
			m.Short = fmt.Sprintf("%v", v)
		}
	}

	for k, val := range fields {
		switch k {
		case "facility":
			m.Facility = toString(val)
		case "full_message":
			m.Full = toString(val)
		case "level":
			if lv, ok := coerceLevel(val); ok {
				m.Level = lv
			}
		case "timestamp":
			if ts, ok := coerceTimestamp(val); ok {
				m.TimeUnix = ts
			}
		default:
			m.setExtra(k, val)
		}
	}

	return m
}

// unixTime converts t to fractional epoch seconds, the GELF timestamp
// representation.
func unixTime(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func unixNow() float64 {
	return unixTime(time.Now())
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// coerceLevel accepts the numeric shapes a severity override arrives in.
func coerceLevel(v any) (Level, bool) {
	switch n := v.(type) {
	case Level:
		return n, true
	case int:
		return Level(n), true
	case int64:
		return Level(n), true
	case float64:
		return Level(n), true
	}
	return 0, false
}

// coerceTimestamp accepts a time.Time or epoch seconds in the numeric shapes
// a timestamp override arrives in.
func coerceTimestamp(v any) (float64, bool) {
	switch t := v.(type) {
	case time.Time:
		return unixTime(t), true
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}
