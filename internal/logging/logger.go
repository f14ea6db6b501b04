// Package logging emits the application's structured log events. Every
// event is a single line, JSON by default, carrying a component name,
// an optional trace id and free-form key/value fields. Loggers are
// immutable: each With* helper returns a derived copy, so request- and
// operation-scoped fields never bleed into the shared default logger.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

type level int

const (
	levelDebug level = iota
	levelInfo
	levelWarn
	levelError
	levelFatal
)

func (l level) String() string {
	switch l {
	case levelDebug:
		return "DEBUG"
	case levelWarn:
		return "WARN"
	case levelError:
		return "ERROR"
	case levelFatal:
		return "FATAL"
	default:
		return "INFO"
	}
}

func parseLevel(s string) level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return levelDebug
	case "WARN", "WARNING":
		return levelWarn
	case "ERROR":
		return levelError
	case "FATAL":
		return levelFatal
	default:
		return levelInfo
	}
}

// Config configures a Logger.
type Config struct {
	Level      string // DEBUG, INFO, WARN, ERROR or FATAL; anything else means INFO
	Output     string // "stderr" routes to stderr, everything else to stdout
	Component  string
	JSONFormat bool // JSON lines when true, a compact text form otherwise
}

// Logger writes structured log events. Construct one with New; the
// zero value is not usable.
type Logger struct {
	mu        *sync.Mutex // shared across derived loggers, guards out
	out       io.Writer
	threshold level
	jsonLines bool
	component string
	traceID   string
	fields    map[string]interface{}
}

// New creates a Logger from cfg.
func New(cfg *Config) *Logger {
	out := io.Writer(os.Stdout)
	if cfg.Output == "stderr" {
		out = os.Stderr
	}
	return &Logger{
		mu:        &sync.Mutex{},
		out:       out,
		threshold: parseLevel(cfg.Level),
		jsonLines: cfg.JSONFormat,
		component: cfg.Component,
	}
}

var (
	defaultLogger *Logger
	defaultOnce   sync.Once
)

// Default returns the process-wide logger, creating a JSON stdout
// logger at INFO on first use.
func Default() *Logger {
	defaultOnce.Do(func() {
		if defaultLogger == nil {
			defaultLogger = New(&Config{Component: "app", JSONFormat: true})
		}
	})
	return defaultLogger
}

// SetDefault replaces the process-wide logger. Call it once at
// startup, before anything logs concurrently.
func SetDefault(l *Logger) {
	defaultLogger = l
}

func (l *Logger) derive() *Logger {
	fields := make(map[string]interface{}, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	copied := *l
	copied.fields = fields
	return &copied
}

// WithComponent returns a copy tagged with component.
func (l *Logger) WithComponent(component string) *Logger {
	d := l.derive()
	d.component = component
	return d
}

// WithTraceID returns a copy carrying traceID on every event.
func (l *Logger) WithTraceID(traceID string) *Logger {
	d := l.derive()
	d.traceID = traceID
	return d
}

// WithField returns a copy with one extra field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	d := l.derive()
	d.fields[key] = value
	return d
}

// WithFields returns a copy with the given fields merged in.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	d := l.derive()
	for k, v := range fields {
		d.fields[k] = v
	}
	return d
}

// WithError returns a copy carrying err under the "error" field. A nil
// err returns the receiver unchanged.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

// WithDuration returns a copy carrying d under the "duration" field.
func (l *Logger) WithDuration(d time.Duration) *Logger {
	return l.WithField("duration", d.String())
}

// event is the wire shape of one log line.
type event struct {
	Time      string                 `json:"time"`
	Level     string                 `json:"level"`
	Component string                 `json:"component,omitempty"`
	TraceID   string                 `json:"trace_id,omitempty"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// emit builds and writes one event. kv is alternating key/value pairs;
// error values are flattened to their messages so they serialize
// usefully. A dangling trailing value is dropped.
func (l *Logger) emit(lv level, msg string, kv []interface{}) {
	if lv < l.threshold {
		return
	}

	ev := event{
		Time:      time.Now().UTC().Format(time.RFC3339Nano),
		Level:     lv.String(),
		Component: l.component,
		TraceID:   l.traceID,
		Message:   msg,
	}

	if len(l.fields) > 0 || len(kv) > 1 {
		ev.Fields = make(map[string]interface{}, len(l.fields)+len(kv)/2)
		for k, v := range l.fields {
			ev.Fields[k] = v
		}
		for i := 0; i+1 < len(kv); i += 2 {
			key, ok := kv[i].(string)
			if !ok {
				continue
			}
			if err, isErr := kv[i+1].(error); isErr {
				if err != nil {
					ev.Fields[key] = err.Error()
				} else {
					ev.Fields[key] = nil
				}
				continue
			}
			ev.Fields[key] = kv[i+1]
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.jsonLines {
		line, _ := json.Marshal(ev)
		fmt.Fprintln(l.out, string(line))
		return
	}
	l.writeText(ev)
}

// writeText renders the single-line text form used for local
// development. Fields are sorted so the output is stable.
func (l *Logger) writeText(ev event) {
	var b strings.Builder

	b.WriteString(ev.Time[:19])
	fmt.Fprintf(&b, " %-5s", ev.Level)
	if ev.Component != "" {
		fmt.Fprintf(&b, " [%s]", ev.Component)
	}
	if ev.TraceID != "" {
		fmt.Fprintf(&b, " {%s}", shortTrace(ev.TraceID))
	}
	b.WriteString(" ")
	b.WriteString(ev.Message)

	if len(ev.Fields) > 0 {
		keys := make([]string, 0, len(ev.Fields))
		for k := range ev.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, ev.Fields[k])
		}
	}

	fmt.Fprintln(l.out, b.String())
}

func shortTrace(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Debug logs at DEBUG. kv is alternating key/value pairs.
func (l *Logger) Debug(msg string, kv ...interface{}) { l.emit(levelDebug, msg, kv) }

// Info logs at INFO.
func (l *Logger) Info(msg string, kv ...interface{}) { l.emit(levelInfo, msg, kv) }

// Warn logs at WARN.
func (l *Logger) Warn(msg string, kv ...interface{}) { l.emit(levelWarn, msg, kv) }

// Error logs at ERROR.
func (l *Logger) Error(msg string, kv ...interface{}) { l.emit(levelError, msg, kv) }

// Fatal logs at FATAL and exits the process.
func (l *Logger) Fatal(msg string, kv ...interface{}) {
	l.emit(levelFatal, msg, kv)
	os.Exit(1)
}

// Fatal logs to the default logger and exits the process.
func Fatal(msg string, kv ...interface{}) {
	Default().Fatal(msg, kv...)
}

// WithComponent derives a component-tagged logger from the default one.
func WithComponent(component string) *Logger {
	return Default().WithComponent(component)
}
