package logger

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog behind a small structured API. Warn and error
// entries are mirrored into the attached collector when one is set.
type Logger struct {
	zl        zerolog.Logger
	collector *LogCollector
}

// Config selects level, encoding and destination.
type Config struct {
	Level      string // debug, info, warn, error, fatal, panic
	Format     string // json or console
	Output     string // stdout, stderr, or a file path
	TimeFormat string // timestamp layout, RFC3339Nano when empty
}

// New builds a Logger. A file path in Output is opened in append mode
// and stays open for the life of the process.
func New(cfg *Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)

	sink, err := openSink(cfg.Output)
	if err != nil {
		return nil, err
	}

	layout := cfg.TimeFormat
	if layout == "" {
		layout = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = layout

	if cfg.Format == "console" {
		sink = zerolog.ConsoleWriter{Out: sink, TimeFormat: layout}
	}

	zl := zerolog.New(sink).
		With().
		Timestamp().
		CallerWithSkipFrameCount(3).
		Logger()

	return &Logger{zl: zl}, nil
}

func openSink(target string) (io.Writer, error) {
	switch target {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		f, err := os.OpenFile(target, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		return f, nil
	}
}

func (l *Logger) Debug(msg string, fields ...Field) {
	ev := l.zl.Debug()
	for _, f := range fields {
		f.appendTo(ev)
	}
	ev.Msg(msg)
}

func (l *Logger) Info(msg string, fields ...Field) {
	ev := l.zl.Info()
	for _, f := range fields {
		f.appendTo(ev)
	}
	ev.Msg(msg)
}

func (l *Logger) Warn(msg string, fields ...Field) {
	ev := l.zl.Warn()
	for _, f := range fields {
		f.appendTo(ev)
	}
	ev.Msg(msg)
	l.collect("warn", msg, fields)
}

func (l *Logger) Error(msg string, fields ...Field) {
	ev := l.zl.Error()
	for _, f := range fields {
		f.appendTo(ev)
	}
	ev.Msg(msg)
	l.collect("error", msg, fields)
}

func (l *Logger) collect(level, msg string, fields []Field) {
	if l.collector == nil {
		return
	}

	// Caller(2): collect, then Warn or Error, then the real call site.
	site := "unknown"
	if _, file, line, ok := runtime.Caller(2); ok {
		if i := strings.LastIndex(file, "FinCast"); i >= 0 {
			file = file[i+len("FinCast"):]
		}
		site = fmt.Sprintf("%s:%d", file, line)
	}

	kv := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		k, v := f.keyValue()
		kv[k] = v
	}

	l.collector.AddLog(level, msg, kv, site)
}

// AddCollector starts aggregating warn and error entries, replacing any
// collector already attached.
func (l *Logger) AddCollector(cfg *CollectionConfig) {
	if l.collector != nil {
		l.collector.Close()
	}
	l.collector = NewLogCollector(cfg)
}

// RemoveCollector flushes whatever the collector holds and detaches it.
func (l *Logger) RemoveCollector() {
	if l.collector != nil {
		l.collector.Close()
		l.collector = nil
	}
}

// RecentProblems returns up to n recently flushed warn/error entries,
// newest last. The health endpoint surfaces these.
func (l *Logger) RecentProblems(n int) []AggregatedLogEntry {
	if l.collector == nil {
		return nil
	}
	return l.collector.Recent(n)
}

// Field is one structured key/value on a log entry. Values come from
// the constructors below; the interface is closed to this package.
type Field interface {
	appendTo(ev *zerolog.Event)
	keyValue() (string, interface{})
}

type stringField struct {
	key, val string
}

func (f stringField) appendTo(ev *zerolog.Event)      { ev.Str(f.key, f.val) }
func (f stringField) keyValue() (string, interface{}) { return f.key, f.val }

type intField struct {
	key string
	val int
}

func (f intField) appendTo(ev *zerolog.Event)      { ev.Int(f.key, f.val) }
func (f intField) keyValue() (string, interface{}) { return f.key, f.val }

type int64Field struct {
	key string
	val int64
}

func (f int64Field) appendTo(ev *zerolog.Event)      { ev.Int64(f.key, f.val) }
func (f int64Field) keyValue() (string, interface{}) { return f.key, f.val }

type errField struct {
	err error
}

func (f errField) appendTo(ev *zerolog.Event) { ev.Err(f.err) }

func (f errField) keyValue() (string, interface{}) {
	if f.err == nil {
		return "error", nil
	}
	return "error", f.err.Error()
}

type durationField struct {
	key string
	val time.Duration
}

func (f durationField) appendTo(ev *zerolog.Event)      { ev.Dur(f.key, f.val) }
func (f durationField) keyValue() (string, interface{}) { return f.key, f.val.String() }

type stringsField struct {
	key  string
	vals []string
}

func (f stringsField) appendTo(ev *zerolog.Event)      { ev.Strs(f.key, f.vals) }
func (f stringsField) keyValue() (string, interface{}) { return f.key, f.vals }

// String attaches a string value.
func String(key, value string) Field { return stringField{key, value} }

// Int attaches an int value.
func Int(key string, value int) Field { return intField{key, value} }

// Int64 attaches an int64 value.
func Int64(key string, value int64) Field { return int64Field{key, value} }

// Error attaches err under the "error" key.
func Error(err error) Field { return errField{err} }

// Duration attaches a duration, rendered in zerolog's duration unit.
func Duration(key string, value time.Duration) Field { return durationField{key, value} }

// Strings attaches a string slice as one array-valued field.
func Strings(key string, values []string) Field { return stringsField{key, values} }
