package log

import "time"

// Logger is what the bridge, the delivery worker and the HTTP surface log
// through. Messages are short lowercase phrases ("rate limited", "queue full,
// message dropped"); the detail goes in fields so JSON log files stay
// queryable.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field is one key/value attached to a log line. Keys are snake_case and
// match the names used in /stats where both exist (queue, deferred,
// rate_limits).
type Field struct {
	Key   string
	Value any
}

// Typed constructors keep call sites short and let the zerolog adapter pick
// the matching encoder without reflection.

func String(key, value string) Field                 { return Field{Key: key, Value: value} }
func Int(key string, value int) Field                { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field            { return Field{Key: key, Value: value} }
func Uint64(key string, value uint64) Field          { return Field{Key: key, Value: value} }
func Float64(key string, value float64) Field        { return Field{Key: key, Value: value} }
func Duration(key string, value time.Duration) Field { return Field{Key: key, Value: value} }

// Time records an instant, such as the end of a rate-limit pause.
func Time(key string, value time.Time) Field { return Field{Key: key, Value: value} }

// Err attaches err under "error". A nil error is logged as null.
func Err(err error) Field { return Field{Key: "error", Value: err} }

// Any is for values without a typed constructor, such as the masked config
// dumped at startup or a recovered panic.
func Any(key string, value any) Field { return Field{Key: key, Value: value} }
