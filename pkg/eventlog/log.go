// Package eventlog keeps the human readable trace of ingested frames.
package eventlog

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"gridwatch/pkg/window"
)

// DefaultCapacity bounds the in-memory trace; older lines are evicted.
const DefaultCapacity = 5000

type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Entry is one persisted log line.
type Entry struct {
	Session string    `json:"session"`
	Seq     uint64    `json:"seq"`
	Level   Level     `json:"level"`
	Line    string    `json:"line"`
	Time    time.Time `json:"time"`
}

// Sink receives every line appended to a Log. Sinks own their retention.
type Sink interface {
	Write(ctx context.Context, e Entry) error
	Close() error
}

// History is implemented by sinks that can read persisted lines back.
type History interface {
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

type Option func(*Log)

func WithSink(s Sink) Option {
	return func(l *Log) { l.sink = s }
}

func WithLogger(lg *log.Logger) Option {
	return func(l *Log) { l.logger = lg }
}

// WithSession overrides the generated session id.
func WithSession(id string) Option {
	return func(l *Log) { l.session = id }
}

// Log is an append-only trace with a bounded in-memory tail.
// A capacity <= 0 keeps every line.
type Log struct {
	mu      sync.RWMutex
	lines   *window.Buffer[string]
	total   uint64
	session string
	sink    Sink
	logger  *log.Logger
	now     func() time.Time
}

func New(capacity int, opts ...Option) *Log {
	l := &Log{
		lines:   window.New[string](capacity),
		session: uuid.NewString(),
		logger:  log.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Info appends a line as-is.
func (l *Log) Info(line string) {
	l.append(LevelInfo, line)
}

// Error appends "Error: <msg>".
func (l *Log) Error(msg string) {
	l.append(LevelError, "Error: "+msg)
}

func (l *Log) append(level Level, line string) {
	l.mu.Lock()
	l.lines.Append(line)
	l.total++
	e := Entry{Session: l.session, Seq: l.total, Level: level, Line: line, Time: l.now()}
	sink := l.sink
	l.mu.Unlock()

	if sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sink.Write(ctx, e); err != nil {
		l.logger.Printf("event log sink write failed seq=%d: %v", e.Seq, err)
	}
}

// Lines returns the retained lines, oldest first.
func (l *Log) Lines() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lines.Items()
}

// Tail returns the newest n retained lines, oldest first.
func (l *Log) Tail(n int) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lines.Tail(n)
}

// Total counts every line ever appended.
func (l *Log) Total() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}

// Dropped counts lines evicted from memory.
func (l *Log) Dropped() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total - uint64(l.lines.Len())
}

func (l *Log) Session() string { return l.session }

// History returns the sink's reader when it has one.
func (l *Log) History() (History, bool) {
	h, ok := l.sink.(History)
	return h, ok
}

func (l *Log) Close() error {
	if l.sink == nil {
		return nil
	}
	return l.sink.Close()
}
