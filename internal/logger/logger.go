// Package logger writes one JSON object per line. Every entry carries ts
// and level; level defaults to "error" when status is "error" and "info"
// otherwise.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

type Fields map[string]any

// Logger is safe for concurrent use.
type Logger struct {
	mu  sync.Mutex
	out io.Writer
	loc *time.Location
	now func() time.Time
}

func New(out io.Writer, loc *time.Location) *Logger {
	if out == nil {
		out = os.Stdout
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Logger{out: out, loc: loc, now: time.Now}
}

// Nop discards everything; useful in tests and as a zero value replacement.
func Nop() *Logger {
	return New(io.Discard, time.UTC)
}

func (l *Logger) Location() *time.Location { return l.loc }

// Log writes data as a single JSON line. The map is copied, callers may reuse it.
func (l *Logger) Log(data Fields) {
	entry := make(Fields, len(data)+2)
	for k, v := range data {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		entry[k] = v
	}
	entry["ts"] = l.now().In(l.loc).Format(time.RFC3339Nano)
	if _, ok := entry["level"]; !ok {
		if entry["status"] == "error" {
			entry["level"] = "error"
		} else {
			entry["level"] = "info"
		}
	}

	b, err := json.Marshal(entry)
	if err != nil {
		b = []byte(fmt.Sprintf(`{"level":"error","event":"log_marshal_failed","error_message":%q}`, err.Error()))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(append(b, '\n'))
}

// With returns a logger that adds component to every entry.
func (l *Logger) With(component string) *Component {
	return &Component{l: l, name: component}
}

type Component struct {
	l    *Logger
	name string
}

func (c *Component) Log(data Fields) {
	if _, ok := data["component"]; ok {
		c.l.Log(data)
		return
	}
	entry := make(Fields, len(data)+1)
	for k, v := range data {
		entry[k] = v
	}
	entry["component"] = c.name
	c.l.Log(entry)
}
