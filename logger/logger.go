// Package logger implements a bounded, session scoped log used by the
// emulated hardware to report accesses it doesn't understand (unmapped
// bus addresses, unknown I/O registers, etc). Hardware tends to repeat
// the same bad access every frame so consecutive identical entries are
// collapsed into a single entry with a repeat count.
package logger

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultMax is the number of entries retained if a Logger is created with a
// non-positive maximum.
const DefaultMax = 256

// Entry is a single line in the log.
type Entry struct {
	Timestamp time.Time
	Tag       string
	Detail    string
	// Repeated is the number of times this entry was seen again directly after
	// the first occurrence.
	Repeated int
}

func (e Entry) String() string {
	s := fmt.Sprintf("%s: %s", e.Tag, e.Detail)
	if e.Repeated > 0 {
		s += fmt.Sprintf(" (repeat x%d)", e.Repeated+1)
	}
	return s + "\n"
}

// Logger holds the most recent entries up to a fixed maximum.
// It's not safe for concurrent use. The hardware that logs into it runs on
// a single emulation thread.
type Logger struct {
	max     int
	entries []Entry
	echo    *logrus.Logger
}

// New returns a Logger that retains at most max entries.
func New(max int) *Logger {
	if max <= 0 {
		max = DefaultMax
	}
	return &Logger{
		max: max,
	}
}

// Log adds an entry. Newlines are stripped from both tag and detail.
// A nil Logger discards everything which lets components treat logging
// as optional.
func (l *Logger) Log(tag, detail string) {
	if l == nil {
		return
	}
	tag = strings.ReplaceAll(tag, "\n", "")
	detail = strings.ReplaceAll(detail, "\n", "")

	if n := len(l.entries); n > 0 && l.entries[n-1].Tag == tag && l.entries[n-1].Detail == detail {
		l.entries[n-1].Repeated++
		l.entries[n-1].Timestamp = time.Now()
		return
	}
	e := Entry{Timestamp: time.Now(), Tag: tag, Detail: detail}
	l.entries = append(l.entries, e)
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
	if l.echo != nil {
		l.echo.WithField("tag", tag).Info(detail)
	}
}

// Logf adds a formatted entry.
func (l *Logger) Logf(tag, format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.Log(tag, fmt.Sprintf(format, args...))
}

// SetEcho causes every new (non repeated) entry to also be logged to e at
// info level with the tag as a field. Passing nil turns echoing off.
func (l *Logger) SetEcho(e *logrus.Logger) {
	l.echo = e
}

// Clear removes all entries.
func (l *Logger) Clear() {
	if l == nil {
		return
	}
	l.entries = l.entries[:0]
}

// Len returns the number of distinct entries currently held.
func (l *Logger) Len() int {
	if l == nil {
		return 0
	}
	return len(l.entries)
}

// Entries returns a copy of the current entries, oldest first.
func (l *Logger) Entries() []Entry {
	if l == nil {
		return nil
	}
	c := make([]Entry, len(l.entries))
	copy(c, l.entries)
	return c
}

// Write writes every entry to w.
func (l *Logger) Write(w io.Writer) {
	l.Tail(w, l.Len())
}

// Tail writes the last n entries to w. Asking for more entries than exist is
// fine.
func (l *Logger) Tail(w io.Writer, n int) {
	if l == nil {
		return
	}
	if n > len(l.entries) {
		n = len(l.entries)
	}
	if n < 0 {
		n = 0
	}
	for _, e := range l.entries[len(l.entries)-n:] {
		io.WriteString(w, e.String())
	}
}
