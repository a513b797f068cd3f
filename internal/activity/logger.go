// Package activity writes the admin audit trail: one line per action,
// appended and never rewritten.
package activity

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/launchmena/catalogd/internal/domain"
)

const timeLayout = "2006-01-02 15:04:05"

// Recorder is what the admin services depend on.
type Recorder interface {
	Log(actor domain.Actor, action, details string)
}

// Logger appends activity lines to a file. Segments rotate by size and are
// never deleted.
type Logger struct {
	filename string
	mu       sync.Mutex
	out      io.WriteCloser
	now      func() time.Time
}

var _ Recorder = (*Logger)(nil)

// NewLogger opens the activity log at filename. maxSizeMB <= 0 uses lumberjack's default.
func NewLogger(filename string, maxSizeMB int) *Logger {
	return &Logger{
		filename: filename,
		out: &lumberjack.Logger{
			Filename:   filename,
			MaxSize:    maxSizeMB,
			MaxBackups: 0,
			MaxAge:     0,
			Compress:   false,
			LocalTime:  true,
		},
		now: time.Now,
	}
}

// Log appends one entry. Failures are reported through zap and never returned.
func (l *Logger) Log(actor domain.Actor, action, details string) {
	line := FormatEntry(domain.ActivityEntry{
		Time:    l.now(),
		User:    actor.Username,
		IP:      actor.IP,
		Action:  action,
		Details: details,
	})
	l.mu.Lock()
	_, err := io.WriteString(l.out, line+"\n")
	l.mu.Unlock()
	if err != nil {
		zap.L().Error("activity log write failed",
			zap.String("file", l.filename),
			zap.String("action", action),
			zap.Error(err))
	}
}

// Close flushes and closes the current segment.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.out.Close()
}

// FormatEntry renders an entry as
// "[2006-01-02 15:04:05] User: u, IP: ip, Action: a[, Details: d]".
func FormatEntry(e domain.ActivityEntry) string {
	user := e.User
	if user == "" {
		user = "unknown"
	}
	ip := e.IP
	if ip == "" {
		ip = "unknown"
	}
	line := fmt.Sprintf("[%s] User: %s, IP: %s, Action: %s", e.Time.Format(timeLayout), oneLine(user), oneLine(ip), oneLine(e.Action))
	if e.Details != "" {
		line += ", Details: " + oneLine(e.Details)
	}
	return line
}

// newlines would let a caller forge extra entries
func oneLine(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

var entryPattern = regexp.MustCompile(`^\[([0-9-]+ [0-9:]+)\] User: (.*?), IP: (.*?), Action: (.*?)(?:, Details: (.*))?$`)

// ParseEntry is the inverse of FormatEntry.
func ParseEntry(line string) (domain.ActivityEntry, bool) {
	m := entryPattern.FindStringSubmatch(line)
	if m == nil {
		return domain.ActivityEntry{}, false
	}
	ts, err := time.ParseInLocation(timeLayout, m[1], time.Local)
	if err != nil {
		return domain.ActivityEntry{}, false
	}
	return domain.ActivityEntry{Time: ts, User: m[2], IP: m[3], Action: m[4], Details: m[5]}, true
}

// Recent returns up to n of the newest entries in the current segment,
// newest first. Lines that do not parse are skipped.
func (l *Logger) Recent(n int) ([]domain.ActivityEntry, error) {
	if n <= 0 {
		return []domain.ActivityEntry{}, nil
	}
	f, err := os.Open(l.filename)
	if os.IsNotExist(err) {
		return []domain.ActivityEntry{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ring := make([]domain.ActivityEntry, 0, n)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		e, ok := ParseEntry(sc.Text())
		if !ok {
			continue
		}
		if len(ring) == n {
			ring = append(ring[1:], e)
		} else {
			ring = append(ring, e)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	out := make([]domain.ActivityEntry, len(ring))
	for i, e := range ring {
		out[len(ring)-1-i] = e
	}
	return out, nil
}
