package logbook

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log entry.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Logbook persists pipeline progress to a simple text file so a run can be
// inspected after the fact, including from the watch TUI.
type Logbook struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// New creates a logbook that writes to the provided path.
func New(path string) (*Logbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &Logbook{path: path, now: time.Now}, nil
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Append writes a single entry, tagged with the stage or component it
// originated from.
func (l *Logbook) Append(level Level, component, message string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	line := fmt.Sprintf("%s %-5s [%s] %s\n",
		l.now().UTC().Format(time.RFC3339),
		string(level),
		component,
		strings.TrimSpace(message),
	)
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer file.Close()
	_, _ = file.WriteString(line)
}

// Tail returns up to maxLines of the most recent entries plus the total line
// count.
func (l *Logbook) Tail(maxLines int) ([]string, int) {
	if l == nil || maxLines <= 0 {
		return nil, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	file, err := os.Open(l.path)
	if err != nil {
		return nil, 0
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	total := len(lines)
	if total == 0 {
		return nil, 0
	}
	if total > maxLines {
		lines = lines[total-maxLines:]
	}
	return lines, total
}

// Scoped returns a writer bound to one component name.
func (l *Logbook) Scoped(component string) *Scope {
	return &Scope{book: l, component: component}
}

// Scope tags every entry with a fixed component.
type Scope struct {
	book      *Logbook
	component string
}

// Info appends an informational entry.
func (s *Scope) Info(format string, args ...any) {
	if s == nil {
		return
	}
	s.book.Append(LevelInfo, s.component, fmt.Sprintf(format, args...))
}

// Warn appends a warning entry.
func (s *Scope) Warn(format string, args ...any) {
	if s == nil {
		return
	}
	s.book.Append(LevelWarn, s.component, fmt.Sprintf(format, args...))
}

// Error appends an error entry.
func (s *Scope) Error(format string, args ...any) {
	if s == nil {
		return
	}
	s.book.Append(LevelError, s.component, fmt.Sprintf(format, args...))
}
