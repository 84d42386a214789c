// Package logging implements the request access log: a one-line-per-request
// summary gated by a reloadable logging-flags file, plus the change log
// for mutating methods ("post put patch delete").
package logging

import (
	"fmt"
	"strings"
	"sync"

	"github.com/freeconf/yang/fc"
)

// ChangedLeaf is one leaf touched by a mutating request, logged as
// "path=value" alongside the request summary.
type ChangedLeaf struct {
	Path  string
	Value string
}

// Logger gates per-request log lines behind a set of enabled methods,
// reloadable at runtime from a flags file. Output goes through fc.Debug,
// the same debug-trace facility -d/-v control, rather than a bespoke
// writer.
type Logger struct {
	mu      sync.RWMutex
	enabled map[string]bool
}

// NewLogger returns a Logger with no methods enabled.
func NewLogger() *Logger {
	return &Logger{enabled: map[string]bool{}}
}

// SetFlags replaces the enabled-method set from a space-separated token
// list drawn from {post put patch delete get head}. Unknown tokens are
// ignored.
func (l *Logger) SetFlags(line string) {
	set := map[string]bool{}
	for _, tok := range strings.Fields(line) {
		switch strings.ToLower(tok) {
		case "post", "put", "patch", "delete", "get", "head":
			set[strings.ToUpper(tok)] = true
		}
	}
	l.mu.Lock()
	l.enabled = set
	l.mu.Unlock()
}

func (l *Logger) methodEnabled(method string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.enabled[strings.ToUpper(method)]
}

// LogRequest emits one summary line for method/status/user@addr/path, and,
// when method is a mutating method carried in the flags file, one
// "path=value" segment per changed leaf.
func (l *Logger) LogRequest(method string, status int, user, addr, path string, changes []ChangedLeaf) {
	if !l.methodEnabled(method) {
		return
	}
	who := addr
	if user != "" {
		who = user + "@" + addr
	}
	line := fmt.Sprintf("%s %d %s %s", method, status, who, path)
	if len(changes) > 0 {
		var b strings.Builder
		for i, c := range changes {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(c.Path)
			b.WriteByte('=')
			b.WriteString(c.Value)
		}
		line = line + " " + b.String()
	}
	fc.Debug.Printf("%s", line)
}
