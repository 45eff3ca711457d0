// Package sanitize strips local paths, usernames, and machine names from log
// text before it is persisted, so that artifacts written to a submission's
// log area carry no identifying information about the host.
package sanitize

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rxtech-lab/systrade-bench/internal/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Sanitizer removes identifying path information from strings.
type Sanitizer struct {
	workspaceRoot string
	rules         []rule
}

// NewSanitizer creates a Sanitizer rooted at workspaceRoot. An empty root
// falls back to the current working directory.
func NewSanitizer(workspaceRoot string) *Sanitizer {
	if workspaceRoot == "" {
		if cwd, err := os.Getwd(); err == nil {
			workspaceRoot = cwd
		}
	}

	s := &Sanitizer{
		workspaceRoot: workspaceRoot,
		rules:         nil,
	}
	s.buildRules()

	return s
}

func (s *Sanitizer) buildRules() {
	addLiteral := func(literal, replacement string) {
		if literal == "" {
			return
		}

		re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(literal))
		if err != nil {
			return
		}

		s.rules = append(s.rules, rule{pattern: re, replacement: replacement})
	}

	if hostname, err := os.Hostname(); err == nil {
		addLiteral(hostname, "<COMPUTER>")
	}

	username := os.Getenv("USER")
	if username == "" {
		username = os.Getenv("USERNAME")
	}

	addLiteral(username, "<USER>")

	if home, err := os.UserHomeDir(); err == nil {
		addLiteral(home, "<HOME>")
		addLiteral(filepath.ToSlash(home), "<HOME>")
	}

	addLiteral(s.workspaceRoot, "<WORKSPACE>")
	addLiteral(filepath.ToSlash(s.workspaceRoot), "<WORKSPACE>")

	// Generic fallbacks for paths the literal rules did not catch.
	s.rules = append(s.rules,
		rule{pattern: regexp.MustCompile(`(?i)[A-Za-z]:\\[^\\:*?"<>|\s]+(?:\\[^\\:*?"<>|\s]+)*`), replacement: "<REDACTED>"},
		rule{pattern: regexp.MustCompile(`(?i)/(?:home|Users)/[^/\s]+`), replacement: "<HOME>"},
		rule{pattern: regexp.MustCompile(`(?i)file:///\S+`), replacement: "file:///<REDACTED>"},
	)
}

// Sanitize replaces identifying substrings in text.
func (s *Sanitizer) Sanitize(text string) string {
	if text == "" {
		return text
	}

	result := text
	for _, r := range s.rules {
		result = r.pattern.ReplaceAllString(result, r.replacement)
	}

	return result
}

// SanitizePath converts path to a workspace-relative form when possible,
// otherwise sanitizes it like any other string.
func (s *Sanitizer) SanitizePath(path string) string {
	rel, err := filepath.Rel(s.workspaceRoot, path)
	if err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}

	return s.Sanitize(path)
}

// sanitizingCore scrubs entry messages and string- or error-valued fields
// before they reach the wrapped core.
type sanitizingCore struct {
	zapcore.Core
	sanitizer *Sanitizer
}

func (c *sanitizingCore) With(fields []zapcore.Field) zapcore.Core {
	return &sanitizingCore{Core: c.Core.With(c.scrub(fields)), sanitizer: c.sanitizer}
}

func (c *sanitizingCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}

	return checked
}

func (c *sanitizingCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	entry.Message = c.sanitizer.Sanitize(entry.Message)

	return c.Core.Write(entry, c.scrub(fields))
}

func (c *sanitizingCore) scrub(fields []zapcore.Field) []zapcore.Field {
	out := make([]zapcore.Field, len(fields))

	for i, f := range fields {
		switch f.Type {
		case zapcore.StringType:
			f.String = c.sanitizer.Sanitize(f.String)
		case zapcore.ErrorType:
			if err, ok := f.Interface.(error); ok {
				f = zap.String(f.Key, c.sanitizer.Sanitize(err.Error()))
			}
		}

		out[i] = f
	}

	return out
}

// NewLogger returns a copy of base whose core sanitizes every message and
// string- or error-valued field it writes.
func NewLogger(base *logger.Logger, sanitizer *Sanitizer) *logger.Logger {
	if sanitizer == nil {
		sanitizer = NewSanitizer("")
	}

	wrapped := base.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &sanitizingCore{Core: core, sanitizer: sanitizer}
	}))

	return &logger.Logger{Logger: wrapped}
}
