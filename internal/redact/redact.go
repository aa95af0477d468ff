// Package redact keeps personally identifiable information out of logs.
package redact

import (
	"regexp"
	"strings"
)

const (
	DefaultRedaction = "***"
	DefaultSeparator = ";"
)

// PIIFields are the fields that are redacted by default.
var PIIFields = []string{"name", "email", "phone", "ssn", "password"}

// Redactor replaces the values of sensitive fields in key=value log lines.
// A Redactor is safe for concurrent use.
type Redactor struct {
	fields    map[string]struct{}
	redaction string
	patterns  []fieldPattern
}

type fieldPattern struct {
	re   *regexp.Regexp
	repl string
}

// New creates a Redactor for the given fields. Values of a field are
// matched non-greedily up to the next separator. An empty redaction or
// separator falls back to the defaults.
func New(fields []string, redaction, separator string) *Redactor {
	if redaction == "" {
		redaction = DefaultRedaction
	}

	if separator == "" {
		separator = DefaultSeparator
	}

	r := &Redactor{
		fields:    make(map[string]struct{}, len(fields)),
		redaction: redaction,
		patterns:  make([]fieldPattern, 0, len(fields)),
	}

	for _, f := range fields {
		if f == "" {
			continue
		}

		r.fields[strings.ToLower(f)] = struct{}{}
		r.patterns = append(r.patterns, fieldPattern{
			re:   regexp.MustCompile(regexp.QuoteMeta(f) + "=.*?" + regexp.QuoteMeta(separator)),
			repl: f + "=" + redaction + separator,
		})
	}

	return r
}

// Filter returns message with the value of every sensitive field replaced.
// Fields are handled in order and everything else is left verbatim.
// A value that is not followed by the separator is left as is.
func (r *Redactor) Filter(message string) string {
	for _, p := range r.patterns {
		message = p.re.ReplaceAllLiteralString(message, p.repl)
	}
	return message
}

// IsSensitive reports whether key names a sensitive field.
// The comparison ignores case.
func (r *Redactor) IsSensitive(key string) bool {
	_, ok := r.fields[strings.ToLower(key)]
	return ok
}

// Redaction returns the replacement for sensitive values.
func (r *Redactor) Redaction() string {
	return r.redaction
}

// FilterDatum redacts the given fields in a single log line.
// Prefer New for repeated use, FilterDatum compiles its patterns on every call.
func FilterDatum(fields []string, redaction, message, separator string) string {
	return New(fields, redaction, separator).Filter(message)
}
