// FILE: lixenwraith/printercfg/option.go
package printercfg

import (
	"fmt"
	"strings"
)

// commentPrefix starts an inline comment on an option line. There is no
// escaping: a literal '#' cannot appear inside a value.
const commentPrefix = "#"

// MalformedLineError reports a line that cannot be split into a key and a value.
// Line numbers are added by the caller, the parser only sees the raw text.
type MalformedLineError struct {
	Raw    string
	Reason string
}

func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("malformed config line %q: %s", strings.TrimRight(e.Raw, "\r\n"), e.Reason)
}

// Is makes every MalformedLineError match ErrMalformedLine.
func (e *MalformedLineError) Is(target error) bool {
	return target == ErrMalformedLine
}

// ParseOption splits a single "key: value" or "key = value" line.
// The first ':' or '=' is the separator; whitespace around it is optional.
// Anything from the first '#' on is an inline comment and is dropped.
// Key and value are returned without surrounding whitespace or newlines.
// The value may be empty, the key may not.
func ParseOption(line string) (key, value string, err error) {
	content := stripInlineComment(line)
	if strings.TrimSpace(content) == "" {
		return "", "", &MalformedLineError{Raw: line, Reason: "no option on line"}
	}

	sep := strings.IndexAny(content, ":=")
	if sep < 0 {
		return "", "", &MalformedLineError{Raw: line, Reason: "missing ':' or '=' separator"}
	}

	key = strings.TrimSpace(content[:sep])
	if key == "" {
		return "", "", &MalformedLineError{Raw: line, Reason: "empty option name"}
	}
	value = strings.TrimSpace(content[sep+1:])

	return key, value, nil
}

// FormatOption renders a key/value pair the way ParseOption reads it back.
func FormatOption(key, value string) string {
	if value == "" {
		return key + ":"
	}
	return key + ": " + value
}

// stripInlineComment drops everything from the first comment marker on.
func stripInlineComment(line string) string {
	if idx := strings.Index(line, commentPrefix); idx >= 0 {
		return line[:idx]
	}
	return line
}
