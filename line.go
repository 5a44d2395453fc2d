// FILE: lixenwraith/printercfg/line.go
package printercfg

import "strings"

// lineKind classifies a raw line of a Klipper style config file.
type lineKind int

const (
	lineBlank lineKind = iota
	lineComment
	lineSection
	lineContinuation
	lineOption
)

func (k lineKind) String() string {
	switch k {
	case lineBlank:
		return "blank"
	case lineComment:
		return "comment"
	case lineSection:
		return "section"
	case lineContinuation:
		return "continuation"
	case lineOption:
		return "option"
	default:
		return "unknown"
	}
}

// classifyLine decides how a line is handled before any option parsing.
// Comment detection wins over indentation so that indented comments inside
// gcode blocks never become part of a value.
func classifyLine(line string) lineKind {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return lineBlank
	case trimmed[0] == '#' || trimmed[0] == ';':
		return lineComment
	case isIndented(line):
		return lineContinuation
	case trimmed[0] == '[':
		return lineSection
	default:
		return lineOption
	}
}

func isIndented(line string) bool {
	return len(line) > 0 && (line[0] == ' ' || line[0] == '\t')
}

// parseSectionHeader extracts the name from "[name]", allowing a trailing comment.
func parseSectionHeader(line string) (string, error) {
	content := strings.TrimSpace(stripInlineComment(line))
	if !strings.HasPrefix(content, "[") || !strings.HasSuffix(content, "]") {
		return "", &MalformedLineError{Raw: line, Reason: "unterminated section header"}
	}

	name := strings.TrimSpace(content[1 : len(content)-1])
	if name == "" {
		return "", &MalformedLineError{Raw: line, Reason: "empty section name"}
	}
	if strings.ContainsAny(name, "[]") {
		return "", &MalformedLineError{Raw: line, Reason: "brackets inside section name"}
	}

	return name, nil
}

// parseContinuation returns the value part of an indented continuation line.
func parseContinuation(line string) string {
	return strings.TrimSpace(stripInlineComment(line))
}

// includePattern reports the file pattern of an "[include <pattern>]" section.
func includePattern(sectionName string) (string, bool) {
	fields := strings.Fields(sectionName)
	if len(fields) < 2 || fields[0] != "include" {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(sectionName, fields[0])), true
}
