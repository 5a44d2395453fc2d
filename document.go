// FILE: lixenwraith/printercfg/document.go
package printercfg

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// continuationIndent prefixes rendered continuation lines of multi-line values.
const continuationIndent = "    "

// Document is an ordered model of a Klipper/Moonraker style config file.
// Lines that are never modified are written back exactly as read.
// A Document is not safe for concurrent mutation.
type Document struct {
	preamble []string   // comments and blank lines before the first section
	blocks   []*section // section blocks in file order, names may repeat
}

type section struct {
	name    string
	header  string // raw header line, empty when the section was added
	entries []*entry
}

// entry is an option or a verbatim line (comment or blank) inside a section.
type entry struct {
	raw   []string // original lines, nil once the option is modified
	key   string   // empty for verbatim lines
	value []string // first line value followed by continuation values
}

func (e *entry) isOption() bool {
	return e.key != ""
}

func (e *entry) text() string {
	lines := e.value
	if len(lines) > 1 && lines[0] == "" {
		lines = lines[1:]
	}
	return strings.Join(lines, "\n")
}

func (e *entry) lines() []string {
	if e.raw != nil {
		return e.raw
	}

	if len(e.value) <= 1 {
		return []string{FormatOption(e.key, e.text())}
	}

	out := []string{e.key + ":"}
	for _, v := range e.value {
		if v == "" {
			continue
		}
		out = append(out, continuationIndent+v)
	}
	return out
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{}
}

// Parse reads a document. Errors carry the 1-based line number.
func Parse(r io.Reader) (*Document, error) {
	doc := &Document{}
	var current *section
	var option *entry

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxValueSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")

		switch classifyLine(line) {
		case lineBlank:
			option = nil
			doc.appendVerbatim(current, line)

		case lineComment:
			if option != nil && isIndented(line) {
				option.raw = append(option.raw, line)
				continue
			}
			option = nil
			doc.appendVerbatim(current, line)

		case lineSection:
			name, err := parseSectionHeader(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			current = &section{name: name, header: line}
			doc.blocks = append(doc.blocks, current)
			option = nil

		case lineContinuation:
			if option == nil {
				return nil, fmt.Errorf("line %d: %w", lineNo,
					&MalformedLineError{Raw: line, Reason: "continuation line without an option"})
			}
			option.raw = append(option.raw, line)
			option.value = append(option.value, parseContinuation(line))

		case lineOption:
			if current == nil {
				return nil, fmt.Errorf("line %d: %w", lineNo,
					&MalformedLineError{Raw: line, Reason: "option outside of a section"})
			}
			key, value, err := ParseOption(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			option = &entry{raw: []string{line}, key: key, value: []string{value}}
			current.entries = append(current.entries, option)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return doc, nil
}

// ParseString is Parse for in-memory content.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// ReadFile parses the file at path, returning ErrConfigNotFound if it is missing.
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to open config file '%s': %w", path, err)
	}
	defer f.Close()

	doc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", path, err)
	}
	return doc, nil
}

// ReadFileWithIncludes parses path and splices in the sections of every file
// matched by its [include <glob>] sections, relative to the including file.
// The result is a read view; the include sections themselves are dropped.
func ReadFileWithIncludes(path string) (*Document, error) {
	return readWithIncludes(path, make(map[string]bool))
}

func readWithIncludes(path string, visiting map[string]bool) (*Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path '%s': %w", path, err)
	}
	if visiting[abs] {
		return nil, fmt.Errorf("%w: %s", ErrIncludeCycle, abs)
	}
	visiting[abs] = true
	defer delete(visiting, abs)

	doc, err := ReadFile(abs)
	if err != nil {
		return nil, err
	}

	merged := &Document{preamble: doc.preamble}
	for _, b := range doc.blocks {
		pattern, ok := includePattern(b.name)
		if !ok {
			merged.blocks = append(merged.blocks, b)
			continue
		}

		matches, err := filepath.Glob(filepath.Join(filepath.Dir(abs), pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid include pattern %q in '%s': %w", pattern, abs, err)
		}
		if len(matches) == 0 && !strings.ContainsAny(pattern, "*?[") {
			return nil, fmt.Errorf("include file '%s' referenced from '%s': %w", pattern, abs, ErrConfigNotFound)
		}
		sort.Strings(matches)

		for _, m := range matches {
			sub, err := readWithIncludes(m, visiting)
			if err != nil {
				return nil, err
			}
			merged.blocks = append(merged.blocks, sub.blocks...)
		}
	}

	return merged, nil
}

func (d *Document) appendVerbatim(s *section, line string) {
	if s == nil {
		d.preamble = append(d.preamble, line)
		return
	}
	s.entries = append(s.entries, &entry{raw: []string{line}})
}

// Sections returns section names in order of first appearance.
func (d *Document) Sections() []string {
	seen := make(map[string]bool)
	var names []string
	for _, b := range d.blocks {
		if !seen[b.name] {
			seen[b.name] = true
			names = append(names, b.name)
		}
	}
	return names
}

// HasSection reports whether at least one block has the given name.
func (d *Document) HasSection(name string) bool {
	return len(d.sectionBlocks(name)) > 0
}

// Includes returns the patterns of all [include ...] sections.
func (d *Document) Includes() []string {
	var patterns []string
	for _, b := range d.blocks {
		if p, ok := includePattern(b.name); ok {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

// AddSection appends an empty section, separated from the previous one by a blank line.
func (d *Document) AddSection(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, "[]#\r\n") {
		return fmt.Errorf("%w: section name %q", ErrInvalidValue, name)
	}
	if d.HasSection(name) {
		return fmt.Errorf("%w: %s", ErrSectionExists, name)
	}

	if n := len(d.blocks); n > 0 {
		last := d.blocks[n-1]
		if k := len(last.entries); k == 0 || last.entries[k-1].isOption() || strings.TrimSpace(last.entries[k-1].raw[0]) != "" {
			last.entries = append(last.entries, &entry{raw: []string{""}})
		}
	}

	d.blocks = append(d.blocks, &section{name: name})
	return nil
}

// RemoveSection removes every block with the given name.
func (d *Document) RemoveSection(name string) error {
	kept := d.blocks[:0]
	removed := false
	for _, b := range d.blocks {
		if b.name == name {
			removed = true
			continue
		}
		kept = append(kept, b)
	}
	d.blocks = kept
	if !removed {
		return fmt.Errorf("%w: %s", ErrSectionNotFound, name)
	}
	return nil
}

// Options returns the lowercased option names of a section in order of first appearance.
func (d *Document) Options(sectionName string) ([]string, error) {
	blocks := d.sectionBlocks(sectionName)
	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSectionNotFound, sectionName)
	}

	seen := make(map[string]bool)
	var keys []string
	for _, b := range blocks {
		for _, e := range b.entries {
			if !e.isOption() {
				continue
			}
			k := strings.ToLower(e.key)
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys, nil
}

// HasOption reports whether the option is set in the section.
func (d *Document) HasOption(sectionName, key string) bool {
	_, err := d.Get(sectionName, key)
	return err == nil
}

// Get returns the effective value of an option: the last one wins when a
// section or option is repeated. Multi-line values are joined with '\n'.
func (d *Document) Get(sectionName, key string) (string, error) {
	blocks := d.sectionBlocks(sectionName)
	if len(blocks) == 0 {
		return "", fmt.Errorf("%w: %s", ErrSectionNotFound, sectionName)
	}
	if e := findOption(blocks, key); e != nil {
		return e.text(), nil
	}
	return "", fmt.Errorf("%w: %s.%s", ErrOptionNotFound, sectionName, key)
}

// GetInt returns an option parsed as a base-10 integer.
func (d *Document) GetInt(sectionName, key string) (int, error) {
	v, err := d.Get(sectionName, key)
	if err != nil {
		return 0, err
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("option %s.%s: cannot convert %q to int: %w", sectionName, key, v, err)
	}
	return i, nil
}

// GetFloat returns an option parsed as a float.
func (d *Document) GetFloat(sectionName, key string) (float64, error) {
	v, err := d.Get(sectionName, key)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("option %s.%s: cannot convert %q to float: %w", sectionName, key, v, err)
	}
	return f, nil
}

// GetBool returns an option parsed as a boolean (true/false, yes/no, on/off, 1/0).
func (d *Document) GetBool(sectionName, key string) (bool, error) {
	v, err := d.Get(sectionName, key)
	if err != nil {
		return false, err
	}
	b, err := parseBoolWord(v)
	if err != nil {
		return false, fmt.Errorf("option %s.%s: %w", sectionName, key, err)
	}
	return b, nil
}

// Set updates an existing option in place or appends it to the last block of
// the section. Setting an option to its current value keeps the original line.
func (d *Document) Set(sectionName, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" || strings.ContainsAny(key, ":=#\r\n") || key[0] == '[' || key[0] == ';' {
		return fmt.Errorf("%w: option name %q", ErrInvalidValue, key)
	}

	blocks := d.sectionBlocks(sectionName)
	if len(blocks) == 0 {
		return fmt.Errorf("%w: %s", ErrSectionNotFound, sectionName)
	}

	values, err := splitValue(value)
	if err != nil {
		return fmt.Errorf("option %s.%s: %w", sectionName, key, err)
	}

	if e := findOption(blocks, key); e != nil {
		if e.text() == strings.Join(trimLeadingEmpty(values), "\n") {
			return nil
		}
		e.value = values
		e.raw = nil
		return nil
	}

	last := blocks[len(blocks)-1]
	insertAt := len(last.entries)
	for insertAt > 0 && !last.entries[insertAt-1].isOption() && strings.TrimSpace(last.entries[insertAt-1].raw[0]) == "" {
		insertAt--
	}
	e := &entry{key: key, value: values}
	last.entries = append(last.entries, nil)
	copy(last.entries[insertAt+1:], last.entries[insertAt:])
	last.entries[insertAt] = e
	return nil
}

// RemoveOption removes every occurrence of an option from the section.
func (d *Document) RemoveOption(sectionName, key string) error {
	blocks := d.sectionBlocks(sectionName)
	if len(blocks) == 0 {
		return fmt.Errorf("%w: %s", ErrSectionNotFound, sectionName)
	}

	removed := false
	for _, b := range blocks {
		kept := b.entries[:0]
		for _, e := range b.entries {
			if e.isOption() && strings.EqualFold(e.key, key) {
				removed = true
				continue
			}
			kept = append(kept, e)
		}
		b.entries = kept
	}
	if !removed {
		return fmt.Errorf("%w: %s.%s", ErrOptionNotFound, sectionName, key)
	}
	return nil
}

// Map returns the effective values as section -> lowercased option -> value.
func (d *Document) Map() map[string]map[string]string {
	result := make(map[string]map[string]string)
	for _, b := range d.blocks {
		opts, ok := result[b.name]
		if !ok {
			opts = make(map[string]string)
			result[b.name] = opts
		}
		for _, e := range b.entries {
			if e.isOption() {
				opts[strings.ToLower(e.key)] = e.text()
			}
		}
	}
	return result
}

// WriteTo renders the document, implementing io.WriterTo.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64

	write := func(line string) error {
		m, err := bw.WriteString(line + "\n")
		n += int64(m)
		return err
	}

	for _, line := range d.preamble {
		if err := write(line); err != nil {
			return n, err
		}
	}
	for _, b := range d.blocks {
		header := b.header
		if header == "" {
			header = "[" + b.name + "]"
		}
		if err := write(header); err != nil {
			return n, err
		}
		for _, e := range b.entries {
			for _, line := range e.lines() {
				if err := write(line); err != nil {
					return n, err
				}
			}
		}
	}

	return n, bw.Flush()
}

// String renders the document.
func (d *Document) String() string {
	var buf bytes.Buffer
	_, _ = d.WriteTo(&buf)
	return buf.String()
}

// Save writes the document to path atomically.
func (d *Document) Save(path string) error {
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	return atomicWriteFile(path, buf.Bytes())
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	clone := &Document{preamble: append([]string(nil), d.preamble...)}
	for _, b := range d.blocks {
		nb := &section{name: b.name, header: b.header}
		for _, e := range b.entries {
			ne := &entry{key: e.key, value: append([]string(nil), e.value...)}
			if e.raw != nil {
				ne.raw = append([]string(nil), e.raw...)
			}
			nb.entries = append(nb.entries, ne)
		}
		clone.blocks = append(clone.blocks, nb)
	}
	return clone
}

// nestedMap converts the effective values into the nested form used by the loader.
func (d *Document) nestedMap() map[string]any {
	nested := make(map[string]any)
	for name, opts := range d.Map() {
		if _, ok := includePattern(name); ok {
			continue
		}
		for k, v := range opts {
			setNestedValue(nested, name+"."+k, v)
		}
	}
	return nested
}

func (d *Document) sectionBlocks(name string) []*section {
	var blocks []*section
	for _, b := range d.blocks {
		if b.name == name {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

// findOption returns the last occurrence of key across blocks.
func findOption(blocks []*section, key string) *entry {
	for i := len(blocks) - 1; i >= 0; i-- {
		entries := blocks[i].entries
		for j := len(entries) - 1; j >= 0; j-- {
			if entries[j].isOption() && strings.EqualFold(entries[j].key, key) {
				return entries[j]
			}
		}
	}
	return nil
}

func trimLeadingEmpty(values []string) []string {
	if len(values) > 1 && values[0] == "" {
		return values[1:]
	}
	return values
}

// splitValue breaks a value into the lines written after "key:". A value that
// would read back differently once written is rejected.
func splitValue(value string) ([]string, error) {
	value = strings.TrimSpace(strings.ReplaceAll(value, "\r\n", "\n"))
	if strings.ContainsAny(value, "#\r") {
		return nil, fmt.Errorf("%w: %q contains '#' or a carriage return", ErrInvalidValue, value)
	}

	values := strings.Split(value, "\n")
	for i := range values {
		values[i] = strings.TrimSpace(values[i])
	}
	if len(values) == 1 {
		return values, nil
	}

	for _, v := range values {
		switch {
		case v == "":
			return nil, fmt.Errorf("%w: blank line inside multi-line value %q", ErrInvalidValue, value)
		case v[0] == ';':
			return nil, fmt.Errorf("%w: continuation line %q would be read as a comment", ErrInvalidValue, v)
		}
	}
	return append([]string{""}, values...), nil
}
