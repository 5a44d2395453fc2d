// FILE: lixenwraith/printercfg/errors.go
package printercfg

import "errors"

// MaxValueSize caps values accepted from environment variables and arguments.
const MaxValueSize = 1 << 20

var (
	// ErrConfigNotFound is returned when the configuration file does not exist.
	// Builders treat it as non-fatal: defaults and other sources still apply.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrMalformedLine matches every *MalformedLineError.
	ErrMalformedLine = errors.New("malformed config line")

	// ErrCLIParse wraps command-line argument parsing failures.
	ErrCLIParse = errors.New("failed to parse command-line arguments")

	// ErrValueSize is returned for an env or CLI value larger than MaxValueSize.
	ErrValueSize = errors.New("value exceeds maximum size")

	// ErrSectionNotFound is returned for a lookup or edit of a missing section.
	ErrSectionNotFound = errors.New("section not found")

	// ErrOptionNotFound is returned when the section exists but the option does not.
	ErrOptionNotFound = errors.New("option not found")

	// ErrSectionExists is returned by AddSection for a name already in the document.
	ErrSectionExists = errors.New("section already exists")

	// ErrInvalidValue is returned for a section name, option name or value that
	// cannot be written to a config file and read back unchanged.
	ErrInvalidValue = errors.New("value cannot be stored in a config file")

	// ErrIncludeCycle is returned when [include] sections reference each other.
	ErrIncludeCycle = errors.New("include cycle detected")
)
