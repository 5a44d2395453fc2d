// FILE: lixenwraith/printercfg/loader.go
package printercfg

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Source represents a configuration source, used to define load precedence
type Source string

const (
	// SourceDefault represents use of registered default values
	SourceDefault Source = "default"
	// SourceFile represents values loaded from a configuration file
	SourceFile Source = "file"
	// SourceEnv represents values loaded from environment variables
	SourceEnv Source = "env"
	// SourceCLI represents values loaded from command-line arguments
	SourceCLI Source = "cli"
	// SourceRuntime holds values set through Config.Set; it always wins
	SourceRuntime Source = "runtime"
)

// Supported file formats
const (
	FormatCfg  = "cfg"
	FormatTOML = "toml"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// EnvTransformFunc converts a configuration path to an environment variable name
type EnvTransformFunc func(path string) string

// LoadOptions configures how configuration is loaded from multiple sources
type LoadOptions struct {
	// Sources defines the precedence order (first = highest priority)
	// Default: [SourceCLI, SourceEnv, SourceFile, SourceDefault]
	Sources []Source

	// EnvPrefix is prepended to environment variable names
	// Example: "PRINTER_" transforms "printer.max_velocity" to "PRINTER_PRINTER_MAX_VELOCITY"
	EnvPrefix string

	// EnvTransform customizes how paths map to environment variables
	// If nil, dots and spaces become underscores and the name is uppercased
	EnvTransform EnvTransformFunc

	// EnvWhitelist limits which paths are checked for env vars (nil = all)
	EnvWhitelist map[string]bool

	// SkipIncludes disables [include ...] resolution for cfg files
	SkipIncludes bool
}

// DefaultLoadOptions returns the standard load options
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		Sources: []Source{SourceCLI, SourceEnv, SourceFile, SourceDefault},
	}
}

// Load reads the configuration file and merges overrides from command-line arguments
// using the current load options.
func (c *Config) Load(filePath string, args []string) error {
	c.mutex.RLock()
	opts := c.options
	c.mutex.RUnlock()
	return c.LoadWithOptions(filePath, args, opts)
}

// LoadWithOptions loads configuration from multiple sources with custom options.
// A missing file is reported as ErrConfigNotFound joined with any other
// non-fatal errors; parse failures of an existing file are returned immediately.
func (c *Config) LoadWithOptions(filePath string, args []string, opts LoadOptions) error {
	c.SetLoadOptions(opts)

	var loadErrors []error

	// Lowest precedence first so each layer sees the previous ones
	for i := len(opts.Sources) - 1; i >= 0; i-- {
		switch opts.Sources[i] {
		case SourceDefault:
			continue

		case SourceFile:
			if filePath == "" {
				continue
			}
			if err := c.loadFile(filePath); err != nil {
				if !errors.Is(err, ErrConfigNotFound) {
					return err
				}
				loadErrors = append(loadErrors, err)
			}

		case SourceEnv:
			if err := c.loadEnv(opts); err != nil {
				loadErrors = append(loadErrors, err)
			}

		case SourceCLI:
			if len(args) > 0 {
				if err := c.loadCLI(args); err != nil {
					loadErrors = append(loadErrors, err)
				}
			}
		}
	}

	return errors.Join(loadErrors...)
}

// LoadEnv loads configuration values from environment variables
func (c *Config) LoadEnv(prefix string) error {
	c.mutex.RLock()
	opts := c.options
	c.mutex.RUnlock()

	opts.EnvPrefix = prefix
	return c.loadEnv(opts)
}

// LoadCLI loads configuration values from command-line arguments
func (c *Config) LoadCLI(args []string) error {
	return c.loadCLI(args)
}

// LoadFile loads configuration values from a cfg, TOML, JSON or YAML file
func (c *Config) LoadFile(filePath string) error {
	return c.loadFile(filePath)
}

// loadFile reads a file, detects its format and replaces the file source layer
func (c *Config) loadFile(path string) error {
	fileData, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrConfigNotFound
		}
		return fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	c.mutex.RLock()
	format := c.fileFormat
	skipIncludes := c.options.SkipIncludes
	logger := c.logger
	c.mutex.RUnlock()

	if format == "" || format == "auto" {
		format = detectFileFormat(path)
		if format == "" {
			format = detectFormatFromContent(fileData)
		}
	}

	var doc *Document
	fileConfig := make(map[string]any)
	switch format {
	case FormatCfg:
		doc, err = Parse(bytes.NewReader(fileData))
		if err != nil {
			return fmt.Errorf("failed to parse cfg config file '%s': %w", path, err)
		}
		view := doc
		if !skipIncludes && len(doc.Includes()) > 0 {
			if view, err = ReadFileWithIncludes(path); err != nil {
				return fmt.Errorf("failed to resolve includes of '%s': %w", path, err)
			}
		}
		fileConfig = view.nestedMap()
	case FormatTOML:
		if err := toml.Unmarshal(fileData, &fileConfig); err != nil {
			return fmt.Errorf("failed to parse TOML config file '%s': %w", path, err)
		}
	case FormatJSON:
		decoder := json.NewDecoder(bytes.NewReader(fileData))
		decoder.UseNumber()
		if err := decoder.Decode(&fileConfig); err != nil {
			return fmt.Errorf("failed to parse JSON config file '%s': %w", path, err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(fileData, &fileConfig); err != nil {
			return fmt.Errorf("failed to parse YAML config file '%s': %w", path, err)
		}
	default:
		return fmt.Errorf("unable to determine config format for file '%s'", path)
	}

	flat := flattenMap(fileConfig, "")

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.configFilePath = path
	c.fileData = flat
	c.document = doc

	for p, item := range c.items {
		if value, exists := flat[p]; exists {
			if item.values == nil {
				item.values = make(map[Source]any)
			}
			item.values[SourceFile] = value
		} else {
			delete(item.values, SourceFile)
		}
		item.currentValue = c.computeValue(item)
		c.items[p] = item
	}

	logger.Debug("loaded config file",
		zap.String("path", path),
		zap.String("format", format),
		zap.Int("values", len(flat)))
	return nil
}

// loadEnv loads configuration from environment variables
func (c *Config) loadEnv(opts LoadOptions) error {
	transform := opts.EnvTransform
	if transform == nil {
		transform = defaultEnvTransform(opts.EnvPrefix)
	}

	c.mutex.RLock()
	paths := make([]string, 0, len(c.items))
	for p := range c.items {
		paths = append(paths, p)
	}
	c.mutex.RUnlock()

	found := make(map[string]string)
	for _, path := range paths {
		if opts.EnvWhitelist != nil && !opts.EnvWhitelist[path] {
			continue
		}

		if value, exists := os.LookupEnv(transform(path)); exists {
			if len(value) > MaxValueSize {
				return fmt.Errorf("%w: env for %s", ErrValueSize, path)
			}
			found[path] = value
		}
	}

	if len(found) == 0 {
		return nil
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	for path, value := range found {
		// Raw strings, conversion happens in Scan and the typed accessors
		if item, exists := c.items[path]; exists {
			item.values[SourceEnv] = value
			item.currentValue = c.computeValue(item)
			c.items[path] = item
		}
	}

	c.logger.Debug("loaded environment overrides", zap.Int("values", len(found)))
	return nil
}

// loadCLI loads configuration from command-line arguments
func (c *Config) loadCLI(args []string) error {
	parsedCLI, err := parseArgs(args)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCLIParse, err)
	}

	flattenedCLI := flattenMap(parsedCLI, "")
	if len(flattenedCLI) == 0 {
		return nil
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	for path, value := range flattenedCLI {
		if item, exists := c.items[path]; exists {
			item.values[SourceCLI] = value
			item.currentValue = c.computeValue(item)
			c.items[path] = item
		}
	}

	c.logger.Debug("loaded command-line overrides", zap.Int("values", len(flattenedCLI)))
	return nil
}

// DiscoverEnv finds all environment variables matching registered paths
// and returns a map of path -> env var name for found variables
func (c *Config) DiscoverEnv(prefix string) map[string]string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	transform := c.options.EnvTransform
	if transform == nil {
		transform = defaultEnvTransform(prefix)
	}

	discovered := make(map[string]string)
	for path := range c.items {
		envVar := transform(path)
		if _, exists := os.LookupEnv(envVar); exists {
			discovered[path] = envVar
		}
	}

	return discovered
}

// defaultEnvTransform creates the default environment variable transformer
func defaultEnvTransform(prefix string) EnvTransformFunc {
	replacer := strings.NewReplacer(".", "_", " ", "_", "-", "_")
	return func(path string) string {
		return prefix + strings.ToUpper(replacer.Replace(path))
	}
}

// parseArgs processes command-line arguments into a nested map structure.
// Accepts "--key.path value", "--key.path=value" and bare boolean "--flag".
func parseArgs(args []string) (map[string]any, error) {
	result := make(map[string]any)
	i := 0
	for i < len(args) {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			i++
			continue
		}

		argContent := strings.TrimPrefix(arg, "--")
		if argContent == "" {
			// "--" ends flag parsing
			break
		}

		var keyPath, valueStr string
		if k, v, found := strings.Cut(argContent, "="); found {
			keyPath, valueStr = k, v
			i++
		} else if i+1 >= len(args) || strings.HasPrefix(args[i+1], "--") {
			keyPath, valueStr = argContent, "true"
			i++
		} else {
			keyPath, valueStr = argContent, args[i+1]
			i += 2
		}

		if len(valueStr) > MaxValueSize {
			return nil, fmt.Errorf("%w: argument %s", ErrValueSize, keyPath)
		}

		for _, segment := range strings.Split(keyPath, ".") {
			if !isValidKeySegment(segment) {
				return nil, fmt.Errorf("invalid command-line key segment %q in path %q", segment, keyPath)
			}
		}

		setNestedValue(result, keyPath, valueStr)
	}

	return result, nil
}

// detectFileFormat determines format from file extension
func detectFileFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cfg", ".conf":
		return FormatCfg
	case ".toml", ".tml":
		return FormatTOML
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return ""
	}
}

// hasTOMLLiterals reports whether any value starts like a quoted TOML
// string, an array or an inline table.
func hasTOMLLiterals(doc *Document) bool {
	for _, opts := range doc.Map() {
		for _, v := range opts {
			if v != "" && strings.ContainsRune(`"'[{`, rune(v[0])) {
				return true
			}
		}
	}
	return false
}

// detectFormatFromContent attempts to detect format by parsing.
// Stricter formats are tried first; YAML accepts almost anything. Content
// that is both valid cfg and valid TOML is cfg unless a value is written as
// a TOML string, array or inline table.
func detectFormatFromContent(data []byte) string {
	var jsonTest any
	if err := json.Unmarshal(data, &jsonTest); err == nil {
		return FormatJSON
	}

	doc, err := Parse(bytes.NewReader(data))
	isCfg := err == nil && len(doc.blocks) > 0
	if isCfg && !hasTOMLLiterals(doc) {
		return FormatCfg
	}

	var tomlTest map[string]any
	if err := toml.Unmarshal(data, &tomlTest); err == nil {
		return FormatTOML
	}

	if isCfg {
		return FormatCfg
	}

	var yamlTest map[string]any
	if err := yaml.Unmarshal(data, &yamlTest); err == nil {
		return FormatYAML
	}

	return ""
}
