// FILE: lixenwraith/printercfg/config.go
package printercfg

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// DefaultTagName is the struct tag used by RegisterStruct and Scan.
const DefaultTagName = "cfg"

// configItem holds the default, per-source and effective value of a path
type configItem struct {
	defaultValue any
	currentValue any
	values       map[Source]any
}

// Config manages configuration loaded from files, environment, CLI arguments and defaults.
type Config struct {
	items          map[string]configItem
	mutex          sync.RWMutex
	options        LoadOptions
	tagName        string
	fileFormat     string
	configFilePath string
	fileData       map[string]any // flattened values of the last loaded file
	document       *Document      // last loaded cfg document, reused by Save
	watcher        *watcher
	logger         *zap.Logger
}

// New creates a Config with default load options.
func New() *Config {
	return NewWithOptions(DefaultLoadOptions())
}

// NewWithOptions creates a Config with the given load options.
func NewWithOptions(opts LoadOptions) *Config {
	return &Config{
		items:    make(map[string]configItem),
		options:  opts,
		tagName:  DefaultTagName,
		fileData: make(map[string]any),
		logger:   zap.NewNop(),
	}
}

// SetLogger replaces the logger. A nil logger disables logging.
func (c *Config) SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c.mutex.Lock()
	c.logger = logger
	c.mutex.Unlock()
}

// SetTagName sets the struct tag used by RegisterStruct and Scan.
func (c *Config) SetTagName(tag string) error {
	if tag == "" {
		return fmt.Errorf("tag name cannot be empty")
	}
	c.mutex.Lock()
	c.tagName = tag
	c.mutex.Unlock()
	return nil
}

// SetFileFormat forces the file format: "cfg", "toml", "json", "yaml" or "auto".
func (c *Config) SetFileFormat(format string) error {
	switch format {
	case "", "auto", FormatCfg, FormatTOML, FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("unsupported file format %q", format)
	}
	c.mutex.Lock()
	c.fileFormat = format
	c.mutex.Unlock()
	return nil
}

// SetLoadOptions replaces the load options and recomputes every value
// under the new source precedence.
func (c *Config) SetLoadOptions(opts LoadOptions) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.options = opts
	for path, item := range c.items {
		item.currentValue = c.computeValue(item)
		c.items[path] = item
	}
}

// Register makes a configuration path known to the Config instance.
// The path is dot-separated, typically "section.option".
// defaultValue is the value returned by Get if no source provides one.
func (c *Config) Register(path string, defaultValue any) error {
	if path == "" {
		return fmt.Errorf("registration path cannot be empty")
	}

	for _, segment := range strings.Split(path, ".") {
		if !isValidKeySegment(segment) {
			return fmt.Errorf("invalid path segment %q in path %q", segment, path)
		}
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	item := configItem{
		defaultValue: defaultValue,
		currentValue: defaultValue,
		values:       make(map[Source]any),
	}
	// Values loaded before registration apply immediately
	if v, ok := c.fileData[path]; ok {
		item.values[SourceFile] = v
		item.currentValue = c.computeValue(item)
	}
	c.items[path] = item

	return nil
}

// Unregister removes a configuration path and all its children.
func (c *Config) Unregister(path string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	prefix := path + "."
	found := false
	for p := range c.items {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(c.items, p)
			found = true
		}
	}

	if !found {
		return fmt.Errorf("path not registered: %s", path)
	}
	return nil
}

// RegisterStruct registers every exported field of a struct as a path,
// named by the configured struct tag. Nested structs become nested paths.
// The prefix is prepended to all paths (e.g., "printer.").
func (c *Config) RegisterStruct(prefix string, structWithDefaults any) error {
	v := reflect.ValueOf(structWithDefaults)

	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return fmt.Errorf("RegisterStruct requires a non-nil struct pointer or value")
		}
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return fmt.Errorf("RegisterStruct requires a struct or struct pointer, got %T", structWithDefaults)
	}

	c.mutex.RLock()
	tagName := c.tagName
	c.mutex.RUnlock()

	var errs []string
	c.registerFields(v, strings.TrimSuffix(prefix, "."), tagName, &errs)

	if len(errs) > 0 {
		return fmt.Errorf("failed to register %d field(s): %s", len(errs), strings.Join(errs, "; "))
	}

	return nil
}

func (c *Config) registerFields(v reflect.Value, pathPrefix, tagName string, errs *[]string) {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		fieldValue := v.Field(i)

		if !field.IsExported() {
			continue
		}

		tag := field.Tag.Get(tagName)
		if tag == "-" {
			continue
		}

		key := field.Name
		if name, _, _ := strings.Cut(tag, ","); name != "" {
			key = name
		}

		currentPath := key
		if pathPrefix != "" {
			currentPath = pathPrefix + "." + key
		}

		switch {
		case fieldValue.Kind() == reflect.Struct && !isLeafStruct(fieldValue.Type()):
			c.registerFields(fieldValue, currentPath, tagName, errs)
			continue
		case fieldValue.Kind() == reflect.Ptr && fieldValue.Type().Elem().Kind() == reflect.Struct && !isLeafStruct(fieldValue.Type().Elem()):
			// Nil struct pointers have no defaults to register
			if !fieldValue.IsNil() {
				c.registerFields(fieldValue.Elem(), currentPath, tagName, errs)
			}
			continue
		}

		if err := c.Register(currentPath, fieldValue.Interface()); err != nil {
			*errs = append(*errs, fmt.Sprintf("field %s (path %s): %v", field.Name, currentPath, err))
		}
	}
}

// GetRegisteredPaths returns all registered configuration paths with the specified prefix.
func (c *Config) GetRegisteredPaths(prefix string) map[string]bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	result := make(map[string]bool)
	for path := range c.items {
		if strings.HasPrefix(path, prefix) {
			result[path] = true
		}
	}

	return result
}

// Get returns the effective value of a path.
// The second return value indicates if the path was registered.
func (c *Config) Get(path string) (any, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, registered := c.items[path]
	if !registered {
		return nil, false
	}

	return item.currentValue, true
}

// Set overrides the value of a registered path at runtime.
// Runtime values take precedence over every configured source.
func (c *Config) Set(path string, value any) error {
	return c.SetSource(path, SourceRuntime, value)
}

// SetSource stores a value for a registered path under a specific source
// and recomputes its effective value.
func (c *Config) SetSource(path string, source Source, value any) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	item, registered := c.items[path]
	if !registered {
		return fmt.Errorf("path %s is not registered", path)
	}

	if source == SourceDefault {
		item.defaultValue = value
	} else {
		if item.values == nil {
			item.values = make(map[Source]any)
		}
		item.values[source] = value
	}
	item.currentValue = c.computeValue(item)
	c.items[path] = item
	return nil
}

// GetSource returns the value a specific source provided for a path.
func (c *Config) GetSource(path string, source Source) (any, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, registered := c.items[path]
	if !registered {
		return nil, false
	}
	if source == SourceDefault {
		return item.defaultValue, true
	}
	v, ok := item.values[source]
	return v, ok
}

// ConfigFilePath returns the path of the last loaded file.
func (c *Config) ConfigFilePath() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.configFilePath
}

// Document returns a copy of the last loaded cfg document, or nil.
func (c *Config) Document() *Document {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	if c.document == nil {
		return nil
	}
	return c.document.Clone()
}

// computeValue resolves the effective value. Caller must hold the lock.
func (c *Config) computeValue(item configItem) any {
	if v, ok := item.values[SourceRuntime]; ok {
		return v
	}
	for _, source := range c.options.Sources {
		if source == SourceDefault {
			return item.defaultValue
		}
		if v, ok := item.values[source]; ok {
			return v
		}
	}
	return item.defaultValue
}

// snapshot returns the effective value of every path
func (c *Config) snapshot() map[string]any {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	snapshot := make(map[string]any, len(c.items))
	for path, item := range c.items {
		snapshot[path] = item.currentValue
	}
	return snapshot
}

// isLeafStruct reports struct types that are stored as single values.
func isLeafStruct(t reflect.Type) bool {
	return t == reflect.TypeOf(urlType) || t == reflect.TypeOf(timeType)
}
