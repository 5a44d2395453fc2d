// File: lixenwraith/printercfg/convenience.go
package printercfg

import (
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"
)

// Quick creates a fully configured Config instance with a single call,
// using the standard precedence CLI > Env > File > Default.
func Quick(structDefaults any, envPrefix, configFile string) (*Config, error) {
	cfg := New()

	if structDefaults != nil {
		if err := cfg.RegisterStruct("", structDefaults); err != nil {
			return nil, fmt.Errorf("failed to register defaults: %w", err)
		}
	}

	opts := DefaultLoadOptions()
	opts.EnvPrefix = envPrefix

	err := cfg.LoadWithOptions(configFile, os.Args[1:], opts)
	return cfg, err
}

// MustQuick is like Quick but panics on error
func MustQuick(structDefaults any, envPrefix, configFile string) *Config {
	cfg, err := Quick(structDefaults, envPrefix, configFile)
	if err != nil {
		panic(fmt.Sprintf("config initialization failed: %v", err))
	}
	return cfg
}

// Validate checks that all required configuration values are set.
// A value is set when any source other than the default provided it.
func (c *Config) Validate(required ...string) error {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var missing []string

	for _, path := range required {
		item, exists := c.items[path]
		if !exists {
			missing = append(missing, path+" (not registered)")
			continue
		}

		if reflect.DeepEqual(item.currentValue, item.defaultValue) && len(item.values) == 0 {
			missing = append(missing, path)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	return nil
}

// Debug returns a formatted string showing all configuration values and their sources
func (c *Config) Debug() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var b strings.Builder
	b.WriteString("Configuration Debug Info:\n")
	fmt.Fprintf(&b, "Precedence: %v\n", c.options.Sources)
	if c.configFilePath != "" {
		fmt.Fprintf(&b, "File: %s\n", c.configFilePath)
	}
	b.WriteString("Current values:\n")

	paths := make([]string, 0, len(c.items))
	for path := range c.items {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		item := c.items[path]
		fmt.Fprintf(&b, "  %s:\n", path)
		fmt.Fprintf(&b, "    Current: %v\n", item.currentValue)
		fmt.Fprintf(&b, "    Default: %v\n", item.defaultValue)

		for _, source := range []Source{SourceRuntime, SourceCLI, SourceEnv, SourceFile} {
			if value, ok := item.values[source]; ok {
				fmt.Fprintf(&b, "    %s: %v\n", source, value)
			}
		}
	}

	return b.String()
}

// Clone creates a deep copy of the configuration without its watcher
func (c *Config) Clone() *Config {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	clone := &Config{
		items:          make(map[string]configItem, len(c.items)),
		options:        c.options,
		tagName:        c.tagName,
		fileFormat:     c.fileFormat,
		configFilePath: c.configFilePath,
		fileData:       make(map[string]any, len(c.fileData)),
		logger:         c.logger,
	}
	if c.document != nil {
		clone.document = c.document.Clone()
	}

	for path, item := range c.items {
		newItem := configItem{
			defaultValue: item.defaultValue,
			currentValue: item.currentValue,
			values:       make(map[Source]any, len(item.values)),
		}
		for source, value := range item.values {
			newItem.values[source] = value
		}
		clone.items[path] = newItem
	}

	for k, v := range c.fileData {
		clone.fileData[k] = v
	}

	return clone
}
