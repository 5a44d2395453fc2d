// File: lixenwraith/printercfg/io.go
package printercfg

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Save writes the effective configuration to path atomically, in the format
// implied by the extension (cfg when unknown). For cfg output the last loaded
// document is reused so comments and untouched lines survive; only values
// that differ from the file are rewritten.
func (c *Config) Save(path string) error {
	format := detectFileFormat(path)
	if format == "" {
		format = FormatCfg
	}

	if format != FormatCfg {
		var buf bytes.Buffer
		if err := c.Export(&buf, format); err != nil {
			return err
		}
		return atomicWriteFile(path, buf.Bytes())
	}

	doc, err := c.patchedDocument()
	if err != nil {
		return err
	}
	if err := doc.Save(path); err != nil {
		return err
	}

	c.mutex.RLock()
	c.logger.Debug("saved config file", zap.String("path", path))
	c.mutex.RUnlock()
	return nil
}

// SaveSource writes values from a specific source to a file atomically
func (c *Config) SaveSource(path string, source Source) error {
	c.mutex.RLock()
	nestedData := make(map[string]any)
	for itemPath, item := range c.items {
		if val, exists := item.values[source]; exists {
			setNestedValue(nestedData, itemPath, val)
		}
	}
	c.mutex.RUnlock()

	format := detectFileFormat(path)
	if format == "" {
		format = FormatCfg
	}

	var buf bytes.Buffer
	if err := encodeNested(&buf, nestedData, format); err != nil {
		return fmt.Errorf("failed to marshal %s source data: %w", source, err)
	}
	return atomicWriteFile(path, buf.Bytes())
}

// Export writes the effective configuration to w in the given format.
func (c *Config) Export(w io.Writer, format string) error {
	if format == FormatCfg {
		doc, err := c.patchedDocument()
		if err != nil {
			return err
		}
		_, err = doc.WriteTo(w)
		return err
	}

	return encodeNested(w, c.nestedValues(), format)
}

func (c *Config) nestedValues() map[string]any {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	nestedData := make(map[string]any)
	for itemPath, item := range c.items {
		setNestedValue(nestedData, itemPath, item.currentValue)
	}
	return nestedData
}

// patchedDocument applies changed values onto a copy of the loaded document.
// Without a loaded document every renderable value is written.
func (c *Config) patchedDocument() (*Document, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	doc := NewDocument()
	if c.document != nil {
		doc = c.document.Clone()
	}

	paths := make([]string, 0, len(c.items))
	for p := range c.items {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		item := c.items[p]
		rendered, ok := formatScalar(item.currentValue)
		if !ok {
			c.logger.Debug("skipping value without cfg representation",
				zap.String("path", p), zap.String("type", fmt.Sprintf("%T", item.currentValue)))
			continue
		}

		if fileVal, inFile := c.fileData[p]; inFile {
			if s, _ := formatScalar(fileVal); s == rendered {
				continue
			}
		} else if c.document != nil && reflect.DeepEqual(item.currentValue, item.defaultValue) {
			// Defaults stay out of a loaded file
			continue
		}

		sectionName, option, ok := splitSectionPath(p)
		if !ok {
			c.logger.Debug("skipping path without section", zap.String("path", p))
			continue
		}
		if !doc.HasSection(sectionName) {
			if err := doc.AddSection(sectionName); err != nil {
				return nil, fmt.Errorf("cannot save %s: %w", p, err)
			}
		}
		if err := doc.Set(sectionName, option, rendered); err != nil {
			return nil, fmt.Errorf("cannot save %s: %w", p, err)
		}
	}

	return doc, nil
}

// Export writes the document's effective values in the given format.
// Include sections are left out; cfg output is normalized and drops comments.
func (d *Document) Export(w io.Writer, format string) error {
	nested := make(map[string]any)
	for name, opts := range d.Map() {
		if _, ok := includePattern(name); ok {
			continue
		}
		section := make(map[string]any, len(opts))
		for k, v := range opts {
			section[k] = v
		}
		nested[name] = section
	}
	return encodeNested(w, nested, format)
}

// encodeNested marshals a nested map in one of the supported formats.
func encodeNested(w io.Writer, nested map[string]any, format string) error {
	switch format {
	case FormatTOML:
		return toml.NewEncoder(w).Encode(nested)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "    ")
		return enc.Encode(nested)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(nested); err != nil {
			return err
		}
		return enc.Close()
	case FormatCfg:
		type pair struct{ section, option string }
		flat := flattenMap(nested, "")
		pairs := make([]pair, 0, len(flat))
		for p := range flat {
			if sectionName, option, ok := splitSectionPath(p); ok {
				pairs = append(pairs, pair{sectionName, option})
			}
		}
		sort.Slice(pairs, func(i, j int) bool {
			if pairs[i].section != pairs[j].section {
				return pairs[i].section < pairs[j].section
			}
			return pairs[i].option < pairs[j].option
		})

		doc := NewDocument()
		for _, pr := range pairs {
			v := flat[pr.section+"."+pr.option]
			rendered, ok := formatScalar(v)
			if !ok {
				return fmt.Errorf("cannot render value of type %T for path %s.%s", v, pr.section, pr.option)
			}
			if !doc.HasSection(pr.section) {
				if err := doc.AddSection(pr.section); err != nil {
					return err
				}
			}
			if err := doc.Set(pr.section, pr.option, rendered); err != nil {
				return err
			}
		}
		_, err := doc.WriteTo(w)
		return err
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// atomicWriteFile writes through a temporary file in the target directory
// and renames it into place.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file in '%s': %w", dir, err)
	}

	tempPath := tempFile.Name()
	removed := false
	defer func() {
		if !removed {
			os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to write temporary file '%s': %w", tempPath, err)
	}

	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to sync temporary file '%s': %w", tempPath, err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file '%s': %w", tempPath, err)
	}

	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions on '%s': %w", tempPath, err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename '%s' to '%s': %w", tempPath, path, err)
	}
	removed = true

	return nil
}
