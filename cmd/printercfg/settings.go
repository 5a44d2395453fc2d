// FILE: lixenwraith/printercfg/cmd/printercfg/settings.go
package main

import (
	"errors"
	"fmt"

	"github.com/lixenwraith/printercfg"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// envPrefix scopes the tool's own settings, e.g. PRINTERCFG_LOG_LEVEL=debug
const envPrefix = "PRINTERCFG_"

// settings configures the tool itself, not the files it edits
type settings struct {
	Log struct {
		Level       string `cfg:"level"`
		Development bool   `cfg:"development"`
	} `cfg:"log"`
	Export struct {
		Format string `cfg:"format"`
	} `cfg:"export"`
}

func defaultSettings() settings {
	var s settings
	s.Log.Level = "warn"
	s.Export.Format = printercfg.FormatTOML
	return s
}

// loadSettings reads the optional settings file (PRINTERCFG_CONFIG or the XDG
// dirs) and PRINTERCFG_* environment overrides.
func loadSettings() (settings, error) {
	s := defaultSettings()

	err := printercfg.NewBuilder().
		WithDefaults(s).
		WithEnvPrefix(envPrefix).
		WithArgs(nil).
		WithFileDiscovery(printercfg.FileDiscoveryOptions{
			Name:       "printercfg",
			Extensions: []string{".toml", ".yaml", ".yml", ".json"},
			EnvVar:     envPrefix + "CONFIG",
			UseXDG:     true,
		}).
		BuildAndScan(&s)
	if err != nil && !errors.Is(err, printercfg.ErrConfigNotFound) {
		return s, fmt.Errorf("failed to load settings: %w", err)
	}
	return s, nil
}

// newLogger builds a stderr logger; verbose forces debug level
func newLogger(s settings, verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if s.Log.Development {
		config = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(s.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", s.Log.Level, err)
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	config.Level = zap.NewAtomicLevelAt(level)

	return config.Build()
}
