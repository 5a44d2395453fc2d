// FILE: lixenwraith/printercfg/convenience_test.go
package printercfg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestQuickFunctions tests the convenience Quick functions
func TestQuickFunctions(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "printer.cfg")
	writeFile(t, configFile, "[printer]\nkinematics: corexy\nmax_velocity: 300\n")

	t.Run("Quick", func(t *testing.T) {
		oldArgs := os.Args
		os.Args = []string{"cmd", "--printer.max_velocity=450"}
		defer func() { os.Args = oldArgs }()

		cfg, err := Quick(defaultPrinterSettings(), "QUICK_", configFile)
		require.NoError(t, err)

		// CLI should override
		vel, _ := cfg.Get("printer.max_velocity")
		assert.Equal(t, "450", vel)

		// File value
		kin, _ := cfg.Get("printer.kinematics")
		assert.Equal(t, "corexy", kin)
	})

	t.Run("QuickMissingFile", func(t *testing.T) {
		oldArgs := os.Args
		os.Args = []string{"cmd"}
		defer func() { os.Args = oldArgs }()

		cfg, err := Quick(defaultPrinterSettings(), "QUICK_", filepath.Join(t.TempDir(), "absent.cfg"))
		assert.ErrorIs(t, err, ErrConfigNotFound)
		require.NotNil(t, cfg)
	})

	t.Run("MustQuickPanic", func(t *testing.T) {
		oldArgs := os.Args
		os.Args = []string{"cmd"}
		defer func() { os.Args = oldArgs }()

		assert.NotPanics(t, func() {
			assert.NotNil(t, MustQuick(defaultPrinterSettings(), "TEST_", configFile))
		})

		assert.Panics(t, func() {
			MustQuick("not-a-struct", "TEST_", configFile)
		})
	})
}

// TestValidation tests required path validation
func TestValidation(t *testing.T) {
	cfg := New()
	cfg.Register("mcu.serial", "")
	cfg.Register("printer.kinematics", "none")
	cfg.Register("printer.max_velocity", 100)

	err := cfg.Validate("mcu.serial", "printer.kinematics")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mcu.serial")
	assert.Contains(t, err.Error(), "printer.kinematics")

	require.NoError(t, cfg.SetSource("mcu.serial", SourceFile, "/dev/ttyACM0"))
	require.NoError(t, cfg.Set("printer.kinematics", "corexy"))
	assert.NoError(t, cfg.Validate("mcu.serial", "printer.kinematics"))

	err = cfg.Validate("extruder.nozzle_diameter")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

// TestDebug tests the debug dump of values and sources
func TestDebug(t *testing.T) {
	cfg := New()
	cfg.Register("printer.max_velocity", 100)
	cfg.Register("mcu.serial", "")
	require.NoError(t, cfg.SetSource("printer.max_velocity", SourceEnv, "300"))

	out := cfg.Debug()
	assert.Contains(t, out, "Configuration Debug Info:")
	assert.Contains(t, out, "  printer.max_velocity:\n    Current: 300\n    Default: 100\n    env: 300\n")
	assert.Less(t, strings.Index(out, "mcu.serial"), strings.Index(out, "printer.max_velocity"))
}

// TestClone tests that clones share no mutable state
func TestClone(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "printer.cfg")
	writeFile(t, configFile, "[printer]\nmax_velocity: 300\n")

	cfg := New()
	cfg.Register("printer.max_velocity", 100)
	require.NoError(t, cfg.LoadFile(configFile))

	clone := cfg.Clone()
	require.NoError(t, clone.Set("printer.max_velocity", 500))

	orig, _ := cfg.Get("printer.max_velocity")
	assert.Equal(t, "300", orig)
	cloned, _ := clone.Get("printer.max_velocity")
	assert.Equal(t, 500, cloned)

	assert.Equal(t, cfg.ConfigFilePath(), clone.ConfigFilePath())
	assert.Equal(t, cfg.Document().String(), clone.Document().String())
	assert.False(t, clone.IsWatching())
}
