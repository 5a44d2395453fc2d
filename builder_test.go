// FILE: lixenwraith/printercfg/builder_test.go
package printercfg

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type printerSection struct {
	Kinematics  string  `cfg:"kinematics"`
	MaxVelocity int     `cfg:"max_velocity"`
	MaxAccel    float64 `cfg:"max_accel"`
}

type printerSettings struct {
	Printer printerSection `cfg:"printer"`
	MCU     struct {
		Serial string `cfg:"serial"`
	} `cfg:"mcu"`
}

func defaultPrinterSettings() *printerSettings {
	s := &printerSettings{Printer: printerSection{Kinematics: "none", MaxVelocity: 100, MaxAccel: 1000}}
	s.MCU.Serial = "/tmp/klipper_host_mcu"
	return s
}

// TestBuilder tests the builder pattern
func TestBuilder(t *testing.T) {
	t.Run("BasicBuilder", func(t *testing.T) {
		cfg, err := NewBuilder().
			WithDefaults(defaultPrinterSettings()).
			WithEnvPrefix("PCFG_TEST_").
			WithArgs(nil).
			Build()

		require.NoError(t, err)
		require.NotNil(t, cfg)

		val, exists := cfg.Get("printer.kinematics")
		assert.True(t, exists)
		assert.Equal(t, "none", val)
	})

	t.Run("BuilderWithAllOptions", func(t *testing.T) {
		configFile := filepath.Join(t.TempDir(), "printer.cfg")
		writeFile(t, configFile, "[printer]\nkinematics: corexy\nmax_velocity: 300\n\n[mcu]\nserial: /dev/ttyACM0\n")
		t.Setenv("CUSTOM_printer.max_accel", "4000")

		core, logs := observer.New(zap.DebugLevel)

		cfg, err := NewBuilder().
			WithDefaults(defaultPrinterSettings()).
			WithFile(configFile).
			WithFileFormat(FormatCfg).
			WithEnvTransform(func(path string) string { return "CUSTOM_" + path }).
			WithEnvWhitelist("printer.max_accel").
			WithSources(SourceEnv, SourceCLI, SourceFile, SourceDefault).
			WithArgs([]string{"--printer.max_velocity=350", "--printer.max_accel=5000"}).
			WithLogger(zap.New(core)).
			Build()

		require.NoError(t, err)

		vel, _ := cfg.Get("printer.max_velocity")
		assert.Equal(t, "350", vel)
		accel, _ := cfg.Get("printer.max_accel")
		assert.Equal(t, "4000", accel)
		serial, _ := cfg.Get("mcu.serial")
		assert.Equal(t, "/dev/ttyACM0", serial)

		assert.Equal(t, 1, logs.FilterMessage("loaded config file").Len())
	})

	t.Run("MissingFileStillBuilds", func(t *testing.T) {
		cfg, err := NewBuilder().
			WithDefaults(defaultPrinterSettings()).
			WithFile(filepath.Join(t.TempDir(), "absent.cfg")).
			WithArgs(nil).
			Build()

		assert.ErrorIs(t, err, ErrConfigNotFound)
		require.NotNil(t, cfg)
		kin, _ := cfg.Get("printer.kinematics")
		assert.Equal(t, "none", kin)

		assert.NotPanics(t, func() {
			NewBuilder().WithFile(filepath.Join(t.TempDir(), "absent.cfg")).WithArgs(nil).MustBuild()
		})
	})

	t.Run("MalformedFileFails", func(t *testing.T) {
		configFile := filepath.Join(t.TempDir(), "printer.cfg")
		writeFile(t, configFile, "[printer]\nkinematics\n")

		_, err := NewBuilder().
			WithDefaults(defaultPrinterSettings()).
			WithFile(configFile).
			WithArgs(nil).
			Build()
		assert.ErrorIs(t, err, ErrMalformedLine)

		assert.Panics(t, func() {
			NewBuilder().WithFile(configFile).WithArgs(nil).MustBuild()
		})
	})

	t.Run("PrefixAndSkipIncludes", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "printer.cfg"), "[include missing.cfg]\n\n[printer]\nkinematics: delta\n")

		cfg, err := NewBuilder().
			WithDefaults(printerSection{Kinematics: "none"}).
			WithPrefix("printer").
			WithFile(filepath.Join(dir, "printer.cfg")).
			WithSkipIncludes(true).
			WithArgs(nil).
			Build()
		require.NoError(t, err)

		kin, _ := cfg.Get("printer.kinematics")
		assert.Equal(t, "delta", kin)
	})

	t.Run("InvalidOptions", func(t *testing.T) {
		_, err := NewBuilder().WithTagName("").Build()
		assert.Error(t, err)

		_, err = NewBuilder().WithFileFormat("ini").WithArgs(nil).Build()
		assert.Error(t, err)

		_, err = NewBuilder().WithDefaults(42).WithArgs(nil).Build()
		assert.Error(t, err)
	})
}

func TestBuildAndScan(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "printer.cfg")
	writeFile(t, configFile, "[printer]\nkinematics: corexy\nmax_accel: 3000.5\n")

	var target printerSection
	err := NewBuilder().
		WithDefaults(printerSection{Kinematics: "none", MaxVelocity: 100}).
		WithPrefix("printer").
		WithFile(configFile).
		WithArgs([]string{"--printer.max_velocity", "250"}).
		BuildAndScan(&target)
	require.NoError(t, err)

	assert.Equal(t, printerSection{Kinematics: "corexy", MaxVelocity: 250, MaxAccel: 3000.5}, target)
}

// TestBuilderWithValidator tests validators run after loading
func TestBuilderWithValidator(t *testing.T) {
	positiveVelocity := func(c *Config) error {
		v, err := c.Int64("printer.max_velocity")
		if err != nil {
			return err
		}
		if v <= 0 {
			return fmt.Errorf("max_velocity must be positive, got %d", v)
		}
		return nil
	}

	t.Run("Valid", func(t *testing.T) {
		_, err := NewBuilder().
			WithDefaults(defaultPrinterSettings()).
			WithValidator(positiveVelocity).
			WithValidator(nil).
			WithArgs([]string{"--printer.max_velocity=10"}).
			Build()
		assert.NoError(t, err)
	})

	t.Run("Invalid", func(t *testing.T) {
		_, err := NewBuilder().
			WithDefaults(defaultPrinterSettings()).
			WithValidator(positiveVelocity).
			WithArgs([]string{"--printer.max_velocity=-5"}).
			Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration validation failed")
	})
}

// TestFileDiscovery tests automatic config file discovery
func TestFileDiscovery(t *testing.T) {
	t.Run("DiscoveryWithCLIFlag", func(t *testing.T) {
		configFile := filepath.Join(t.TempDir(), "custom.cfg")
		writeFile(t, configFile, "[printer]\nkinematics: corexy\n")

		cfg, err := NewBuilder().
			WithDefaults(defaultPrinterSettings()).
			WithArgs([]string{"--config", configFile}).
			WithFileDiscovery(DefaultDiscoveryOptions("printer")).
			Build()
		require.NoError(t, err)

		kin, _ := cfg.Get("printer.kinematics")
		assert.Equal(t, "corexy", kin)
		assert.Equal(t, configFile, cfg.ConfigFilePath())
	})

	t.Run("DiscoveryWithEnvVar", func(t *testing.T) {
		configFile := filepath.Join(t.TempDir(), "env.cfg")
		writeFile(t, configFile, "[printer]\nkinematics: delta\n")
		t.Setenv("PRINTER_CONFIG", configFile)

		cfg, err := NewBuilder().
			WithDefaults(defaultPrinterSettings()).
			WithArgs(nil).
			WithFileDiscovery(DefaultDiscoveryOptions("printer")).
			Build()
		require.NoError(t, err)

		kin, _ := cfg.Get("printer.kinematics")
		assert.Equal(t, "delta", kin)
	})

	t.Run("DiscoveryPrecedence", func(t *testing.T) {
		tmpDir := t.TempDir()
		cliFile := filepath.Join(tmpDir, "cli.cfg")
		envFile := filepath.Join(tmpDir, "env.cfg")
		writeFile(t, cliFile, "[printer]\nkinematics: cli\n")
		writeFile(t, envFile, "[printer]\nkinematics: env\n")
		t.Setenv("PRINTER_CONFIG", envFile)

		cfg, err := NewBuilder().
			WithDefaults(defaultPrinterSettings()).
			WithArgs([]string{"--config=" + cliFile}).
			WithFileDiscovery(DefaultDiscoveryOptions("printer")).
			Build()
		require.NoError(t, err)

		kin, _ := cfg.Get("printer.kinematics")
		assert.Equal(t, "cli", kin)
	})

	t.Run("DiscoveryInPrinterData", func(t *testing.T) {
		home := t.TempDir()
		configDir := filepath.Join(home, "printer_data", "config")
		require.NoError(t, os.MkdirAll(configDir, 0755))
		writeFile(t, filepath.Join(configDir, "printer.cfg"), "[printer]\nkinematics: corexz\n")

		opts := FileDiscoveryOptions{
			Name:       "printer",
			Extensions: []string{".cfg"},
			Home:       home,
		}

		cfg, err := NewBuilder().
			WithDefaults(defaultPrinterSettings()).
			WithArgs(nil).
			WithFileDiscovery(opts).
			Build()
		require.NoError(t, err)

		kin, _ := cfg.Get("printer.kinematics")
		assert.Equal(t, "corexz", kin)
	})
}
