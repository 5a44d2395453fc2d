// FILE: lixenwraith/printercfg/decode_test.go
package printercfg

import (
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type extruderSection struct {
	StepPin        string   `cfg:"step_pin"`
	NozzleDiameter float64  `cfg:"nozzle_diameter"`
	MaxTemp        int      `cfg:"max_temp"`
	PressureAdv    *float64 `cfg:"pressure_advance"`
}

type moonrakerSection struct {
	Endpoint   url.URL       `cfg:"endpoint"`
	Timeout    time.Duration `cfg:"timeout"`
	Enabled    bool          `cfg:"enabled"`
	TrustedIPs []string      `cfg:"trusted_clients"`
	Since      time.Time     `cfg:"since"`
}

// TestScanWithCfgStrings tests decoding the string values a cfg file produces
func TestScanWithCfgStrings(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "printer.cfg")
	writeFile(t, configFile, `[extruder]
step_pin: PA4
nozzle_diameter: 0.600
max_temp: 280

[moonraker]
endpoint: http://localhost:7125/printer
timeout: 2s
enabled: yes
trusted_clients: 10.0.0.0/8 , 192.168.0.0/16
since: 2024-05-01T10:00:00Z
`)

	cfg := New()
	require.NoError(t, cfg.RegisterStruct("extruder.", extruderSection{NozzleDiameter: 0.4, MaxTemp: 250}))
	require.NoError(t, cfg.RegisterStruct("moonraker.", moonrakerSection{Timeout: time.Second}))
	require.NoError(t, cfg.LoadFile(configFile))

	var ext extruderSection
	require.NoError(t, cfg.Scan("extruder", &ext))
	assert.Equal(t, extruderSection{StepPin: "PA4", NozzleDiameter: 0.6, MaxTemp: 280}, ext)

	var mr moonrakerSection
	require.NoError(t, cfg.Scan("moonraker", &mr))

	want := moonrakerSection{
		Endpoint:   url.URL{Scheme: "http", Host: "localhost:7125", Path: "/printer"},
		Timeout:    2 * time.Second,
		Enabled:    true,
		TrustedIPs: []string{"10.0.0.0/8", "192.168.0.0/16"},
		Since:      time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	if diff := cmp.Diff(want, mr); diff != "" {
		t.Errorf("Scan() mismatch (-want +got):\n%s", diff)
	}
}

// TestScanWithBasePath tests scanning whole trees, sub-sections and missing paths
func TestScanWithBasePath(t *testing.T) {
	cfg := New()
	cfg.Register("printer.kinematics", "corexy")
	cfg.Register("printer.max_velocity", 300)
	cfg.Register("extruder.max_temp", 250)

	t.Run("Root", func(t *testing.T) {
		var all struct {
			Printer struct {
				Kinematics  string `cfg:"kinematics"`
				MaxVelocity int    `cfg:"max_velocity"`
			} `cfg:"printer"`
			Extruder map[string]any `cfg:"extruder"`
		}
		require.NoError(t, cfg.Scan("", &all))
		assert.Equal(t, "corexy", all.Printer.Kinematics)
		assert.Equal(t, 300, all.Printer.MaxVelocity)
		assert.Equal(t, map[string]any{"max_temp": 250}, all.Extruder)
	})

	t.Run("MissingSection", func(t *testing.T) {
		var ext extruderSection
		require.NoError(t, cfg.Scan("extruder1", &ext))
		assert.Equal(t, extruderSection{}, ext)
	})

	t.Run("LeafPath", func(t *testing.T) {
		var ext extruderSection
		err := cfg.Scan("printer.kinematics", &ext)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "non-map value")
	})
}

// TestScanFromSource tests decoding a single source layer
func TestScanFromSource(t *testing.T) {
	cfg := New()
	cfg.Register("extruder.max_temp", 250)
	cfg.Register("extruder.step_pin", "PA4")
	require.NoError(t, cfg.SetSource("extruder.max_temp", SourceEnv, "300"))

	var env extruderSection
	require.NoError(t, cfg.ScanSource("extruder", SourceEnv, &env))
	assert.Equal(t, 300, env.MaxTemp)
	assert.Empty(t, env.StepPin)

	var def extruderSection
	require.NoError(t, cfg.ScanSource("extruder", SourceDefault, &def))
	assert.Equal(t, 250, def.MaxTemp)
	assert.Equal(t, "PA4", def.StepPin)
}

// TestInvalidScanTargets tests rejected decode targets and values
func TestInvalidScanTargets(t *testing.T) {
	cfg := New()
	cfg.Register("extruder.max_temp", "hot")
	cfg.Register("moonraker.enabled", "perhaps")

	var ext extruderSection
	assert.Error(t, cfg.Scan("extruder", ext))
	assert.Error(t, cfg.Scan("extruder", nil))
	var nilPtr *extruderSection
	assert.Error(t, cfg.Scan("extruder", nilPtr))

	assert.Error(t, cfg.Scan("extruder", &ext))

	var mr moonrakerSection
	assert.Error(t, cfg.Scan("moonraker", &mr))
}

func TestCustomTagName(t *testing.T) {
	type heater struct {
		Pin string `klipper:"heater_pin"`
	}

	cfg, err := NewBuilder().
		WithTagName("klipper").
		WithDefaults(struct {
			Bed heater `klipper:"heater_bed"`
		}{heater{Pin: "PA1"}}).
		WithArgs([]string{"--heater_bed.heater_pin=PD4"}).
		Build()
	require.NoError(t, err)

	var h heater
	require.NoError(t, cfg.Scan("heater_bed", &h))
	assert.Equal(t, "PD4", h.Pin)
}

func TestNavigateToPath(t *testing.T) {
	nested := map[string]any{
		"printer": map[string]any{"max_velocity": 300},
	}
	assert.Equal(t, nested, navigateToPath(nested, ""))
	assert.Equal(t, map[string]any{"max_velocity": 300}, navigateToPath(nested, "printer."))
	assert.Equal(t, 300, navigateToPath(nested, "printer.max_velocity"))
	assert.Nil(t, navigateToPath(nested, "printer.max_velocity.x"))
	assert.Nil(t, navigateToPath(nested, "mcu"))
}
