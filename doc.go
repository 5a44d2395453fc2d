// FILE: lixenwraith/printercfg/doc.go

// Package printercfg reads, queries, patches and writes Klipper style printer
// configuration files and layers their values into a thread-safe registry
// together with environment variables, command-line arguments and defaults.
//
// Line syntax:
//
//	[section name]
//	option: value        # inline comment
//	option = value
//	gcode:
//	    G28
//	    G1 Z5
//
// The first ':' or '=' separates the option name from its value and anything
// from the first '#' on is a comment. Lines starting with '#' or ';' are
// comments. Indented lines continue the value of the previous option.
//
// Quick Start:
//
//	type Printer struct {
//	    Kinematics  string  `cfg:"kinematics"`
//	    MaxVelocity float64 `cfg:"max_velocity"`
//	}
//
//	defaults := struct {
//	    Printer Printer `cfg:"printer"`
//	}{Printer{Kinematics: "none", MaxVelocity: 100}}
//
//	cfg, err := printercfg.Quick(defaults, "KLIPPER_", "printer.cfg")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	velocity, _ := cfg.Float64("printer.max_velocity")
//
// Default Precedence (highest to lowest):
//  1. Runtime values (Config.Set)
//  2. Command-line arguments (--printer.max_velocity=300)
//  3. Environment variables (KLIPPER_PRINTER_MAX_VELOCITY=300)
//  4. Configuration file (printer.cfg, with [include] files resolved)
//  5. Default values
//
// Saving a configuration back to a .cfg file keeps comments and untouched
// lines of the loaded file and only rewrites options whose values changed.
//
// Thread Safety:
// All Config and watcher operations are safe for concurrent use. A Document
// is not; callers share it behind their own lock or work on a Clone.
package printercfg
