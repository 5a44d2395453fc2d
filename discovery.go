// FILE: lixenwraith/printercfg/discovery.go
package printercfg

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileDiscoveryOptions configures automatic config file discovery
type FileDiscoveryOptions struct {
	// Base name of config file (without extension)
	Name string

	// Extensions to try (in order)
	Extensions []string

	// Custom search paths (in addition to defaults)
	Paths []string

	// Environment variable to check for explicit path
	EnvVar string

	// CLI flag to check (e.g., "--config")
	CLIFlag string

	// Home directory whose printer data dirs are searched; empty disables
	Home string

	// Whether to search in XDG config directories
	UseXDG bool

	// Whether to search in current directory
	UseCurrentDir bool
}

// DefaultDiscoveryOptions returns discovery options for a Klipper style config,
// e.g. DefaultDiscoveryOptions("printer") finds printer.cfg.
func DefaultDiscoveryOptions(name string) FileDiscoveryOptions {
	home, _ := os.UserHomeDir()
	return FileDiscoveryOptions{
		Name:          name,
		Extensions:    []string{".cfg", ".conf", ".toml"},
		EnvVar:        strings.ToUpper(name) + "_CONFIG",
		CLIFlag:       "--config",
		Home:          home,
		UseXDG:        true,
		UseCurrentDir: true,
	}
}

// WithFileDiscovery enables automatic config file discovery
func (b *Builder) WithFileDiscovery(opts FileDiscoveryOptions) *Builder {
	if path, ok := DiscoverFile(opts, b.args); ok {
		b.file = path
	}
	return b
}

// DiscoverFile resolves a config file path: CLI flag, env var, custom paths,
// current dir, printer instance dirs under Home, then XDG dirs.
// An explicit flag or env var is returned even if the file does not exist.
func DiscoverFile(opts FileDiscoveryOptions, args []string) (string, bool) {
	if opts.CLIFlag != "" {
		for i, arg := range args {
			if arg == opts.CLIFlag && i+1 < len(args) {
				return args[i+1], true
			}
			if v, ok := strings.CutPrefix(arg, opts.CLIFlag+"="); ok {
				return v, true
			}
		}
	}

	if opts.EnvVar != "" {
		if path := os.Getenv(opts.EnvVar); path != "" {
			return path, true
		}
	}

	var searchPaths []string
	searchPaths = append(searchPaths, opts.Paths...)

	if opts.UseCurrentDir {
		if cwd, err := os.Getwd(); err == nil {
			searchPaths = append(searchPaths, cwd)
		}
	}

	if opts.Home != "" {
		searchPaths = append(searchPaths, DiscoverInstances(opts.Home)...)
	}

	if opts.UseXDG {
		searchPaths = append(searchPaths, getXDGConfigPaths(opts.Name)...)
	}

	for _, dir := range searchPaths {
		for _, ext := range opts.Extensions {
			path := filepath.Join(dir, opts.Name+ext)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, true
			}
		}
	}

	return "", false
}

// DiscoverInstances lists the config directories of printer instances under
// home: "printer_data/config" first, then "<name>_data/config" sorted by name.
func DiscoverInstances(home string) []string {
	var dirs []string

	primary := filepath.Join(home, "printer_data", "config")
	if isDir(primary) {
		dirs = append(dirs, primary)
	}

	matches, _ := filepath.Glob(filepath.Join(home, "*_data", "config"))
	sort.Strings(matches)
	for _, m := range matches {
		if m != primary && isDir(m) {
			dirs = append(dirs, m)
		}
	}

	return dirs
}

// getXDGConfigPaths returns XDG-compliant config search paths
func getXDGConfigPaths(appName string) []string {
	var paths []string

	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		paths = append(paths, filepath.Join(xdgHome, appName))
	} else if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", appName))
	}

	if xdgDirs := os.Getenv("XDG_CONFIG_DIRS"); xdgDirs != "" {
		for _, dir := range filepath.SplitList(xdgDirs) {
			paths = append(paths, filepath.Join(dir, appName))
		}
	} else {
		paths = append(paths,
			filepath.Join("/etc/xdg", appName),
			filepath.Join("/etc", appName),
		)
	}

	return paths
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
