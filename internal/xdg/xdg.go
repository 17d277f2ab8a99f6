// ABOUTME: XDG Base Directory support for config and data locations
// ABOUTME: Expands ~ and $XDG_* prefixes in configured paths with a HOME fallback

package xdg

import (
	"os"
	"path/filepath"
	"strings"
)

const appName = "rpcline"

// ConfigHome returns ~/.config/rpcline or respects XDG_CONFIG_HOME.
func ConfigHome() string {
	return filepath.Join(base("XDG_CONFIG_HOME"), appName)
}

// DataHome returns ~/.local/share/rpcline or respects XDG_DATA_HOME.
func DataHome() string {
	return filepath.Join(base("XDG_DATA_HOME"), appName)
}

// DefaultConfigFile is where the server looks when no -config flag is given.
func DefaultConfigFile() string {
	return filepath.Join(ConfigHome(), "config.yaml")
}

// ExpandPath expands a leading ~/ or $XDG_DATA_HOME / $XDG_CONFIG_HOME / $XDG_CACHE_HOME
// to the generic base directory (not the app-specific one).
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(getHome(), path[2:])
	}

	// strings.HasPrefix, not filepath.HasPrefix: the latter ignores path boundaries.
	for _, variable := range []string{"XDG_DATA_HOME", "XDG_CONFIG_HOME", "XDG_CACHE_HOME"} {
		if strings.HasPrefix(path, "$"+variable) {
			return strings.Replace(path, "$"+variable, base(variable), 1)
		}
	}
	return path
}

// base returns the value of an XDG variable or its default under HOME.
func base(variable string) string {
	if v := os.Getenv(variable); v != "" {
		return v
	}
	switch variable {
	case "XDG_CONFIG_HOME":
		return filepath.Join(getHome(), ".config")
	case "XDG_CACHE_HOME":
		return filepath.Join(getHome(), ".cache")
	default:
		return filepath.Join(getHome(), ".local", "share")
	}
}

// getHome returns HOME, falling back to the working directory and then ".".
func getHome() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}
	return "."
}
