// Package config provides XDG-compliant configuration management for zoar.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/yaklabco/zoar/pkg/fsutils"
)

// AppName is the application name used in configuration paths.
const AppName = "zoar"

// ConfigFileName is the name of the user configuration file (without extension).
const ConfigFileName = "config"

// ProjectConfigFileName is the name of the project configuration file.
const ProjectConfigFileName = ".zoar.yaml"

// HistoryFileName is the file the interactive watch prompt keeps its history in.
const HistoryFileName = "repl_history"

// Platform constants for OS detection.
const (
	osDarwin  = "darwin"
	osWindows = "windows"
)

// XDGPaths holds the resolved XDG base directory paths for the current platform.
type XDGPaths struct {
	ConfigHome string // User configuration directory
	DataHome   string // User data directory
}

// ResolveXDGPaths returns the XDG base directory paths for the current platform.
// It respects XDG environment variables on Linux and uses platform-appropriate
// defaults on macOS and Windows.
func ResolveXDGPaths() XDGPaths {
	return XDGPaths{
		ConfigHome: resolveConfigHome(),
		DataHome:   resolveDataHome(),
	}
}

// ConfigDir returns the application-specific configuration directory.
func (p XDGPaths) ConfigDir() string {
	return filepath.Join(p.ConfigHome, AppName)
}

// DataDir returns the application-specific data directory.
func (p XDGPaths) DataDir() string {
	return filepath.Join(p.DataHome, AppName)
}

// ConfigFilePath returns the full path to the configuration file.
func (p XDGPaths) ConfigFilePath() string {
	return filepath.Join(p.ConfigDir(), ConfigFileName+".yaml")
}

// HistoryFilePath returns the full path to the REPL history file.
func (p XDGPaths) HistoryFilePath() string {
	return filepath.Join(p.DataDir(), HistoryFileName)
}

// FindProjectConfig walks up from dir looking for a project configuration
// file. It returns "" when there is none.
func FindProjectConfig(dir string) (string, error) {
	return fsutils.FindUp(dir, ProjectConfigFileName)
}

// resolveConfigHome returns the XDG_CONFIG_HOME equivalent for the current platform.
func resolveConfigHome() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}

	home := userHomeDir()

	switch runtime.GOOS {
	case osWindows:
		if appData := os.Getenv("APPDATA"); appData != "" {
			return appData
		}
		return filepath.Join(home, "AppData", "Roaming")
	default:
		// ~/.config on macOS too, for consistency with other CLI tools
		return filepath.Join(home, ".config")
	}
}

// resolveDataHome returns the XDG_DATA_HOME equivalent for the current platform.
func resolveDataHome() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir
	}

	home := userHomeDir()

	switch runtime.GOOS {
	case osDarwin:
		return filepath.Join(home, "Library", "Application Support")
	case osWindows:
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return localAppData
		}
		return filepath.Join(home, "AppData", "Local")
	default:
		return filepath.Join(home, ".local", "share")
	}
}

// userHomeDir returns the user's home directory.
func userHomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	// Windows fallback
	if home := os.Getenv("USERPROFILE"); home != "" {
		return home
	}
	if drive := os.Getenv("HOMEDRIVE"); drive != "" {
		if path := os.Getenv("HOMEPATH"); path != "" {
			return filepath.Join(drive, path)
		}
	}
	return ""
}
