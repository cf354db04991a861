// Package config loads go-content engine configuration.
//
// Configuration lives in an INI file (content.ini) with one section per
// profile. Settings control the engine's ambient behavior (log location,
// worker restart policy, stdio handling); the project itself is described
// by the files under the project root (pipeline.json, platform.json).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sys/unix"
	"gopkg.in/ini.v1"
)

// Config holds all go-content engine configuration
type Config struct {
	// Paths
	ConfigPath string
	LogsPath   string

	// Worker settings
	MaxRestartCount     int
	SuppressWorkerStdio bool

	// Behavior
	Debug bool

	// Profile
	Profile string
}

// LoadConfig loads configuration from configDir/content.ini for the given
// profile. A missing config file yields the defaults; a present but
// unparseable file is an error.
func LoadConfig(configDir string, profile string) (*Config, error) {
	cfg := &Config{
		MaxRestartCount: 3,
		Profile:         profile,
	}

	if configDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			configDir = filepath.Join(home, ".go-content")
		}
	}
	cfg.ConfigPath = configDir

	configFile := filepath.Join(configDir, "content.ini")
	if _, err := os.Stat(configFile); err == nil {
		if err := cfg.parseINI(configFile); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	return cfg, nil
}

// parseINI reads settings from an INI file, honoring the active profile
// section and falling back to the default section.
func (cfg *Config) parseINI(filename string) error {
	file, err := ini.Load(filename)
	if err != nil {
		return err
	}

	sections := []*ini.Section{file.Section(ini.DefaultSection)}
	if cfg.Profile != "" {
		if sec, err := file.GetSection(cfg.Profile); err == nil {
			sections = append(sections, sec)
		}
	}

	for _, sec := range sections {
		for _, key := range sec.Keys() {
			cfg.setConfigValue(key.Name(), key.Value())
		}
	}

	return nil
}

func (cfg *Config) setConfigValue(key, value string) {
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, "_", "")
	key = strings.ReplaceAll(key, " ", "")

	switch key {
	case "directorylogs", "logs":
		cfg.LogsPath = value
	case "maxrestartcount", "maxrestarts":
		var n int
		if _, err := fmt.Sscanf(value, "%d", &n); err == nil && n >= 0 {
			cfg.MaxRestartCount = n
		}
	case "suppressworkerstdio", "suppressstdio":
		cfg.SuppressWorkerStdio = parseBool(value)
	case "debug":
		cfg.Debug = parseBool(value)
	}
}

func parseBool(value string) bool {
	value = strings.ToLower(value)
	return value == "yes" || value == "true" || value == "1" || value == "on"
}

// Validate checks configuration validity and creates the logs directory
// if one is configured.
func (cfg *Config) Validate() error {
	if cfg.MaxRestartCount < 0 {
		return fmt.Errorf("MaxRestartCount cannot be negative")
	}

	if cfg.LogsPath != "" {
		info, err := os.Stat(cfg.LogsPath)
		if err != nil {
			if os.IsNotExist(err) {
				if err := os.MkdirAll(cfg.LogsPath, 0755); err != nil {
					return fmt.Errorf("logs directory %s cannot be created: %w", cfg.LogsPath, err)
				}
			} else {
				return fmt.Errorf("logs directory %s: %w", cfg.LogsPath, err)
			}
		} else if !info.IsDir() {
			return fmt.Errorf("logs path %s is not a directory", cfg.LogsPath)
		}
	}

	return nil
}

// GetSystemInfo returns system information
func GetSystemInfo() (osname, osversion, arch string, ncpus int) {
	var utsname unix.Utsname
	if err := unix.Uname(&utsname); err == nil {
		osname = strings.TrimRight(string(utsname.Sysname[:]), "\x00")
		osversion = strings.TrimRight(string(utsname.Release[:]), "\x00")
		arch = strings.TrimRight(string(utsname.Machine[:]), "\x00")
	}

	ncpus = runtime.NumCPU()

	return
}
