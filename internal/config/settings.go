package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Settings is the user-editable configuration of the host application.
// The engine itself only receives the resolved values (week start, cap, ...).
type Settings struct {
	// Port is the localhost port the HTTP host listens on.
	Port string `yaml:"port"`

	// Language is an ISO 639-1 code (optionally with a region, e.g. "fr-CA").
	// It selects translations and, when WeekStart is empty, the first day of week.
	Language string `yaml:"language"`

	// WeekStart overrides the locale's first day of week: "sunday" or "monday".
	WeekStart string `yaml:"week_start,omitempty"`

	// DisplayCap is the number of events a month cell shows before "+N more".
	DisplayCap int `yaml:"display_cap"`

	// DefaultView is the view mode shown at startup.
	DefaultView string `yaml:"default_view"`

	// StrictStatus enables the pending -> confirmed -> cancelled state machine.
	StrictStatus bool `yaml:"strict_status"`

	// SeedFile optionally points to an .ics file (path or http(s) URL)
	// imported at startup.
	SeedFile string `yaml:"seed_file,omitempty"`

	// SeedUser is the HTTP Basic Auth user for a remote seed. The password
	// lives in the OS keyring, never in this file.
	SeedUser string `yaml:"seed_user,omitempty"`
}

// DefaultSettings returns an in-memory default configuration.
func DefaultSettings() *Settings {
	return &Settings{
		Port:        DefaultPort,
		Language:    DefaultLanguage,
		DisplayCap:  DefaultDisplayCap,
		DefaultView: DefaultViewMode,
	}
}

// Normalize fills in missing or invalid values with defaults so that
// partially-filled files still behave correctly.
func (s *Settings) Normalize() {
	if s.Port == "" {
		s.Port = DefaultPort
	}
	if s.Language == "" {
		s.Language = DefaultLanguage
	}
	switch strings.ToLower(s.WeekStart) {
	case WeekStartSunday, WeekStartMonday:
		s.WeekStart = strings.ToLower(s.WeekStart)
	default:
		// Unknown or empty: defer to the locale.
		s.WeekStart = ""
	}
	if s.DisplayCap <= 0 {
		s.DisplayCap = DefaultDisplayCap
	}
	switch s.DefaultView {
	case ViewMonth, ViewWeek, ViewDay:
	default:
		s.DefaultView = DefaultViewMode
	}
}

// ValidatePort checks that the port is a number within the TCP range.
func ValidatePort(port string) error {
	if port == "" {
		return errors.New(ErrPortRequired)
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return errors.New(ErrPortNumber)
	}
	if n < 1 || n > 65535 {
		return errors.New(ErrPortRange)
	}
	return nil
}

// LoadSettings reads the YAML settings file at path.
//
// If the file does not exist, a default file is written (0600) and the
// defaults are returned.
func LoadSettings(path string) (*Settings, error) {
	if path == "" {
		return nil, errors.New(ErrConfigPathEmpty)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s := DefaultSettings()
			if err := SaveSettings(path, s); err != nil {
				// Caller may still run on defaults.
				return s, err
			}
			slog.Info(MsgSettingsInit, LogKeyComponent, CompConfig, LogKeyPath, path)
			return s, nil
		}
		return nil, fmt.Errorf("%s: %w", ErrConfigRead, err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrConfigParse, err)
	}
	s.Normalize()

	slog.Debug(MsgSettingsLoaded, LogKeyComponent, CompConfig, LogKeyPath, path)
	return &s, nil
}

// SaveSettings writes s to path atomically (temp file + rename).
func SaveSettings(path string, s *Settings) error {
	if path == "" {
		return errors.New(ErrConfigPathEmpty)
	}
	if s == nil {
		return errors.New(ErrConfigNil)
	}
	s.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DirPermUserRWX); err != nil {
		return fmt.Errorf("%s: %w", ErrCreateDir, err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrConfigWrite, err)
	}

	tmp, err := os.CreateTemp(dir, ".go-agenda-settings-*.tmp")
	if err != nil {
		return fmt.Errorf("%s: %w", ErrConfigWrite, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%s: %w", ErrConfigWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%s: %w", ErrConfigWrite, err)
	}
	if err := os.Chmod(tmpName, FilePermUserRW); err != nil {
		return fmt.Errorf("%s: %w", ErrConfigWrite, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%s: %w", ErrConfigWrite, err)
	}
	return nil
}
