// Package config handles settings file location, parsing and persistence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	gderr "github.com/adamancini/gamedeck/internal/errors"
)

// CurrentVersion is the settings schema version written by Save.
const CurrentVersion = 1

// DefaultMinSizeBytes is the smallest folder accepted as an Epic install.
const DefaultMinSizeBytes int64 = 20_000_000

// DefaultSteamAPIBaseURL is the companion backend serving owned games.
const DefaultSteamAPIBaseURL = "http://localhost:3000"

// LegendaryConfig configures the Epic CLI adapter.
type LegendaryConfig struct {
	Binary string `yaml:"binary,omitempty" toml:"binary,omitempty" json:"binary,omitempty"`
}

// SteamConfig configures the Steam owned-games client and manifest lookup.
type SteamConfig struct {
	APIBaseURL   string `yaml:"api_base_url,omitempty" toml:"api_base_url,omitempty" json:"api_base_url,omitempty"`
	Token        string `yaml:"token,omitempty" toml:"token,omitempty" json:"token,omitempty"`
	ManifestPath string `yaml:"manifest_path,omitempty" toml:"manifest_path,omitempty" json:"manifest_path,omitempty"`
}

// ImportConfig configures the Epic folder import heuristic.
type ImportConfig struct {
	MinSizeBytes int64 `yaml:"min_size_bytes,omitempty" toml:"min_size_bytes,omitempty" json:"min_size_bytes,omitempty"`
}

// LoggingConfig configures the shared logger.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty" toml:"level,omitempty" json:"level,omitempty"`
	Format string `yaml:"format,omitempty" toml:"format,omitempty" json:"format,omitempty"`
}

// Settings represents the parsed settings file.
type Settings struct {
	Version            int             `yaml:"version" toml:"version" json:"version"`
	EpicLibraryFolders []string        `yaml:"epic_library_folders" toml:"epic_library_folders" json:"epic_library_folders"`
	BackendIP          string          `yaml:"backend_ip,omitempty" toml:"backend_ip,omitempty" json:"backend_ip,omitempty"`
	BackendPort        int             `yaml:"backend_port,omitempty" toml:"backend_port,omitempty" json:"backend_port,omitempty"`
	Username           string          `yaml:"username,omitempty" toml:"username,omitempty" json:"username,omitempty"`
	Database           string          `yaml:"database,omitempty" toml:"database,omitempty" json:"database,omitempty"`
	Legendary          LegendaryConfig `yaml:"legendary,omitempty" toml:"legendary,omitempty" json:"legendary,omitempty"`
	Steam              SteamConfig     `yaml:"steam,omitempty" toml:"steam,omitempty" json:"steam,omitempty"`
	Import             ImportConfig    `yaml:"import,omitempty" toml:"import,omitempty" json:"import,omitempty"`
	Logging            LoggingConfig   `yaml:"logging,omitempty" toml:"logging,omitempty" json:"logging,omitempty"`
}

// Default returns settings with every default filled in.
func Default() *Settings {
	return &Settings{
		Version:            CurrentVersion,
		EpicLibraryFolders: []string{},
		Legendary:          LegendaryConfig{Binary: "legendary"},
		Steam:              SteamConfig{APIBaseURL: DefaultSteamAPIBaseURL},
		Import:             ImportConfig{MinSizeBytes: DefaultMinSizeBytes},
		Logging:            LoggingConfig{Level: "info", Format: "text"},
	}
}

// applyDefaults fills zero values left by a partial settings file.
func (s *Settings) applyDefaults() {
	d := Default()
	if s.Version == 0 {
		s.Version = d.Version
	}
	if s.EpicLibraryFolders == nil {
		s.EpicLibraryFolders = []string{}
	}
	if s.Legendary.Binary == "" {
		s.Legendary.Binary = d.Legendary.Binary
	}
	if s.Steam.APIBaseURL == "" {
		s.Steam.APIBaseURL = d.Steam.APIBaseURL
	}
	if s.Import.MinSizeBytes == 0 {
		s.Import.MinSizeBytes = d.Import.MinSizeBytes
	}
	if s.Logging.Level == "" {
		s.Logging.Level = d.Logging.Level
	}
	if s.Logging.Format == "" {
		s.Logging.Format = d.Logging.Format
	}
}

// ServerURL returns the lobby websocket URL, or "" when no backend is set.
func (s *Settings) ServerURL() string {
	if s.BackendIP == "" || s.BackendPort == 0 {
		return ""
	}
	return fmt.Sprintf("ws://%s:%d", s.BackendIP, s.BackendPort)
}

// DatabasePath returns the catalog file, defaulting next to the XDG data dir.
func (s *Settings) DatabasePath() (string, error) {
	if s.Database != "" {
		return expandHome(s.Database), nil
	}
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "catalog.db"), nil
}

// HasFolder reports whether dir is already a configured Epic library folder.
func (s *Settings) HasFolder(dir string) bool {
	clean := filepath.Clean(dir)
	for _, f := range s.EpicLibraryFolders {
		if filepath.Clean(f) == clean {
			return true
		}
	}
	return false
}

// AddFolder appends dir unless present. Returns false if it was present.
func (s *Settings) AddFolder(dir string) bool {
	if s.HasFolder(dir) {
		return false
	}
	s.EpicLibraryFolders = append(s.EpicLibraryFolders, filepath.Clean(dir))
	return true
}

// RemoveFolder drops dir. Returns false if it was not configured.
func (s *Settings) RemoveFolder(dir string) bool {
	clean := filepath.Clean(dir)
	kept := s.EpicLibraryFolders[:0]
	removed := false
	for _, f := range s.EpicLibraryFolders {
		if filepath.Clean(f) == clean {
			removed = true
			continue
		}
		kept = append(kept, f)
	}
	s.EpicLibraryFolders = kept
	return removed
}

// Keys lists the dotted keys accepted by Get and Set.
func Keys() []string {
	return []string{
		"epic_library_folders",
		"backend_ip",
		"backend_port",
		"username",
		"database",
		"legendary.binary",
		"steam.api_base_url",
		"steam.token",
		"steam.manifest_path",
		"import.min_size_bytes",
		"logging.level",
		"logging.format",
	}
}

// legacyKeys maps the original camelCase keys onto dotted keys.
var legacyKeys = map[string]string{
	"epicGamesLibraryFolders": "epic_library_folders",
	"backendIP":               "backend_ip",
	"backendPort":             "backend_port",
}

func canonicalKey(key string) string {
	if k, ok := legacyKeys[key]; ok {
		return k
	}
	return strings.ToLower(key)
}

// Get returns the value stored under a dotted key.
func (s *Settings) Get(key string) (interface{}, error) {
	switch canonicalKey(key) {
	case "epic_library_folders":
		return append([]string(nil), s.EpicLibraryFolders...), nil
	case "backend_ip":
		return s.BackendIP, nil
	case "backend_port":
		return s.BackendPort, nil
	case "username":
		return s.Username, nil
	case "database":
		return s.Database, nil
	case "legendary.binary":
		return s.Legendary.Binary, nil
	case "steam.api_base_url":
		return s.Steam.APIBaseURL, nil
	case "steam.token":
		return s.Steam.Token, nil
	case "steam.manifest_path":
		return s.Steam.ManifestPath, nil
	case "import.min_size_bytes":
		return s.Import.MinSizeBytes, nil
	case "logging.level":
		return s.Logging.Level, nil
	case "logging.format":
		return s.Logging.Format, nil
	default:
		return nil, gderr.New(gderr.ErrCodeInvalidInput, fmt.Sprintf("unknown setting %q", key))
	}
}

// Set stores a value under a dotted key. String values are converted for
// numeric and list keys; lists are comma separated.
func (s *Settings) Set(key string, value interface{}) error {
	k := canonicalKey(key)
	switch k {
	case "epic_library_folders":
		switch v := value.(type) {
		case []string:
			s.EpicLibraryFolders = append([]string{}, v...)
		case string:
			s.EpicLibraryFolders = splitList(v)
		default:
			return setTypeError(key, value)
		}
		return nil
	case "backend_port":
		port, err := toInt(value)
		if err != nil {
			return gderr.Wrap(err, gderr.ErrCodeInvalidInput, fmt.Sprintf("invalid value for %s", key))
		}
		s.BackendPort = int(port)
		return nil
	case "import.min_size_bytes":
		n, err := toInt(value)
		if err != nil {
			return gderr.Wrap(err, gderr.ErrCodeInvalidInput, fmt.Sprintf("invalid value for %s", key))
		}
		s.Import.MinSizeBytes = n
		return nil
	}

	str, ok := value.(string)
	if !ok {
		return setTypeError(key, value)
	}
	switch k {
	case "backend_ip":
		s.BackendIP = str
	case "username":
		s.Username = str
	case "database":
		s.Database = str
	case "legendary.binary":
		s.Legendary.Binary = str
	case "steam.api_base_url":
		s.Steam.APIBaseURL = str
	case "steam.token":
		s.Steam.Token = str
	case "steam.manifest_path":
		s.Steam.ManifestPath = str
	case "logging.level":
		s.Logging.Level = str
	case "logging.format":
		s.Logging.Format = str
	default:
		return gderr.New(gderr.ErrCodeInvalidInput, fmt.Sprintf("unknown setting %q", key))
	}
	return nil
}

func setTypeError(key string, value interface{}) error {
	return gderr.New(gderr.ErrCodeInvalidInput, fmt.Sprintf("invalid value type %T for %s", value, key))
}

func splitList(v string) []string {
	out := []string{}
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// toInt accepts the numeric shapes produced by the yaml, toml and json
// decoders, plus decimal strings.
func toInt(value interface{}) (int64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case uint64:
		return int64(v), nil
	case float64:
		if v != float64(int64(v)) {
			return 0, fmt.Errorf("%v is not an integer", v)
		}
		return int64(v), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, nil
		}
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", value)
	}
}

// EnvSettingsPath overrides settings discovery when set.
const EnvSettingsPath = "GAMEDECK_SETTINGS"

// DefaultPath returns $XDG_CONFIG_HOME/gamedeck/settings.yaml.
func DefaultPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "settings.yaml"), nil
}

// Find resolves the settings file path.
// An explicit path wins, then GAMEDECK_SETTINGS, then the first existing
// settings.{yaml,yml,toml,json} in the config directory. When nothing exists
// the default path is returned so the caller can create it.
func Find(explicitPath string) (string, error) {
	if explicitPath != "" {
		return expandHome(explicitPath), nil
	}

	if envPath := os.Getenv(EnvSettingsPath); envPath != "" {
		return expandHome(envPath), nil
	}

	dir, err := configDir()
	if err != nil {
		return "", err
	}

	for _, name := range []string{"settings.yaml", "settings.yml", "settings.toml", "settings.json"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return filepath.Join(dir, "settings.yaml"), nil
}

// Load reads, expands and validates a settings file.
func Load(path string) (*Settings, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, gderr.ConfigNotFound(path)
		}
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	format := detectFormat(path, content)
	if format == FormatUnknown {
		return nil, gderr.ConfigInvalid(fmt.Sprintf("unable to detect file format for %s", path))
	}

	settings, err := parse(content, format)
	if err != nil {
		return nil, gderr.Wrap(err, gderr.ErrCodeConfigInvalid, fmt.Sprintf("failed to parse %s", path))
	}

	if err := Validate(settings); err != nil {
		return nil, gderr.Wrap(err, gderr.ErrCodeConfigInvalid, fmt.Sprintf("invalid settings in %s", path))
	}

	return settings, nil
}

// LoadOrCreate loads path, writing defaults first if it does not exist.
// The boolean reports whether the file was created.
func LoadOrCreate(path string) (*Settings, bool, error) {
	settings, err := Load(path)
	if err == nil {
		return settings, false, nil
	}
	if !gderr.Is(err, gderr.ErrCodeConfigNotFound) {
		return nil, false, err
	}

	settings = Default()
	if err := Save(path, settings); err != nil {
		return nil, false, err
	}
	return settings, true, nil
}

// Save writes settings in the format implied by the path extension.
// The file is written to a temporary sibling and renamed into place.
func Save(path string, s *Settings) error {
	if err := Validate(s); err != nil {
		return gderr.Wrap(err, gderr.ErrCodeConfigInvalid, "refusing to save invalid settings")
	}

	format := detectFormat(path, nil)
	if format == FormatUnknown {
		format = FormatYAML
	}

	data, err := encode(s, format)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set settings permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace settings: %w", err)
	}
	return nil
}

func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "gamedeck"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "gamedeck"), nil
}

func dataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "gamedeck"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "gamedeck"), nil
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
