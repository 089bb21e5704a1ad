package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format represents the file format of a settings file.
type Format int

const (
	FormatUnknown Format = iota
	FormatYAML
	FormatTOML
	FormatJSON
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// detectFormat determines the file format based on extension or content.
func detectFormat(path string, content []byte) Format {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	case ".json":
		return FormatJSON
	}

	// Content sniffing for extensionless files
	return sniffFormat(content)
}

// sniffFormat attempts to detect format from content.
func sniffFormat(content []byte) Format {
	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return FormatUnknown
	}

	if strings.HasPrefix(trimmed, "{") {
		return FormatJSON
	}

	// TOML uses key = value and [tables], YAML uses key: value.
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") || strings.Contains(line, " = ") {
			return FormatTOML
		}
		if strings.Contains(line, ":") {
			return FormatYAML
		}
	}

	return FormatUnknown
}

// rawSettings is an intermediate representation for parsing.
// It accepts the camelCase keys of older settings.json files next to the
// current snake_case keys, and a port given as number or string.
type rawSettings struct {
	Version int `yaml:"version" toml:"version" json:"version"`

	EpicLibraryFolders       []string `yaml:"epic_library_folders" toml:"epic_library_folders" json:"epic_library_folders"`
	LegacyEpicLibraryFolders []string `yaml:"epicGamesLibraryFolders" toml:"epicGamesLibraryFolders" json:"epicGamesLibraryFolders"`

	BackendIP       *string `yaml:"backend_ip" toml:"backend_ip" json:"backend_ip"`
	LegacyBackendIP *string `yaml:"backendIP" toml:"backendIP" json:"backendIP"`

	BackendPort       interface{} `yaml:"backend_port" toml:"backend_port" json:"backend_port"`
	LegacyBackendPort interface{} `yaml:"backendPort" toml:"backendPort" json:"backendPort"`

	Username  string          `yaml:"username" toml:"username" json:"username"`
	Database  string          `yaml:"database" toml:"database" json:"database"`
	Legendary LegendaryConfig `yaml:"legendary" toml:"legendary" json:"legendary"`
	Steam     SteamConfig     `yaml:"steam" toml:"steam" json:"steam"`
	Import    ImportConfig    `yaml:"import" toml:"import" json:"import"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging" json:"logging"`
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns in content.
func expandEnvVars(content []byte) []byte {
	return envVarPattern.ReplaceAllFunc(content, func(match []byte) []byte {
		parts := envVarPattern.FindSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		value := os.Getenv(string(parts[1]))
		if value == "" && len(parts) >= 3 && len(parts[2]) > 0 {
			value = string(parts[2])
		}

		return []byte(value)
	})
}

// parse decodes settings content as YAML or TOML.
func parse(content []byte, format Format) (*Settings, error) {
	content = expandEnvVars(content)

	var raw rawSettings

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(content, &raw); err != nil {
			return nil, fmt.Errorf("YAML parse error: %w", err)
		}
	case FormatTOML:
		if err := toml.Unmarshal(content, &raw); err != nil {
			return nil, fmt.Errorf("TOML parse error: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(content, &raw); err != nil {
			return nil, fmt.Errorf("JSON parse error: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown file format")
	}

	s := &Settings{
		Version:            raw.Version,
		EpicLibraryFolders: raw.EpicLibraryFolders,
		Username:           raw.Username,
		Database:           raw.Database,
		Legendary:          raw.Legendary,
		Steam:              raw.Steam,
		Import:             raw.Import,
		Logging:            raw.Logging,
	}

	if s.EpicLibraryFolders == nil {
		s.EpicLibraryFolders = raw.LegacyEpicLibraryFolders
	}

	switch {
	case raw.BackendIP != nil:
		s.BackendIP = *raw.BackendIP
	case raw.LegacyBackendIP != nil:
		s.BackendIP = *raw.LegacyBackendIP
	}

	portValue := raw.BackendPort
	if portValue == nil {
		portValue = raw.LegacyBackendPort
	}
	port, err := toInt(portValue)
	if err != nil {
		return nil, fmt.Errorf("backend_port: %w", err)
	}
	s.BackendPort = int(port)

	s.applyDefaults()
	return s, nil
}

// encode serializes settings in the given format.
func encode(s *Settings, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return nil, fmt.Errorf("YAML encode error: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("YAML encode error: %w", err)
		}
		return buf.Bytes(), nil
	case FormatTOML:
		data, err := toml.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("TOML encode error: %w", err)
		}
		return data, nil
	case FormatJSON:
		data, err := json.MarshalIndent(s, "", "    ")
		if err != nil {
			return nil, fmt.Errorf("JSON encode error: %w", err)
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("unknown file format")
	}
}
