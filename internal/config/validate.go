package config

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// ValidationError represents a settings validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the settings for valid values.
func Validate(s *Settings) error {
	var errors []string

	for i, f := range s.EpicLibraryFolders {
		if strings.TrimSpace(f) == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("epic_library_folders[%d]", i),
				Message: "folder cannot be empty",
			}.Error())
		}
	}

	if s.BackendPort < 0 || s.BackendPort > 65535 {
		errors = append(errors, ValidationError{
			Field:   "backend_port",
			Message: fmt.Sprintf("port %d out of range (1-65535)", s.BackendPort),
		}.Error())
	}

	if s.BackendPort != 0 && s.BackendIP == "" {
		errors = append(errors, ValidationError{
			Field:   "backend_ip",
			Message: "backend_ip is required when backend_port is set",
		}.Error())
	}

	if s.Import.MinSizeBytes < 0 {
		errors = append(errors, ValidationError{
			Field:   "import.min_size_bytes",
			Message: "must not be negative",
		}.Error())
	}

	if s.Logging.Level != "" {
		if _, err := logrus.ParseLevel(s.Logging.Level); err != nil {
			errors = append(errors, ValidationError{
				Field:   "logging.level",
				Message: err.Error(),
			}.Error())
		}
	}

	switch s.Logging.Format {
	case "", "text", "json":
	default:
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid format '%s' (must be text or json)", s.Logging.Format),
		}.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}
