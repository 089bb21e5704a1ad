package cmd

import (
	"io"
	"os"

	"github.com/adamancini/gamedeck/internal/catalog"
	"github.com/adamancini/gamedeck/internal/config"
	"github.com/adamancini/gamedeck/internal/logging"
	"github.com/adamancini/gamedeck/internal/output"
)

// loadSettings resolves and loads the settings file, creating it with
// defaults on first use. Logging is reconfigured from the loaded settings.
func loadSettings(stderr io.Writer) (*config.Settings, string, error) {
	path, err := config.Find(configPath)
	if err != nil {
		return nil, "", err
	}

	settings, created, err := config.LoadOrCreate(path)
	if err != nil {
		return nil, "", err
	}

	logging.Configure(logging.Options{
		Level:   settings.Logging.Level,
		Format:  settings.Logging.Format,
		Verbose: verbose,
		Quiet:   quiet,
		Output:  stderr,
	})
	if created {
		logging.NewLogger("cmd").WithField("path", path).Info("created default settings")
	}
	return settings, path, nil
}

// environment is the settings and catalog a command works against.
type environment struct {
	settingsPath string
	settings     *config.Settings
	store        *catalog.Store
	dbPath       string
}

// openEnvironment loads settings and opens the catalog. The --db flag wins
// over the configured database path.
func openEnvironment(stderr io.Writer) (*environment, error) {
	settings, path, err := loadSettings(stderr)
	if err != nil {
		return nil, err
	}

	db := dbPath
	if db == "" {
		if db, err = settings.DatabasePath(); err != nil {
			return nil, err
		}
	}

	store, err := catalog.Open(db)
	if err != nil {
		return nil, err
	}
	return &environment{settingsPath: path, settings: settings, store: store, dbPath: db}, nil
}

func (e *environment) Close() error {
	return e.store.Close()
}

// newOutputWriter returns a writer for the requested output format.
func newOutputWriter(w io.Writer) (*output.Writer, error) {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	return output.NewWriter(w, format), nil
}

// progressEnabled reports whether progress lines should be printed.
func progressEnabled() bool {
	return !quiet && os.Getenv("GAMEDECK_NO_PROGRESS") == ""
}
