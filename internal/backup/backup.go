// Package backup keeps JSON snapshots of the catalog taken before
// reconciliation passes.
package backup

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/adamancini/gamedeck/internal/catalog"
	"github.com/adamancini/gamedeck/internal/output"
)

// Latest selects the most recent backup in Get.
const Latest = "latest"

// Backup represents a single catalog snapshot.
type Backup struct {
	ID        string            `json:"id"`
	CreatedAt time.Time         `json:"created_at"`
	Note      string            `json:"note,omitempty"`
	Version   string            `json:"gamedeck_version"`
	Catalog   *catalog.Snapshot `json:"catalog"`
}

// BackupInfo provides summary information about a backup for listing.
type BackupInfo struct {
	ID        string    `json:"id" yaml:"id"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Note      string    `json:"note,omitempty" yaml:"note,omitempty"`
	Games     int       `json:"games" yaml:"games"`
	Size      int64     `json:"size" yaml:"size"`
}

// List is a set of backups as shown by `backup list`.
type List []BackupInfo

// RenderText prints a table of backups.
func (l List) RenderText(w io.Writer) error {
	if len(l) == 0 {
		_, err := fmt.Fprintln(w, "No backups.")
		return err
	}
	t := output.NewTable(w, "ID", "CREATED", "GAMES", "NOTE")
	for _, b := range l {
		t.Row(b.ID, b.CreatedAt.Local().Format(time.DateTime), fmt.Sprintf("%d", b.Games), b.Note)
	}
	return t.Flush()
}

// Manager handles backup operations.
type Manager struct {
	backupDir string
	version   string
	now       func() time.Time
}

// NewManager creates a backup manager for the default directory.
func NewManager(version string) (*Manager, error) {
	backupDir, err := getBackupDir()
	if err != nil {
		return nil, err
	}
	return NewManagerWithDir(backupDir, version), nil
}

// NewManagerWithDir creates a backup manager with a custom directory.
func NewManagerWithDir(backupDir, version string) *Manager {
	return &Manager{
		backupDir: backupDir,
		version:   version,
		now:       time.Now,
	}
}

// getBackupDir returns the default backup directory path.
func getBackupDir() (string, error) {
	// Use XDG_CACHE_HOME or default to ~/.cache
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to determine home directory: %w", err)
		}
		cacheDir = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheDir, "gamedeck", "backups"), nil
}

// Create writes a backup of snap.
func (m *Manager) Create(snap *catalog.Snapshot, note string) (*Backup, error) {
	if snap == nil {
		snap = &catalog.Snapshot{}
	}
	if err := os.MkdirAll(m.backupDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	// Two passes can start within the same second.
	now := m.now()
	id := now.Format("2006-01-02-150405") + "-" + uuid.NewString()[:8]

	backup := &Backup{
		ID:        id,
		CreatedAt: now,
		Note:      note,
		Version:   m.version,
		Catalog:   snap,
	}

	data, err := json.MarshalIndent(backup, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal backup: %w", err)
	}

	if err := os.WriteFile(m.path(id), data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write backup file: %w", err)
	}

	return backup, nil
}

// List returns all backups sorted by creation time, newest first.
// Unreadable files are skipped.
func (m *Manager) List() (List, error) {
	entries, err := os.ReadDir(m.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return List{}, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	backups := List{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		backup, err := m.loadBackup(filepath.Join(m.backupDir, entry.Name()))
		if err != nil {
			continue
		}

		backups = append(backups, BackupInfo{
			ID:        backup.ID,
			CreatedAt: backup.CreatedAt,
			Note:      backup.Note,
			Games:     len(backup.Catalog.All()),
			Size:      info.Size(),
		})
	}

	sort.SliceStable(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})

	return backups, nil
}

// Get retrieves a backup by ID. Latest selects the most recent backup.
func (m *Manager) Get(id string) (*Backup, error) {
	if id == Latest {
		backups, err := m.List()
		if err != nil {
			return nil, err
		}
		if len(backups) == 0 {
			return nil, fmt.Errorf("no backups found")
		}
		id = backups[0].ID
	}

	return m.loadBackup(m.path(id))
}

// Delete removes a backup by ID.
func (m *Manager) Delete(id string) error {
	path := m.path(id)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("backup not found: %s", id)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete backup: %w", err)
	}

	return nil
}

func (m *Manager) path(id string) string {
	return filepath.Join(m.backupDir, filepath.Base(id)+".json")
}

// loadBackup reads and parses a backup file.
func (m *Manager) loadBackup(path string) (*Backup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("backup not found: %s", filepath.Base(path))
		}
		return nil, fmt.Errorf("failed to read backup file: %w", err)
	}

	var backup Backup
	if err := json.Unmarshal(data, &backup); err != nil {
		return nil, fmt.Errorf("failed to parse backup file: %w", err)
	}
	if backup.Catalog == nil {
		backup.Catalog = &catalog.Snapshot{}
	}

	return &backup, nil
}

// BackupDir returns the backup directory path.
func (m *Manager) BackupDir() string {
	return m.backupDir
}
