package files

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"vstupcli/internal/config"
)

const backupSuffix = ".bak"

// stagedFile is a fully written temp file waiting to be renamed into place
type stagedFile struct {
	tmp  string
	dest string
}

// Manager publishes output documents atomically. Content is staged in temp
// files inside the output directory and renamed over the destinations only
// on Commit, so readers never observe a partially written document or a mix
// of old and new documents after a failed Commit.
type Manager struct {
	paths  *config.Paths
	logger *slog.Logger
	staged []stagedFile
}

// NewManager creates a new file manager for the given output paths
func NewManager(paths *config.Paths, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{paths: paths, logger: logger}
}

// WriteAtomic stages data for path. Relative paths resolve against the
// output directory. Nothing is visible at path until Commit.
func (m *Manager) WriteAtomic(path string, data []byte) error {
	dest := m.resolvePath(path)
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, config.DefaultDirPerm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, config.TempFilePattern)
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file for %s: %w", dest, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp file for %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file for %s: %w", dest, err)
	}
	// CreateTemp uses 0600
	if err := os.Chmod(tmpName, config.DefaultFilePerm); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set permissions on %s: %w", tmpName, err)
	}

	m.staged = append(m.staged, stagedFile{tmp: tmpName, dest: dest})
	m.logger.Debug("Staged file",
		slog.String("dest", dest),
		slog.String("tmp", tmpName),
		slog.Int("size_bytes", len(data)))
	return nil
}

// Commit renames every staged file into place in staging order. An existing
// destination is moved aside first; if any rename fails, the files already
// published are removed and the previous versions restored, so either every
// staged file is published or none is.
func (m *Manager) Commit() error {
	done := make([]committedFile, 0, len(m.staged))
	for i, f := range m.staged {
		backup, err := m.moveAside(f.dest)
		if err == nil {
			if err = os.Rename(f.tmp, f.dest); err != nil && backup != "" {
				done = append(done, committedFile{backup: backup, dest: f.dest, restoreOnly: true})
			}
		}
		if err != nil {
			m.restore(done)
			m.staged = m.staged[i:]
			m.Rollback()
			return fmt.Errorf("failed to publish %s: %w", f.dest, err)
		}
		done = append(done, committedFile{backup: backup, dest: f.dest})
	}

	for _, c := range done {
		if c.backup != "" {
			if err := os.Remove(c.backup); err != nil {
				m.logger.Warn("Failed to remove backup",
					slog.String("backup", c.backup),
					slog.String("error", err.Error()))
			}
		}
		m.logger.Info("Published file", slog.String("path", c.dest))
	}
	m.staged = nil
	return nil
}

// committedFile is a destination replaced during Commit. backup is empty when
// the destination did not exist before.
type committedFile struct {
	dest        string
	backup      string
	restoreOnly bool
}

// moveAside renames an existing regular file at dest to a hidden backup next
// to it and returns the backup path
func (m *Manager) moveAside(dest string) (string, error) {
	info, err := os.Lstat(dest)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to inspect %s: %w", dest, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s exists and is not a regular file", dest)
	}

	backup := filepath.Join(filepath.Dir(dest), "."+filepath.Base(dest)+backupSuffix)
	if err := os.Rename(dest, backup); err != nil {
		return "", fmt.Errorf("failed to move aside %s: %w", dest, err)
	}
	return backup, nil
}

// restore undoes a partial Commit in reverse order
func (m *Manager) restore(done []committedFile) {
	for i := len(done) - 1; i >= 0; i-- {
		c := done[i]
		if !c.restoreOnly {
			if err := os.Remove(c.dest); err != nil && !os.IsNotExist(err) {
				m.logger.Warn("Failed to remove partially published file",
					slog.String("path", c.dest),
					slog.String("error", err.Error()))
			}
		}
		if c.backup == "" {
			continue
		}
		if err := os.Rename(c.backup, c.dest); err != nil {
			m.logger.Error("Failed to restore previous file",
				slog.String("path", c.dest),
				slog.String("backup", c.backup),
				slog.String("error", err.Error()))
			continue
		}
		m.logger.Warn("Restored previous file", slog.String("path", c.dest))
	}
}

// Rollback discards every staged file
func (m *Manager) Rollback() {
	for _, f := range m.staged {
		if err := os.Remove(f.tmp); err != nil && !os.IsNotExist(err) {
			m.logger.Warn("Failed to remove temp file",
				slog.String("tmp", f.tmp),
				slog.String("error", err.Error()))
		}
	}
	m.staged = nil
}

// Pending returns the destinations staged but not yet committed
func (m *Manager) Pending() []string {
	dests := make([]string, len(m.staged))
	for i, f := range m.staged {
		dests[i] = f.dest
	}
	return dests
}

// FileExists checks if a file exists at the given path
func (m *Manager) FileExists(path string) bool {
	_, err := os.Stat(m.resolvePath(path))
	return err == nil
}

// resolvePath resolves a path relative to the output directory
func (m *Manager) resolvePath(path string) string {
	if filepath.IsAbs(path) || m.paths == nil {
		return path
	}
	return filepath.Join(m.paths.OutputDir, path)
}
