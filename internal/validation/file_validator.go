package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"vstupcli/internal/config"
	apperrors "vstupcli/internal/errors"
)

// FileValidator checks the processor's input workbook and output directory
// before any work is done
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateInputFile checks that path is a readable workbook. A missing file
// is reported as a NOT_FOUND AppError carrying the path.
func (v *FileValidator) ValidateInputFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("Input workbook does not exist",
			slog.String("file", path))
		return apperrors.NewNotFoundError(path)
	}
	if err != nil {
		v.logger.Error("Failed to stat input workbook",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("failed to stat %s", path), err).
			WithContext(apperrors.ContextPath, path)
	}
	if info.IsDir() {
		v.logger.Error("Input path is a directory, not a file",
			slog.String("path", path))
		return apperrors.NewAppValidationError(fmt.Sprintf("%s is a directory, not a file", path), nil).
			WithContext(apperrors.ContextPath, path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != config.WorkbookExtension {
		v.logger.Error("Input file is not an xlsx workbook",
			slog.String("file", path),
			slog.String("extension", ext))
		return apperrors.NewAppValidationError(
			fmt.Sprintf("file %s is not an xlsx workbook (extension: %q)", path, ext), nil).
			WithContext(apperrors.ContextPath, path)
	}

	if strings.HasPrefix(filepath.Base(path), "~$") {
		v.logger.Warn("Refusing Excel lock file",
			slog.String("file", path))
		return apperrors.NewAppValidationError(fmt.Sprintf("file %s is a temporary Excel file", path), nil).
			WithContext(apperrors.ContextPath, path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("Input workbook is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("file %s is not readable", path), err).
			WithContext(apperrors.ContextPath, path)
	}
	file.Close()

	v.logger.Debug("Input workbook validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputDirectory ensures the output directory exists or can be
// created, and that files can be created in it
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		v.logger.Error("Output path is not a directory",
			slog.String("path", dir))
		return apperrors.NewStorageError(fmt.Sprintf("%s is not a directory", dir), nil).
			WithContext(apperrors.ContextPath, dir)
	}

	if err := os.MkdirAll(dir, config.DefaultDirPerm); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("failed to create output directory %s", dir), err).
			WithContext(apperrors.ContextPath, dir)
	}

	probe, err := os.CreateTemp(dir, config.TempFilePattern)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("output directory %s is not writable", dir), err).
			WithContext(apperrors.ContextPath, dir)
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}
