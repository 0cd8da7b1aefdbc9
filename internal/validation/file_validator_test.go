package validation

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "vstupcli/internal/errors"
)

func TestFileValidator_ValidateInputFile(t *testing.T) {
	tests := []struct {
		name          string
		setupFunc     func(t *testing.T) string
		wantErr       bool
		wantType      apperrors.ErrorType
		errorContains string
	}{
		{
			name: "valid workbook",
			setupFunc: func(t *testing.T) string {
				file := filepath.Join(t.TempDir(), "vstup_2024.xlsx")
				require.NoError(t, os.WriteFile(file, []byte("PK"), 0644))
				return file
			},
		},
		{
			name: "upper case extension",
			setupFunc: func(t *testing.T) string {
				file := filepath.Join(t.TempDir(), "VSTUP.XLSX")
				require.NoError(t, os.WriteFile(file, []byte("PK"), 0644))
				return file
			},
		},
		{
			name: "missing file",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "absent.xlsx")
			},
			wantErr:       true,
			wantType:      apperrors.ErrTypeNotFound,
			errorContains: "not found",
		},
		{
			name: "directory",
			setupFunc: func(t *testing.T) string {
				dir := filepath.Join(t.TempDir(), "book.xlsx")
				require.NoError(t, os.Mkdir(dir, 0755))
				return dir
			},
			wantErr:       true,
			wantType:      apperrors.ErrTypeValidation,
			errorContains: "is a directory",
		},
		{
			name: "csv instead of xlsx",
			setupFunc: func(t *testing.T) string {
				file := filepath.Join(t.TempDir(), "vstup.csv")
				require.NoError(t, os.WriteFile(file, []byte("a,b"), 0644))
				return file
			},
			wantErr:       true,
			wantType:      apperrors.ErrTypeValidation,
			errorContains: "not an xlsx workbook",
		},
		{
			name: "excel lock file",
			setupFunc: func(t *testing.T) string {
				file := filepath.Join(t.TempDir(), "~$vstup.xlsx")
				require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
				return file
			},
			wantErr:       true,
			wantType:      apperrors.ErrTypeValidation,
			errorContains: "temporary Excel file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := NewFileValidator(slog.Default())
			path := tt.setupFunc(t)

			err := validator.ValidateInputFile(path)

			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantType, apperrors.TypeOf(err))
			assert.Contains(t, err.Error(), tt.errorContains)

			appErr, ok := apperrors.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, path, appErr.Context[apperrors.ContextPath])
		})
	}
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	tests := []struct {
		name      string
		setupFunc func(t *testing.T) string
		wantErr   bool
	}{
		{
			name: "existing directory",
			setupFunc: func(t *testing.T) string {
				return t.TempDir()
			},
		},
		{
			name: "nested directory is created",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "a", "b", "data")
			},
		},
		{
			name: "path is a file",
			setupFunc: func(t *testing.T) string {
				file := filepath.Join(t.TempDir(), "data")
				require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
				return file
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := NewFileValidator(nil)
			dir := tt.setupFunc(t)

			err := validator.ValidateOutputDirectory(dir)

			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperrors.ErrTypeStorage, apperrors.TypeOf(err))
				return
			}
			require.NoError(t, err)

			info, err := os.Stat(dir)
			require.NoError(t, err)
			assert.True(t, info.IsDir())

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries, "write probe must not be left behind")
		})
	}
}
