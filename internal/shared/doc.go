// Package shared holds code used across packages without belonging to any
// of them.
//
// The testutil subpackage provides:
//
//	- BufferedSlogHandler, a slog.Handler that captures records for assertions
//	- WorkbookBuilder, which writes admission xlsx fixtures with excelize
//
// Example usage:
//
//	func TestProcess(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    path := testutil.NewWorkbook(testutil.AdmissionHeaders()...).
//	        Row("Іваненко", "Комп'ютерні науки", "Бюджет", "Ч", 185.5, "Фізика", 170).
//	        Save(t, t.TempDir(), "vstup.xlsx")
//	    ...
//	}
package shared
