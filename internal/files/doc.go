// Package files publishes output documents.
//
// Manager stages each document in a temp file next to its destination and
// renames all of them into place on Commit:
//
//	manager := files.NewManager(paths, logger)
//	if err := manager.WriteAtomic(config.GroupedFileName, grouped); err != nil {
//	    manager.Rollback()
//	    return err
//	}
//	return manager.Commit()
package files
