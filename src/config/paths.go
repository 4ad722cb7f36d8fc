package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// StoragePaths contains paths for application storage
type StoragePaths struct {
	DatabasePath string
	BookRoot     string
}

// GetDefaultStoragePaths returns default storage paths using XDG base directories
func GetDefaultStoragePaths() StoragePaths {
	return StoragePaths{
		// state, not data: the database holds conversations
		DatabasePath: filepath.Join(xdg.StateHome, "booktutor", "booktutor.db"),
		BookRoot:     filepath.Join(xdg.DataHome, "booktutor", "books"),
	}
}
