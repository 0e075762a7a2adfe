package database

import "chirp/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Post{},
		&models.Like{},
		&models.Account{},
	}
}
