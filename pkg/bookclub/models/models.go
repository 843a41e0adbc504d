package models

import "gorm.io/gorm"

// AllModels returns all models for migration
// Note: User and Club must be migrated before the join tables that reference them
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Club{},
		&ClubMembership{},
		&ClubJoinRequest{},
		&Event{},
		&EventParticipant{},
	}
}

// AutoMigrate runs GORM auto-migration for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
