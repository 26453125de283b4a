package database

import (
	"os"
	"path/filepath"

	"sftpfind/internal/history"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// InitDB opens the history database at path, creating its directory and schema.
func InitDB(path string) (*gorm.DB, error) {
	var err error

	dbDir := filepath.Dir(path)
	if err := os.MkdirAll(dbDir, 0700); err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})

	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(&history.Run{})

	if err != nil {
		_ = CloseDB(db)
		return nil, err
	}

	return db, nil
}

func CloseDB(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()

	if err != nil {
		return err
	}

	return sqlDB.Close()
}
