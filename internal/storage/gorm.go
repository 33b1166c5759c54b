package storage

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// CredentialKey is the fixed settings key the bearer token lives under.
const CredentialKey = "craftcloud_token"

type Setting struct {
	Key   string `gorm:"primaryKey"`
	Value string
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(path string) (*GormStore, error) {
	newLogger := gormlogger.New(
		log.New(os.Stderr, "", log.LstdFlags),
		gormlogger.Config{
			IgnoreRecordNotFoundError: true,
			LogLevel:                  gormlogger.Error,
		},
	)

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: newLogger})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Setting{}); err != nil {
		return nil, fmt.Errorf("error migrating database: %w", err)
	}

	return &GormStore{db: db}, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) GetSetting(key string) (string, bool, error) {
	var setting Setting
	result := s.db.First(&setting, "key = ?", key)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, result.Error
	}
	return setting.Value, true, nil
}

func (s *GormStore) SetSetting(key string, value string) error {
	return s.db.Save(&Setting{Key: key, Value: value}).Error
}

func (s *GormStore) DeleteSetting(key string) error {
	return s.db.Delete(&Setting{}, "key = ?", key).Error
}

func (s *GormStore) GetCredential() (string, bool, error) {
	token, ok, err := s.GetSetting(CredentialKey)
	if err != nil {
		return "", false, fmt.Errorf("error reading credential: %w", err)
	}
	if !ok || token == "" {
		return "", false, nil
	}
	return token, true, nil
}

func (s *GormStore) SaveCredential(token string) error {
	if token == "" {
		return errors.New("refusing to store empty credential")
	}
	return s.SetSetting(CredentialKey, token)
}

func (s *GormStore) DeleteCredential() error {
	return s.DeleteSetting(CredentialKey)
}
