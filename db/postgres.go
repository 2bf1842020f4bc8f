package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLStore keeps every key in a single gorm-managed table.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore migrates the key-value table and returns a store over it.
func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&KVEntry{}); err != nil {
		return nil, fmt.Errorf("NewSQLStore: failed to migrate kv table: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var entry KVEntry
	err := s.db.WithContext(ctx).Where("name = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: failed to read %s: %w", key, err)
	}
	return []byte(entry.Value), nil
}

func (s *SQLStore) Put(ctx context.Context, key string, value []byte, metadata map[string]string) error {
	entry := KVEntry{
		Name:     key,
		Value:    string(value),
		Metadata: metadata,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "metadata", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("Put: failed to write %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	err := s.db.WithContext(ctx).Model(&KVEntry{}).
		Where(`name LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%").
		Order("name").
		Pluck("name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("List: failed to list %q: %w", prefix, err)
	}

	// LIKE may be case-insensitive on some engines.
	keys := names[:0]
	for _, name := range names {
		if strings.HasPrefix(name, prefix) {
			keys = append(keys, name)
		}
	}
	return keys, nil
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
