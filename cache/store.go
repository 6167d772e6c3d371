package cache

import (
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Entry 一次可缓存响应
type Entry struct {
	Data        []byte
	ContentType string
	Encoding    string
}

// OutputCache 持久缓存表结构
type OutputCache struct {
	Key         string `gorm:"primaryKey;size:512"`
	Data        []byte `gorm:"not null"`
	ContentType string `gorm:"size:64"`
	Encoding    string `gorm:"size:20"`
	UpdatedAt   time.Time
}

// Store SQLite持久输出缓存
type Store struct {
	db *gorm.DB
	mu sync.RWMutex
}

var (
	storeInstance *Store
	storeOnce     sync.Once
)

// OpenStore 打开(或创建)持久缓存库，进程内单例
func OpenStore(path string) (*Store, error) {
	var err error
	storeOnce.Do(func() {
		storeInstance, err = newStore(path)
	})
	if err != nil {
		return nil, err
	}
	return storeInstance, nil
}

func newStore(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open output cache db: %w", err)
	}
	if err := db.AutoMigrate(&OutputCache{}); err != nil {
		return nil, fmt.Errorf("migrate output cache: %w", err)
	}
	return &Store{db: db}, nil
}

// Get 读取缓存项
// 返回: entry, found, error
func (s *Store) Get(key string) (*Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var row OutputCache
	result := s.db.Where("key = ?", key).First(&row)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, false, nil
		}
		return nil, false, result.Error
	}
	return &Entry{Data: row.Data, ContentType: row.ContentType, Encoding: row.Encoding}, true, nil
}

// Set 写入缓存项，冲突时更新
func (s *Store) Set(key string, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := OutputCache{
		Key:         key,
		Data:        entry.Data,
		ContentType: entry.ContentType,
		Encoding:    entry.Encoding,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}).Create(&row).Error
}
