package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Snapshot is one row of the snapshot table. UpdatedAt holds unix seconds
// so reading a row does not depend on the DSN's parseTime setting.
type Snapshot struct {
	Key       string `gorm:"column:snapshot_key;primaryKey;size:191"`
	Value     []byte `gorm:"column:value;not null"`
	UpdatedAt int64  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Snapshot) TableName() string {
	return "ledger_snapshots"
}

// SQLStore keeps snapshots in a single table through gorm.
type SQLStore struct {
	db *gorm.DB
}

// OpenSQL connects to driver ("sqlite" or "mysql") with dsn and migrates the
// snapshot table. logLevel is one of silent, error, warn or info.
func OpenSQL(driver, dsn, logLevel string) (*SQLStore, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(logLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", driver, err)
	}
	return NewSQLStore(db)
}

// NewSQLStore wraps an open gorm connection and migrates the snapshot table.
func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&Snapshot{}); err != nil {
		return nil, fmt.Errorf("failed to migrate snapshot table: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return logger.Silent
	}
}

func (s *SQLStore) Load(key string) ([]byte, error) {
	var row Snapshot
	err := s.db.First(&row, "snapshot_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage error reading %s: %w", key, err)
	}
	return row.Value, nil
}

func (s *SQLStore) Save(key string, data []byte) error {
	row := Snapshot{Key: key, Value: data, UpdatedAt: time.Now().Unix()}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "snapshot_key"}}, // conflict key
		UpdateAll: true,                                    // replace the blob on conflict
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("storage error writing %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
