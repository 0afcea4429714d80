package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"homescope/server/internal/models"
	"homescope/server/internal/storage"
)

// Database is the SQLite-backed property store.
type Database struct {
	db     *gorm.DB
	logger *logrus.Logger
}

var _ storage.PropertyStore = (*Database)(nil)

func NewDatabase(dbPath string, logger *logrus.Logger) (*Database, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Every pooled connection waits on locks held by the import processor
	// instead of failing with SQLITE_BUSY.
	dsn := dbPath + "?_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL&_txlock=immediate"

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.New(logger, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{db: db, logger: logger}, nil
}

func (d *Database) GetDB() *gorm.DB {
	return d.db
}

func (d *Database) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	var p models.Property
	err := d.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get property %s: %w", id, err)
	}
	return &p, nil
}

func (d *Database) FindCandidates(ctx context.Context, criteria models.CandidateCriteria) ([]models.Property, error) {
	if criteria.Limit <= 0 {
		return []models.Property{}, nil
	}

	query := d.db.WithContext(ctx).
		Where("price BETWEEN ? AND ?", criteria.MinPrice, criteria.MaxPrice).
		Where("bedrooms BETWEEN ? AND ?", criteria.MinBedrooms, criteria.MaxBedrooms)

	if criteria.City != "" {
		query = query.Where("city = ?", criteria.City)
	}
	if len(criteria.Statuses) > 0 {
		query = query.Where("status IN ?", criteria.StatusStrings())
	}
	if len(criteria.ExcludeIDs) > 0 {
		query = query.Where("id NOT IN ?", criteria.ExcludeIDs)
	}

	var properties []models.Property
	err := query.
		Order("price ASC").
		Order("id ASC").
		Limit(criteria.Limit).
		Find(&properties).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	return properties, nil
}

func (d *Database) ListProperties(ctx context.Context, filter models.ListFilter) ([]models.Property, error) {
	query := d.db.WithContext(ctx)
	if filter.City != "" {
		query = query.Where("LOWER(city) = LOWER(?)", filter.City)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var properties []models.Property
	if err := query.Order("price ASC").Order("id ASC").Find(&properties).Error; err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	return properties, nil
}

func (d *Database) CreateProperty(ctx context.Context, p *models.Property) error {
	if err := p.Validate(); err != nil {
		return err
	}

	err := d.db.WithContext(ctx).Create(p).Error
	if isDuplicateKeyError(err) {
		return storage.ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("failed to insert property: %w", err)
	}
	return nil
}

// UpsertProperties writes a batch of properties in a single transaction
func (d *Database) UpsertProperties(ctx context.Context, batch []*models.Property) error {
	for _, p := range batch {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("property %q: %w", p.ID, err)
		}
	}

	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return UpsertProperties(tx, batch)
	})
}

// UpsertProperties inserts or replaces properties by ID using the given transaction
func UpsertProperties(tx *gorm.DB, batch []*models.Property) error {
	if len(batch) == 0 {
		return nil
	}

	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&batch).Error
	if err != nil {
		return fmt.Errorf("failed to upsert properties: %w", err)
	}
	return nil
}

func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}

	// gorm may surface the driver error as text only
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
