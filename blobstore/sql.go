package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/eggybyte-technology/slotx"
)

// Blob is the persistence model: one row per slot key.
type Blob struct {
	Key       string `gorm:"primaryKey;size:255"`
	Value     []byte
	UpdatedAt time.Time
}

// TableName returns the table used for slot blobs.
func (Blob) TableName() string { return "slot_blobs" }

// SQLOptions holds configuration for a SQL-backed store.
type SQLOptions struct {
	Driver          string        // Database driver (mysql, postgres, sqlite)
	DSN             string        // Database connection string
	MaxIdleConns    int           // Maximum number of idle connections
	MaxOpenConns    int           // Maximum number of open connections
	ConnMaxLifetime time.Duration // Maximum connection lifetime
	Logger          *slog.Logger  // Logger for database operations
}

// DefaultSQLOptions returns SQL options with production pool defaults.
func DefaultSQLOptions() SQLOptions {
	return SQLOptions{
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: time.Hour,
	}
}

// SQL is a GORM-backed backing store keeping slot bytes in a key→blob
// table. Lookups are synchronous, matching the slotx.Store contract.
type SQL struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewSQL opens a SQL store with the given options and migrates the blob
// table.
func NewSQL(opts SQLOptions) (*SQL, error) {
	if opts.DSN == "" {
		return nil, fmt.Errorf("blobstore: DSN is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	dialector, err := sqlDialector(opts.Driver, opts.DSN)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: &gormLogAdapter{logger: opts.Logger},
	})
	if err != nil {
		return nil, fmt.Errorf("blobstore: open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("blobstore: underlying sql.DB: %w", err)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := db.AutoMigrate(&Blob{}); err != nil {
		return nil, fmt.Errorf("blobstore: migrate blob table: %w", err)
	}

	return &SQL{db: db, logger: opts.Logger}, nil
}

// NewSQLite opens a SQLite-backed store at dsn.
func NewSQLite(dsn string, log *slog.Logger) (*SQL, error) {
	opts := DefaultSQLOptions()
	opts.Driver = "sqlite"
	opts.DSN = dsn
	opts.Logger = log
	return NewSQL(opts)
}

// NewMySQL opens a MySQL-backed store at dsn.
func NewMySQL(dsn string, log *slog.Logger) (*SQL, error) {
	opts := DefaultSQLOptions()
	opts.Driver = "mysql"
	opts.DSN = dsn
	opts.Logger = log
	return NewSQL(opts)
}

// NewPostgres opens a PostgreSQL-backed store at dsn.
func NewPostgres(dsn string, log *slog.Logger) (*SQL, error) {
	opts := DefaultSQLOptions()
	opts.Driver = "postgres"
	opts.DSN = dsn
	opts.Logger = log
	return NewSQL(opts)
}

// sqlDialector returns the GORM dialector for the given driver name.
func sqlDialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "mysql":
		return mysql.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("blobstore: unsupported driver %q", driver)
	}
}

// Get returns the stored bytes for key. A query failure is reported as a
// miss after logging: the registry substitutes the slot default, keeping
// read passes total.
func (s *SQL) Get(key string) ([]byte, bool) {
	var blob Blob
	err := s.db.Where(&Blob{Key: key}).First(&blob).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("blob lookup failed", "key", key, "error", err)
		}
		return nil, false
	}
	return blob.Value, true
}

// Set upserts a single pair outside of any batch.
func (s *SQL) Set(key string, value []byte) {
	if err := s.upsert(s.db, key, value); err != nil {
		s.logger.Warn("blob upsert failed", "key", key, "error", err)
	}
}

// Apply persists a drained batch in one transaction.
func (s *SQL) Apply(ctx context.Context, batch slotx.MapBatch) error {
	if len(batch) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for key, value := range batch {
			if err := s.upsert(tx, key, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("blobstore: apply batch of %d: %w", len(batch), err)
	}
	return nil
}

func (s *SQL) upsert(db *gorm.DB, key string, value []byte) error {
	blob := Blob{Key: key, Value: value, UpdatedAt: time.Now()}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&blob).Error
}

// Ping checks database connectivity.
func (s *SQL) Ping(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("blobstore: database connection is nil")
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("blobstore: underlying sql.DB: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("blobstore: ping: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQL) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("blobstore: underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// gormLogAdapter adapts slog to GORM's logger interface.
type gormLogAdapter struct {
	logger *slog.Logger
}

func (l *gormLogAdapter) LogMode(logger.LogLevel) logger.Interface { return l }

func (l *gormLogAdapter) Info(_ context.Context, msg string, data ...interface{}) {
	l.logger.Info(fmt.Sprintf(msg, data...))
}

func (l *gormLogAdapter) Warn(_ context.Context, msg string, data ...interface{}) {
	l.logger.Warn(fmt.Sprintf(msg, data...))
}

func (l *gormLogAdapter) Error(_ context.Context, msg string, data ...interface{}) {
	l.logger.Error(fmt.Sprintf(msg, data...))
}

func (l *gormLogAdapter) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		sql, _ := fc()
		l.logger.Debug("query failed", "sql", sql, "error", err)
		return
	}
	if elapsed := time.Since(begin); elapsed > 200*time.Millisecond {
		sql, rows := fc()
		l.logger.Debug("slow query", "sql", sql, "rows", rows, "duration", elapsed)
	}
}
