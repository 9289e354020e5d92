package utils

import (
	"io"
	"log"
	"os"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PoolConfig sizes the sql.DB connection pool
type PoolConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultPoolConfig returns pool limits for driver/dsn.
// An in-memory sqlite database lives only as long as its connections, so it
// is pinned to a single connection that never expires.
func DefaultPoolConfig(driver, dsn string) PoolConfig {
	if isMemorySQLite(driver, dsn) {
		return PoolConfig{MaxIdleConns: 1, MaxOpenConns: 1}
	}
	return PoolConfig{
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
	}
}

// InitDatabase opens driver/dsn, falling back to DB_DRIVER and DSN
func InitDatabase(logWrite io.Writer, driver, dsn string) (*gorm.DB, error) {
	if driver == "" {
		driver = GetEnv("DB_DRIVER")
	}
	if dsn == "" {
		dsn = GetEnv("DSN")
	}
	dialector, err := dialectorFor(driver, dsn)
	if err != nil {
		return nil, err
	}

	if logWrite == nil {
		logWrite = os.Stdout
	}
	cfg := &gorm.Config{
		Logger: logger.New(log.New(logWrite, "\r\n", log.LstdFlags), logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, err
	}
	afterOpen(db, driver)
	ConfigureConnectionPool(db, DefaultPoolConfig(driver, dsn))
	return db, nil
}

// ConfigureConnectionPool applies pool limits; zero durations leave connections unbounded
func ConfigureConnectionPool(db *gorm.DB, pool PoolConfig) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Failed to get database instance: %v", err)
		return
	}
	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
}

// MakeMigrates auto-migrates every model in order
func MakeMigrates(db *gorm.DB, insts []any) error {
	for _, v := range insts {
		if err := db.AutoMigrate(v); err != nil {
			return err
		}
	}
	return nil
}
