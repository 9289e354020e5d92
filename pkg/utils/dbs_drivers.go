package utils

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "pg"
)

// memoryDSN 默认内存库，进程内共享
const memoryDSN = "file::memory:?cache=shared"

// dialectorFor resolves the gorm dialector of a driver name
func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch strings.ToLower(driver) {
	case DriverMySQL:
		return mysql.Open(dsn), nil
	case DriverPostgres, "postgres", "postgresql":
		return postgres.Open(dsn), nil
	case DriverSQLite, "sqlite3", "":
		if dsn == "" {
			dsn = memoryDSN
		}
		return sqlite.Open(dsn), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

func isMemorySQLite(driver, dsn string) bool {
	switch strings.ToLower(driver) {
	case DriverSQLite, "sqlite3", "":
		return dsn == "" || strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
	}
	return false
}

// afterOpen 连接建立后的方言修正
func afterOpen(db *gorm.DB, driver string) {
	if strings.ToLower(driver) != DriverMySQL {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	// 定义 JSON 里有中文，统一 utf8mb4；老版本 MySQL 不认 COLLATE 时退回
	if _, err := sqlDB.Exec("SET NAMES utf8mb4 COLLATE utf8mb4_unicode_ci"); err != nil {
		_, _ = sqlDB.Exec("SET NAMES utf8mb4")
	}
}
