package bootstrap

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/code-100-precent/LingSearch/internal/models"
	"github.com/code-100-precent/LingSearch/pkg/config"
	"github.com/code-100-precent/LingSearch/pkg/logger"
	"github.com/code-100-precent/LingSearch/pkg/utils"
	"go.uber.org/zap"

	"gorm.io/gorm"
)

// Options controls database initialization behavior
type Options struct {
	// InitSQLPath points to a .sql script file (optional); skip if empty
	InitSQLPath string
	// AutoMigrate whether to migrate the definition tables (default true)
	AutoMigrate bool
}

// SetupDatabase connects the database, runs the optional init script and
// migrates the definition tables
func SetupDatabase(cfg *config.Config, logWriter io.Writer, opts *Options) (*gorm.DB, error) {
	if opts == nil {
		opts = &Options{AutoMigrate: true}
	}

	// 1) Connect to database
	db, err := utils.InitDatabase(logWriter, cfg.DBDriver, cfg.DSN)
	if err != nil {
		logger.Error("init database failed", zap.Error(err))
		return nil, err
	}

	// 2) Optional: execute initialization SQL
	if opts.InitSQLPath != "" {
		if err := RunInitSQL(db, opts.InitSQLPath); err != nil {
			logger.Error("run init sql failed", zap.String("path", opts.InitSQLPath), zap.Error(err))
			return nil, err
		}
	}

	// 3) Migrate entities
	if opts.AutoMigrate {
		if err := RunMigrations(db); err != nil {
			logger.Error("migration failed", zap.Error(err))
			return nil, err
		}
		logger.Info("migration success", zap.String("database", cfg.DBDriver))
	}

	logger.Info("system bootstrap - database is initialization complete")
	return db, nil
}

// maxSQLLine bounds one line of an init script
const maxSQLLine = 1 << 20

// RunInitSQL runs the statements of an init script in one transaction, so a
// failing statement leaves the definition tables untouched. Scripts meant to
// run on every boot should guard with IF NOT EXISTS.
func RunInitSQL(db *gorm.DB, sqlFilePath string) error {
	f, err := os.Open(sqlFilePath)
	if err != nil {
		return err
	}
	defer f.Close()

	stmts, err := splitSQL(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", sqlFilePath, err)
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for i, stmt := range stmts {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("%s: statement %d: %w", sqlFilePath, i+1, err)
			}
		}
		return nil
	})
}

// splitSQL cuts a script into statements at lines ending with ';'.
// Blank lines and lines starting with "--" or "#" are dropped; a trailing
// statement may omit the semicolon.
func splitSQL(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSQLLine)

	var (
		stmts []string
		cur   strings.Builder
	)
	emit := func() {
		if stmt := strings.TrimSpace(cur.String()); stmt != "" {
			stmts = append(stmts, stmt)
		}
		cur.Reset()
	}
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") || strings.HasPrefix(line, "#") {
			continue
		}
		cur.WriteString(line)
		cur.WriteByte('\n')
		if strings.HasSuffix(line, ";") {
			emit()
		}
	}
	emit()
	return stmts, scanner.Err()
}

// RunMigrations migrates the index and synonym map definition tables
func RunMigrations(db *gorm.DB) error {
	if db == nil {
		return errors.New("db is nil")
	}
	return utils.MakeMigrates(db, models.Models())
}
