// Package db はgorm接続の確立とマイグレーションを提供します。
package db

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	authentity "task_backend/internal/feature/auth/domain/entity"
	taskentity "task_backend/internal/feature/tasks/domain/entity"
	"task_backend/internal/platform/config"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// retryInterval は接続リトライの間隔です。テストで短縮します。
var retryInterval = 3 * time.Second

// Opener はDSNからgorm接続を開く関数です。
type Opener func(dsn string) (*gorm.DB, error)

// BuildDSN はPostgreSQL用の接続URLを組み立てます。
func BuildDSN(cfg config.DB) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, cfg.Port),
		Path:   "/" + cfg.Name,
	}
	q := url.Values{}
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// ConnectWithRetry はtimeoutまでretryInterval間隔で接続を試みます。
// DBコンテナの起動待ちに使います。
func ConnectWithRetry(dsn string, timeout time.Duration, open Opener) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for {
		db, err := open(dsn)
		if err == nil {
			return db, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("DB connect failed after %s: %w", timeout, err)
		}
		slog.Warn("DB connect failed, retrying", "error", err, "interval", retryInterval)
		time.Sleep(retryInterval)
	}
}

// slowQueryThreshold を超えたクエリはWarnで記録します。
const slowQueryThreshold = 200 * time.Millisecond

// gormConfig は一意制約違反をgorm.ErrDuplicatedKeyに変換し、遅いクエリとエラーだけをslog経由で記録します。
// record not foundは通常の分岐なので記録せず、SQLの値（メールアドレスなど）も出力しません。
func gormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(slog.Default()),
	}
}

func newGormLogger(l *slog.Logger) logger.Interface {
	return logger.New(slog.NewLogLogger(l.Handler(), slog.LevelWarn), logger.Config{
		SlowThreshold:             slowQueryThreshold,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		ParameterizedQueries:      true,
	})
}

// OpenDB はcfg.Driverに応じてPostgreSQLまたはSQLiteに接続します。
func OpenDB(cfg config.DB) (*gorm.DB, error) {
	switch cfg.Driver {
	case DriverPostgres:
		return ConnectWithRetry(BuildDSN(cfg), cfg.ConnectTimeout, func(dsn string) (*gorm.DB, error) {
			db, err := gorm.Open(postgres.Open(dsn), gormConfig())
			if err != nil {
				return nil, err
			}
			// gorm.Openは遅延接続のことがあるため、ここで疎通を確認する
			sqlDB, err := db.DB()
			if err != nil {
				return nil, err
			}
			if err := sqlDB.Ping(); err != nil {
				_ = sqlDB.Close()
				return nil, err
			}
			return db, nil
		})
	case DriverSQLite:
		return OpenSQLite(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown DB driver %q", cfg.Driver)
	}
}

// OpenSQLite はSQLiteに接続します。":memory:"はテストと一時起動用です。
// SQLiteは書き込みを直列化するため接続を1本に制限し、外部キー制約を有効にします。
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(sqliteDSN(path)), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %q: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// sqliteDSN はSQLiteの外部キー制約（既定で無効）を接続ごとに有効にするパラメータを付けます。
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=1"
}

// Migrate はユーザーとタスクのテーブルを作成・更新します。
func Migrate(db *gorm.DB) error {
	// マイグレーション（User, Task）
	if err := db.AutoMigrate(
		&authentity.User{},
		&taskentity.Task{},
	); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}
