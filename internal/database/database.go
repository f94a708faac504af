package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"bnb-faucet/internal/config"
	"bnb-faucet/internal/models"
	apperrors "bnb-faucet/pkg/errors"
	"bnb-faucet/pkg/logger"
)

const defaultRetireGrace = 30 * time.Second

// DB 持有 SQLite 连接，是 claims 与 rate_limits 两张表的唯一所有者。
// 读操作直接使用 Conn()，写操作必须经过 Write 以获得重试与修复能力。
type DB struct {
	mu     sync.RWMutex
	conn   *gorm.DB
	cfg    config.DatabaseConfig
	policy RetryPolicy

	// retireGrace 修复后旧连接的保留时间
	retireGrace time.Duration
}

// Open 打开数据库并迁移表结构
func Open(cfg config.DatabaseConfig) (*DB, error) {
	policy := DefaultRetryPolicy()
	if cfg.WriteRetries > 0 {
		policy.MaxAttempts = cfg.WriteRetries
	}
	if cfg.RetryDelay > 0 {
		policy.BaseDelay = time.Duration(cfg.RetryDelay) * time.Millisecond
	}

	d := &DB{cfg: cfg, policy: policy, retireGrace: defaultRetireGrace}
	conn, err := d.open()
	if err != nil {
		return nil, apperrors.New(apperrors.ErrDatabaseConnect,
			fmt.Sprintf("打开数据库失败: %s", cfg.Path), err)
	}
	d.conn = conn

	return d, nil
}

func (d *DB) dsn() string {
	busy := d.cfg.BusyTimeout
	if busy <= 0 {
		busy = 5000
	}
	return fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL", d.cfg.Path, busy)
}

func (d *DB) open() (*gorm.DB, error) {
	conn, err := gorm.Open(sqlite.Open(d.dsn()), &gorm.Config{
		Logger: gormlogger.New(logger.Log, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if d.cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(d.cfg.MaxOpenConns)
	}

	if err := conn.AutoMigrate(models.All()...); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return conn, nil
}

// Conn 返回当前连接，用于只读查询
func (d *DB) Conn() *gorm.DB {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.conn
}

func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return nil
	}
	sqlDB, err := d.conn.DB()
	if err != nil {
		return err
	}
	d.conn = nil
	return sqlDB.Close()
}

// Write 在重试策略下执行写操作。检测到只读存储时先执行 Repair，再额外尝试一次。
func (d *DB) Write(ctx context.Context, fn func(tx *gorm.DB) error) error {
	run := func() error {
		return fn(d.Conn().WithContext(ctx))
	}

	err := d.policy.Do(ctx, run)
	if err == nil || !IsReadOnly(err) {
		return err
	}

	logger.WithFields(map[string]interface{}{
		"path":  d.cfg.Path,
		"error": err.Error(),
	}).Warn("database is read-only, attempting repair")

	if rerr := d.Repair(); rerr != nil {
		return apperrors.New(apperrors.ErrStorage, "数据库修复失败", errors.Join(err, rerr))
	}
	return run()
}

// Repair 修复数据库文件权限并重新初始化连接与表结构。
// 新连接先就位，旧连接在 retireGrace 之后关闭，已经通过 Conn() 拿到旧句柄的读操作可以正常完成。
func (d *DB) Repair() error {
	for _, path := range []string{d.cfg.Path, d.cfg.Path + "-wal", d.cfg.Path + "-shm"} {
		if err := os.Chmod(path, 0o644); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to chmod %s: %w", path, err)
		}
	}

	conn, err := d.open()
	if err != nil {
		return err
	}

	d.mu.Lock()
	old := d.conn
	d.conn = conn
	d.mu.Unlock()

	if old != nil {
		time.AfterFunc(d.retireGrace, func() {
			if sqlDB, err := old.DB(); err == nil {
				sqlDB.Close()
			}
		})
	}

	logger.WithFields(map[string]interface{}{
		"path": d.cfg.Path,
	}).Info("database reinitialized")

	return nil
}

func sqliteCode(err error) (sqlite3.ErrNo, sqlite3.ErrNoExtended, bool) {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code, se.ExtendedCode, true
	}
	return 0, 0, false
}

// IsBusy 判断是否为锁冲突错误
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	if code, _, ok := sqliteCode(err); ok {
		return code == sqlite3.ErrBusy || code == sqlite3.ErrLocked
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}

// IsReadOnly 判断是否为只读存储错误
func IsReadOnly(err error) bool {
	if err == nil {
		return false
	}
	if code, _, ok := sqliteCode(err); ok {
		return code == sqlite3.ErrReadonly
	}
	return strings.Contains(err.Error(), "readonly database")
}

// IsUniqueViolation 判断是否违反唯一约束
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if _, ext, ok := sqliteCode(err); ok {
		return ext == sqlite3.ErrConstraintUnique || ext == sqlite3.ErrConstraintPrimaryKey
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
