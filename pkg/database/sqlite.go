package database

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// sqliteStore 是 PreferenceStore 接口的 SQLite 实现
type sqliteStore struct {
	db     *sql.DB
	logger *log.Logger
}

const createTableSQL = `
	CREATE TABLE IF NOT EXISTS track_preferences (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL UNIQUE,
		encoding TEXT NOT NULL DEFAULT 'auto',
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

// NewSQLiteStore 初始化 SQLite 数据库并返回 PreferenceStore 接口实例
func NewSQLiteStore(dataSourceName string, logger *log.Logger) (PreferenceStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// 尝试创建表，如果不存在
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close() // 创建表失败也要关闭连接
		return nil, fmt.Errorf("failed to create track_preferences table: %w", err)
	}
	logger.Printf("SQLite database initialized at: %s", dataSourceName)
	return &sqliteStore{db: db, logger: logger}, nil
}

// Close 关闭数据库连接
func (s *sqliteStore) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.logger.Println("SQLite database connection closed.")
		return err
	}
	return nil
}

// EncodingFor 查询曲目的歌词编码偏好，没有记录时返回空字符串
func (s *sqliteStore) EncodingFor(trackPath string) (string, error) {
	var encoding string
	err := s.db.QueryRow("SELECT encoding FROM track_preferences WHERE path = ?", trackPath).Scan(&encoding)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query encoding for %s: %w", trackPath, err)
	}
	return encoding, nil
}

// SetEncoding 记录曲目的歌词编码偏好，已有记录时覆盖
func (s *sqliteStore) SetEncoding(trackPath, encoding string) error {
	_, err := s.db.Exec(`
		INSERT INTO track_preferences (path, encoding, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET encoding = excluded.encoding, updated_at = excluded.updated_at`,
		trackPath, encoding, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set encoding for %s: %w", trackPath, err)
	}
	return nil
}
