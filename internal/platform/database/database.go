package database

import (
	"database/sql"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"releaseguard/internal/platform/config"
)

type Dialect string

const (
	SQLite   Dialect = "sqlite3"
	Postgres Dialect = "pgx"
)

// DB is the Account Store connection together with the SQL dialect it speaks.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// DialectFor picks the driver for a database URL. postgres:// URLs go to pgx,
// everything else is treated as a SQLite path with an optional file: prefix.
func DialectFor(url string) (Dialect, string) {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return Postgres, url
	}
	return SQLite, strings.TrimPrefix(url, "file:")
}

func Open(cfg config.DatabaseConfig) (*DB, error) {
	dialect, dsn := DialectFor(cfg.URL)

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, err
	}

	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{DB: db, Dialect: dialect}, nil
}
