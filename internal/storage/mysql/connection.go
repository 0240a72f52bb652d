package mysql

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	apperrors "github.com/lightlink-network/plugin-lightlink/internal/errors"
)

// Config describes the MySQL connection and pool.
type Config struct {
	DSN             string        `json:"dsn" toml:"dsn"`
	Table           string        `json:"table" toml:"table"`
	MaxOpenConns    int           `json:"max_open_conns" toml:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns" toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" toml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time" toml:"conn_max_idle_time"`
}

func openDatabase(ctx context.Context, cfg Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, apperrors.New(apperrors.CodeConfiguration, "mysql dsn is empty")
	}
	driverCfg, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfiguration, err, "parse mysql dsn")
	}
	connector, err := mysql.NewConnector(driverCfg)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfiguration, err, "build mysql connector")
	}
	db := sql.OpenDB(connector)

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(10)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(5)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, apperrors.Wrap(apperrors.CodeStorageFailure, err, "ping mysql")
	}
	return db, nil
}
