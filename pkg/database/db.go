// Package database keeps the optional MySQL refresh log: one row per data
// refresh with its trigger, outcome and timing.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"election-insights/internal/constants"
	"election-insights/pkg/config"
	errs "election-insights/pkg/errors"

	"github.com/go-sql-driver/mysql"
)

type DB struct {
	conn         *sql.DB
	stmts        map[string]*sql.Stmt
	readTimeout  time.Duration
	writeTimeout time.Duration
}

const schema = `CREATE TABLE IF NOT EXISTS data_refreshes (
    id          BIGINT AUTO_INCREMENT PRIMARY KEY,
    kind        VARCHAR(16)  NOT NULL,
    fresh       TINYINT(1)   NOT NULL DEFAULT 0,
    source      VARCHAR(32)  NOT NULL,
    rows_written INT         NOT NULL DEFAULT 0,
    error       TEXT         NULL,
    started_at  DATETIME(3)  NOT NULL,
    finished_at DATETIME(3)  NULL,
    INDEX idx_data_refreshes_started (started_at)
)`

// normalizeDSN forces parseTime so DATETIME columns scan into time.Time, in UTC.
func normalizeDSN(databaseURL string) (string, error) {
	cfg, err := mysql.ParseDSN(databaseURL)
	if err != nil {
		return "", errs.NewValidation("database.normalizeDSN", "invalid DATABASE_URL", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

func New(databaseURL string) (*DB, error) {
	dsn, err := normalizeDSN(databaseURL)
	if err != nil {
		return nil, err
	}
	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(10 * time.Minute)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	return open(conn, constants.DBReadTimeoutDefault, constants.DBWriteTimeoutDefault)
}

// NewWithConfig creates a database connection with the pool settings from cfg.
func NewWithConfig(databaseURL string, cfg *config.Config) (*DB, error) {
	dsn, err := normalizeDSN(databaseURL)
	if err != nil {
		return nil, err
	}
	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	conn.SetMaxOpenConns(cfg.DBMaxOpenConns)
	conn.SetMaxIdleConns(cfg.DBMaxIdleConns)
	conn.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetime) * time.Minute)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	return open(conn, constants.DBReadTimeoutDefault, constants.DBWriteTimeoutDefault)
}

// open pings, creates the schema and prepares statements. The connection is
// closed on any failure.
func open(conn *sql.DB, rt, wt time.Duration) (*DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), wt)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, errs.NewDB("database.open", "failed to reach database", err)
	}
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		conn.Close()
		return nil, errs.NewDB("database.open", "failed to create data_refreshes table", err)
	}

	db := &DB{
		conn:         conn,
		stmts:        make(map[string]*sql.Stmt),
		readTimeout:  rt,
		writeTimeout: wt,
	}
	if err := db.prepareStatements(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// prepareStatements prepares the refresh log writes.
func (db *DB) prepareStatements(ctx context.Context) error {
	statements := map[string]string{
		"insertRefresh": `INSERT INTO data_refreshes (kind, fresh, source, started_at) VALUES (?, ?, ?, ?)`,
		"finishRefresh": `UPDATE data_refreshes SET rows_written = ?, error = ?, finished_at = ? WHERE id = ?`,
	}

	for name, query := range statements {
		stmt, err := db.conn.PrepareContext(ctx, query)
		if err != nil {
			return errs.NewDB("database.prepareStatements", fmt.Sprintf("failed to prepare statement %s", name), err)
		}
		db.stmts[name] = stmt
	}
	return nil
}

// Close closes database connection and prepared statements
func (db *DB) Close() error {
	for _, stmt := range db.stmts {
		stmt.Close()
	}
	return db.conn.Close()
}

// Conn exposes the pool for health checks.
func (db *DB) Conn() *sql.DB { return db.conn }

// withReadTimeout creates a context with standard read timeout.
func (db *DB) withReadTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, db.readTimeout)
}

// withWriteTimeout creates a context with standard write timeout.
func (db *DB) withWriteTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, db.writeTimeout)
}
