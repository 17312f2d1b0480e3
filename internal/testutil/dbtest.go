package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"election-insights/pkg/database"
)

// DBTest is a real MySQL connection for integration tests. It uses
// DATABASE_URL_TEST, falling back to DATABASE_URL, and skips the test when
// neither is set.
type DBTest struct {
	T   *testing.T
	DB  *database.DB
	SQL *sql.DB
}

func NewDBTest(t *testing.T) *DBTest {
	t.Helper()
	url := os.Getenv("DATABASE_URL_TEST")
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		t.Skip("DATABASE_URL_TEST or DATABASE_URL not set; skipping integration tests")
	}
	db, err := database.New(url)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	d := &DBTest{T: t, DB: db, SQL: db.Conn()}
	t.Cleanup(d.Close)
	return d
}

func (d *DBTest) Close() {
	_ = d.DB.Close()
}

// Truncate empties the refresh log.
func (d *DBTest) Truncate() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := d.SQL.ExecContext(ctx, "DELETE FROM data_refreshes"); err != nil {
		d.T.Fatalf("truncate data_refreshes: %v", err)
	}
}

// WithTx runs fn inside a transaction that is always rolled back.
func (d *DBTest) WithTx(fn func(tx *sql.Tx)) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	tx, err := d.SQL.BeginTx(ctx, nil)
	if err != nil {
		d.T.Fatalf("begin tx: %v", err)
	}
	defer tx.Rollback()
	fn(tx)
}
