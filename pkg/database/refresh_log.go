package database

import (
	"context"
	"database/sql"
	"time"

	"election-insights/internal/constants"
	"election-insights/internal/models"
	errs "election-insights/pkg/errors"
)

// StartRefresh inserts a run and returns its id.
func (db *DB) StartRefresh(ctx context.Context, run *models.RefreshRun) (int64, error) {
	ctx, cancel := db.withWriteTimeout(ctx)
	defer cancel()

	result, err := db.stmts["insertRefresh"].ExecContext(ctx, run.Kind, run.Fresh, run.Source, run.StartedAt.UTC())
	if err != nil {
		return 0, errs.NewDB("StartRefresh", "failed to insert refresh run", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, errs.NewDB("StartRefresh", "failed to get last insert ID", err)
	}
	run.ID = id
	return id, nil
}

// FinishRefresh stores the outcome of run id. A nil runErr marks success.
func (db *DB) FinishRefresh(ctx context.Context, id int64, rows int, finishedAt time.Time, runErr error) error {
	ctx, cancel := db.withWriteTimeout(ctx)
	defer cancel()

	res, err := db.stmts["finishRefresh"].ExecContext(ctx, rows, errorText(runErr), finishedAt.UTC(), id)
	if err != nil {
		return errs.NewDB("FinishRefresh", "failed to update refresh run", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errs.NewNotFound("FinishRefresh", "refresh run not found", nil)
	}
	return nil
}

// ListRefreshes returns the latest runs, newest first.
func (db *DB) ListRefreshes(ctx context.Context, limit int) ([]models.RefreshRun, error) {
	ctx, cancel := db.withReadTimeout(ctx)
	defer cancel()

	query := `SELECT id, kind, fresh, source, rows_written, error, started_at, finished_at
	          FROM data_refreshes
	          ORDER BY started_at DESC, id DESC
	          LIMIT ?`

	rows, err := db.conn.QueryContext(ctx, query, clampLimit(limit))
	if err != nil {
		return nil, errs.NewDB("ListRefreshes", "failed to query refresh runs", err)
	}
	defer rows.Close()

	runs := make([]models.RefreshRun, 0)
	for rows.Next() {
		var (
			run      models.RefreshRun
			errText  sql.NullString
			finished sql.NullTime
		)
		if err := rows.Scan(&run.ID, &run.Kind, &run.Fresh, &run.Source, &run.Rows, &errText, &run.StartedAt, &finished); err != nil {
			return nil, errs.NewDB("ListRefreshes", "failed to scan refresh run", err)
		}
		if errText.Valid {
			s := errText.String
			run.Error = &s
		}
		if finished.Valid {
			t := finished.Time
			run.FinishedAt = &t
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewDB("ListRefreshes", "error iterating refresh runs", err)
	}
	return runs, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return constants.RefreshLogListDefault
	case limit > constants.RefreshLogListMax:
		return constants.RefreshLogListMax
	}
	return limit
}

func errorText(err error) sql.NullString {
	if err == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: err.Error(), Valid: true}
}
