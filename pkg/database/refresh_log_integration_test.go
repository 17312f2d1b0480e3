package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"election-insights/internal/models"
	"election-insights/internal/testutil"
)

// Needs MySQL; skipped unless DATABASE_URL_TEST or DATABASE_URL is set.
func TestRefreshLogRoundTrip(t *testing.T) {
	dbt := testutil.NewDBTest(t)
	dbt.Truncate()
	db := dbt.DB

	ctx := context.Background()
	started := time.Now().UTC().Truncate(time.Millisecond)
	run := &models.RefreshRun{Kind: "cli", Fresh: true, Source: "fresh", StartedAt: started}
	id, err := db.StartRefresh(ctx, run)
	if err != nil {
		t.Fatalf("StartRefresh: %v", err)
	}
	if id == 0 || run.ID != id {
		t.Fatalf("id = %d, run.ID = %d", id, run.ID)
	}
	if err := db.FinishRefresh(ctx, id, 42, started.Add(time.Second), errors.New("disk full")); err != nil {
		t.Fatalf("FinishRefresh: %v", err)
	}

	runs, err := db.ListRefreshes(ctx, 50)
	if err != nil {
		t.Fatalf("ListRefreshes: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("len(runs) = %d, want 1", len(runs))
	}
	got := runs[0]
	if got.ID != id || got.Rows != 42 || !got.Fresh || got.Error == nil || *got.Error != "disk full" || got.FinishedAt == nil {
		t.Errorf("stored run = %+v", got)
	}

	if err := db.FinishRefresh(ctx, -1, 0, time.Now(), nil); err == nil {
		t.Error("finishing an unknown run should fail")
	}
}

func TestRefreshLogNewestFirst(t *testing.T) {
	dbt := testutil.NewDBTest(t)
	dbt.Truncate()

	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)
	for i, kind := range []string{"cli", "api", "schedule"} {
		run := &models.RefreshRun{Kind: kind, Source: "update", StartedAt: base.Add(time.Duration(i) * time.Minute)}
		if _, err := dbt.DB.StartRefresh(ctx, run); err != nil {
			t.Fatalf("StartRefresh(%s): %v", kind, err)
		}
	}
	runs, err := dbt.DB.ListRefreshes(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].Kind != "schedule" || runs[1].Kind != "api" {
		t.Errorf("runs = %+v", runs)
	}
}
