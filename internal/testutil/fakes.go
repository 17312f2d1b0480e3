// Package testutil holds fakes and fixtures shared by package tests.
package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"election-insights/internal/dataset"
	"election-insights/internal/geocode"
	"election-insights/internal/location"
	"election-insights/internal/models"
	apperrors "election-insights/pkg/errors"
)

const Timestamp = "2024-12-02 07:00:00"

// FakeStore is an in-memory dataset store.
type FakeStore struct {
	Mu         sync.Mutex
	Att        []models.AttendanceRecord
	Res        []models.ResultsRecord
	Report     *models.DemographicReport
	Presence   string
	RefreshErr error
	Requests   []dataset.RefreshRequest
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		Att: []models.AttendanceRecord{
			{County: "Cluj", TotalVoters: 560000, VotesCast: 250000, AttendancePercentage: 44.64, Timestamp: Timestamp},
			{County: "Iasi", TotalVoters: 700000, VotesCast: 280000, AttendancePercentage: 40, Timestamp: Timestamp},
		},
		Res: []models.ResultsRecord{
			{County: "Cluj", Timestamp: Timestamp},
		},
		Report: &models.DemographicReport{},
	}
}

func (f *FakeStore) Attendance() ([]models.AttendanceRecord, string, error) {
	f.Mu.Lock()
	defer f.Mu.Unlock()
	if len(f.Att) == 0 {
		return nil, "", apperrors.NewNotFound("fake.Attendance", "Attendance data not available", nil)
	}
	return f.Att, f.Att[0].Timestamp, nil
}

func (f *FakeStore) CountyAttendance(county string) (models.AttendanceRecord, error) {
	f.Mu.Lock()
	defer f.Mu.Unlock()
	for _, r := range f.Att {
		if strings.EqualFold(r.County, county) {
			return r, nil
		}
	}
	return models.AttendanceRecord{}, apperrors.NewNotFound("fake.CountyAttendance", "No data found for county: "+county, nil)
}

func (f *FakeStore) Results() ([]models.ResultsRecord, string, error) {
	f.Mu.Lock()
	defer f.Mu.Unlock()
	if len(f.Res) == 0 {
		return nil, "", apperrors.NewNotFound("fake.Results", "Results data not available", nil)
	}
	return f.Res, f.Res[0].Timestamp, nil
}

func (f *FakeStore) CountyResults(county string) (models.ResultsRecord, error) {
	f.Mu.Lock()
	defer f.Mu.Unlock()
	for _, r := range f.Res {
		if strings.EqualFold(r.County, county) {
			return r, nil
		}
	}
	return models.ResultsRecord{}, apperrors.NewNotFound("fake.CountyResults", "No data found for county: "+county, nil)
}

func (f *FakeStore) Demographics() (*models.DemographicReport, error) {
	if f.Report == nil {
		return nil, apperrors.NewNotFound("fake.Demographics", "Attendance data not available", nil)
	}
	return f.Report, nil
}

func (f *FakeStore) LastUpdates() dataset.LastUpdate {
	return dataset.LastUpdate{Attendance: Timestamp, Results: Timestamp}
}

// Refresh records the request and fails with RefreshErr when set.
func (f *FakeStore) Refresh(ctx context.Context, req dataset.RefreshRequest) (dataset.RefreshResult, error) {
	f.Mu.Lock()
	defer f.Mu.Unlock()
	f.Requests = append(f.Requests, req)
	if f.RefreshErr != nil {
		return dataset.RefreshResult{}, f.RefreshErr
	}
	return dataset.RefreshResult{Mode: req.Mode.String(), Source: dataset.SourceGenerated, Rows: len(f.Att), Timestamp: Timestamp}, nil
}

func (f *FakeStore) PresencePath() string { return f.Presence }

// FakeClusterer returns a fixed clustering regardless of n.
type FakeClusterer struct {
	Mu          sync.Mutex
	Records     map[models.Granularity][]models.LocationRecord
	Err         error
	Calls       int
	Invalidated int
}

// NewFakeClusterer serves three counties and three towns in two clusters.
func NewFakeClusterer() *FakeClusterer {
	return &FakeClusterer{Records: map[models.Granularity][]models.LocationRecord{
		models.GranularityCounty: {
			{County: "Cluj", Cluster: 0, TotalVotes: 500, DemographicsPct: models.Demographics{models.Male18To24: 50, models.Female18To24: 50}},
			{County: "Iasi", Cluster: 0, TotalVotes: 400, DemographicsPct: models.Demographics{models.Male18To24: 45, models.Female18To24: 55}},
			{County: "Teleorman", Cluster: 1, TotalVotes: 100, DemographicsPct: models.Demographics{models.Male65Plus: 40, models.Female65Plus: 60}},
		},
		models.GranularityTown: {
			{County: "Cluj", Town: "Turda", Cluster: 0, TotalVotes: 90, DemographicsPct: models.Demographics{models.Male25To34: 50, models.Female25To34: 50}},
			{County: "Cluj", Town: "Dej", Cluster: 1, TotalVotes: 60, DemographicsPct: models.Demographics{models.Male65Plus: 50, models.Female65Plus: 50}},
			{County: "Iasi", Town: "Pascani", Cluster: 0, TotalVotes: 70, DemographicsPct: models.Demographics{models.Male25To34: 40, models.Female25To34: 60}},
		},
	}}
}

func (c *FakeClusterer) Cluster(ctx context.Context, level models.Granularity, n int) (*models.ClusteringResult, error) {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	c.Calls++
	if c.Err != nil {
		return nil, c.Err
	}
	recs := c.Records[level]
	return &models.ClusteringResult{
		Level:       level,
		NClusters:   n,
		Records:     recs,
		DataVersion: "fake-v1",
	}, nil
}

func (c *FakeClusterer) Invalidate(ctx context.Context) error {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	c.Invalidated++
	return nil
}

// FakeDescriber labels every cluster "described N".
type FakeDescriber struct{}

func (FakeDescriber) Describe(ctx context.Context, res *models.ClusteringResult) map[int]string {
	out := make(map[int]string)
	for _, r := range res.Records {
		out[r.Cluster] = "described " + location.Identifier(r, res.Level)
	}
	return out
}

// FakeLocator places every record at the same point. When Requested is
// set it accumulates how many records were asked for.
type FakeLocator struct {
	Err       error
	Requested *int
}

func (l FakeLocator) Locate(ctx context.Context, records []models.LocationRecord, level models.Granularity) ([]geocode.Location, error) {
	if l.Requested != nil {
		*l.Requested += len(records)
	}
	if l.Err != nil {
		return nil, l.Err
	}
	out := make([]geocode.Location, len(records))
	for i, r := range records {
		out[i] = geocode.Location{
			Identifier: location.Identifier(r, level),
			Label:      location.Label(r, level),
			Cluster:    r.Cluster,
			Point:      &geocode.Point{Lat: 46.77, Lng: 23.6},
		}
	}
	return out, nil
}

// FakeRefreshLog lists Runs, newest first as given.
type FakeRefreshLog struct {
	Runs []models.RefreshRun
}

func (l FakeRefreshLog) ListRefreshes(ctx context.Context, limit int) ([]models.RefreshRun, error) {
	if limit < len(l.Runs) {
		return l.Runs[:limit], nil
	}
	return l.Runs, nil
}

// Run builds a finished refresh run.
func Run(id int64, kind string, rows int) models.RefreshRun {
	started := time.Date(2024, 12, 2, 7, 0, 0, 0, time.UTC)
	finished := started.Add(time.Second)
	return models.RefreshRun{ID: id, Kind: kind, Source: "update", Rows: rows, StartedAt: started, FinishedAt: &finished}
}
