// Package dataset owns the CSV files the dashboard serves: attendance.csv and
// results.csv in the data directory, plus the raw presence export they are
// derived from. It reads them for the API, regenerates or nudges them on
// refresh, and builds the demographic report.
package dataset

import (
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"election-insights/internal/models"
	apperrors "election-insights/pkg/errors"
	"election-insights/pkg/logging"
)

const (
	AttendanceFile = "attendance.csv"
	ResultsFile    = "results.csv"
)

// Store reads and writes the data files. All methods are safe for concurrent use.
type Store struct {
	dir          string
	presencePath string

	mu  sync.RWMutex
	rng *rand.Rand
	now func() time.Time

	recorder RefreshRecorder
	log      *logging.ComponentLogger
}

// Option configures a Store.
type Option func(*Store)

// WithSeed makes generated data reproducible.
func WithSeed(seed uint64) Option {
	return func(s *Store) { s.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithRecorder reports every refresh to r.
func WithRecorder(r RefreshRecorder) Option {
	return func(s *Store) { s.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Store) { s.log = l.WithComponent("dataset") }
}

// NewStore manages the files in dir. presencePath is the raw export used by
// fresh refreshes and served by the download endpoint.
func NewStore(dir, presencePath string, opts ...Option) *Store {
	s := &Store{
		dir:          dir,
		presencePath: presencePath,
		now:          time.Now,
		log:          logging.Nop().WithComponent("dataset"),
	}
	seed := uint64(time.Now().UnixNano())
	s.rng = rand.New(rand.NewPCG(seed, seed>>1))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) AttendancePath() string { return filepath.Join(s.dir, AttendanceFile) }
func (s *Store) ResultsPath() string    { return filepath.Join(s.dir, ResultsFile) }
func (s *Store) PresencePath() string   { return s.presencePath }

func (s *Store) timestamp() string { return s.now().Format(models.TimestampLayout) }

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Attendance returns every county row and the data timestamp. A missing
// attendance file is rebuilt from the presence export when one is available.
func (s *Store) Attendance() ([]models.AttendanceRecord, string, error) {
	if !exists(s.AttendancePath()) {
		if !exists(s.presencePath) {
			return nil, "", apperrors.NewNotFound("dataset.Attendance", "Attendance data not available", nil)
		}
		s.mu.Lock()
		_, _, err := s.processPresenceLocked(s.presencePath)
		s.mu.Unlock()
		if err != nil {
			return nil, "", err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	f, err := readAttendance(s.AttendancePath())
	if err != nil {
		return nil, "", err
	}
	ts := ""
	if len(f.records) > 0 {
		ts = f.records[0].Timestamp
	}
	return f.records, lastTimestamp(ts, len(f.records)), nil
}

// CountyAttendance looks a county up case-insensitively.
func (s *Store) CountyAttendance(county string) (models.AttendanceRecord, error) {
	const op = "dataset.CountyAttendance"
	if !exists(s.AttendancePath()) {
		return models.AttendanceRecord{}, apperrors.NewNotFound(op, "Attendance data not available", nil)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, err := readAttendance(s.AttendancePath())
	if err != nil {
		return models.AttendanceRecord{}, err
	}
	for _, r := range f.records {
		if strings.EqualFold(r.County, county) {
			return r, nil
		}
	}
	return models.AttendanceRecord{}, apperrors.NewNotFound(op, "No data found for county: "+county, nil)
}

// Results returns every county's results and the data timestamp. A missing
// results file is generated first.
func (s *Store) Results() ([]models.ResultsRecord, string, error) {
	if !exists(s.ResultsPath()) {
		s.mu.Lock()
		_, err := s.generateResultsLocked()
		s.mu.Unlock()
		if err != nil {
			return nil, "", err
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs, err := readResults(s.ResultsPath())
	if err != nil {
		return nil, "", err
	}
	ts := ""
	if len(recs) > 0 {
		ts = recs[0].Timestamp
	}
	return recs, lastTimestamp(ts, len(recs)), nil
}

// CountyResults looks a county up case-insensitively.
func (s *Store) CountyResults(county string) (models.ResultsRecord, error) {
	const op = "dataset.CountyResults"
	if !exists(s.ResultsPath()) {
		return models.ResultsRecord{}, apperrors.NewNotFound(op, "Results data not available", nil)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs, err := readResults(s.ResultsPath())
	if err != nil {
		return models.ResultsRecord{}, err
	}
	for _, r := range recs {
		if strings.EqualFold(r.County, county) {
			return r, nil
		}
	}
	return models.ResultsRecord{}, apperrors.NewNotFound(op, "No data found for county: "+county, nil)
}

// NotAvailable is reported for a data file that is missing or unreadable.
const NotAvailable = "Not available"

// LastUpdate is the freshness of both data files.
type LastUpdate struct {
	Attendance string `json:"attendance_last_update"`
	Results    string `json:"results_last_update"`
}

// LastUpdates reads the first timestamp of each data file.
func (s *Store) LastUpdates() LastUpdate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := LastUpdate{Attendance: NotAvailable, Results: NotAvailable}
	if f, err := readAttendance(s.AttendancePath()); err == nil && len(f.records) > 0 && f.records[0].Timestamp != "" {
		out.Attendance = f.records[0].Timestamp
	}
	if recs, err := readResults(s.ResultsPath()); err == nil && len(recs) > 0 && recs[0].Timestamp != "" {
		out.Results = recs[0].Timestamp
	}
	return out
}

// round rounds half to even at the given number of decimals.
func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.RoundToEven(v*p) / p
}

// uniform draws from [lo, hi).
func (s *Store) uniform(lo, hi float64) float64 { return lo + (hi-lo)*s.rng.Float64() }

// randint draws from [lo, hi], both inclusive.
func (s *Store) randint(lo, hi int) int { return lo + s.rng.IntN(hi-lo+1) }
