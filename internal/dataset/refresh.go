package dataset

import (
	"context"
	"time"

	"election-insights/internal/models"
	"election-insights/pkg/logging"
	"election-insights/pkg/metrics"
)

// RefreshRecorder persists refresh runs, e.g. to the MySQL refresh log.
type RefreshRecorder interface {
	StartRefresh(ctx context.Context, run *models.RefreshRun) (int64, error)
	FinishRefresh(ctx context.Context, id int64, rows int, finishedAt time.Time, runErr error) error
}

// Mode selects what a refresh does.
type Mode int

const (
	// ModeUpdate nudges the existing files.
	ModeUpdate Mode = iota
	// ModeFresh rebuilds attendance from the presence export (or random data
	// when there is none) and regenerates results.
	ModeFresh
	// ModePresence processes a given export, then nudges results.
	ModePresence
)

func (m Mode) String() string {
	switch m {
	case ModeFresh:
		return "fresh"
	case ModePresence:
		return "presence"
	default:
		return "update"
	}
}

// RefreshRequest describes one refresh.
type RefreshRequest struct {
	Kind     string // "api", "cli", "schedule"
	Mode     Mode
	Presence string // export path for ModeFresh/ModePresence; empty uses random data for ModeFresh
}

// RefreshResult is what a refresh produced.
type RefreshResult struct {
	Mode       string    `json:"mode"`
	Source     Source    `json:"source"`
	Rows       int       `json:"rows"`
	Timestamp  string    `json:"timestamp"`
	FinishedAt time.Time `json:"-"`
}

var (
	refreshes       = metrics.Default.Counter("data_refreshes_total", "Data refreshes run")
	refreshFailures = metrics.Default.Counter("data_refresh_failures_total", "Data refreshes that failed")
	lastRefresh     = metrics.Default.Gauge("data_last_refresh_timestamp_seconds", "Unix time of the last successful refresh")
	refreshRows     = metrics.Default.Gauge("data_refresh_rows", "Rows written by the last successful refresh")
)

// Refresh runs req and reports it to the recorder when one is configured.
// Recorder failures are logged, never returned.
func (s *Store) Refresh(ctx context.Context, req RefreshRequest) (RefreshResult, error) {
	started := s.now()
	var runID int64
	if s.recorder != nil {
		id, err := s.recorder.StartRefresh(ctx, &models.RefreshRun{
			Kind:      req.Kind,
			Fresh:     req.Mode == ModeFresh,
			Source:    req.Mode.String(),
			StartedAt: started,
		})
		if err != nil {
			s.log.Ctx(ctx).Warn("could not record refresh start", logging.Error(err))
		}
		runID = id
	}

	res, err := s.refresh(req)
	res.Mode = req.Mode.String()
	res.FinishedAt = s.now()
	res.Timestamp = res.FinishedAt.Format(models.TimestampLayout)

	refreshes.Inc(1)
	if err != nil {
		refreshFailures.Inc(1)
		s.log.Ctx(ctx).Error("data refresh failed", err, logging.String("mode", res.Mode), logging.String("kind", req.Kind))
	} else {
		lastRefresh.Set(float64(res.FinishedAt.Unix()))
		refreshRows.Set(float64(res.Rows))
		s.log.Ctx(ctx).Info("data refresh finished",
			logging.String("mode", res.Mode), logging.String("kind", req.Kind),
			logging.String("source", string(res.Source)), logging.Int("rows", res.Rows),
			logging.Duration("took", res.FinishedAt.Sub(started)))
	}

	if s.recorder != nil && runID != 0 {
		if rerr := s.recorder.FinishRefresh(ctx, runID, res.Rows, res.FinishedAt, err); rerr != nil {
			s.log.Ctx(ctx).Warn("could not record refresh result", logging.Error(rerr))
		}
	}
	return res, err
}

func (s *Store) refresh(req RefreshRequest) (RefreshResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch req.Mode {
	case ModeFresh:
		var (
			att []models.AttendanceRecord
			src = SourceGenerated
			err error
		)
		if req.Presence != "" && exists(req.Presence) {
			att, src, err = s.processPresenceLocked(req.Presence)
		} else {
			att, err = s.generateAttendanceLocked()
		}
		if err != nil {
			return RefreshResult{}, err
		}
		if _, err := s.generateResultsLocked(); err != nil {
			return RefreshResult{}, err
		}
		return RefreshResult{Source: src, Rows: len(att)}, nil

	case ModePresence:
		att, src, err := s.processPresenceLocked(req.Presence)
		if err != nil {
			return RefreshResult{}, err
		}
		if _, _, err := s.updateResultsLocked(); err != nil {
			return RefreshResult{}, err
		}
		return RefreshResult{Source: src, Rows: len(att)}, nil

	default:
		att, src, err := s.updateAttendanceLocked()
		if err != nil {
			return RefreshResult{}, err
		}
		if _, _, err := s.updateResultsLocked(); err != nil {
			return RefreshResult{}, err
		}
		return RefreshResult{Source: src, Rows: len(att)}, nil
	}
}

// EnsureInitialData creates attendance and results files when either is
// missing, preferring the presence export for attendance.
func (s *Store) EnsureInitialData(ctx context.Context) error {
	if exists(s.AttendancePath()) && exists(s.ResultsPath()) {
		return nil
	}
	s.log.Ctx(ctx).Info("initial data files not found, creating them")

	s.mu.Lock()
	defer s.mu.Unlock()
	if !exists(s.AttendancePath()) {
		var err error
		if exists(s.presencePath) {
			_, _, err = s.processPresenceLocked(s.presencePath)
		} else {
			_, err = s.generateAttendanceLocked()
		}
		if err != nil {
			return err
		}
	}
	if !exists(s.ResultsPath()) {
		if _, err := s.generateResultsLocked(); err != nil {
			return err
		}
	}
	return nil
}
