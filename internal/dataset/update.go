package dataset

import (
	"election-insights/internal/models"
	"election-insights/pkg/logging"
)

// UpdateSummary reports what UpdateExisting did to each file.
type UpdateSummary struct {
	Attendance     Source `json:"attendance"`
	Results        Source `json:"results"`
	AttendanceRows int    `json:"attendance_rows"`
	ResultsRows    int    `json:"results_rows"`
}

// UpdateExisting simulates the passing of time: votes cast grow by 0.5-2% of
// the registered voters (never beyond them) and results drift by up to half a
// point before being renormalized. Files that are missing or unreadable are
// regenerated instead.
func (s *Store) UpdateExisting() (UpdateSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sum UpdateSummary
	att, src, err := s.updateAttendanceLocked()
	if err != nil {
		return sum, err
	}
	sum.Attendance, sum.AttendanceRows = src, len(att)

	res, src, err := s.updateResultsLocked()
	if err != nil {
		return sum, err
	}
	sum.Results, sum.ResultsRows = src, len(res)
	return sum, nil
}

func (s *Store) updateAttendanceLocked() ([]models.AttendanceRecord, Source, error) {
	if !exists(s.AttendancePath()) {
		s.log.Info("attendance data file not found, generating fresh data")
		recs, err := s.generateAttendanceLocked()
		return recs, SourceGenerated, err
	}
	f, err := readAttendance(s.AttendancePath())
	if err != nil {
		s.log.Warn("error updating attendance data, generating fresh data instead", logging.Error(err))
		recs, err := s.generateAttendanceLocked()
		return recs, SourceGenerated, err
	}

	ts := s.timestamp()
	recs := f.records
	for i := range recs {
		r := &recs[i]
		change := s.uniform(0.005, 0.02)
		r.VotesCast = min(r.TotalVoters, r.VotesCast+int(float64(r.TotalVoters)*change))
		r.AttendancePercentage = 0
		if r.TotalVoters > 0 {
			r.AttendancePercentage = round(float64(r.VotesCast)/float64(r.TotalVoters)*100, 2)
		}
		r.Timestamp = ts
	}
	if err := writeAttendance(s.AttendancePath(), recs); err != nil {
		return nil, "", err
	}
	s.log.Info("updated existing attendance data", logging.Int("rows", len(recs)))
	return recs, SourceUpdated, nil
}

func (s *Store) updateResultsLocked() ([]models.ResultsRecord, Source, error) {
	if !exists(s.ResultsPath()) {
		s.log.Info("results data file not found, generating fresh data")
		recs, err := s.generateResultsLocked()
		return recs, SourceGenerated, err
	}
	recs, err := readResults(s.ResultsPath())
	if err != nil {
		s.log.Warn("error updating results data, generating fresh data instead", logging.Error(err))
		recs, err := s.generateResultsLocked()
		return recs, SourceGenerated, err
	}

	ts := s.timestamp()
	for i := range recs {
		next := recs[i].Candidates
		for j := range next {
			next[j] += s.uniform(-0.5, 0.5)
		}
		recs[i].Candidates = normalize(next)
		recs[i].Timestamp = ts
	}
	if err := writeResults(s.ResultsPath(), recs); err != nil {
		return nil, "", err
	}
	s.log.Info("updated existing results data", logging.Int("rows", len(recs)))
	return recs, SourceUpdated, nil
}
