package dataset

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"election-insights/internal/models"
	"election-insights/internal/presence"
	apperrors "election-insights/pkg/errors"
	"election-insights/pkg/geography"
	"election-insights/pkg/logging"
)

// Source says where a refreshed attendance file came from.
type Source string

const (
	SourcePresence  Source = "presence"
	SourceGenerated Source = "generated"
	SourceUpdated   Source = "updated"
)

// requiredPresence are the columns ProcessPresence cannot work without.
var requiredPresence = append([]string{
	presence.ColCounty, presence.ColRegistered, presence.ColTotalVoters,
}, presence.AgeColumns[:]...)

// ProcessPresence aggregates a raw presence export into attendance.csv, one
// row per canonical county. A missing, unreadable or incomplete export falls
// back to generated data; the returned Source tells which happened.
func (s *Store) ProcessPresence(path string) ([]models.AttendanceRecord, Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processPresenceLocked(path)
}

func (s *Store) processPresenceLocked(path string) ([]models.AttendanceRecord, Source, error) {
	if path == "" {
		path = s.presencePath
	}
	fallback := func(reason string, fields ...logging.Field) ([]models.AttendanceRecord, Source, error) {
		s.log.Warn(reason+", generating random attendance data", append(fields, logging.String("path", path))...)
		recs, err := s.generateAttendanceLocked()
		return recs, SourceGenerated, err
	}

	t, err := presence.ReadFile(path)
	if err != nil {
		return fallback("presence file unusable", logging.Error(err))
	}
	if missing := t.Missing(requiredPresence...); len(missing) > 0 {
		return fallback("presence file missing essential columns",
			logging.String("missing", strings.Join(missing, ", ")),
			logging.String("found", strings.Join(t.Header, ", ")))
	}

	recs := aggregatePresence(t, s.timestamp())
	if len(recs) == 0 {
		return nil, "", apperrors.NewData("dataset.ProcessPresence", path, "no valid county data in presence file", nil)
	}
	if err := writeAttendance(s.AttendancePath(), recs); err != nil {
		return nil, "", err
	}
	s.log.Info("processed presence data", logging.String("path", path), logging.Int("counties", len(recs)))

	if err := s.archive(path); err != nil {
		s.log.Warn("could not archive presence file", logging.Error(err))
	}
	return recs, SourcePresence, nil
}

type countyAcc struct {
	rec   models.AttendanceRecord
	urban map[string]struct{}
	rural map[string]struct{}
}

// aggregatePresence sums presence rows per canonical county, sorted by name.
// Rows without a county are skipped.
func aggregatePresence(t *presence.Table, ts string) []models.AttendanceRecord {
	withStations := t.Has(presence.ColEnvironment, presence.ColStationNumber)
	byCounty := make(map[string]*countyAcc)
	var totals = make(map[string][2]float64) // registered, votes

	for _, row := range t.Rows {
		county := geography.CanonicalCounty(row.String(presence.ColCounty))
		if county == "" || county == geography.Unknown {
			continue
		}
		acc, ok := byCounty[county]
		if !ok {
			acc = &countyAcc{
				rec:   models.AttendanceRecord{County: county, Timestamp: ts},
				urban: make(map[string]struct{}),
				rural: make(map[string]struct{}),
			}
			byCounty[county] = acc
		}
		tv := totals[county]
		tv[0] += row.Float(presence.ColRegistered)
		tv[1] += row.Float(presence.ColTotalVoters)
		totals[county] = tv

		var ages [10]int
		for i, col := range presence.AgeColumns {
			ages[i] = row.Int(col)
		}
		r := &acc.rec
		r.MaleVoters += ages[0] + ages[1] + ages[2] + ages[3] + ages[4]
		r.FemaleVoters += ages[5] + ages[6] + ages[7] + ages[8] + ages[9]
		r.Age18To24 += ages[0] + ages[5]
		r.Age25To34 += ages[1] + ages[6]
		r.Age35To44 += ages[2] + ages[7]
		r.Age45To64 += ages[3] + ages[8]
		r.Age65Plus += ages[4] + ages[9]

		if withStations {
			id := row.String(presence.ColStationNumber)
			switch strings.ToUpper(strings.TrimSpace(row.String(presence.ColEnvironment))) {
			case "U":
				acc.urban[id] = struct{}{}
			case "R":
				acc.rural[id] = struct{}{}
			}
		}
	}

	names := make([]string, 0, len(byCounty))
	for name := range byCounty {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]models.AttendanceRecord, 0, len(names))
	for _, name := range names {
		acc := byCounty[name]
		r := acc.rec
		r.TotalVoters = int(totals[name][0])
		r.VotesCast = int(totals[name][1])
		if r.TotalVoters > 0 {
			r.AttendancePercentage = round(float64(r.VotesCast)/float64(r.TotalVoters)*100, 2)
		}
		if withStations {
			u, rr := len(acc.urban), len(acc.rural)
			r.UrbanStations, r.RuralStations = &u, &rr
		}
		out = append(out, r)
	}
	return out
}

// archive copies a processed export next to the data files under a
// timestamped name. Files already named processed_* are left alone.
func (s *Store) archive(src string) error {
	base := filepath.Base(src)
	if strings.HasPrefix(base, "processed_") {
		return nil
	}
	safe := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, base)
	dst := filepath.Join(s.dir, fmt.Sprintf("processed_%s_%s.csv", safe, s.now().Format("20060102_150405")))

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
