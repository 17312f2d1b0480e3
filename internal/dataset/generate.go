package dataset

import (
	"election-insights/internal/models"
	"election-insights/pkg/geography"
)

// GenerateAttendance replaces attendance.csv with simulated data for every county.
func (s *Store) GenerateAttendance() ([]models.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generateAttendanceLocked()
}

func (s *Store) generateAttendanceLocked() ([]models.AttendanceRecord, error) {
	ts := s.timestamp()
	counties := geography.Counties()
	recs := make([]models.AttendanceRecord, 0, len(counties))
	for _, county := range counties {
		total := s.randint(300_000, 2_000_000)
		pct := s.uniform(25, 60)
		votes := int(float64(total) * pct / 100)

		male := int(float64(votes) * s.uniform(0.45, 0.55))
		a1 := int(float64(votes) * s.uniform(0.05, 0.15))
		a2 := int(float64(votes) * s.uniform(0.15, 0.25))
		a3 := int(float64(votes) * s.uniform(0.15, 0.25))
		a4 := int(float64(votes) * s.uniform(0.25, 0.35))
		urban := s.randint(20, 100)
		rural := s.randint(10, 50)

		recs = append(recs, models.AttendanceRecord{
			County:               county,
			TotalVoters:          total,
			VotesCast:            votes,
			AttendancePercentage: round(pct, 2),
			MaleVoters:           male,
			FemaleVoters:         votes - male,
			Age18To24:            a1,
			Age25To34:            a2,
			Age35To44:            a3,
			Age45To64:            a4,
			Age65Plus:            max(0, votes-a1-a2-a3-a4),
			UrbanStations:        &urban,
			RuralStations:        &rural,
			Timestamp:            ts,
		})
	}
	if err := writeAttendance(s.AttendancePath(), recs); err != nil {
		return nil, err
	}
	s.log.Info("generated random attendance data")
	return recs, nil
}

// GenerateResults replaces results.csv with simulated percentages that sum to 100.
func (s *Store) GenerateResults() ([]models.ResultsRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generateResultsLocked()
}

func (s *Store) generateResultsLocked() ([]models.ResultsRecord, error) {
	ts := s.timestamp()
	counties := geography.Counties()
	recs := make([]models.ResultsRecord, 0, len(counties))
	for _, county := range counties {
		var raw [models.CandidateCount]float64
		for i := range raw {
			raw[i] = s.uniform(5, 35)
		}
		recs = append(recs, models.ResultsRecord{County: county, Candidates: normalize(raw), Timestamp: ts})
	}
	if err := writeResults(s.ResultsPath(), recs); err != nil {
		return nil, err
	}
	s.log.Info("generated random results data")
	return recs, nil
}

// normalize scales v to percentages rounded to two decimals. Negative inputs
// count as 0 and an all-zero vector becomes an even split.
func normalize(v [models.CandidateCount]float64) [models.CandidateCount]float64 {
	var total float64
	for i := range v {
		v[i] = max(0, v[i])
		total += v[i]
	}
	var out [models.CandidateCount]float64
	for i := range v {
		if total > 0 {
			out[i] = round(v[i]/total*100, 2)
		} else {
			out[i] = 100.0 / models.CandidateCount
		}
	}
	return out
}
