package dataset

import (
	"math"
	"strings"

	"election-insights/internal/models"
	apperrors "election-insights/pkg/errors"
)

// Demographics builds the national and per-county demographic report from attendance.csv.
func (s *Store) Demographics() (*models.DemographicReport, error) {
	const op = "dataset.Demographics"
	if !exists(s.AttendancePath()) {
		return nil, apperrors.NewNotFound(op, "Demographic data not available", nil)
	}
	s.mu.RLock()
	f, err := readAttendance(s.AttendancePath())
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	if missing := f.table.Missing(demographicColumns...); len(missing) > 0 {
		return nil, apperrors.NewNotFound(op,
			"Basic demographic data columns missing in attendance data: "+strings.Join(missing, ", "), nil)
	}
	return BuildDemographics(f.records), nil
}

// BuildDemographics aggregates attendance rows. When every row carries a
// measured urban/rural split it is used; otherwise votes are split in
// proportion to urban and rural polling station counts, and gender and age
// follow the same ratio. Splits round half to even and a zero denominator
// yields 0.
func BuildDemographics(recs []models.AttendanceRecord) *models.DemographicReport {
	measured := len(recs) > 0
	for _, r := range recs {
		if r.Split == nil {
			measured = false
			break
		}
	}

	report := &models.DemographicReport{
		Counties:          make([]models.DemographicBreakdown, 0, len(recs)),
		HasUrbanRuralData: true,
		LastUpdate:        "Unknown",
	}
	if len(recs) > 0 {
		report.LastUpdate = recs[0].Timestamp
	}

	national := models.DemographicBreakdown{
		Total: emptySegment(),
		Urban: emptySegment(),
		Rural: emptySegment(),
	}
	for _, r := range recs {
		b := countyBreakdown(r, measured)
		report.Counties = append(report.Counties, withShares(b))

		national.UrbanStations += b.UrbanStations
		national.RuralStations += b.RuralStations
		addSegment(&national.Total, b.Total)
		addSegment(&national.Urban, b.Urban)
		addSegment(&national.Rural, b.Rural)
	}
	report.National = withShares(national)
	return report
}

func emptySegment() models.Segment {
	return models.Segment{Ages: make(map[models.AgeBracket]int, len(models.AgeBrackets))}
}

func addSegment(dst *models.Segment, src models.Segment) {
	dst.Votes += src.Votes
	dst.Male += src.Male
	dst.Female += src.Female
	for _, a := range models.AgeBrackets {
		dst.Ages[a] += src.Ages[a]
	}
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func countyBreakdown(r models.AttendanceRecord, measured bool) models.DemographicBreakdown {
	b := models.DemographicBreakdown{
		County:        r.County,
		UrbanStations: deref(r.UrbanStations),
		RuralStations: deref(r.RuralStations),
		Total: models.Segment{
			Votes:  r.VotesCast,
			Male:   r.MaleVoters,
			Female: r.FemaleVoters,
			Ages:   r.Ages(),
		},
	}
	if measured {
		b.Urban, b.Rural = copySegment(r.Split.Urban), copySegment(r.Split.Rural)
		return b
	}

	stations := b.UrbanStations + b.RuralStations
	urbanVotes := scale(r.VotesCast, b.UrbanStations, stations)
	ruralVotes := scale(r.VotesCast, b.RuralStations, stations)
	b.Urban = estimate(b.Total, urbanVotes)
	b.Rural = estimate(b.Total, ruralVotes)
	return b
}

func copySegment(s models.Segment) models.Segment {
	out := emptySegment()
	addSegment(&out, s)
	return out
}

// scale computes round(v * num / den), 0 when den is 0.
func scale(v, num, den int) int {
	if den == 0 {
		return 0
	}
	return int(math.RoundToEven(float64(v) * float64(num) / float64(den)))
}

// estimate projects total onto a sub-segment of votes votes.
func estimate(total models.Segment, votes int) models.Segment {
	s := emptySegment()
	s.Votes = votes
	s.Male = scale(total.Male, votes, total.Votes)
	s.Female = scale(total.Female, votes, total.Votes)
	for _, a := range models.AgeBrackets {
		s.Ages[a] = scale(total.Ages[a], votes, total.Votes)
	}
	return s
}

func pct(part, whole int) float64 {
	return round(float64(part)/float64(whole)*100, 1)
}

func shares(s models.Segment) *models.Shares {
	if s.Votes <= 0 {
		return nil
	}
	sh := &models.Shares{
		Male:   pct(s.Male, s.Votes),
		Female: pct(s.Female, s.Votes),
		Ages:   make(map[models.AgeBracket]float64, len(models.AgeBrackets)),
	}
	for _, a := range models.AgeBrackets {
		sh.Ages[a] = pct(s.Ages[a], s.Votes)
	}
	return sh
}

// withShares fills the percentage fields; each is present only when its
// denominator is positive.
func withShares(b models.DemographicBreakdown) models.DemographicBreakdown {
	b.TotalShares = shares(b.Total)
	if b.Total.Votes > 0 {
		u, r := pct(b.Urban.Votes, b.Total.Votes), pct(b.Rural.Votes, b.Total.Votes)
		b.UrbanPct, b.RuralPct = &u, &r
		b.UrbanShares = shares(b.Urban)
		b.RuralShares = shares(b.Rural)
	}
	return b
}
