package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is the format of the timestamp column in the data CSVs.
const TimestampLayout = "2006-01-02 15:04:05"

// AttendanceRecord is one row of attendance.csv.
type AttendanceRecord struct {
	County               string  `json:"county"`
	TotalVoters          int     `json:"total_voters"`
	VotesCast            int     `json:"votes_cast"`
	AttendancePercentage float64 `json:"attendance_percentage"`
	MaleVoters           int     `json:"male_voters"`
	FemaleVoters         int     `json:"female_voters"`
	Age18To24            int     `json:"age_18_24"`
	Age25To34            int     `json:"age_25_34"`
	Age35To44            int     `json:"age_35_44"`
	Age45To64            int     `json:"age_45_64"`
	Age65Plus            int     `json:"age_65_plus"`
	UrbanStations        *int    `json:"urban_stations"`
	RuralStations        *int    `json:"rural_stations"`
	Timestamp            string  `json:"timestamp"`

	// Split is set when attendance.csv carries measured urban/rural columns.
	Split *UrbanRuralSplit `json:"-"`
}

// UrbanRuralSplit holds urban and rural segments of one county.
type UrbanRuralSplit struct {
	Urban Segment
	Rural Segment
}

// Ages returns the age bracket totals keyed by bracket.
func (a AttendanceRecord) Ages() map[AgeBracket]int {
	return map[AgeBracket]int{
		Age18To24: a.Age18To24,
		Age25To34: a.Age25To34,
		Age35To44: a.Age35To44,
		Age45To64: a.Age45To64,
		Age65Plus: a.Age65Plus,
	}
}

// CandidateCount is the number of candidate columns in results.csv.
const CandidateCount = 5

// ResultsRecord is one row of results.csv; percentages per candidate.
type ResultsRecord struct {
	County     string
	Candidates [CandidateCount]float64
	Timestamp  string
}

// MarshalJSON flattens the candidates into candidate_1..candidate_5 keys.
func (r ResultsRecord) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, CandidateCount+2)
	m["county"] = r.County
	m["timestamp"] = r.Timestamp
	for i, pct := range r.Candidates {
		m[CandidateColumn(i)] = pct
	}
	return json.Marshal(m)
}

// CandidateColumn is the CSV/JSON column of the i-th candidate (0-based).
func CandidateColumn(i int) string { return fmt.Sprintf("candidate_%d", i+1) }

// Segment is a vote total split by gender and age.
type Segment struct {
	Votes  int                `json:"votes"`
	Male   int                `json:"male_voters"`
	Female int                `json:"female_voters"`
	Ages   map[AgeBracket]int `json:"ages"`
}

// Shares are percentages of a Segment, rounded to one decimal.
type Shares struct {
	Male   float64                `json:"male_percentage"`
	Female float64                `json:"female_percentage"`
	Ages   map[AgeBracket]float64 `json:"age_percentages"`
}

// DemographicBreakdown is the demographic view of one county or the whole country.
type DemographicBreakdown struct {
	County        string   `json:"county,omitempty"`
	Total         Segment  `json:"total"`
	UrbanStations int      `json:"urban_stations"`
	RuralStations int      `json:"rural_stations"`
	Urban         Segment  `json:"urban"`
	Rural         Segment  `json:"rural"`
	TotalShares   *Shares  `json:"total_shares,omitempty"`
	UrbanShares   *Shares  `json:"urban_shares,omitempty"`
	RuralShares   *Shares  `json:"rural_shares,omitempty"`
	UrbanPct      *float64 `json:"urban_percentage,omitempty"`
	RuralPct      *float64 `json:"rural_percentage,omitempty"`
}

// DemographicReport is the /demographic response.
type DemographicReport struct {
	National          DemographicBreakdown   `json:"national"`
	Counties          []DemographicBreakdown `json:"counties"`
	LastUpdate        string                 `json:"last_update"`
	HasUrbanRuralData bool                   `json:"has_urban_rural_data"`
}

// RefreshRun records one data refresh (update trigger, CLI run or background tick).
type RefreshRun struct {
	ID         int64      `json:"id" db:"id"`
	Kind       string     `json:"kind" db:"kind"`
	Fresh      bool       `json:"fresh" db:"fresh"`
	Source     string     `json:"source" db:"source"`
	Rows       int        `json:"rows" db:"rows"`
	Error      *string    `json:"error,omitempty" db:"error"`
	StartedAt  time.Time  `json:"started_at" db:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" db:"finished_at"`
}
