package dataset

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"election-insights/internal/models"
	"election-insights/internal/presence"
	apperrors "election-insights/pkg/errors"
)

// Column layout of attendance.csv.
var attendanceColumns = []string{
	"county", "total_voters", "votes_cast", "attendance_percentage",
	"male_voters", "female_voters",
	"age_18_24", "age_25_34", "age_35_44", "age_45_64", "age_65_plus",
	"urban_stations", "rural_stations", "timestamp",
}

// requiredAttendance are the columns an attendance file must have to be usable at all.
var requiredAttendance = []string{"county", "total_voters", "votes_cast"}

// demographicColumns must be present for the demographic report.
var demographicColumns = []string{
	"male_voters", "female_voters",
	"age_18_24", "age_25_34", "age_35_44", "age_45_64", "age_65_plus",
	"urban_stations", "rural_stations",
}

// splitColumns are the optional measured urban/rural columns.
var splitColumns = func() []string {
	cols := []string{"urban_votes", "rural_votes",
		"urban_male_voters", "urban_female_voters", "rural_male_voters", "rural_female_voters"}
	for _, env := range []string{"urban", "rural"} {
		for _, a := range models.AgeBrackets {
			cols = append(cols, env+"_"+a.Key())
		}
	}
	return cols
}()

func resultsColumns() []string {
	cols := []string{"county"}
	for i := 0; i < models.CandidateCount; i++ {
		cols = append(cols, models.CandidateColumn(i))
	}
	return append(cols, "timestamp")
}

// attendanceFile is a parsed attendance.csv together with its header.
type attendanceFile struct {
	records []models.AttendanceRecord
	table   *presence.Table
}

func readAttendance(path string) (*attendanceFile, error) {
	const op = "dataset.readAttendance"
	t, err := presence.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if missing := t.Missing(requiredAttendance...); len(missing) > 0 {
		return nil, apperrors.NewData(op, path, "attendance file missing columns: "+strings.Join(missing, ", "), nil)
	}
	withSplit := t.Has(splitColumns...)

	recs := make([]models.AttendanceRecord, 0, len(t.Rows))
	for _, row := range t.Rows {
		r := models.AttendanceRecord{
			County:               row.String("county"),
			TotalVoters:          row.Int("total_voters"),
			VotesCast:            row.Int("votes_cast"),
			AttendancePercentage: row.Float("attendance_percentage"),
			MaleVoters:           row.Int("male_voters"),
			FemaleVoters:         row.Int("female_voters"),
			Age18To24:            row.Int("age_18_24"),
			Age25To34:            row.Int("age_25_34"),
			Age35To44:            row.Int("age_35_44"),
			Age45To64:            row.Int("age_45_64"),
			Age65Plus:            row.Int("age_65_plus"),
			UrbanStations:        optionalInt(row, "urban_stations"),
			RuralStations:        optionalInt(row, "rural_stations"),
			Timestamp:            row.String("timestamp"),
		}
		if withSplit {
			r.Split = &models.UrbanRuralSplit{
				Urban: readSegment(row, "urban"),
				Rural: readSegment(row, "rural"),
			}
		}
		recs = append(recs, r)
	}
	return &attendanceFile{records: recs, table: t}, nil
}

func optionalInt(row presence.Row, col string) *int {
	if strings.TrimSpace(row.String(col)) == "" {
		return nil
	}
	v := row.Int(col)
	return &v
}

func readSegment(row presence.Row, env string) models.Segment {
	s := models.Segment{
		Votes:  row.Int(env + "_votes"),
		Male:   row.Int(env + "_male_voters"),
		Female: row.Int(env + "_female_voters"),
		Ages:   make(map[models.AgeBracket]int, len(models.AgeBrackets)),
	}
	for _, a := range models.AgeBrackets {
		s.Ages[a] = row.Int(env + "_" + a.Key())
	}
	return s
}

func readResults(path string) ([]models.ResultsRecord, error) {
	const op = "dataset.readResults"
	t, err := presence.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if missing := t.Missing(resultsColumns()[:models.CandidateCount+1]...); len(missing) > 0 {
		return nil, apperrors.NewData(op, path, "results file missing columns: "+strings.Join(missing, ", "), nil)
	}
	recs := make([]models.ResultsRecord, 0, len(t.Rows))
	for _, row := range t.Rows {
		r := models.ResultsRecord{County: row.String("county"), Timestamp: row.String("timestamp")}
		for i := range r.Candidates {
			r.Candidates[i] = row.Float(models.CandidateColumn(i))
		}
		recs = append(recs, r)
	}
	return recs, nil
}

func writeAttendance(path string, recs []models.AttendanceRecord) error {
	header := append([]string(nil), attendanceColumns...)
	withSplit := len(recs) > 0
	for _, r := range recs {
		if r.Split == nil {
			withSplit = false
			break
		}
	}
	if withSplit {
		header = append(header, splitColumns...)
	}

	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		row := []string{
			r.County, itoa(r.TotalVoters), itoa(r.VotesCast), ftoa(r.AttendancePercentage),
			itoa(r.MaleVoters), itoa(r.FemaleVoters),
			itoa(r.Age18To24), itoa(r.Age25To34), itoa(r.Age35To44), itoa(r.Age45To64), itoa(r.Age65Plus),
			optionalItoa(r.UrbanStations), optionalItoa(r.RuralStations), r.Timestamp,
		}
		if withSplit {
			row = append(row, segmentCells(r.Split)...)
		}
		rows = append(rows, row)
	}
	return writeCSV(path, header, rows)
}

// segmentCells follows the splitColumns order.
func segmentCells(s *models.UrbanRuralSplit) []string {
	cells := []string{
		itoa(s.Urban.Votes), itoa(s.Rural.Votes),
		itoa(s.Urban.Male), itoa(s.Urban.Female), itoa(s.Rural.Male), itoa(s.Rural.Female),
	}
	for _, seg := range []models.Segment{s.Urban, s.Rural} {
		for _, a := range models.AgeBrackets {
			cells = append(cells, itoa(seg.Ages[a]))
		}
	}
	return cells
}

func writeResults(path string, recs []models.ResultsRecord) error {
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		row := []string{r.County}
		for _, pct := range r.Candidates {
			row = append(row, ftoa(pct))
		}
		rows = append(rows, append(row, r.Timestamp))
	}
	return writeCSV(path, resultsColumns(), rows)
}

// writeCSV replaces path atomically so readers never see a half-written file.
func writeCSV(path string, header []string, rows [][]string) error {
	const op = "dataset.writeCSV"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.NewData(op, path, "cannot create data directory", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return apperrors.NewData(op, path, "cannot create temporary file", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return apperrors.NewData(op, path, "write header", err)
	}
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		return apperrors.NewData(op, path, "write rows", err)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.NewData(op, path, "close temporary file", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return apperrors.NewData(op, path, "replace file", err)
	}
	return nil
}

func itoa(v int) string { return strconv.Itoa(v) }

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func optionalItoa(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// lastTimestamp is the timestamp of the first row, the way the dashboard reports freshness.
func lastTimestamp(first string, n int) string {
	if n == 0 || first == "" {
		return "Unknown"
	}
	return first
}
