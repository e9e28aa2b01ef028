// Package calibration reads externally measured agent records, one human
// per row, for initializing a simulation from survey data.
package calibration

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/talgya/polarsim/internal/agents"
)

// Column names. The header row may list them in any order; extra columns
// are ignored.
const (
	ColID                    = "id"
	ColParty                 = "party"
	ColIdeology              = "ideology"
	ColNewsFrequency         = "news_frequency"
	ColDiscussionFrequency   = "discussion_frequency"
	ColAffectivePolarization = "affective_polarization"
)

var required = []string{
	ColParty,
	ColIdeology,
	ColNewsFrequency,
	ColDiscussionFrequency,
	ColAffectivePolarization,
}

var (
	// ErrNoRecords is returned for a file with a header but no data rows.
	ErrNoRecords = errors.New("no records")
	ErrNotFinite = errors.New("value is not finite")
)

// LoadFile reads records from a CSV file.
func LoadFile(path string) ([]agents.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	records, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return records, nil
}

// Read parses CSV records. Party labels are validated here so bad rows are
// reported with their line number; value ranges are left to the spawner,
// which clamps them. A missing id column numbers rows from 1.
func Read(r io.Reader) ([]agents.Record, error) {
	rdr := csv.NewReader(r)
	rdr.TrimLeadingSpace = true
	rdr.Comment = '#'

	header, err := rdr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoRecords
	}
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range required {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}
	idCol, hasID := col[ColID]

	var records []agents.Record
	for {
		row, err := rdr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := rdr.FieldPos(0)

		rec := agents.Record{ID: strconv.Itoa(len(records) + 1)}
		if hasID {
			rec.ID = strings.TrimSpace(row[idCol])
		}
		field := func(name string) string { return strings.TrimSpace(row[col[name]]) }

		if _, err := agents.ParseParty(field(ColParty)); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rec.Party = field(ColParty)

		if rec.Ideology, err = parseFinite(field(ColIdeology)); err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, ColIdeology, err)
		}
		if rec.AffectivePolarization, err = parseFinite(field(ColAffectivePolarization)); err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, ColAffectivePolarization, err)
		}
		if rec.NewsFrequency, err = strconv.Atoi(field(ColNewsFrequency)); err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, ColNewsFrequency, err)
		}
		if rec.DiscussionFrequency, err = strconv.Atoi(field(ColDiscussionFrequency)); err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, ColDiscussionFrequency, err)
		}

		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	return records, nil
}

// parseFinite parses a float and rejects NaN and infinities.
func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q: %w", s, ErrNotFinite)
	}
	return v, nil
}
