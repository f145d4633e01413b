package domain

import "time"

// CaseRecord is one per-day snapshot of cumulative COVID counters for a country.
// Records are unique per (country, date); cumulative fields are expected to be
// non-decreasing along a country's date-sorted sequence, though the upstream
// API occasionally violates that.
type CaseRecord struct {
	Country   string
	Date      time.Time
	Cases     int64
	Deaths    int64
	Recovered int64
}

// VaccinationRecord is one per-day snapshot of cumulative administered doses.
// Values routinely exceed 32-bit range.
type VaccinationRecord struct {
	Country      string
	Date         time.Time
	Vaccinations int64
}

// RawPoint is a single timeline entry exactly as received from the API:
// the date key is unparsed and the value unvalidated. Input order matters
// because a later duplicate supersedes an earlier one during normalization.
type RawPoint struct {
	Date  string
	Value int64
}

// RawCaseSeries is the decoded historical payload for one country.
type RawCaseSeries struct {
	Country   string
	Cases     []RawPoint
	Deaths    []RawPoint
	Recovered []RawPoint
}

// RawVaccineSeries is the decoded vaccine-coverage payload for one country.
type RawVaccineSeries struct {
	Country string
	Doses   []RawPoint
}

// UpsertResult reports how a batch landed in storage.
type UpsertResult struct {
	Inserted int
	Updated  int
}

// IngestSummary is the structured outcome of one ingest run for one country.
type IngestSummary struct {
	Country     string
	RecordsSeen int
	Inserted    int
	Updated     int
	Skipped     int
	Errors      []string
}

// QueryParams carries the optional inputs a catalog query may require.
type QueryParams struct {
	Country string
	Metric  string
	N       int
}

// ResultSet is an ordered query result with column names preserved.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}
