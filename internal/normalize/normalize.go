// Package normalize turns raw API timelines into validated, date-ordered
// records. Malformed entries are dropped and counted, never fatal: one bad
// data point must not sink the whole batch.
package normalize

import (
	"log/slog"
	"sort"
	"time"

	"HealthMetricsETL/internal/domain"
)

// apiDateLayout matches the upstream timeline keys, e.g. "1/5/23".
const apiDateLayout = "1/2/06"

const isoDateLayout = "2006-01-02"

// Report accounts for every raw entry that went through normalization.
// Seen = Kept + InvalidDate + OutOfRange + Negative + Duplicates.
type Report struct {
	Seen        int
	Kept        int
	InvalidDate int
	OutOfRange  int
	Negative    int
	Duplicates  int
}

// Skipped is the number of raw entries that did not become records.
func (r Report) Skipped() int {
	return r.InvalidDate + r.OutOfRange + r.Negative + r.Duplicates
}

// Cases builds one CaseRecord per surviving date from the raw series.
// The cases timeline drives the output; deaths and recovered are joined by
// date and coerced to zero when absent. An empty result is not an error.
func Cases(raw domain.RawCaseSeries, start, end time.Time, logger *slog.Logger) ([]domain.CaseRecord, Report) {
	var report Report

	deaths := lookupByDate(raw.Deaths)
	recovered := lookupByDate(raw.Recovered)

	kept := make(map[time.Time]domain.CaseRecord)
	for _, point := range raw.Cases {
		report.Seen++

		date, ok := acceptDate(point.Date, start, end, &report, logger)
		if !ok {
			continue
		}

		record := domain.CaseRecord{
			Country:   raw.Country,
			Date:      date,
			Cases:     point.Value,
			Deaths:    deaths[date],
			Recovered: recovered[date],
		}
		if record.Cases < 0 || record.Deaths < 0 || record.Recovered < 0 {
			report.Negative++
			warn(logger, "dropping entry with negative value",
				"country", raw.Country, "date", date.Format(isoDateLayout))
			continue
		}

		if _, exists := kept[date]; exists {
			// Later raw entry is assumed to be the correction.
			report.Duplicates++
		}
		kept[date] = record
	}

	records := make([]domain.CaseRecord, 0, len(kept))
	for _, record := range kept {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })

	report.Kept = len(records)
	if report.Kept == 0 {
		warn(logger, "no valid case entries after normalization", "country", raw.Country, "seen", report.Seen)
	}

	flagDecreases(records, logger)

	return records, report
}

// Vaccinations builds one VaccinationRecord per surviving date.
func Vaccinations(raw domain.RawVaccineSeries, start, end time.Time, logger *slog.Logger) ([]domain.VaccinationRecord, Report) {
	var report Report

	kept := make(map[time.Time]domain.VaccinationRecord)
	for _, point := range raw.Doses {
		report.Seen++

		date, ok := acceptDate(point.Date, start, end, &report, logger)
		if !ok {
			continue
		}

		if point.Value < 0 {
			report.Negative++
			warn(logger, "dropping entry with negative value",
				"country", raw.Country, "date", date.Format(isoDateLayout))
			continue
		}

		if _, exists := kept[date]; exists {
			report.Duplicates++
		}
		kept[date] = domain.VaccinationRecord{
			Country:      raw.Country,
			Date:         date,
			Vaccinations: point.Value,
		}
	}

	records := make([]domain.VaccinationRecord, 0, len(kept))
	for _, record := range kept {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })

	report.Kept = len(records)
	if report.Kept == 0 {
		warn(logger, "no valid vaccination entries after normalization", "country", raw.Country, "seen", report.Seen)
	}

	for i := 1; i < len(records); i++ {
		if records[i].Vaccinations < records[i-1].Vaccinations {
			warn(logger, "cumulative vaccinations decreased",
				"country", raw.Country, "date", records[i].Date.Format(isoDateLayout))
		}
	}

	return records, report
}

// acceptDate parses a raw date key and checks the inclusive range filter,
// updating the report when the entry has to be dropped.
func acceptDate(value string, start, end time.Time, report *Report, logger *slog.Logger) (time.Time, bool) {
	date, err := parseDate(value)
	if err != nil {
		report.InvalidDate++
		warn(logger, "dropping entry with invalid date", "raw_date", value)
		return time.Time{}, false
	}
	if date.Before(start) || date.After(end) {
		report.OutOfRange++
		return time.Time{}, false
	}
	return date, true
}

// Day normalizes a date range bound to UTC midnight so comparisons against
// parsed timeline dates are exact.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func parseDate(value string) (time.Time, error) {
	t, err := time.Parse(apiDateLayout, value)
	if err != nil {
		t, err = time.Parse(isoDateLayout, value)
		if err != nil {
			return time.Time{}, err
		}
	}
	return Day(t.Year(), t.Month(), t.Day()), nil
}

func lookupByDate(points []domain.RawPoint) map[time.Time]int64 {
	lookup := make(map[time.Time]int64, len(points))
	for _, point := range points {
		date, err := parseDate(point.Date)
		if err != nil {
			continue
		}
		lookup[date] = point.Value
	}
	return lookup
}

// flagDecreases logs cumulative counters that went down; the API does this
// occasionally and the records are stored as-is.
func flagDecreases(records []domain.CaseRecord, logger *slog.Logger) {
	for i := 1; i < len(records); i++ {
		prev, cur := records[i-1], records[i]
		if cur.Cases < prev.Cases || cur.Deaths < prev.Deaths || cur.Recovered < prev.Recovered {
			warn(logger, "cumulative counter decreased",
				"country", cur.Country, "date", cur.Date.Format(isoDateLayout))
		}
	}
}

func warn(logger *slog.Logger, msg string, args ...any) {
	if logger != nil {
		logger.Warn(msg, args...)
	}
}
