package query

import (
	"errors"
	"strings"
	"testing"

	"HealthMetricsETL/internal/domain"
)

func TestResolveUnknownName(t *testing.T) {
	t.Parallel()

	_, err := NewCatalog().Resolve("no_such_query")

	var queryErr *domain.QueryError
	if !errors.As(err, &queryErr) || queryErr.Kind != domain.QueryUnknownName {
		t.Fatalf("expected unknown-name query error, got %v", err)
	}
}

func TestValidateScopeMismatch(t *testing.T) {
	t.Parallel()

	// A vaccine query must not be reachable through the COVID command.
	_, err := NewCatalog().Validate(ScopeCovid, "total_vaccinations", domain.QueryParams{})

	var queryErr *domain.QueryError
	if !errors.As(err, &queryErr) || queryErr.Kind != domain.QueryUnknownName {
		t.Fatalf("expected unknown-name query error, got %v", err)
	}
}

func TestValidateMissingParameters(t *testing.T) {
	t.Parallel()

	catalog := NewCatalog()

	cases := []struct {
		name   string
		scope  Scope
		query  string
		params domain.QueryParams
		param  string
	}{
		{"country absent", ScopeCovid, "daily_trends", domain.QueryParams{}, "country"},
		{"n absent", ScopeCovid, "most_critical_cases", domain.QueryParams{}, "n"},
		{"n not positive", ScopeVaccine, "top_n_countries_by_vaccines", domain.QueryParams{N: -2}, "n"},
		{"metric absent", ScopeCovid, "top_n_countries_by_metric", domain.QueryParams{N: 3}, "metric"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := catalog.Validate(tc.scope, tc.query, tc.params)
			var queryErr *domain.QueryError
			if !errors.As(err, &queryErr) || queryErr.Kind != domain.QueryMissingParameter {
				t.Fatalf("expected missing-parameter error, got %v", err)
			}
			if queryErr.Param != tc.param {
				t.Fatalf("expected param %q, got %q", tc.param, queryErr.Param)
			}
		})
	}
}

func TestValidateRejectsUnknownMetric(t *testing.T) {
	t.Parallel()

	_, err := NewCatalog().Validate(ScopeCovid, "top_n_countries_by_metric",
		domain.QueryParams{Metric: "vibes", N: 3})

	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error for bad metric, got %v", err)
	}
}

func TestTotalCasesSQL(t *testing.T) {
	t.Parallel()

	catalog := NewCatalog()
	def, err := catalog.Resolve("total_cases")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	sqlText, args, err := def.SQL(domain.QueryParams{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := "SELECT s.country, s.cases AS total_cases FROM covid_stats s " +
		"JOIN (SELECT country, MAX(date) AS max_date FROM covid_stats GROUP BY country) m " +
		"ON s.country = m.country AND s.date = m.max_date " +
		"ORDER BY total_cases DESC, s.country ASC"
	if sqlText != want {
		t.Fatalf("unexpected SQL:\n got %s\nwant %s", sqlText, want)
	}
	if len(args) != 0 {
		t.Fatalf("expected no args, got %v", args)
	}

	sqlText, args, err = def.SQL(domain.QueryParams{Country: "India"})
	if err != nil {
		t.Fatalf("build with country: %v", err)
	}
	if !strings.Contains(sqlText, "WHERE s.country = $1") {
		t.Fatalf("country filter missing: %s", sqlText)
	}
	if len(args) != 1 || args[0] != "India" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestTopNByMetricSQL(t *testing.T) {
	t.Parallel()

	def, err := NewCatalog().Validate(ScopeCovid, "top_n_countries_by_metric",
		domain.QueryParams{Metric: "deaths", N: 3})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	sqlText, _, err := def.SQL(domain.QueryParams{Metric: "deaths", N: 3})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(sqlText, "s.deaths AS total") {
		t.Fatalf("metric column missing: %s", sqlText)
	}
	if !strings.Contains(sqlText, "ORDER BY total DESC, s.country ASC") {
		t.Fatalf("tie-break order missing: %s", sqlText)
	}
	if !strings.Contains(sqlText, "LIMIT 3") {
		t.Fatalf("limit missing: %s", sqlText)
	}
}

func TestRecoveredRateGuardsZeroCases(t *testing.T) {
	t.Parallel()

	def, err := NewCatalog().Resolve("recovered_rate_over_50")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	sqlText, _, err := def.SQL(domain.QueryParams{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(sqlText, "s.cases > 0") {
		t.Fatalf("zero-case guard missing: %s", sqlText)
	}
}

func TestHighestSingleDaySQL(t *testing.T) {
	t.Parallel()

	def, err := NewCatalog().Resolve("highest_single_day_vaccinations")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	sqlText, args, err := def.SQL(domain.QueryParams{Country: "India"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(sqlText, "LAG(vaccinations) OVER (ORDER BY date)") {
		t.Fatalf("window delta missing: %s", sqlText)
	}
	if !strings.Contains(sqlText, "delta IS NOT NULL") {
		t.Fatalf("null-delta filter missing: %s", sqlText)
	}
	if !strings.Contains(sqlText, "LIMIT 1") {
		t.Fatalf("single-row limit missing: %s", sqlText)
	}
	if len(args) != 1 || args[0] != "India" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestGlobalHighestSingleDayPartitionsByCountry(t *testing.T) {
	t.Parallel()

	def, err := NewCatalog().Resolve("global_highest_single_day_vaccinations")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	sqlText, _, err := def.SQL(domain.QueryParams{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(sqlText, "PARTITION BY country ORDER BY date") {
		t.Fatalf("per-country partition missing: %s", sqlText)
	}
}

func TestNamesAreScopedAndSorted(t *testing.T) {
	t.Parallel()

	catalog := NewCatalog()

	covid := catalog.Names(ScopeCovid)
	vaccine := catalog.Names(ScopeVaccine)
	if len(covid) != 8 {
		t.Fatalf("expected 8 covid queries, got %d: %v", len(covid), covid)
	}
	if len(vaccine) != 7 {
		t.Fatalf("expected 7 vaccine queries, got %d: %v", len(vaccine), vaccine)
	}
	for i := 1; i < len(covid); i++ {
		if covid[i-1] >= covid[i] {
			t.Fatalf("names not sorted: %v", covid)
		}
	}
}
