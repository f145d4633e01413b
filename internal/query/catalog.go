// Package query defines the fixed catalog of named aggregation queries over
// stored records. Each definition builds Postgres SQL with squirrel; "latest"
// always means the maximum stored date per country, independently per country.
package query

import (
	sq "github.com/Masterminds/squirrel"

	"HealthMetricsETL/internal/domain"
)

// Scope separates the COVID catalog from the vaccination catalog so the two
// CLI query commands cannot reach into each other's queries.
type Scope string

const (
	ScopeCovid   Scope = "covid"
	ScopeVaccine Scope = "vaccine"
)

// Param names an input a query definition may require.
type Param string

const (
	ParamCountry Param = "country"
	ParamMetric  Param = "metric"
	ParamN       Param = "n"
)

// Definition is one named query: its required inputs and SQL builder.
type Definition struct {
	Name     string
	Scope    Scope
	Required []Param
	Build    func(p domain.QueryParams) sq.SelectBuilder
}

var caseMetrics = map[string]bool{
	"cases":     true,
	"deaths":    true,
	"recovered": true,
}

// psql builds statements with Postgres dollar placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const (
	// latestCases joins covid_stats against each country's max stored date.
	latestCases = "(SELECT country, MAX(date) AS max_date FROM covid_stats GROUP BY country) m" +
		" ON s.country = m.country AND s.date = m.max_date"
	// latestVaccinations is the same join for vaccination_data.
	latestVaccinations = "(SELECT country, MAX(date) AS max_date FROM vaccination_data GROUP BY country) m" +
		" ON v.country = m.country AND v.date = m.max_date"
)

// NewCatalog registers every query the operator can run.
func NewCatalog() *Catalog {
	c := newCatalog()

	c.register(Definition{
		Name:  "total_cases",
		Scope: ScopeCovid,
		Build: func(p domain.QueryParams) sq.SelectBuilder {
			b := psql.Select("s.country", "s.cases AS total_cases").
				From("covid_stats s").
				Join(latestCases)
			if p.Country != "" {
				b = b.Where(sq.Eq{"s.country": p.Country})
			}
			return b.OrderBy("total_cases DESC", "s.country ASC")
		},
	})

	c.register(Definition{
		Name:     "daily_trends",
		Scope:    ScopeCovid,
		Required: []Param{ParamCountry},
		Build: func(p domain.QueryParams) sq.SelectBuilder {
			return psql.Select("date", "cases", "deaths", "recovered").
				From("covid_stats").
				Where(sq.Eq{"country": p.Country}).
				OrderBy("date ASC")
		},
	})

	c.register(Definition{
		Name:     "top_n_countries_by_metric",
		Scope:    ScopeCovid,
		Required: []Param{ParamMetric, ParamN},
		Build: func(p domain.QueryParams) sq.SelectBuilder {
			// p.Metric is whitelisted in Validate before it reaches SQL text.
			return psql.Select("s.country", "s."+p.Metric+" AS total").
				From("covid_stats s").
				Join(latestCases).
				OrderBy("total DESC", "s.country ASC").
				Limit(uint64(p.N))
		},
	})

	c.register(Definition{
		Name:  "global_summary",
		Scope: ScopeCovid,
		Build: func(p domain.QueryParams) sq.SelectBuilder {
			return psql.Select(
				"COALESCE(SUM(s.cases), 0) AS total_cases",
				"COALESCE(SUM(s.deaths), 0) AS total_deaths",
				"COALESCE(SUM(s.recovered), 0) AS total_recovered").
				From("covid_stats s").
				Join(latestCases)
		},
	})

	c.register(Definition{
		Name:  "countries_with_zero_deaths",
		Scope: ScopeCovid,
		Build: func(p domain.QueryParams) sq.SelectBuilder {
			return psql.Select("s.country").
				From("covid_stats s").
				Join(latestCases).
				Where(sq.Eq{"s.deaths": 0}).
				OrderBy("s.country ASC")
		},
	})

	c.register(Definition{
		Name:     "most_critical_cases",
		Scope:    ScopeCovid,
		Required: []Param{ParamN},
		Build: func(p domain.QueryParams) sq.SelectBuilder {
			return psql.Select("s.country", "s.deaths AS total_deaths").
				From("covid_stats s").
				Join(latestCases).
				OrderBy("total_deaths DESC", "s.country ASC").
				Limit(uint64(p.N))
		},
	})

	c.register(Definition{
		Name:  "recovered_rate_over_50",
		Scope: ScopeCovid,
		Build: func(p domain.QueryParams) sq.SelectBuilder {
			// cases > 0 guard keeps zero-case countries out instead of erroring.
			return psql.Select(
				"s.country",
				"s.recovered",
				"s.cases",
				"ROUND(s.recovered::numeric / s.cases::numeric * 100, 2) AS recovery_rate").
				From("covid_stats s").
				Join(latestCases).
				Where("s.cases > 0 AND s.recovered::numeric / s.cases::numeric > 0.5").
				OrderBy("recovery_rate DESC", "s.country ASC")
		},
	})

	c.register(Definition{
		Name:     "show_all_for_country",
		Scope:    ScopeCovid,
		Required: []Param{ParamCountry},
		Build: func(p domain.QueryParams) sq.SelectBuilder {
			return psql.Select("date", "cases", "deaths", "recovered").
				From("covid_stats").
				Where(sq.Eq{"country": p.Country}).
				OrderBy("date ASC")
		},
	})

	c.register(Definition{
		Name:  "total_vaccinations",
		Scope: ScopeVaccine,
		Build: func(p domain.QueryParams) sq.SelectBuilder {
			return psql.Select("v.country", "v.vaccinations AS total_vaccinations").
				From("vaccination_data v").
				Join(latestVaccinations).
				OrderBy("total_vaccinations DESC", "v.country ASC")
		},
	})

	c.register(Definition{
		Name:     "daily_trends_vaccine",
		Scope:    ScopeVaccine,
		Required: []Param{ParamCountry},
		Build: func(p domain.QueryParams) sq.SelectBuilder {
			return psql.Select("date", "vaccinations").
				From("vaccination_data").
				Where(sq.Eq{"country": p.Country}).
				OrderBy("date ASC")
		},
	})

	c.register(Definition{
		Name:     "top_n_countries_by_vaccines",
		Scope:    ScopeVaccine,
		Required: []Param{ParamN},
		Build: func(p domain.QueryParams) sq.SelectBuilder {
			return psql.Select("v.country", "v.vaccinations AS total_vaccinations").
				From("vaccination_data v").
				Join(latestVaccinations).
				OrderBy("total_vaccinations DESC", "v.country ASC").
				Limit(uint64(p.N))
		},
	})

	c.register(Definition{
		Name:     "highest_single_day_vaccinations",
		Scope:    ScopeVaccine,
		Required: []Param{ParamCountry},
		Build: func(p domain.QueryParams) sq.SelectBuilder {
			daily := psql.Select(
				"date",
				"vaccinations - LAG(vaccinations) OVER (ORDER BY date) AS delta").
				From("vaccination_data").
				Where(sq.Eq{"country": p.Country})
			return psql.Select("date", "delta AS daily_vaccinations").
				FromSelect(daily, "d").
				Where("delta IS NOT NULL").
				OrderBy("delta DESC", "date ASC").
				Limit(1)
		},
	})

	c.register(Definition{
		Name:  "global_highest_single_day_vaccinations",
		Scope: ScopeVaccine,
		Build: func(p domain.QueryParams) sq.SelectBuilder {
			daily := psql.Select(
				"country",
				"date",
				"vaccinations - LAG(vaccinations) OVER (PARTITION BY country ORDER BY date) AS delta").
				From("vaccination_data")
			return psql.Select("country", "date", "delta AS daily_vaccinations").
				FromSelect(daily, "d").
				Where("delta IS NOT NULL").
				OrderBy("delta DESC", "country ASC", "date ASC").
				Limit(1)
		},
	})

	c.register(Definition{
		Name:     "avg_daily_vaccinations",
		Scope:    ScopeVaccine,
		Required: []Param{ParamCountry},
		Build: func(p domain.QueryParams) sq.SelectBuilder {
			daily := psql.Select(
				"vaccinations - LAG(vaccinations) OVER (ORDER BY date) AS delta").
				From("vaccination_data").
				Where(sq.Eq{"country": p.Country})
			return psql.Select("ROUND(AVG(delta), 2) AS avg_daily_vaccinations").
				FromSelect(daily, "d").
				Where("delta IS NOT NULL")
		},
	})

	c.register(Definition{
		Name:  "countries_with_zero_vaccinations",
		Scope: ScopeVaccine,
		Build: func(p domain.QueryParams) sq.SelectBuilder {
			return psql.Select("v.country").
				From("vaccination_data v").
				Join(latestVaccinations).
				Where(sq.Eq{"v.vaccinations": 0}).
				OrderBy("v.country ASC")
		},
	})

	return c
}
