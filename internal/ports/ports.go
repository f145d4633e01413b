package ports

import (
	"context"
	"time"

	"HealthMetricsETL/internal/domain"
)

// SeriesSource pulls raw cumulative time series from the upstream API.
type SeriesSource interface {
	FetchCases(ctx context.Context, country string, start, end time.Time) (domain.RawCaseSeries, error)
	FetchVaccinations(ctx context.Context, country string, start, end time.Time) (domain.RawVaccineSeries, error)
}

// StatsRepository owns all persisted state. Upserts are keyed on
// (country, date) so overlapping batches stay idempotent.
type StatsRepository interface {
	EnsureSchema(ctx context.Context) error
	UpsertCases(ctx context.Context, records []domain.CaseRecord) (domain.UpsertResult, error)
	UpsertVaccinations(ctx context.Context, records []domain.VaccinationRecord) (domain.UpsertResult, error)
	ListTables(ctx context.Context) ([]string, error)
	DropTable(ctx context.Context, name string) error
	DropAllTables(ctx context.Context) (int, error)
	RunQuery(ctx context.Context, name string, params domain.QueryParams) (*domain.ResultSet, error)
}
