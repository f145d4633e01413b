package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"HealthMetricsETL/internal/domain"
	"HealthMetricsETL/internal/logging"
	"HealthMetricsETL/internal/query"
)

func newTestRepository(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := NewPostgresRepository(db, query.NewCatalog(), logging.Discard())
	return repo, mock
}

func day(d int) time.Time {
	return time.Date(2023, time.January, d, 0, 0, 0, 0, time.UTC)
}

func TestUpsertCasesCountsInsertedAndUpdated(t *testing.T) {
	t.Parallel()

	repo, mock := newTestRepository(t)

	records := []domain.CaseRecord{
		{Country: "India", Date: day(1), Cases: 100, Deaths: 1, Recovered: 10},
		{Country: "India", Date: day(2), Cases: 200, Deaths: 2, Recovered: 20},
	}

	// First record lands fresh, second hits the (country, date) key.
	mock.ExpectQuery(regexp.QuoteMeta(upsertCaseSQL)).
		WithArgs("India", day(1), int64(100), int64(1), int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta(upsertCaseSQL)).
		WithArgs("India", day(2), int64(200), int64(2), int64(20)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(false))

	result, err := repo.UpsertCases(context.Background(), records)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if result.Inserted != 1 || result.Updated != 1 {
		t.Fatalf("expected inserted=1 updated=1, got %+v", result)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpsertCasesSecondRunInsertsNothing(t *testing.T) {
	t.Parallel()

	repo, mock := newTestRepository(t)

	records := []domain.CaseRecord{
		{Country: "Malta", Date: day(1), Cases: 5},
	}

	mock.ExpectQuery(regexp.QuoteMeta(upsertCaseSQL)).
		WithArgs("Malta", day(1), int64(5), int64(0), int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(false))

	result, err := repo.UpsertCases(context.Background(), records)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if result.Inserted != 0 || result.Updated != 1 {
		t.Fatalf("re-run must report inserted=0, got %+v", result)
	}
}

func TestUpsertCasesPartialFailureReportsProgress(t *testing.T) {
	t.Parallel()

	repo, mock := newTestRepository(t)

	records := []domain.CaseRecord{
		{Country: "Peru", Date: day(1), Cases: 1},
		{Country: "Peru", Date: day(2), Cases: 2},
	}

	mock.ExpectQuery(regexp.QuoteMeta(upsertCaseSQL)).
		WithArgs("Peru", day(1), int64(1), int64(0), int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta(upsertCaseSQL)).
		WithArgs("Peru", day(2), int64(2), int64(0), int64(0)).
		WillReturnError(errors.New("connection reset"))

	result, err := repo.UpsertCases(context.Background(), records)

	var storageErr *domain.StorageError
	if !errors.As(err, &storageErr) || storageErr.Kind != domain.StorageConnectionFailure {
		t.Fatalf("expected connection-failure storage error, got %v", err)
	}
	if result.Inserted != 1 || result.Updated != 0 {
		t.Fatalf("partial progress lost: %+v", result)
	}
}

func TestUpsertVaccinationsHandlesLargeValues(t *testing.T) {
	t.Parallel()

	repo, mock := newTestRepository(t)

	records := []domain.VaccinationRecord{
		{Country: "India", Date: day(1), Vaccinations: 2_200_000_000},
	}

	mock.ExpectQuery(regexp.QuoteMeta(upsertVaccinationSQL)).
		WithArgs("India", day(1), int64(2_200_000_000)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(true))

	result, err := repo.UpsertVaccinations(context.Background(), records)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if result.Inserted != 1 {
		t.Fatalf("expected inserted=1, got %+v", result)
	}
}

func TestListTables(t *testing.T) {
	t.Parallel()

	repo, mock := newTestRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT tablename FROM pg_catalog.pg_tables WHERE schemaname = current_schema() ORDER BY tablename`)).
		WillReturnRows(sqlmock.NewRows([]string{"tablename"}).
			AddRow("covid_stats").
			AddRow("vaccination_data"))

	tables, err := repo.ListTables(context.Background())
	if err != nil {
		t.Fatalf("list tables: %v", err)
	}
	if len(tables) != 2 || tables[0] != "covid_stats" || tables[1] != "vaccination_data" {
		t.Fatalf("unexpected tables: %v", tables)
	}
}

func TestDropTableNotFound(t *testing.T) {
	t.Parallel()

	repo, mock := newTestRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT EXISTS (SELECT 1 FROM pg_catalog.pg_tables WHERE schemaname = current_schema() AND tablename = $1)`)).
		WithArgs("missing_table").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err := repo.DropTable(context.Background(), "missing_table")

	var storageErr *domain.StorageError
	if !errors.As(err, &storageErr) || storageErr.Kind != domain.StorageNotFound {
		t.Fatalf("expected not-found storage error, got %v", err)
	}
	// No DROP statement may run; unmet expectations would flag one.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDropTableQuotesIdentifier(t *testing.T) {
	t.Parallel()

	repo, mock := newTestRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT EXISTS (SELECT 1 FROM pg_catalog.pg_tables WHERE schemaname = current_schema() AND tablename = $1)`)).
		WithArgs("covid_stats").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(regexp.QuoteMeta(`DROP TABLE "covid_stats"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.DropTable(context.Background(), "covid_stats"); err != nil {
		t.Fatalf("drop table: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRunQueryScansRows(t *testing.T) {
	t.Parallel()

	repo, mock := newTestRepository(t)

	mock.ExpectQuery("SELECT s.country, s.cases AS total_cases FROM covid_stats s").
		WillReturnRows(sqlmock.NewRows([]string{"country", "total_cases"}).
			AddRow("India", int64(44000000)).
			AddRow("Malta", int64(120000)))

	result, err := repo.RunQuery(context.Background(), "total_cases", domain.QueryParams{})
	if err != nil {
		t.Fatalf("run query: %v", err)
	}
	if len(result.Columns) != 2 || result.Columns[0] != "country" {
		t.Fatalf("unexpected columns: %v", result.Columns)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Rows))
	}
	if result.Rows[0][0] != "India" || result.Rows[0][1] != int64(44000000) {
		t.Fatalf("unexpected first row: %v", result.Rows[0])
	}
}

func TestRunQueryEmptyStoreYieldsEmptyResult(t *testing.T) {
	t.Parallel()

	repo, mock := newTestRepository(t)

	mock.ExpectQuery("SELECT s.country, s.cases AS total_cases FROM covid_stats s").
		WillReturnRows(sqlmock.NewRows([]string{"country", "total_cases"}))

	result, err := repo.RunQuery(context.Background(), "total_cases", domain.QueryParams{})
	if err != nil {
		t.Fatalf("empty store must not error: %v", err)
	}
	if len(result.Rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(result.Rows))
	}
}

func TestRunQueryUnknownName(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepository(t)

	_, err := repo.RunQuery(context.Background(), "bogus", domain.QueryParams{})

	var queryErr *domain.QueryError
	if !errors.As(err, &queryErr) || queryErr.Kind != domain.QueryUnknownName {
		t.Fatalf("expected unknown-name error, got %v", err)
	}
}
