package storage

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/lib/pq"

	"HealthMetricsETL/internal/domain"
	"HealthMetricsETL/internal/ports"
	"HealthMetricsETL/internal/query"
)

// PostgresRepository persists normalized health records into Postgres and is
// the sole owner of stored state.
type PostgresRepository struct {
	db      *sql.DB
	catalog *query.Catalog
	logger  *slog.Logger
}

var _ ports.StatsRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation and the query catalog.
func NewPostgresRepository(db *sql.DB, catalog *query.Catalog, logger *slog.Logger) *PostgresRepository {
	return &PostgresRepository{db: db, catalog: catalog, logger: logger}
}

const createCovidStatsSQL = `CREATE TABLE IF NOT EXISTS covid_stats (
    country TEXT NOT NULL,
    date DATE NOT NULL,
    cases BIGINT NOT NULL DEFAULT 0,
    deaths BIGINT NOT NULL DEFAULT 0,
    recovered BIGINT NOT NULL DEFAULT 0,
    last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (country, date)
)`

const createVaccinationDataSQL = `CREATE TABLE IF NOT EXISTS vaccination_data (
    country TEXT NOT NULL,
    date DATE NOT NULL,
    vaccinations BIGINT NOT NULL DEFAULT 0,
    last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (country, date)
)`

// upsert statements report (xmax = 0), true exactly when the row was freshly
// inserted, so the caller can split inserted from updated counts.
const upsertCaseSQL = `INSERT INTO covid_stats (country, date, cases, deaths, recovered, last_updated)
VALUES ($1, $2, $3, $4, $5, NOW())
ON CONFLICT (country, date) DO UPDATE
SET cases = EXCLUDED.cases,
    deaths = EXCLUDED.deaths,
    recovered = EXCLUDED.recovered,
    last_updated = NOW()
RETURNING (xmax = 0)`

const upsertVaccinationSQL = `INSERT INTO vaccination_data (country, date, vaccinations, last_updated)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (country, date) DO UPDATE
SET vaccinations = EXCLUDED.vaccinations,
    last_updated = NOW()
RETURNING (xmax = 0)`

// EnsureSchema creates both entity tables when absent; safe to call on every
// ingest.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{createCovidStatsSQL, createVaccinationDataSQL} {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return storageError("ensure schema", err)
		}
	}
	return nil
}

// UpsertCases writes a batch keyed on (country, date). Re-running the same
// batch yields inserted=0. On failure the counts accumulated before the
// failing record are returned alongside the error.
func (r *PostgresRepository) UpsertCases(ctx context.Context, records []domain.CaseRecord) (domain.UpsertResult, error) {
	var result domain.UpsertResult
	for _, record := range records {
		var inserted bool
		err := r.db.QueryRowContext(ctx, upsertCaseSQL,
			record.Country,
			record.Date,
			record.Cases,
			record.Deaths,
			record.Recovered,
		).Scan(&inserted)
		if err != nil {
			return result, storageError("upsert covid_stats", err)
		}
		if inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
	}
	r.debug("upserted case batch", "inserted", result.Inserted, "updated", result.Updated)
	return result, nil
}

// UpsertVaccinations mirrors UpsertCases for the vaccination table.
func (r *PostgresRepository) UpsertVaccinations(ctx context.Context, records []domain.VaccinationRecord) (domain.UpsertResult, error) {
	var result domain.UpsertResult
	for _, record := range records {
		var inserted bool
		err := r.db.QueryRowContext(ctx, upsertVaccinationSQL,
			record.Country,
			record.Date,
			record.Vaccinations,
		).Scan(&inserted)
		if err != nil {
			return result, storageError("upsert vaccination_data", err)
		}
		if inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
	}
	r.debug("upserted vaccination batch", "inserted", result.Inserted, "updated", result.Updated)
	return result, nil
}

// ListTables returns the persisted table names in the current schema.
func (r *PostgresRepository) ListTables(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT tablename FROM pg_catalog.pg_tables WHERE schemaname = current_schema() ORDER BY tablename`)
	if err != nil {
		return nil, storageError("list tables", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, storageError("list tables", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list tables", err)
	}
	return tables, nil
}

// DropTable removes one table; a name not present in the store yields a
// NotFound error and leaves everything unchanged.
func (r *PostgresRepository) DropTable(ctx context.Context, name string) error {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_catalog.pg_tables WHERE schemaname = current_schema() AND tablename = $1)`,
		name,
	).Scan(&exists)
	if err != nil {
		return storageError("drop table", err)
	}
	if !exists {
		return &domain.StorageError{Kind: domain.StorageNotFound, Op: "drop table " + name}
	}

	if _, err := r.db.ExecContext(ctx, "DROP TABLE "+pq.QuoteIdentifier(name)); err != nil {
		return storageError("drop table", err)
	}
	r.debug("dropped table", "table", name)
	return nil
}

// DropAllTables drops every table in the current schema and reports how many
// went away.
func (r *PostgresRepository) DropAllTables(ctx context.Context) (int, error) {
	tables, err := r.ListTables(ctx)
	if err != nil {
		return 0, err
	}

	dropped := 0
	for _, name := range tables {
		if err := r.DropTable(ctx, name); err != nil {
			return dropped, err
		}
		dropped++
	}
	return dropped, nil
}

// RunQuery renders a catalog definition and executes it, scanning rows
// generically so every query shares one code path.
func (r *PostgresRepository) RunQuery(ctx context.Context, name string, params domain.QueryParams) (*domain.ResultSet, error) {
	def, err := r.catalog.Resolve(name)
	if err != nil {
		return nil, err
	}

	sqlText, args, err := def.SQL(params)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, storageError("query "+name, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, storageError("query "+name, err)
	}

	result := &domain.ResultSet{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, storageError("query "+name, err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("query "+name, err)
	}
	return result, nil
}

func (r *PostgresRepository) debug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}

// storageError maps driver errors onto the storage taxonomy: integrity
// violations (class 23) become ConstraintViolation, everything else is
// treated as a connectivity failure.
func storageError(op string, err error) error {
	kind := domain.StorageConnectionFailure
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && strings.HasPrefix(string(pqErr.Code), "23") {
		kind = domain.StorageConstraintViolation
	}
	return &domain.StorageError{Kind: kind, Op: op, Err: err}
}
